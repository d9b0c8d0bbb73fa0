// Copyright 2025 Patrick Deglon
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package webassets serves the admin dashboard's static single-page-app
// shell (JS/CSS/icons) with path-traversal-safe file resolution and
// content-hash cache busting.
package webassets

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/soerfi/qr-wizard/internal/common"
)

// Manager serves static assets with versioning and caching.
type Manager struct {
	basePath    string
	urlPrefix   string
	cache       map[string]*Asset
	hashCache   map[string]string
	mu          sync.RWMutex
	development bool
}

// Asset is a single loaded static file.
type Asset struct {
	Path        string
	Content     []byte
	ContentType string
	Hash        string
	ModTime     time.Time
}

// NewManager creates a Manager rooted at basePath, served under urlPrefix.
// development disables caching so edits are picked up without a restart.
func NewManager(basePath, urlPrefix string, development bool) *Manager {
	return &Manager{
		basePath:    basePath,
		urlPrefix:   strings.TrimRight(urlPrefix, "/"),
		cache:       make(map[string]*Asset),
		hashCache:   make(map[string]string),
		development: development,
	}
}

// AssetURL returns a cache-busted URL for an asset path relative to basePath.
func (m *Manager) AssetURL(path string) string {
	hash := m.assetHash(path)
	if hash != "" {
		return fmt.Sprintf("%s/%s?v=%s", m.urlPrefix, path, hash)
	}
	return fmt.Sprintf("%s/%s", m.urlPrefix, path)
}

// ServeIndex serves the SPA shell's index.html, uncached, so the dashboard
// always picks up a freshly deployed shell without the cache-busted
// asset-versioning ServeHTTP applies to CSS/JS.
func (m *Manager) ServeIndex(w http.ResponseWriter, r *http.Request) {
	validPath, err := common.ValidatePath(m.basePath, "index.html")
	if err != nil {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	asset, err := m.loadAsset(validPath)
	if err != nil {
		http.Error(w, "index.html not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", asset.ContentType)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Write(asset.Content)
}

// ServeHTTP serves static assets with ETag/Cache-Control headers.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, m.urlPrefix)
	path = strings.TrimPrefix(path, "/")

	validPath, err := common.ValidatePath(m.basePath, path)
	if err != nil {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	asset, err := m.loadAsset(validPath)
	if err != nil {
		http.Error(w, "asset not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", asset.ContentType)

	if !m.development {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.Header().Set("ETag", asset.Hash)
		if r.Header.Get("If-None-Match") == asset.Hash {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	} else {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	}

	w.Write(asset.Content)
}

// loadAsset loads an asset from a path already validated by common.ValidatePath.
func (m *Manager) loadAsset(fullPath string) (*Asset, error) {
	relPath, err := filepath.Rel(m.basePath, fullPath)
	if err != nil {
		return nil, err
	}

	if !m.development {
		m.mu.RLock()
		if asset, ok := m.cache[relPath]; ok {
			m.mu.RUnlock()
			return asset, nil
		}
		m.mu.RUnlock()
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- fullPath must be validated via common.ValidatePath before calling.
	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}

	hash := fmt.Sprintf("%x", sha256.Sum256(content))
	asset := &Asset{
		Path:        relPath,
		Content:     content,
		ContentType: contentType(relPath),
		Hash:        hash[:8],
		ModTime:     info.ModTime(),
	}

	if !m.development {
		m.mu.Lock()
		m.cache[relPath] = asset
		m.hashCache[relPath] = asset.Hash
		m.mu.Unlock()
	}

	return asset, nil
}

func (m *Manager) assetHash(path string) string {
	if m.development {
		return fmt.Sprintf("%d", time.Now().Unix())
	}

	m.mu.RLock()
	if hash, ok := m.hashCache[path]; ok {
		m.mu.RUnlock()
		return hash
	}
	m.mu.RUnlock()

	validPath, err := common.ValidatePath(m.basePath, path)
	if err != nil {
		return ""
	}
	if asset, err := m.loadAsset(validPath); err == nil {
		return asset.Hash
	}
	return ""
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".css":
		return "text/css"
	case ".js":
		return "application/javascript"
	case ".json":
		return "application/json"
	case ".html":
		return "text/html"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".ico":
		return "image/x-icon"
	case ".woff":
		return "font/woff"
	case ".woff2":
		return "font/woff2"
	default:
		return "application/octet-stream"
	}
}
