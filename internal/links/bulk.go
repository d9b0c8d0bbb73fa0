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

package links

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"github.com/soerfi/qr-wizard/internal/qrimage"
	"github.com/soerfi/qr-wizard/internal/store"
)

// BulkDelete removes every link in ids (and its dependent rows), returning
// how many were actually found and deleted.
func (m *Manager) BulkDelete(ids []int64) (int, error) {
	count := 0
	for _, id := range ids {
		if err := m.store.DeleteLink(id); err != nil {
			if err == store.ErrNotFound {
				continue
			}
			return count, err
		}
		count++
	}
	return count, nil
}

// bulkUpdatableFields is the closed set of fields the bulk_action "update"
// path may touch, matching the original's whitelist exactly.
var bulkUpdatableFields = []string{"campaign", "channel", "location", "owner", "status", "auto_append_utm", "expires_at"}

// BulkUpdate applies data to every link in ids, but — matching the original
// app's `if field in data and data[field]` check — a field is applied only
// when its value is truthy: an explicit empty string, zero, or false is
// silently ignored rather than clearing the field. This is a deliberate
// quirk carried over unchanged, not a bug: bulk update is meant for setting
// values across many links at once, not blanking them.
func (m *Manager) BulkUpdate(ids []int64, data map[string]any) (int, error) {
	count := 0
	for _, id := range ids {
		l, err := m.store.GetLink(id)
		if err != nil {
			if err == store.ErrNotFound {
				continue
			}
			return count, err
		}

		updated := false
		for _, field := range bulkUpdatableFields {
			v, ok := data[field]
			if !ok || !isTruthy(v) {
				continue
			}
			switch field {
			case "auto_append_utm":
				val := toBool(v, l.AutoAppendUTM)
				if l.AutoAppendUTM != val {
					l.AutoAppendUTM = val
					updated = true
				}
			case "status":
				val := statusValue(fmt.Sprint(v))
				if l.Status != val {
					l.Status = val
					updated = true
				}
			case "expires_at":
				raw, _ := v.(string)
				t, err := parseISOTime(raw)
				if err != nil {
					continue
				}
				if l.ExpiresAt == nil || !l.ExpiresAt.Equal(t) {
					l.ExpiresAt = &t
					updated = true
				}
			default:
				val := fmt.Sprint(v)
				if currentLinkTextField(l, field) != val {
					setLinkTextField(l, field, val)
					updated = true
				}
			}
		}

		if updated {
			if err := m.store.UpdateLink(l); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

func currentLinkTextField(l *store.Link, field string) string {
	switch field {
	case "campaign":
		return l.Campaign
	case "channel":
		return l.Channel
	case "location":
		return l.Location
	case "owner":
		return l.Owner
	default:
		return ""
	}
}

// isTruthy mirrors Python's `if data[field]` check: "", nil, 0 and false are
// falsy; everything else (including the string "0"... no, Python treats "0"
// as truthy since it's a non-empty string) is truthy.
func isTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return true
	}
}

// ZipDownload is the result of a bulk ZIP image export.
type ZipDownload struct {
	Filename string
	Data     []byte
}

// BulkDownloadZIP renders a PNG or SVG QR image for each id's tracking URL
// and bundles them into a ZIP archive, skipping (not failing) any link whose
// image fails to render.
func (m *Manager) BulkDownloadZIP(ids []int64, format qrimage.Format, sizePx int) (*ZipDownload, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, id := range ids {
		l, err := m.store.GetLink(id)
		if err != nil {
			continue
		}
		data, _, ext, err := qrimage.Render(m.TrackingURL(l.Slug), format, sizePx)
		if err != nil {
			continue
		}
		fname := safeFilename(l.Slug, l.Name, ext)
		w, err := zw.Create(fname)
		if err != nil {
			continue
		}
		w.Write(data)
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}

	return &ZipDownload{Filename: fmt.Sprintf("qrcodes_%s.zip", format), Data: buf.Bytes()}, nil
}

// safeFilename builds "slug_name.ext", keeping only alphanumerics, spaces,
// hyphens and underscores from name — matching the original's sanitization.
func safeFilename(slug, name, ext string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	safeName := strings.TrimSpace(b.String())
	if safeName == "" {
		return fmt.Sprintf("%s.%s", slug, ext)
	}
	return fmt.Sprintf("%s_%s.%s", slug, safeName, ext)
}
