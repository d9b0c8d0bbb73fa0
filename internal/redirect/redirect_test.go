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

package redirect

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/soerfi/qr-wizard/internal/geo"
	"github.com/soerfi/qr-wizard/internal/logging"
	"github.com/soerfi/qr-wizard/internal/store"
)

func newTestHandler(t *testing.T) (*Handler, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	h := New(s, geo.NullResolver{}, "salt", 24*time.Hour, "qr_tid", logging.New(logging.ErrorLevel, false))
	return h, s
}

func TestResolveUnknownSlug(t *testing.T) {
	h, _ := newTestHandler(t)
	r := httptest.NewRequest(http.MethodGet, "/t/doesnotexist", nil)
	if _, err := h.Resolve(r); err != store.ErrNotFound {
		t.Errorf("error = %v; want store.ErrNotFound", err)
	}
}

func TestResolveArchivedLinkIsGone(t *testing.T) {
	h, s := newTestHandler(t)
	l := &store.Link{Slug: "archived1", DestinationURL: "https://example.com", Status: store.StatusArchived}
	if err := s.CreateLink(l); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/t/archived1", nil)
	if _, err := h.Resolve(r); err != ErrGone {
		t.Errorf("error = %v; want ErrGone", err)
	}
}

func TestResolveRecordsScanAndAppliesUTM(t *testing.T) {
	h, s := newTestHandler(t)
	l := &store.Link{
		Slug: "utmtest", DestinationURL: "https://example.com/landing", Status: store.StatusActive,
		AutoAppendUTM: true, UTMSource: "newsletter", UTMCampaign: "spring",
	}
	if err := s.CreateLink(l); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/t/utmtest", nil)
	r.Header.Set("User-Agent", "Mozilla/5.0")
	dest, err := h.Resolve(r)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !contains(dest, "utm_source=newsletter") || !contains(dest, "utm_campaign=spring") || !contains(dest, "qr_tid=utmtest") {
		t.Errorf("destination = %q; missing expected UTM/tracking params", dest)
	}

	counts, err := s.ScanCounts([]int64{l.ID})
	if err != nil {
		t.Fatalf("ScanCounts: %v", err)
	}
	if counts[l.ID] != 1 {
		t.Errorf("scan count = %d; want 1", counts[l.ID])
	}
}

func TestResolveDoesNotOverwriteExistingTrackingParam(t *testing.T) {
	h, s := newTestHandler(t)
	l := &store.Link{Slug: "notrack", DestinationURL: "https://example.com?qr_tid=custom", Status: store.StatusActive}
	if err := s.CreateLink(l); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/t/notrack", nil)
	dest, err := h.Resolve(r)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !contains(dest, "qr_tid=custom") {
		t.Errorf("destination = %q; expected pre-existing qr_tid to be preserved", dest)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}
