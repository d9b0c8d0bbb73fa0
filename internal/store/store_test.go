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

package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetLink(t *testing.T) {
	s := newTestStore(t)
	l := &Link{Slug: "abc123", DestinationURL: "https://example.com", Status: StatusActive}
	if err := s.CreateLink(l); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	if l.ID == 0 {
		t.Fatal("expected non-zero ID after create")
	}

	got, err := s.GetLinkBySlug("abc123")
	if err != nil {
		t.Fatalf("GetLinkBySlug: %v", err)
	}
	if got.DestinationURL != l.DestinationURL {
		t.Errorf("DestinationURL = %q; want %q", got.DestinationURL, l.DestinationURL)
	}

	if _, err := s.GetLinkBySlug("nope"); err != ErrNotFound {
		t.Errorf("GetLinkBySlug(missing) error = %v; want ErrNotFound", err)
	}
}

func TestSlugExists(t *testing.T) {
	s := newTestStore(t)
	l := &Link{Slug: "taken", DestinationURL: "https://example.com", Status: StatusActive}
	if err := s.CreateLink(l); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	taken, err := s.SlugExists("taken")
	if err != nil || !taken {
		t.Errorf("SlugExists(taken) = %v, %v; want true, nil", taken, err)
	}
	taken, err = s.SlugExists("free")
	if err != nil || taken {
		t.Errorf("SlugExists(free) = %v, %v; want false, nil", taken, err)
	}
}

func TestDeleteLinkCascades(t *testing.T) {
	s := newTestStore(t)
	l := &Link{Slug: "cascade", DestinationURL: "https://example.com", Status: StatusActive}
	if err := s.CreateLink(l); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	if err := s.InsertScan(&Scan{LinkID: l.ID, ScannedAt: time.Now()}); err != nil {
		t.Fatalf("InsertScan: %v", err)
	}
	g := &Goal{LinkID: &l.ID, Name: "signup", Active: true}
	if err := s.CreateGoal(g); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	if err := s.DeleteLink(l.ID); err != nil {
		t.Fatalf("DeleteLink: %v", err)
	}
	if _, err := s.GetLink(l.ID); err != ErrNotFound {
		t.Errorf("GetLink after delete = %v; want ErrNotFound", err)
	}
	counts, err := s.ScanCounts([]int64{l.ID})
	if err != nil {
		t.Fatalf("ScanCounts: %v", err)
	}
	if counts[l.ID] != 0 {
		t.Errorf("scan count after cascade delete = %d; want 0", counts[l.ID])
	}
}

func TestActiveGoalsForLinkOrGlobal(t *testing.T) {
	s := newTestStore(t)
	l := &Link{Slug: "goaltest", DestinationURL: "https://example.com", Status: StatusActive}
	if err := s.CreateLink(l); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	scoped := &Goal{LinkID: &l.ID, Name: "scoped", TargetURL: "https://example.com/thanks", Active: true}
	if err := s.CreateGoal(scoped); err != nil {
		t.Fatalf("CreateGoal(scoped): %v", err)
	}
	global := &Goal{Name: "global", TargetURL: "https://example.com/global-thanks", Active: true}
	if err := s.CreateGoal(global); err != nil {
		t.Fatalf("CreateGoal(global): %v", err)
	}
	inactive := &Goal{LinkID: &l.ID, Name: "inactive", TargetURL: "https://example.com/off", Active: false}
	if err := s.CreateGoal(inactive); err != nil {
		t.Fatalf("CreateGoal(inactive): %v", err)
	}

	otherLink := &Link{Slug: "other", DestinationURL: "https://example.com", Status: StatusActive}
	if err := s.CreateLink(otherLink); err != nil {
		t.Fatalf("CreateLink(other): %v", err)
	}
	otherScoped := &Goal{LinkID: &otherLink.ID, Name: "not-mine", TargetURL: "https://example.com/not-mine", Active: true}
	if err := s.CreateGoal(otherScoped); err != nil {
		t.Fatalf("CreateGoal(otherScoped): %v", err)
	}

	candidates, err := s.ActiveGoalsForLinkOrGlobal(l.ID)
	if err != nil {
		t.Fatalf("ActiveGoalsForLinkOrGlobal: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates; want 2 (scoped + global, excluding inactive and other link's goal)", len(candidates))
	}
	names := map[string]bool{}
	for _, g := range candidates {
		names[g.Name] = true
	}
	if !names["scoped"] || !names["global"] {
		t.Errorf("candidates = %v; want scoped and global present", names)
	}
	if names["inactive"] || names["not-mine"] {
		t.Errorf("candidates leaked inactive or other-link goal: %v", names)
	}
}

func TestInsertConversionAndList(t *testing.T) {
	s := newTestStore(t)
	l := &Link{Slug: "convtest", DestinationURL: "https://example.com", Status: StatusActive}
	if err := s.CreateLink(l); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	c := &Conversion{LinkID: l.ID, EventName: "signup", VisitorFingerprint: "fp1"}
	if err := s.InsertConversion(c); err != nil {
		t.Fatalf("InsertConversion: %v", err)
	}
	if c.ID == 0 {
		t.Fatal("expected non-zero conversion ID")
	}

	rows, err := s.ListConversionsForLink(l.ID)
	if err != nil {
		t.Fatalf("ListConversionsForLink: %v", err)
	}
	if len(rows) != 1 || rows[0].EventName != "signup" {
		t.Fatalf("ListConversionsForLink = %+v; want one 'signup' row", rows)
	}
}

func TestHasRecentFingerprint(t *testing.T) {
	s := newTestStore(t)
	l := &Link{Slug: "uniqtest", DestinationURL: "https://example.com", Status: StatusActive}
	if err := s.CreateLink(l); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	since := time.Now().Add(-time.Hour)

	seen, err := s.HasRecentFingerprint(l.ID, "fp", since)
	if err != nil {
		t.Fatalf("HasRecentFingerprint: %v", err)
	}
	if seen {
		t.Fatal("expected no prior scan for a fresh fingerprint")
	}

	if err := s.InsertScan(&Scan{LinkID: l.ID, ScannedAt: time.Now(), VisitorFingerprint: "fp"}); err != nil {
		t.Fatalf("InsertScan: %v", err)
	}
	seen, err = s.HasRecentFingerprint(l.ID, "fp", since)
	if err != nil {
		t.Fatalf("HasRecentFingerprint: %v", err)
	}
	if !seen {
		t.Fatal("expected the fingerprint to be recognized as recently seen")
	}
}

func TestArchiveExpired(t *testing.T) {
	s := newTestStore(t)
	past := time.Now().Add(-time.Hour)
	l := &Link{Slug: "expired", DestinationURL: "https://example.com", Status: StatusActive, ExpiresAt: &past}
	if err := s.CreateLink(l); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	archived, err := s.ArchiveExpired(l, time.Now())
	if err != nil {
		t.Fatalf("ArchiveExpired: %v", err)
	}
	if !archived {
		t.Fatal("expected link past its expiry to be archived")
	}
	if l.Status != StatusArchived {
		t.Errorf("Status = %q; want %q", l.Status, StatusArchived)
	}

	reloaded, err := s.GetLink(l.ID)
	if err != nil {
		t.Fatalf("GetLink: %v", err)
	}
	if reloaded.Status != StatusArchived {
		t.Errorf("persisted Status = %q; want %q", reloaded.Status, StatusArchived)
	}
}

func TestMigrateAddsMissingColumnToExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	const oldLinksSchema = `
CREATE TABLE links (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	slug TEXT NOT NULL UNIQUE,
	destination_url TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);`
	if _, err := db.Exec(oldLinksSchema); err != nil {
		t.Fatalf("create pre-migration schema: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO links (slug, destination_url, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		"legacy", "https://example.com", time.Now(), time.Now()); err != nil {
		t.Fatalf("seed legacy row: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close pre-migration db: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open on legacy schema: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	got, err := s.GetLinkBySlug("legacy")
	if err != nil {
		t.Fatalf("GetLinkBySlug after migration: %v", err)
	}
	if got.ExpiresAt != nil {
		t.Errorf("ExpiresAt = %v; want nil for a migrated pre-existing row", got.ExpiresAt)
	}

	future := time.Now().Add(24 * time.Hour)
	l := &Link{Slug: "post-migration", DestinationURL: "https://example.com", Status: StatusActive, ExpiresAt: &future}
	if err := s.CreateLink(l); err != nil {
		t.Fatalf("CreateLink after migration: %v", err)
	}

	// Running migrate again (as happens on every boot) must be a no-op.
	if err := s.migrate(); err != nil {
		t.Fatalf("re-running migrate: %v", err)
	}
}

func TestPurgeOlderThan(t *testing.T) {
	s := newTestStore(t)
	l := &Link{Slug: "purge", DestinationURL: "https://example.com", Status: StatusActive}
	if err := s.CreateLink(l); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := s.InsertScan(&Scan{LinkID: l.ID, ScannedAt: old}); err != nil {
		t.Fatalf("InsertScan: %v", err)
	}
	if err := s.InsertConversion(&Conversion{LinkID: l.ID, EventName: "old", OccurredAt: old}); err != nil {
		t.Fatalf("InsertConversion: %v", err)
	}
	if err := s.InsertScan(&Scan{LinkID: l.ID, ScannedAt: time.Now()}); err != nil {
		t.Fatalf("InsertScan(recent): %v", err)
	}

	scansDeleted, conversionsDeleted, err := s.PurgeOlderThan(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("PurgeOlderThan: %v", err)
	}
	if scansDeleted != 1 || conversionsDeleted != 1 {
		t.Errorf("purged %d scans, %d conversions; want 1, 1", scansDeleted, conversionsDeleted)
	}

	counts, err := s.ScanCounts([]int64{l.ID})
	if err != nil {
		t.Fatalf("ScanCounts: %v", err)
	}
	if counts[l.ID] != 1 {
		t.Errorf("remaining scan count = %d; want 1", counts[l.ID])
	}
}
