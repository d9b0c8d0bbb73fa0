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

package analytics

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/soerfi/qr-wizard/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedLinkWithScans(t *testing.T, s *store.Store) *store.Link {
	t.Helper()
	l := &store.Link{Slug: "seed", Name: "Seed Link", DestinationURL: "https://example.com",
		Campaign: "spring", Channel: "print", Status: store.StatusActive}
	if err := s.CreateLink(l); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	now := time.Now().UTC()
	scans := []store.Scan{
		{LinkID: l.ID, ScannedAt: now, IsUnique: true, IsBot: false, Country: "US"},
		{LinkID: l.ID, ScannedAt: now, IsUnique: false, IsBot: false, Country: "US"},
		{LinkID: l.ID, ScannedAt: now, IsUnique: false, IsBot: true, Country: "FR"},
	}
	for i := range scans {
		if err := s.InsertScan(&scans[i]); err != nil {
			t.Fatalf("InsertScan: %v", err)
		}
	}
	if err := s.InsertConversion(&store.Conversion{LinkID: l.ID, EventName: "signup"}); err != nil {
		t.Fatalf("InsertConversion: %v", err)
	}
	return l
}

func TestSummary(t *testing.T) {
	s := newTestStore(t)
	seedLinkWithScans(t, s)
	m := New(s)

	summary, err := m.Summary(Filter{}, 24)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.TotalScans != 2 {
		t.Errorf("TotalScans = %d; want 2 (bots excluded)", summary.TotalScans)
	}
	if summary.UniqueScans != 1 {
		t.Errorf("UniqueScans = %d; want 1", summary.UniqueScans)
	}
	if summary.BotScans != 1 {
		t.Errorf("BotScans = %d; want 1", summary.BotScans)
	}
	if summary.Conversions != 1 {
		t.Errorf("Conversions = %d; want 1", summary.Conversions)
	}
	if summary.ConversionRate != 100 {
		t.Errorf("ConversionRate = %v; want 100 (1 conversion / 1 unique scan)", summary.ConversionRate)
	}
}

func TestSummaryZeroUniqueScansAvoidsDivideByZero(t *testing.T) {
	s := newTestStore(t)
	m := New(s)
	summary, err := m.Summary(Filter{}, 24)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.ConversionRate != 0 {
		t.Errorf("ConversionRate = %v; want 0 when there are no unique scans", summary.ConversionRate)
	}
}

func TestTimeseriesRejectsInvalidGranularity(t *testing.T) {
	s := newTestStore(t)
	m := New(s)
	if _, err := m.Timeseries(Filter{}, "fortnight"); err != ErrInvalidGranularity {
		t.Errorf("error = %v; want ErrInvalidGranularity", err)
	}
}

func TestTopRanksByScanCount(t *testing.T) {
	s := newTestStore(t)
	l := seedLinkWithScans(t, s)
	m := New(s)

	top, err := m.Top(Filter{}, 10)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(top) != 1 || top[0].LinkID != l.ID {
		t.Fatalf("Top = %+v; want single row for link %d", top, l.ID)
	}
	if top[0].TotalScans != 2 {
		t.Errorf("TotalScans = %d; want 2", top[0].TotalScans)
	}
}

func TestTopBreaksTiesByAscendingLinkID(t *testing.T) {
	s := newTestStore(t)
	m := New(s)
	now := time.Now().UTC()

	var ids []int64
	for _, slug := range []string{"first", "second", "third"} {
		l := &store.Link{Slug: slug, DestinationURL: "https://example.com", Status: store.StatusActive}
		if err := s.CreateLink(l); err != nil {
			t.Fatalf("CreateLink(%s): %v", slug, err)
		}
		if err := s.InsertScan(&store.Scan{LinkID: l.ID, ScannedAt: now}); err != nil {
			t.Fatalf("InsertScan(%s): %v", slug, err)
		}
		ids = append(ids, l.ID)
	}

	top, err := m.Top(Filter{}, 10)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("Top = %+v; want 3 tied rows", top)
	}
	for i, id := range ids {
		if top[i].LinkID != id {
			t.Errorf("Top[%d].LinkID = %d; want %d (ascending insertion order on a tie)", i, top[i].LinkID, id)
		}
	}
}

func TestBreakdownByCountryCountsNonBotScans(t *testing.T) {
	s := newTestStore(t)
	seedLinkWithScans(t, s)
	m := New(s)

	rows, err := m.Breakdown(Filter{}, "country", 10)
	if err != nil {
		t.Fatalf("Breakdown: %v", err)
	}
	found := false
	for _, r := range rows {
		if r.Label == "US" {
			found = true
			if r.TotalScans != 2 {
				t.Errorf("US TotalScans = %d; want 2", r.TotalScans)
			}
		}
	}
	if !found {
		t.Errorf("Breakdown rows = %+v; expected a US row", rows)
	}
}

func TestOptionsReturnsSortedDistinctValues(t *testing.T) {
	s := newTestStore(t)
	seedLinkWithScans(t, s)
	second := &store.Link{Slug: "second", DestinationURL: "https://example.com", Campaign: "autumn", Status: store.StatusActive}
	if err := s.CreateLink(second); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	m := New(s)

	opts, err := m.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if len(opts.Campaigns) != 2 || opts.Campaigns[0] != "autumn" || opts.Campaigns[1] != "spring" {
		t.Errorf("Campaigns = %v; want [autumn spring]", opts.Campaigns)
	}
}

func TestLibraryStats(t *testing.T) {
	s := newTestStore(t)
	seedLinkWithScans(t, s)
	paused := &store.Link{Slug: "paused1", DestinationURL: "https://example.com", Status: store.StatusPaused}
	if err := s.CreateLink(paused); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	m := New(s)

	stats, err := m.LibraryStats()
	if err != nil {
		t.Fatalf("LibraryStats: %v", err)
	}
	if stats.Active != 1 || stats.Paused != 1 || stats.Total != 2 {
		t.Errorf("stats = %+v; want Active=1 Paused=1 Total=2", stats)
	}
}

func TestExportScansCSVHeaderAndRowCount(t *testing.T) {
	s := newTestStore(t)
	seedLinkWithScans(t, s)
	m := New(s)

	data, err := m.ExportScansCSV(Filter{})
	if err != nil {
		t.Fatalf("ExportScansCSV: %v", err)
	}
	text := string(data)
	if !containsLine(text, "scan_id,scanned_at,slug,name,campaign,channel,location,owner,country,region,city,os,browser,device_type,referrer,is_bot,is_unique,is_duplicate") {
		t.Errorf("missing expected header; got:\n%s", text)
	}
}

func containsLine(text, line string) bool {
	for _, l := range splitLines(text) {
		if l == line {
			return true
		}
	}
	return false
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, c := range s {
		if c == '\n' {
			line := s[start:i]
			line = trimCR(line)
			lines = append(lines, line)
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, trimCR(s[start:]))
	}
	return lines
}

func trimCR(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}
