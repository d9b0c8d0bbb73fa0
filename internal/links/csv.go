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
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/soerfi/qr-wizard/internal/common"
)

// sniffDelimiter guesses the CSV field delimiter from a sample of the file:
// it counts each candidate on the sample's first line and picks the one that
// occurs most often, preferring the earlier candidate on a tie and returning
// ',' when none occurs. encoding/csv has no Sniffer equivalent, so this is
// first-party, modeled on the original app's csv.Sniffer(delimiters=";,|\t")
// call: same candidate set, same "first line" sampling.
func sniffDelimiter(sample string) rune {
	candidates := []rune{',', ';', '|', '\t'}
	lines := strings.SplitN(sample, "\n", 4)
	best := ','
	bestCount := 0
	for _, d := range candidates {
		count := strings.Count(lines[0], string(d))
		if count > bestCount {
			bestCount = count
			best = d
		}
	}
	return best
}

// hasHeaderRow guesses whether the first line of content is a header,
// mirroring the original's two-step check: try the delimiter-aware sniff
// first (approximated here as "first line contains no http(s):// and has at
// least one recognized column keyword"), then fall back to a literal
// substring check for "destination_url" or "url", which marks the line a
// header whatever the sniff concluded.
func hasHeaderRow(firstLine string) bool {
	lower := strings.ToLower(firstLine)
	if strings.Contains(lower, "url") {
		return true
	}
	if strings.Contains(lower, "http://") || strings.Contains(lower, "https://") {
		return false
	}
	for _, keyword := range []string{"destination_url", "url", "link", "target", "name", "campaign"} {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// ImportError describes a single rejected CSV row.
type ImportError struct {
	Row   int
	Error string
}

// CreatedLinkSummary is the subset of fields returned for each link created
// by a bulk CSV import.
type CreatedLinkSummary struct {
	ID             int64
	Slug           string
	Name           string
	DestinationURL string
	TrackingURL    string
}

// ImportResult is the outcome of BulkImportCSV.
type ImportResult struct {
	Created      []CreatedLinkSummary
	CreatedIDs   []int64
	CreatedCount int
	Errors       []ImportError
}

// BulkImportCSV parses r as a CSV file of links to create, auto-detecting
// the delimiter and whether the first row is a header. Supported header
// column names (case-insensitive): destination_url/url/link/target, name,
// campaign, channel, location, asset, owner, notes, status,
// auto_append_utm, utm_source, utm_medium, utm_campaign, utm_term,
// utm_content. A header-less file is treated as one destination URL per
// line. Invalid or unparsable rows are collected in Errors rather than
// aborting the whole import.
func (m *Manager) BulkImportCSV(r io.Reader) (*ImportResult, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("links: read CSV: %w", err)
	}
	content := strings.TrimPrefix(string(raw), "\xef\xbb\xbf") // strip UTF-8 BOM, matching utf-8-sig decode
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("links: CSV file is empty")
	}

	sampleLen := len(content)
	if sampleLen > 2048 {
		sampleLen = 2048
	}
	delim := sniffDelimiter(content[:sampleLen])

	firstLine := content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		firstLine = content[:idx]
	}
	hasHeader := hasHeaderRow(firstLine)

	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("links: parse CSV: %w", err)
	}

	var header []string
	dataRows := rows
	startRow := 1
	if hasHeader && len(rows) > 0 {
		header = make([]string, len(rows[0]))
		for i, h := range rows[0] {
			header[i] = strings.ToLower(strings.TrimSpace(h))
		}
		dataRows = rows[1:]
		startRow = 2
	}

	result := &ImportResult{}

	for i, row := range dataRows {
		rowNum := startRow + i
		fields := rowToFields(header, row)

		dest := firstNonEmpty(fields, "destination_url", "url", "link", "target")
		dest = strings.TrimSpace(dest)
		if dest == "" {
			continue
		}
		if !common.IsValidHTTPURL(dest) {
			result.Errors = append(result.Errors, ImportError{Row: rowNum, Error: fmt.Sprintf("invalid destination_url: '%s'", dest)})
			continue
		}

		in := CreateInput{
			DestinationURL: dest,
			Name:           fields["name"],
			Campaign:       fields["campaign"],
			Channel:        fields["channel"],
			Location:       fields["location"],
			Asset:          fields["asset"],
			Owner:          fields["owner"],
			Notes:          fields["notes"],
			Status:         fields["status"],
			AutoAppendUTM:  toBool(fields["auto_append_utm"], false),
			UTMSource:      fields["utm_source"],
			UTMMedium:      fields["utm_medium"],
			UTMCampaign:    fields["utm_campaign"],
			UTMTerm:        fields["utm_term"],
			UTMContent:     fields["utm_content"],
		}

		view, err := m.Create(in)
		if err != nil {
			result.Errors = append(result.Errors, ImportError{Row: rowNum, Error: err.Error()})
			continue
		}
		m.store.RecordHistory(view.ID, "created_bulk", fmt.Sprintf(`{"row":%d}`, rowNum))

		result.Created = append(result.Created, CreatedLinkSummary{
			ID: view.ID, Slug: view.Slug, Name: view.Name,
			DestinationURL: view.DestinationURL, TrackingURL: view.TrackingURL,
		})
		result.CreatedIDs = append(result.CreatedIDs, view.ID)
	}

	result.CreatedCount = len(result.Created)
	return result, nil
}

// rowToFields maps a parsed CSV row to a lowercase-key field map. With a
// header, columns line up by name; without one, the single column is
// exposed as both "destination_url" and "url" so either lookup key works.
func rowToFields(header, row []string) map[string]string {
	fields := map[string]string{}
	if header == nil {
		if len(row) > 0 {
			fields["destination_url"] = row[0]
			fields["url"] = row[0]
		}
		return fields
	}
	for i, key := range header {
		if key == "" || i >= len(row) {
			continue
		}
		fields[key] = row[i]
	}
	return fields
}

func firstNonEmpty(fields map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(fields[k]); v != "" {
			return v
		}
	}
	return ""
}

func parseISOTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty")
	}
	return time.Parse(time.RFC3339, strings.Replace(raw, "Z", "+00:00", 1))
}
