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
	"bytes"
	"encoding/csv"
	"strconv"
	"time"
)

var scansCSVHeader = []string{
	"scan_id", "scanned_at", "slug", "name", "campaign", "channel", "location", "owner",
	"country", "region", "city", "os", "browser", "device_type", "referrer",
	"is_bot", "is_unique", "is_duplicate",
}

// ExportScansCSV renders every scan matching f as CSV, newest first, using
// the exact column order the dashboard's spreadsheet import expects.
func (m *Manager) ExportScansCSV(f Filter) ([]byte, error) {
	where, args := f.clause("s.scanned_at", "s.link_id")
	rows, err := m.db.Query(
		`SELECT s.id, s.scanned_at, l.slug, l.name, l.campaign, l.channel, l.location, l.owner,
		        s.country, s.region, s.city, s.os, s.browser, s.device_type, s.referrer,
		        s.is_bot, s.is_unique, s.is_duplicate
		 FROM scan_events s JOIN links l ON l.id = s.link_id
		 WHERE 1=1`+where+`
		 ORDER BY s.scanned_at DESC`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(scansCSVHeader); err != nil {
		return nil, err
	}

	for rows.Next() {
		var (
			id                                 int64
			scannedAt                          time.Time
			slug, name, campaign, channel      string
			location, owner                    string
			country, region, city              string
			os, browser, deviceType, referrer  string
			isBot, isUnique, isDuplicate        int64
		)
		if err := rows.Scan(&id, &scannedAt, &slug, &name, &campaign, &channel, &location, &owner,
			&country, &region, &city, &os, &browser, &deviceType, &referrer,
			&isBot, &isUnique, &isDuplicate); err != nil {
			return nil, err
		}
		record := []string{
			strconv.FormatInt(id, 10), scannedAt.Format(time.RFC3339), slug, name, campaign, channel, location, owner,
			country, region, city, os, browser, deviceType, referrer,
			strconv.FormatBool(isBot != 0), strconv.FormatBool(isUnique != 0), strconv.FormatBool(isDuplicate != 0),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

var linksCSVHeader = []string{
	"id", "slug", "name", "destination_url", "tracking_url", "campaign", "channel", "location",
	"asset", "owner", "status", "auto_append_utm", "utm_source", "utm_medium", "utm_campaign",
	"utm_term", "utm_content", "created_at", "updated_at",
}

// ExportLinksCSV renders every link as CSV, newest first. trackingURL
// builds the full tracking URL for a slug (injected so this package doesn't
// need to know the public base URL).
func (m *Manager) ExportLinksCSV(trackingURL func(slug string) string) ([]byte, error) {
	rows, err := m.db.Query(`
		SELECT id, slug, name, destination_url, campaign, channel, location, asset, owner, status,
		       auto_append_utm, utm_source, utm_medium, utm_campaign, utm_term, utm_content,
		       created_at, updated_at
		FROM links ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(linksCSVHeader); err != nil {
		return nil, err
	}

	for rows.Next() {
		var (
			id                                                                    int64
			slug, name, destinationURL, campaign, channel, location, asset, owner string
			status                                                                string
			autoAppendUTM                                                         int64
			utmSource, utmMedium, utmCampaign, utmTerm, utmContent                string
			createdAt, updatedAt                                                  time.Time
		)
		if err := rows.Scan(&id, &slug, &name, &destinationURL, &campaign, &channel, &location, &asset, &owner,
			&status, &autoAppendUTM, &utmSource, &utmMedium, &utmCampaign, &utmTerm, &utmContent,
			&createdAt, &updatedAt); err != nil {
			return nil, err
		}
		record := []string{
			strconv.FormatInt(id, 10), slug, name, destinationURL, trackingURL(slug), campaign, channel, location,
			asset, owner, status, strconv.FormatBool(autoAppendUTM != 0), utmSource, utmMedium, utmCampaign,
			utmTerm, utmContent, createdAt.Format(time.RFC3339), updatedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}
