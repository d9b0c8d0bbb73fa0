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
	"sort"

	"github.com/soerfi/qr-wizard/internal/store"
)

// Options lists the distinct filter values currently in use, so the
// dashboard's filter dropdowns only ever offer values that actually match
// something.
type Options struct {
	Campaigns []string `json:"campaigns"`
	Channels  []string `json:"channels"`
	Locations []string `json:"locations"`
	Owners    []string `json:"owners"`
}

// Options returns the sorted distinct non-empty values of each filterable
// link column.
func (m *Manager) Options() (*Options, error) {
	campaigns, err := m.distinctColumn("campaign")
	if err != nil {
		return nil, err
	}
	channels, err := m.distinctColumn("channel")
	if err != nil {
		return nil, err
	}
	locations, err := m.distinctColumn("location")
	if err != nil {
		return nil, err
	}
	owners, err := m.distinctColumn("owner")
	if err != nil {
		return nil, err
	}
	return &Options{Campaigns: campaigns, Channels: channels, Locations: locations, Owners: owners}, nil
}

func (m *Manager) distinctColumn(column string) ([]string, error) {
	rows, err := m.db.Query("SELECT DISTINCT " + column + " FROM links WHERE " + column + " IS NOT NULL AND " + column + " != ''")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// LibraryStats summarizes how many links are in each lifecycle status.
type LibraryStats struct {
	Active   int64 `json:"active"`
	Paused   int64 `json:"paused"`
	Archived int64 `json:"archived"`
	Total    int64 `json:"total"`
}

// LibraryStats counts links by status.
func (m *Manager) LibraryStats() (*LibraryStats, error) {
	rows, err := m.db.Query("SELECT status, COUNT(*) FROM links GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &LibraryStats{}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		switch status {
		case store.StatusActive:
			stats.Active = count
		case store.StatusPaused:
			stats.Paused = count
		case store.StatusArchived:
			stats.Archived = count
		}
		stats.Total += count
	}
	return stats, rows.Err()
}
