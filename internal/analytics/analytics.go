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
	"database/sql"
	"fmt"

	"github.com/soerfi/qr-wizard/internal/store"
)

// Manager runs reporting queries directly against the store's underlying
// database, bypassing Store's CRUD layer since every query here is a
// read-only aggregate that joins scan_events/conversion_events to links.
type Manager struct {
	db *sql.DB
}

// New builds a Manager.
func New(s *store.Store) *Manager {
	return &Manager{db: s.DB()}
}

// Summary holds the top-line KPIs shown on the analytics dashboard.
type Summary struct {
	TotalScans       int64   `json:"total_scans"`
	UniqueScans      int64   `json:"unique_scans"`
	BotScans         int64   `json:"bot_scans"`
	Conversions      int64   `json:"conversions"`
	ConversionRate   float64 `json:"conversion_rate"`
	GeoAccuracyNote  string  `json:"geo_accuracy_note"`
	UniqueDefinition string  `json:"unique_definition"`
}

// geoAccuracyNote is surfaced verbatim in every Summary response, next to a
// uniqueness definition built from the configured window, so API consumers
// don't mistake approximate geo or the fingerprint-window uniqueness
// definition for exact figures.
const geoAccuracyNote = "Geo is IP-based and approximate; city-level resolution may be imprecise or unavailable."

// Summary computes total/unique/bot scan counts and the conversion rate for
// the given filter. uniqueWindowHours is echoed into the human-readable
// uniqueness definition, not used in the query itself (the window was
// already applied when each scan's is_unique flag was computed).
func (m *Manager) Summary(f Filter, uniqueWindowHours int) (*Summary, error) {
	whereAll, argsAll := f.clause("s.scanned_at", "s.link_id")
	var totalScans, uniqueScans int64
	err := m.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(s.is_unique), 0)
		 FROM scan_events s JOIN links l ON l.id = s.link_id
		 WHERE s.is_bot = 0`+whereAll,
		argsAll...,
	).Scan(&totalScans, &uniqueScans)
	if err != nil {
		return nil, err
	}

	var botScans int64
	whereBot, argsBot := f.clause("s.scanned_at", "s.link_id")
	err = m.db.QueryRow(
		`SELECT COUNT(*) FROM scan_events s JOIN links l ON l.id = s.link_id WHERE s.is_bot = 1`+whereBot,
		argsBot...,
	).Scan(&botScans)
	if err != nil {
		return nil, err
	}

	whereConv, argsConv := f.clause("c.occurred_at", "c.link_id")
	var conversions int64
	err = m.db.QueryRow(
		`SELECT COUNT(*) FROM conversion_events c JOIN links l ON l.id = c.link_id WHERE 1=1`+whereConv,
		argsConv...,
	).Scan(&conversions)
	if err != nil {
		return nil, err
	}

	var rate float64
	if uniqueScans > 0 {
		rate = roundTo2(float64(conversions) / float64(uniqueScans) * 100)
	}

	return &Summary{
		TotalScans:       totalScans,
		UniqueScans:      uniqueScans,
		BotScans:         botScans,
		Conversions:      conversions,
		ConversionRate:   rate,
		GeoAccuracyNote:  geoAccuracyNote,
		UniqueDefinition: fmt.Sprintf("Unique = first non-bot scan per visitor fingerprint within %dh.", uniqueWindowHours),
	}, nil
}

func roundTo2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

// TimeseriesPoint is one bucketed row of the scan timeseries.
type TimeseriesPoint struct {
	Bucket      string `json:"bucket"`
	TotalScans  int64  `json:"total_scans"`
	UniqueScans int64  `json:"unique_scans"`
}

// ErrInvalidGranularity is returned when Timeseries is called with
// anything other than hour/day/week/month.
var ErrInvalidGranularity = fmt.Errorf("analytics: granularity must be hour, day, week, or month")

// Timeseries buckets non-bot scans by granularity, scoped by f.
func (m *Manager) Timeseries(f Filter, granularity string) ([]TimeseriesPoint, error) {
	if !validGranularities[granularity] {
		return nil, ErrInvalidGranularity
	}
	bucket := timeBucketExpr(granularity)
	where, args := f.clause("s.scanned_at", "s.link_id")

	rows, err := m.db.Query(
		fmt.Sprintf(`
			SELECT %s AS bucket, COUNT(*) AS total_scans, COALESCE(SUM(s.is_unique), 0) AS unique_scans
			FROM scan_events s JOIN links l ON l.id = s.link_id
			WHERE s.is_bot = 0%s
			GROUP BY bucket
			ORDER BY bucket ASC`, bucket, where),
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimeseriesPoint
	for rows.Next() {
		var p TimeseriesPoint
		if err := rows.Scan(&p.Bucket, &p.TotalScans, &p.UniqueScans); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// TopLink is one row of the top-performing-links ranking.
type TopLink struct {
	LinkID      int64  `json:"qr_code_id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Campaign    string `json:"campaign"`
	Channel     string `json:"channel"`
	Location    string `json:"location"`
	TotalScans  int64  `json:"total_scans"`
	UniqueScans int64  `json:"unique_scans"`
}

// Top ranks links by total non-bot scan count, scoped by f, capped at
// limit (clamped to [1, 100] by the caller).
func (m *Manager) Top(f Filter, limit int) ([]TopLink, error) {
	where, args := f.clause("s.scanned_at", "s.link_id")
	args = append(args, limit)

	rows, err := m.db.Query(
		`SELECT l.id, l.slug, l.name, l.campaign, l.channel, l.location,
		        COUNT(*) AS total_scans, COALESCE(SUM(s.is_unique), 0) AS unique_scans
		 FROM scan_events s JOIN links l ON l.id = s.link_id
		 WHERE s.is_bot = 0`+where+`
		 GROUP BY l.id
		 ORDER BY total_scans DESC, l.id ASC
		 LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopLink
	for rows.Next() {
		var t TopLink
		if err := rows.Scan(&t.LinkID, &t.Slug, &t.Name, &t.Campaign, &t.Channel, &t.Location, &t.TotalScans, &t.UniqueScans); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// BreakdownRow is one labeled row of a dimension breakdown.
type BreakdownRow struct {
	Label       string `json:"label"`
	TotalScans  int64  `json:"total_scans"`
	UniqueScans int64  `json:"unique_scans"`
}

// Breakdown groups non-bot scans by the given dimension ("campaign",
// "channel", "location", "country", "region", "city", "device", "browser",
// "os", "referrer", "hour_of_day", "day_of_week"), scoped by f, capped at
// limit. day_of_week labels are translated to weekday names and
// hour_of_day labels get an ":00" suffix, matching the dashboard's display
// format; unlabeled rows are reported as "(unknown)".
func (m *Manager) Breakdown(f Filter, field string, limit int) ([]BreakdownRow, error) {
	expr := breakdownExpr(field)
	where, args := f.clause("s.scanned_at", "s.link_id")
	args = append(args, limit)

	rows, err := m.db.Query(
		fmt.Sprintf(`
			SELECT %s AS label, COUNT(*) AS total_scans, COALESCE(SUM(s.is_unique), 0) AS unique_scans
			FROM scan_events s JOIN links l ON l.id = s.link_id
			WHERE s.is_bot = 0%s
			GROUP BY label
			ORDER BY total_scans DESC
			LIMIT ?`, expr, where),
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BreakdownRow
	for rows.Next() {
		var label sql.NullString
		var b BreakdownRow
		if err := rows.Scan(&label, &b.TotalScans, &b.UniqueScans); err != nil {
			return nil, err
		}
		b.Label = formatBreakdownLabel(field, label)
		out = append(out, b)
	}
	return out, rows.Err()
}

func formatBreakdownLabel(field string, label sql.NullString) string {
	if !label.Valid || label.String == "" {
		return "(unknown)"
	}
	switch field {
	case "day_of_week":
		if name, ok := dayNames[label.String]; ok {
			return name
		}
	case "hour_of_day":
		return label.String + ":00"
	}
	return label.String
}
