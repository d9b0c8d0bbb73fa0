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
	"time"
)

func scanConversion(row interface{ Scan(...any) error }) (*Conversion, error) {
	var c Conversion
	var goalID, scanID sql.NullInt64
	var value sql.NullFloat64
	err := row.Scan(&c.ID, &c.LinkID, &goalID, &scanID, &c.EventName, &value, &c.VisitorFingerprint, &c.OccurredAt)
	if err != nil {
		return nil, err
	}
	c.GoalID = int64Ptr(goalID)
	c.ScanID = int64Ptr(scanID)
	c.Value = float64Ptr(value)
	return &c, nil
}

const conversionColumns = `id, link_id, goal_id, scan_event_id, event_name, value, visitor_fingerprint, occurred_at`

// InsertConversion records a conversion event.
func (s *Store) InsertConversion(c *Conversion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.OccurredAt.IsZero() {
		c.OccurredAt = time.Now().UTC()
	}
	res, err := s.db.Exec(`
		INSERT INTO conversion_events (link_id, goal_id, scan_event_id, event_name, value, visitor_fingerprint, occurred_at)
		VALUES (?,?,?,?,?,?,?)`,
		c.LinkID, nint64(c.GoalID), nint64(c.ScanID), c.EventName, nfloat64(c.Value), c.VisitorFingerprint, c.OccurredAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// ListConversionsForLink returns conversions recorded against linkID, newest
// first.
func (s *Store) ListConversionsForLink(linkID int64) ([]*Conversion, error) {
	rows, err := s.db.Query("SELECT "+conversionColumns+" FROM conversion_events WHERE link_id = ? ORDER BY occurred_at DESC", linkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Conversion
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
