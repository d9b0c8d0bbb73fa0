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
	"fmt"
	"strings"
	"time"
)

const scanColumns = `id, link_id, scanned_at, ip_hash, visitor_fingerprint, country, region, city,
	os, browser, device_type, referrer, user_agent, is_bot, is_unique, is_duplicate, query_payload`

func scanScan(row interface{ Scan(...any) error }) (*Scan, error) {
	var sc Scan
	var isBot, isUnique, isDup int64
	err := row.Scan(
		&sc.ID, &sc.LinkID, &sc.ScannedAt, &sc.IPHash, &sc.VisitorFingerprint, &sc.Country, &sc.Region, &sc.City,
		&sc.OS, &sc.Browser, &sc.DeviceType, &sc.Referrer, &sc.UserAgent, &isBot, &isUnique, &isDup, &sc.QueryPayload,
	)
	if err != nil {
		return nil, err
	}
	sc.IsBot, sc.IsUnique, sc.IsDuplicate = isBot != 0, isUnique != 0, isDup != 0
	return &sc, nil
}

// InsertScan records a scan event, returning its assigned ID on sc.
func (s *Store) InsertScan(sc *Scan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		INSERT INTO scan_events (
			link_id, scanned_at, ip_hash, visitor_fingerprint, country, region, city,
			os, browser, device_type, referrer, user_agent, is_bot, is_unique, is_duplicate, query_payload
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		sc.LinkID, sc.ScannedAt, sc.IPHash, sc.VisitorFingerprint, sc.Country, sc.Region, sc.City,
		sc.OS, sc.Browser, sc.DeviceType, sc.Referrer, sc.UserAgent,
		boolToInt(sc.IsBot), boolToInt(sc.IsUnique), boolToInt(sc.IsDuplicate), sc.QueryPayload,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	sc.ID = id
	return nil
}

// HasRecentFingerprint reports whether fingerprint already scanned linkID
// at or after since. Used to classify a scan as unique vs a repeat visit;
// deliberately not transactional with the InsertScan that follows it — a
// short race window where two concurrent scans both see "no
// prior visit" is accepted, matching the bounded-inaccuracy the uniqueness
// definition already documents to API consumers.
func (s *Store) HasRecentFingerprint(linkID int64, fingerprint string, since time.Time) (bool, error) {
	if fingerprint == "" {
		return false, nil
	}
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM scan_events
		WHERE link_id = ? AND visitor_fingerprint = ? AND scanned_at >= ?`,
		linkID, fingerprint, since,
	).Scan(&n)
	return n > 0, err
}

// ScanCounts returns the total scan count for each of the given link IDs.
// Link IDs with zero scans are simply absent from the result map.
func (s *Store) ScanCounts(linkIDs []int64) (map[int64]int64, error) {
	out := make(map[int64]int64, len(linkIDs))
	if len(linkIDs) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(linkIDs))
	args := make([]any, len(linkIDs))
	for i, id := range linkIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	q := fmt.Sprintf(
		"SELECT link_id, COUNT(*) FROM scan_events WHERE link_id IN (%s) GROUP BY link_id",
		strings.Join(placeholders, ","),
	)
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, count int64
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		out[id] = count
	}
	return out, rows.Err()
}

// GetScan fetches a single scan by ID.
func (s *Store) GetScan(id int64) (*Scan, error) {
	row := s.db.QueryRow(fmt.Sprintf("SELECT %s FROM scan_events WHERE id = ?", scanColumns), id)
	return scanScan(row)
}
