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

import "time"

func scanHistory(row interface{ Scan(...any) error }) (*History, error) {
	var h History
	err := row.Scan(&h.ID, &h.LinkID, &h.Action, &h.Details, &h.CreatedAt)
	return &h, err
}

const historyColumns = `id, link_id, action, details, created_at`

// RecordHistory appends an audit entry for a link.
func (s *Store) RecordHistory(linkID int64, action, details string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT INTO link_history (link_id, action, details, created_at) VALUES (?,?,?,?)",
		linkID, action, details, time.Now().UTC(),
	)
	return err
}

// ListHistory returns a link's audit trail, newest first.
func (s *Store) ListHistory(linkID int64) ([]*History, error) {
	rows, err := s.db.Query("SELECT "+historyColumns+" FROM link_history WHERE link_id = ? ORDER BY created_at DESC", linkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*History
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
