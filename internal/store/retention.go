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

// PurgeOlderThan deletes scan and conversion events recorded before cutoff.
// Links, goals and history are never purged by retention — only
// high-volume event data ages out.
func (s *Store) PurgeOlderThan(cutoff time.Time) (scansDeleted, conversionsDeleted int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM scan_events WHERE scanned_at < ?", cutoff)
	if err != nil {
		return 0, 0, err
	}
	scansDeleted, _ = res.RowsAffected()

	res, err = tx.Exec("DELETE FROM conversion_events WHERE occurred_at < ?", cutoff)
	if err != nil {
		return 0, 0, err
	}
	conversionsDeleted, _ = res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return scansDeleted, conversionsDeleted, nil
}
