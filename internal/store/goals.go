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
	"errors"
	"time"
)

func scanGoal(row interface{ Scan(...any) error }) (*Goal, error) {
	var g Goal
	var linkID sql.NullInt64
	var active int64
	err := row.Scan(&g.ID, &linkID, &g.Name, &g.TargetURL, &g.Description, &active, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	g.LinkID = int64Ptr(linkID)
	g.Active = active != 0
	return &g, nil
}

const goalColumns = `id, link_id, name, target_url, description, active, created_at`

// CreateGoal inserts a new Goal.
func (s *Store) CreateGoal(g *Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g.CreatedAt = time.Now().UTC()
	res, err := s.db.Exec(`
		INSERT INTO goals (link_id, name, target_url, description, active, created_at)
		VALUES (?,?,?,?,?,?)`,
		nint64(g.LinkID), g.Name, g.TargetURL, g.Description, boolToInt(g.Active), g.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = id
	return nil
}

// GetGoal fetches a Goal by ID.
func (s *Store) GetGoal(id int64) (*Goal, error) {
	row := s.db.QueryRow("SELECT "+goalColumns+" FROM goals WHERE id = ?", id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return g, err
}

// ListGoals returns every goal, optionally filtered to linkID (nil for all,
// or a pointer to 0 has no special meaning — pass a *int64 linkID to scope).
func (s *Store) ListGoals(linkID *int64) ([]*Goal, error) {
	q := "SELECT " + goalColumns + " FROM goals"
	var args []any
	if linkID != nil {
		q += " WHERE link_id = ?"
		args = append(args, *linkID)
	}
	q += " ORDER BY created_at DESC"

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// PrimaryGoalForLink returns the single active goal scoped to linkID, used
// by the link-update "set goal by name" shortcut, or ErrNotFound if none.
func (s *Store) PrimaryGoalForLink(linkID int64) (*Goal, error) {
	row := s.db.QueryRow("SELECT "+goalColumns+" FROM goals WHERE link_id = ? AND active = 1 ORDER BY created_at ASC LIMIT 1", linkID)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return g, err
}

// UpdateGoal overwrites a goal's mutable fields.
func (s *Store) UpdateGoal(g *Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		"UPDATE goals SET name=?, target_url=?, description=?, active=? WHERE id=?",
		g.Name, g.TargetURL, g.Description, boolToInt(g.Active), g.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteGoal removes a goal by ID.
func (s *Store) DeleteGoal(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM goals WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveGoalsForLinkOrGlobal returns active goals either scoped to linkID
// or global (link_id IS NULL), oldest first — the candidate set a
// conversion's current_url is matched against by target-URL prefix.
func (s *Store) ActiveGoalsForLinkOrGlobal(linkID int64) ([]*Goal, error) {
	rows, err := s.db.Query(
		"SELECT "+goalColumns+" FROM goals WHERE active = 1 AND (link_id IS NULL OR link_id = ?) ORDER BY created_at ASC",
		linkID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
