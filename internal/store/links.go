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
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a lookup finds no matching row.
var ErrNotFound = errors.New("store: not found")

// ErrSlugTaken is returned by CreateLink when the slug already exists.
var ErrSlugTaken = errors.New("store: slug already in use")

func scanLink(row interface{ Scan(...any) error }) (*Link, error) {
	var l Link
	var expiresAt sql.NullTime
	var autoUTM, dynamic int64
	err := row.Scan(
		&l.ID, &l.Slug, &l.Name, &l.DestinationURL, &l.Campaign, &l.Channel, &l.Location,
		&l.Asset, &l.Owner, &l.Notes, &l.Status, &autoUTM,
		&l.UTMSource, &l.UTMMedium, &l.UTMCampaign, &l.UTMTerm, &l.UTMContent,
		&dynamic, &l.CreatedAt, &l.UpdatedAt, &expiresAt,
	)
	if err != nil {
		return nil, err
	}
	l.AutoAppendUTM = autoUTM != 0
	l.Dynamic = dynamic != 0
	l.ExpiresAt = timePtr(expiresAt)
	return &l, nil
}

const linkColumns = `id, slug, name, destination_url, campaign, channel, location,
	asset, owner, notes, status, auto_append_utm,
	utm_source, utm_medium, utm_campaign, utm_term, utm_content,
	dynamic, created_at, updated_at, expires_at`

// CreateLink inserts a new Link. CreatedAt/UpdatedAt/ID are populated on l.
func (s *Store) CreateLink(l *Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now

	res, err := s.db.Exec(`
		INSERT INTO links (
			slug, name, destination_url, campaign, channel, location, asset, owner, notes,
			status, auto_append_utm, utm_source, utm_medium, utm_campaign, utm_term, utm_content,
			dynamic, created_at, updated_at, expires_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		l.Slug, l.Name, l.DestinationURL, l.Campaign, l.Channel, l.Location, l.Asset, l.Owner, l.Notes,
		l.Status, boolToInt(l.AutoAppendUTM), l.UTMSource, l.UTMMedium, l.UTMCampaign, l.UTMTerm, l.UTMContent,
		boolToInt(l.Dynamic), l.CreatedAt, l.UpdatedAt, ntime(l.ExpiresAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return ErrSlugTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = id
	return nil
}

// GetLinkBySlug fetches a Link by its slug.
func (s *Store) GetLinkBySlug(slug string) (*Link, error) {
	row := s.db.QueryRow(fmt.Sprintf("SELECT %s FROM links WHERE slug = ?", linkColumns), slug)
	l, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return l, err
}

// GetLink fetches a Link by ID.
func (s *Store) GetLink(id int64) (*Link, error) {
	row := s.db.QueryRow(fmt.Sprintf("SELECT %s FROM links WHERE id = ?", linkColumns), id)
	l, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return l, err
}

// SlugExists reports whether a link with slug already exists.
func (s *Store) SlugExists(slug string) (bool, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM links WHERE slug = ?", slug).Scan(&n)
	return n > 0, err
}

// UpdateLink overwrites every mutable field of the link identified by l.ID.
func (s *Store) UpdateLink(l *Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l.UpdatedAt = time.Now().UTC()
	res, err := s.db.Exec(`
		UPDATE links SET
			name=?, destination_url=?, campaign=?, channel=?, location=?, asset=?, owner=?, notes=?,
			status=?, auto_append_utm=?, utm_source=?, utm_medium=?, utm_campaign=?, utm_term=?, utm_content=?,
			dynamic=?, updated_at=?, expires_at=?
		WHERE id=?`,
		l.Name, l.DestinationURL, l.Campaign, l.Channel, l.Location, l.Asset, l.Owner, l.Notes,
		l.Status, boolToInt(l.AutoAppendUTM), l.UTMSource, l.UTMMedium, l.UTMCampaign, l.UTMTerm, l.UTMContent,
		boolToInt(l.Dynamic), l.UpdatedAt, ntime(l.ExpiresAt), l.ID,
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

// SetLinkStatus updates only a link's status and updated_at timestamp.
func (s *Store) SetLinkStatus(id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("UPDATE links SET status=?, updated_at=? WHERE id=?", status, time.Now().UTC(), id)
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

// DeleteLink removes a link and its dependent scans/goals/conversions/history.
func (s *Store) DeleteLink(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM conversion_events WHERE link_id=?",
		"DELETE FROM scan_events WHERE link_id=?",
		"DELETE FROM link_history WHERE link_id=?",
		"DELETE FROM goals WHERE link_id=?",
		"DELETE FROM links WHERE id=?",
	} {
		if _, err := tx.Exec(stmt, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LinkFilter narrows ListLinks results.
type LinkFilter struct {
	Status   string
	Owner    string
	Campaign string
	Search   string // matched against name, slug, destination_url, campaign, channel, owner
	Limit    int
	Offset   int
}

// ListLinks returns links matching f, newest first.
func (s *Store) ListLinks(f LinkFilter) ([]*Link, error) {
	q := fmt.Sprintf("SELECT %s FROM links WHERE 1=1", linkColumns)
	var args []any

	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.Owner != "" {
		q += " AND owner = ?"
		args = append(args, f.Owner)
	}
	if f.Campaign != "" {
		q += " AND campaign = ?"
		args = append(args, f.Campaign)
	}
	if f.Search != "" {
		q += ` AND (name LIKE ? OR slug LIKE ? OR destination_url LIKE ? OR campaign LIKE ? OR channel LIKE ? OR owner LIKE ?)`
		like := "%" + f.Search + "%"
		for i := 0; i < 6; i++ {
			args = append(args, like)
		}
	}
	q += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CountLinks counts links matching f, ignoring Limit/Offset.
func (s *Store) CountLinks(f LinkFilter) (int, error) {
	q := "SELECT COUNT(*) FROM links WHERE 1=1"
	var args []any

	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.Owner != "" {
		q += " AND owner = ?"
		args = append(args, f.Owner)
	}
	if f.Campaign != "" {
		q += " AND campaign = ?"
		args = append(args, f.Campaign)
	}
	if f.Search != "" {
		q += ` AND (name LIKE ? OR slug LIKE ? OR destination_url LIKE ? OR campaign LIKE ? OR channel LIKE ? OR owner LIKE ?)`
		like := "%" + f.Search + "%"
		for i := 0; i < 6; i++ {
			args = append(args, like)
		}
	}

	var n int
	err := s.db.QueryRow(q, args...).Scan(&n)
	return n, err
}

// ArchiveExpired marks l as archived if active and past its expiry, both in
// memory and in the database. Returns true if it archived the row.
func (s *Store) ArchiveExpired(l *Link, now time.Time) (bool, error) {
	if l.Status != StatusActive || l.ExpiresAt == nil || !now.After(*l.ExpiresAt) {
		return false, nil
	}
	if err := s.SetLinkStatus(l.ID, StatusArchived); err != nil {
		return false, err
	}
	l.Status = StatusArchived
	return true, nil
}
