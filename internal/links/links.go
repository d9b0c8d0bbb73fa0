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

// Package links implements link-management business logic: create/list/
// update/delete, CSV bulk import, bulk actions and ZIP image export, history,
// and per-link QR image download — all on top of internal/store.
package links

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soerfi/qr-wizard/internal/common"
	"github.com/soerfi/qr-wizard/internal/identity"
	"github.com/soerfi/qr-wizard/internal/store"
)

// ErrInvalidDestination is returned when a destination_url is missing or not
// a valid http(s) URL.
var ErrInvalidDestination = errors.New("links: destination_url must be a valid http(s) URL")

// ErrNotFound re-exports store.ErrNotFound for callers that only import this
// package.
var ErrNotFound = store.ErrNotFound

// Manager implements link CRUD and the bulk/CSV/image operations layered on
// top of it.
type Manager struct {
	store         *store.Store
	publicBaseURL string
	trackingParam string
}

// New builds a Manager. publicBaseURL is prefixed to tracking URLs (no
// trailing slash expected — trimmed if present); trackingParam is the query
// parameter (e.g. "qr") non-destructively appended to every redirect
// destination, or "" to disable it.
func New(s *store.Store, publicBaseURL, trackingParam string) *Manager {
	return &Manager{
		store:         s,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		trackingParam: trackingParam,
	}
}

// TrackingURL builds the public redirect URL for a slug.
func (m *Manager) TrackingURL(slug string) string {
	return fmt.Sprintf("%s/t/%s", m.publicBaseURL, slug)
}

// View is a Link enriched with fields the API surface needs but the store
// schema doesn't carry directly (tracking URL, scan count, primary goal).
type View struct {
	*store.Link
	TrackingURL string
	TotalScans  int64
	GoalName    string
	GoalTarget  string
}

func (m *Manager) view(l *store.Link, scanCount int64) *View {
	v := &View{Link: l, TrackingURL: m.TrackingURL(l.Slug), TotalScans: scanCount}
	if goal, err := m.store.PrimaryGoalForLink(l.ID); err == nil {
		v.GoalName = goal.Name
		v.GoalTarget = goal.TargetURL
	}
	return v
}

// pickText mirrors the original app's pick_text: trims, empties to "", and
// caps length at 255 — fields beyond that are silently truncated rather than
// rejected, matching the original's behavior.
func pickText(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 255 {
		s = s[:255]
	}
	return s
}

func statusValue(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case store.StatusActive, store.StatusPaused, store.StatusArchived:
		return v
	default:
		return store.StatusActive
	}
}

// CreateInput carries the fields accepted by Create. All text fields are
// optional except DestinationURL.
type CreateInput struct {
	DestinationURL string
	Name           string
	Campaign       string
	Channel        string
	Location       string
	Asset          string
	Owner          string
	Notes          string
	Status         string
	AutoAppendUTM  bool
	UTMSource      string
	UTMMedium      string
	UTMCampaign    string
	UTMTerm        string
	UTMContent     string
	ExpiresAt      *time.Time
	GoalName       string
	GoalTarget     string
}

// Create mints a fresh slug, validates the destination, inserts the link
// and, if GoalName is set, its primary goal — then records a "created"
// history entry.
func (m *Manager) Create(in CreateInput) (*View, error) {
	dest := strings.TrimSpace(in.DestinationURL)
	if !common.IsValidHTTPURL(dest) {
		return nil, ErrInvalidDestination
	}

	slug, err := identity.GenerateSlug()
	if err != nil {
		return nil, fmt.Errorf("links: generate slug: %w", err)
	}
	// Caller-responsible collision retry: regenerate on the rare case the
	// slug is already taken.
	for {
		taken, err := m.store.SlugExists(slug)
		if err != nil {
			return nil, err
		}
		if !taken {
			break
		}
		if slug, err = identity.GenerateSlug(); err != nil {
			return nil, fmt.Errorf("links: generate slug: %w", err)
		}
	}

	l := &store.Link{
		Slug:           slug,
		DestinationURL: dest,
		Name:           pickText(in.Name),
		Campaign:       pickText(in.Campaign),
		Channel:        pickText(in.Channel),
		Location:       pickText(in.Location),
		Asset:          pickText(in.Asset),
		Owner:          pickText(in.Owner),
		Notes:          in.Notes,
		Status:         statusValue(in.Status),
		AutoAppendUTM:  in.AutoAppendUTM,
		UTMSource:      pickText(in.UTMSource),
		UTMMedium:      pickText(in.UTMMedium),
		UTMCampaign:    pickText(in.UTMCampaign),
		UTMTerm:        pickText(in.UTMTerm),
		UTMContent:     pickText(in.UTMContent),
		Dynamic:        true,
		ExpiresAt:      in.ExpiresAt,
	}
	if err := m.store.CreateLink(l); err != nil {
		return nil, err
	}

	goalName := strings.TrimSpace(in.GoalName)
	if goalName != "" {
		goal := &store.Goal{
			LinkID:    &l.ID,
			Name:      goalName,
			TargetURL: strings.TrimSpace(in.GoalTarget),
			Active:    true,
		}
		if err := m.store.CreateGoal(goal); err != nil {
			return nil, err
		}
	}

	m.store.RecordHistory(l.ID, "created", fmt.Sprintf(`{"destination_url":%q}`, dest))

	return m.view(l, 0), nil
}

// Get fetches a link by ID with its scan count and primary goal attached.
func (m *Manager) Get(id int64) (*View, error) {
	l, err := m.store.GetLink(id)
	if err != nil {
		return nil, err
	}
	counts, err := m.store.ScanCounts([]int64{id})
	if err != nil {
		return nil, err
	}
	return m.view(l, counts[id]), nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Status   string
	Campaign string
	Channel  string
	Location string
	Owner    string
	Search   string
	Page     int // 1-based
	PerPage  int
}

// ListResult is a page of links plus pagination metadata.
type ListResult struct {
	Items   []*View
	Page    int
	PerPage int
	Total   int
	Pages   int
}

// List returns a filtered, paginated page of links, newest first.
func (m *Manager) List(f ListFilter) (*ListResult, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	perPage := f.PerPage
	if perPage < 1 {
		perPage = 50
	}
	if perPage > 200 {
		perPage = 200
	}

	sf := store.LinkFilter{
		Status:   f.Status,
		Owner:    f.Owner,
		Campaign: f.Campaign,
		Search:   f.Search,
		Limit:    perPage,
		Offset:   (page - 1) * perPage,
	}

	total, err := m.store.CountLinks(sf)
	if err != nil {
		return nil, err
	}

	items, err := m.store.ListLinks(sf)
	if err != nil {
		return nil, err
	}

	// Channel/Location aren't on store.LinkFilter (the original's query
	// builder applies them the same way as campaign/owner); filter here
	// since they're rarely combined with large result sets.
	if f.Channel != "" || f.Location != "" {
		filtered := items[:0]
		for _, l := range items {
			if f.Channel != "" && l.Channel != f.Channel {
				continue
			}
			if f.Location != "" && l.Location != f.Location {
				continue
			}
			filtered = append(filtered, l)
		}
		items = filtered
	}

	ids := make([]int64, len(items))
	for i, l := range items {
		ids[i] = l.ID
	}
	counts, err := m.store.ScanCounts(ids)
	if err != nil {
		return nil, err
	}

	views := make([]*View, len(items))
	for i, l := range items {
		views[i] = m.view(l, counts[l.ID])
	}

	pages := total / perPage
	if total%perPage != 0 {
		pages++
	}

	return &ListResult{Items: views, Page: page, PerPage: perPage, Total: total, Pages: pages}, nil
}

// Update applies a partial set of fields to the link identified by id.
// fields uses map[string]any the way the original app's JSON payload does:
// a field is only touched when its key is present, so the caller can
// distinguish "leave unchanged" from "clear it" (empty string/null).
// Recognized keys: name, campaign, channel, location, asset, owner, notes,
// destination_url, expires_at, status, auto_append_utm, utm_source,
// utm_medium, utm_campaign, utm_term, utm_content, goal_name, goal_target.
func (m *Manager) Update(id int64, fields map[string]any) (*View, error) {
	l, err := m.store.GetLink(id)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}

	for _, field := range []string{"name", "campaign", "channel", "location", "asset", "owner"} {
		if v, ok := fields[field]; ok {
			s := pickText(fmt.Sprint(v))
			setLinkTextField(l, field, s)
			changes[field] = s
		}
	}
	if v, ok := fields["notes"]; ok {
		s, _ := v.(string)
		l.Notes = s
		changes["notes"] = s
	}

	if v, ok := fields["destination_url"]; ok {
		dest := strings.TrimSpace(fmt.Sprint(v))
		if !common.IsValidHTTPURL(dest) {
			return nil, ErrInvalidDestination
		}
		l.DestinationURL = dest
		changes["destination_url"] = dest
	}

	if v, ok := fields["expires_at"]; ok {
		if v == nil || v == "" {
			l.ExpiresAt = nil
			changes["expires_at"] = nil
		} else {
			raw, _ := v.(string)
			t, err := time.Parse(time.RFC3339, strings.Replace(raw, "Z", "+00:00", 1))
			if err != nil {
				return nil, fmt.Errorf("links: invalid expires_at: %w", err)
			}
			l.ExpiresAt = &t
			changes["expires_at"] = t.Format(time.RFC3339)
		}
	}

	if v, ok := fields["status"]; ok {
		l.Status = statusValue(fmt.Sprint(v))
		changes["status"] = l.Status
	}

	if v, ok := fields["auto_append_utm"]; ok {
		l.AutoAppendUTM = toBool(v, l.AutoAppendUTM)
		changes["auto_append_utm"] = l.AutoAppendUTM
	}

	for _, field := range []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content"} {
		if v, ok := fields[field]; ok {
			s := pickText(fmt.Sprint(v))
			setLinkTextField(l, field, s)
			changes[field] = s
		}
	}

	// Goal management: setting a non-empty goal_name upserts the link's
	// primary goal; explicitly clearing goal_name to "" deletes it. This
	// mirrors the original's slightly odd but intentional quirk: a goal can
	// only be removed by sending an empty goal_name, never by omitting it.
	existingGoal, goalErr := m.store.PrimaryGoalForLink(id)
	hasExistingGoal := goalErr == nil

	if v, ok := fields["goal_name"]; ok {
		goalName := strings.TrimSpace(fmt.Sprint(v))
		goalTarget := ""
		if gt, ok := fields["goal_target"]; ok && gt != nil {
			goalTarget = strings.TrimSpace(fmt.Sprint(gt))
		}
		if goalName != "" {
			if hasExistingGoal {
				existingGoal.Name = goalName
				existingGoal.TargetURL = goalTarget
				existingGoal.Active = true
				if err := m.store.UpdateGoal(existingGoal); err != nil {
					return nil, err
				}
			} else {
				newGoal := &store.Goal{LinkID: &id, Name: goalName, TargetURL: goalTarget, Active: true}
				if err := m.store.CreateGoal(newGoal); err != nil {
					return nil, err
				}
			}
			changes["goal_updated"] = true
		} else if hasExistingGoal {
			if err := m.store.DeleteGoal(existingGoal.ID); err != nil {
				return nil, err
			}
			changes["goal_deleted"] = true
		}
	}

	if err := m.store.UpdateLink(l); err != nil {
		return nil, err
	}
	if len(changes) > 0 {
		detail, _ := json.Marshal(changes)
		m.store.RecordHistory(id, "updated", string(detail))
	}

	return m.Get(id)
}

// Delete removes a link and all of its scans, conversions, history and
// goals.
func (m *Manager) Delete(id int64) error {
	return m.store.DeleteLink(id)
}

// History returns a link's audit trail, newest first, capped at 200 rows.
func (m *Manager) History(id int64) ([]*store.History, error) {
	rows, err := m.store.ListHistory(id)
	if err != nil {
		return nil, err
	}
	if len(rows) > 200 {
		rows = rows[:200]
	}
	return rows, nil
}

func setLinkTextField(l *store.Link, field, value string) {
	switch field {
	case "name":
		l.Name = value
	case "campaign":
		l.Campaign = value
	case "channel":
		l.Channel = value
	case "location":
		l.Location = value
	case "asset":
		l.Asset = value
	case "owner":
		l.Owner = value
	case "utm_source":
		l.UTMSource = value
	case "utm_medium":
		l.UTMMedium = value
	case "utm_campaign":
		l.UTMCampaign = value
	case "utm_term":
		l.UTMTerm = value
	case "utm_content":
		l.UTMContent = value
	}
}

// toBool mirrors the original app's to_bool: accepts actual bools plus the
// usual truthy strings, falling back to def otherwise.
func toBool(v any, def bool) bool {
	switch t := v.(type) {
	case bool:
		return t
	case nil:
		return def
	default:
		s := strings.ToLower(strings.TrimSpace(fmt.Sprint(t)))
		switch s {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off", "":
			return false
		default:
			return def
		}
	}
}
