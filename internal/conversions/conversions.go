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

// Package conversions records that a visitor reached a goal, either through
// an explicit API call or through the 1x1 pixel beacon fired from a
// destination page. It never reveals whether a given slug exists: the pixel
// endpoint always returns the same image regardless.
package conversions

import (
	"errors"
	"net/http"
	"strings"

	"github.com/soerfi/qr-wizard/internal/identity"
	"github.com/soerfi/qr-wizard/internal/store"
)

// ErrLinkRequired is returned when neither a link ID nor a slug identifies
// the link to attribute the conversion to.
var ErrLinkRequired = errors.New("conversions: provide a valid qr_code_id or slug")

// ErrGoalNotFound is returned when an explicit goal_id doesn't exist.
var ErrGoalNotFound = errors.New("conversions: goal_id not found")

// ErrScanNotFound is returned when an explicit scan_event_id doesn't exist.
var ErrScanNotFound = errors.New("conversions: scan_event_id not found")

// pixelGIF is a 1x1 transparent GIF, served by the beacon regardless of
// whether the conversion was actually recorded.
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00,
	0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00,
	0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02,
	0x44, 0x01, 0x00, 0x3b,
}

// Manager records conversion events.
type Manager struct {
	store  *store.Store
	ipSalt string
}

// New builds a Manager.
func New(s *store.Store, ipSalt string) *Manager {
	return &Manager{store: s, ipSalt: ipSalt}
}

// CreateInput carries the fields accepted by Create.
type CreateInput struct {
	LinkID      *int64
	Slug        string
	GoalID      *int64
	CurrentURL  string // matched against candidate goals' target_url as a prefix when GoalID is unset
	ScanEventID *int64
	EventName   string
	Value       *float64
	// ClientIP/UserAgent recompute a visitor fingerprint when ScanEventID
	// isn't supplied.
	ClientIP  string
	UserAgent string
}

// Create records a conversion, resolving the link by ID or slug, and either
// copying the visitor fingerprint off an explicitly referenced scan or
// recomputing it from the request's IP/UA. When GoalID isn't supplied and
// CurrentURL is, the goal is auto-matched: among this link's active goals
// (plus any global goal with no link_id), the first whose target_url is a
// prefix of CurrentURL wins.
func (m *Manager) Create(in CreateInput) (*store.Conversion, error) {
	var link *store.Link
	var err error
	switch {
	case in.LinkID != nil:
		link, err = m.store.GetLink(*in.LinkID)
	case strings.TrimSpace(in.Slug) != "":
		link, err = m.store.GetLinkBySlug(strings.TrimSpace(in.Slug))
	default:
		return nil, ErrLinkRequired
	}
	if err != nil {
		return nil, ErrLinkRequired
	}

	var goalID *int64
	if in.GoalID != nil {
		goal, err := m.store.GetGoal(*in.GoalID)
		if err != nil {
			return nil, ErrGoalNotFound
		}
		goalID = &goal.ID
	} else if currentURL := strings.TrimSpace(in.CurrentURL); currentURL != "" {
		if goal := matchGoalByTargetPrefix(m.store, link.ID, currentURL); goal != nil {
			goalID = &goal.ID
		}
	}

	var fingerprint string
	if in.ScanEventID != nil {
		scan, err := m.store.GetScan(*in.ScanEventID)
		if err != nil {
			return nil, ErrScanNotFound
		}
		fingerprint = scan.VisitorFingerprint
	} else {
		ipHash := identity.HashIP(m.ipSalt, in.ClientIP)
		fingerprint = identity.VisitorFingerprint(ipHash, in.UserAgent)
	}

	c := &store.Conversion{
		LinkID:             link.ID,
		GoalID:             goalID,
		ScanID:             in.ScanEventID,
		EventName:          strings.TrimSpace(in.EventName),
		Value:              in.Value,
		VisitorFingerprint: fingerprint,
	}
	if err := m.store.InsertConversion(c); err != nil {
		return nil, err
	}
	return c, nil
}

// matchGoalByTargetPrefix returns the first active goal (scoped to linkID,
// or global) whose target_url is a prefix of currentURL, in the goals'
// creation order, or nil if none match.
func matchGoalByTargetPrefix(s *store.Store, linkID int64, currentURL string) *store.Goal {
	candidates, err := s.ActiveGoalsForLinkOrGlobal(linkID)
	if err != nil {
		return nil
	}
	for _, g := range candidates {
		if g.TargetURL != "" && strings.HasPrefix(currentURL, g.TargetURL) {
			return g
		}
	}
	return nil
}

// Pixel records a conversion triggered by the tracking beacon, if slug
// identifies a real link, and always returns the 1x1 GIF bytes regardless of
// outcome — the response must never leak whether the slug exists. Unlike
// Create, the beacon never attempts goal or scan matching: it simply
// recomputes the fingerprint and records the bare event.
func (m *Manager) Pixel(r *http.Request) []byte {
	slug := strings.TrimSpace(r.URL.Query().Get("slug"))
	eventName := r.URL.Query().Get("event_name")
	if eventName == "" {
		eventName = "goal"
	}

	if slug != "" {
		if link, err := m.store.GetLinkBySlug(slug); err == nil {
			ipHash := identity.HashIP(m.ipSalt, identity.ClientIP(r))
			fingerprint := identity.VisitorFingerprint(ipHash, r.Header.Get("User-Agent"))

			c := &store.Conversion{
				LinkID:             link.ID,
				EventName:          eventName,
				VisitorFingerprint: fingerprint,
			}
			m.store.InsertConversion(c)
		}
	}

	return pixelGIF
}

// PixelContentType is the MIME type the beacon endpoint must serve.
const PixelContentType = "image/gif"
