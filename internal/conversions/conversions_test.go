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

package conversions

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/soerfi/qr-wizard/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateRequiresLinkOrSlug(t *testing.T) {
	s := newTestStore(t)
	m := New(s, "salt")

	_, err := m.Create(CreateInput{EventName: "signup"})
	if err != ErrLinkRequired {
		t.Errorf("Create with no link/slug error = %v; want ErrLinkRequired", err)
	}
}

func TestCreateAutoMatchesGoalByTargetURLPrefix(t *testing.T) {
	s := newTestStore(t)
	m := New(s, "salt")

	link := &store.Link{Slug: "promo", DestinationURL: "https://example.com", Status: store.StatusActive}
	if err := s.CreateLink(link); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	goal := &store.Goal{LinkID: &link.ID, Name: "thank-you", TargetURL: "https://example.com/thanks", Active: true}
	if err := s.CreateGoal(goal); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	c, err := m.Create(CreateInput{
		Slug:       "promo",
		CurrentURL: "https://example.com/thanks?ref=email",
		EventName:  "page_view",
		ClientIP:   "203.0.113.5",
		UserAgent:  "test-agent",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.GoalID == nil || *c.GoalID != goal.ID {
		t.Errorf("GoalID = %v; want %d (auto-matched by target_url prefix)", c.GoalID, goal.ID)
	}
}

func TestCreateDoesNotMatchGoalWithDifferentEventNamePrefix(t *testing.T) {
	// Regression guard: matching is by target_url-is-prefix-of-current_url,
	// never by event_name being a prefix of the goal's name.
	s := newTestStore(t)
	m := New(s, "salt")

	link := &store.Link{Slug: "promo2", DestinationURL: "https://example.com", Status: store.StatusActive}
	if err := s.CreateLink(link); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	goal := &store.Goal{LinkID: &link.ID, Name: "signup_complete", TargetURL: "https://example.com/done", Active: true}
	if err := s.CreateGoal(goal); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	c, err := m.Create(CreateInput{
		Slug:       "promo2",
		CurrentURL: "https://example.com/somewhere-else",
		EventName:  "signup",
		ClientIP:   "203.0.113.5",
		UserAgent:  "test-agent",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.GoalID != nil {
		t.Errorf("GoalID = %v; want nil (current_url doesn't match any goal's target_url)", *c.GoalID)
	}
}

func TestCreateWithUnknownGoalID(t *testing.T) {
	s := newTestStore(t)
	m := New(s, "salt")
	link := &store.Link{Slug: "withgoal", DestinationURL: "https://example.com", Status: store.StatusActive}
	if err := s.CreateLink(link); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	missing := int64(99999)
	_, err := m.Create(CreateInput{Slug: "withgoal", GoalID: &missing, EventName: "x"})
	if err != ErrGoalNotFound {
		t.Errorf("error = %v; want ErrGoalNotFound", err)
	}
}

func TestPixelAlwaysReturnsGIFRegardlessOfSlug(t *testing.T) {
	s := newTestStore(t)
	m := New(s, "salt")

	for _, slug := range []string{"", "does-not-exist"} {
		r := httptest.NewRequest(http.MethodGet, "/goal.gif?slug="+slug, nil)
		data := m.Pixel(r)
		if len(data) == 0 {
			t.Errorf("Pixel(slug=%q) returned no bytes", slug)
		}
	}
}

func TestPixelRecordsConversionForRealSlugWithoutGoalMatching(t *testing.T) {
	s := newTestStore(t)
	m := New(s, "salt")

	link := &store.Link{Slug: "beacon", DestinationURL: "https://example.com", Status: store.StatusActive}
	if err := s.CreateLink(link); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	// A goal exists, but the beacon must never attempt to match it.
	goal := &store.Goal{LinkID: &link.ID, Name: "thanks", TargetURL: "https://example.com/thanks", Active: true}
	if err := s.CreateGoal(goal); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/goal.gif?slug=beacon&event_name=page_view", nil)
	m.Pixel(r)

	rows, err := s.ListConversionsForLink(link.ID)
	if err != nil {
		t.Fatalf("ListConversionsForLink: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d conversions; want 1", len(rows))
	}
	if rows[0].GoalID != nil {
		t.Errorf("beacon-recorded conversion has GoalID = %v; want nil (beacon never goal-matches)", rows[0].GoalID)
	}
	if rows[0].EventName != "page_view" {
		t.Errorf("EventName = %q; want %q", rows[0].EventName, "page_view")
	}
}
