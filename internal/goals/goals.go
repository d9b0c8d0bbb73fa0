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

// Package goals implements standalone conversion-goal CRUD: goals not tied
// to a link's "primary goal" shortcut in internal/links, but created and
// listed directly through the goals API.
package goals

import (
	"errors"
	"strings"

	"github.com/soerfi/qr-wizard/internal/common"
	"github.com/soerfi/qr-wizard/internal/store"
)

// ErrNameRequired is returned when Create is called with a blank name.
var ErrNameRequired = errors.New("goals: name is required")

// ErrInvalidTargetURL is returned when a non-empty target URL isn't a valid
// http(s) URL.
var ErrInvalidTargetURL = errors.New("goals: target_url must be a valid http(s) URL")

// ErrLinkNotFound is returned when CreateInput.LinkID references a link
// that doesn't exist.
var ErrLinkNotFound = store.ErrNotFound

// Manager implements goal CRUD on top of internal/store.
type Manager struct {
	store *store.Store
}

// New builds a Manager.
func New(s *store.Store) *Manager {
	return &Manager{store: s}
}

// CreateInput carries the fields accepted by Create.
type CreateInput struct {
	LinkID      *int64
	Name        string
	TargetURL   string
	Description string
	Active      *bool // nil defaults to true
}

// Create validates and inserts a new Goal.
func (m *Manager) Create(in CreateInput) (*store.Goal, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	if in.LinkID != nil {
		if _, err := m.store.GetLink(*in.LinkID); err != nil {
			return nil, ErrLinkNotFound
		}
	}

	target := strings.TrimSpace(in.TargetURL)
	if target != "" && !common.IsValidHTTPURL(target) {
		return nil, ErrInvalidTargetURL
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}

	g := &store.Goal{
		LinkID:      in.LinkID,
		Name:        name,
		TargetURL:   target,
		Description: in.Description,
		Active:      active,
	}
	if err := m.store.CreateGoal(g); err != nil {
		return nil, err
	}
	return g, nil
}

// List returns goals, optionally scoped to a single link, newest first.
func (m *Manager) List(linkID *int64) ([]*store.Goal, error) {
	return m.store.ListGoals(linkID)
}

// Delete removes a goal by ID.
func (m *Manager) Delete(id int64) error {
	return m.store.DeleteGoal(id)
}
