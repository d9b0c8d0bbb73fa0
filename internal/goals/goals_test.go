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

package goals

import (
	"path/filepath"
	"testing"

	"github.com/soerfi/qr-wizard/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s), s
}

func TestCreateRequiresName(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Create(CreateInput{})
	if err != ErrNameRequired {
		t.Errorf("error = %v; want ErrNameRequired", err)
	}
}

func TestCreateRejectsInvalidTargetURL(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Create(CreateInput{Name: "signup", TargetURL: "not a url"})
	if err != ErrInvalidTargetURL {
		t.Errorf("error = %v; want ErrInvalidTargetURL", err)
	}
}

func TestCreateRejectsUnknownLink(t *testing.T) {
	m, _ := newTestManager(t)
	missing := int64(999)
	_, err := m.Create(CreateInput{LinkID: &missing, Name: "signup"})
	if err != ErrLinkNotFound {
		t.Errorf("error = %v; want ErrLinkNotFound", err)
	}
}

func TestCreateDefaultsActiveToTrue(t *testing.T) {
	m, _ := newTestManager(t)
	g, err := m.Create(CreateInput{Name: "signup"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !g.Active {
		t.Error("expected Active to default to true when unset")
	}
}

func TestListScopedToLink(t *testing.T) {
	m, s := newTestManager(t)
	l := &store.Link{Slug: "scoped", DestinationURL: "https://example.com", Status: store.StatusActive}
	if err := s.CreateLink(l); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	if _, err := m.Create(CreateInput{LinkID: &l.ID, Name: "scoped-goal"}); err != nil {
		t.Fatalf("Create(scoped): %v", err)
	}
	if _, err := m.Create(CreateInput{Name: "global-goal"}); err != nil {
		t.Fatalf("Create(global): %v", err)
	}

	rows, err := m.List(&l.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "scoped-goal" {
		t.Fatalf("List(linkID) = %+v; want only scoped-goal", rows)
	}
}

func TestDeleteGoal(t *testing.T) {
	m, _ := newTestManager(t)
	g, err := m.Create(CreateInput{Name: "temp"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.Delete(g.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}
