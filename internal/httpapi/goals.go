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

package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/soerfi/qr-wizard/internal/goals"
)

func (s *Server) createGoal(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		LinkID      *int64 `json:"qr_code_id"`
		Name        string `json:"name"`
		TargetURL   string `json:"target_url"`
		Description string `json:"description"`
		Active      *bool  `json:"active"`
	}
	decodeJSON(r, &payload)

	g, err := s.goals.Create(goals.CreateInput{
		LinkID:      payload.LinkID,
		Name:        payload.Name,
		TargetURL:   payload.TargetURL,
		Description: payload.Description,
		Active:      payload.Active,
	})
	if err != nil {
		switch {
		case errors.Is(err, goals.ErrNameRequired):
			writeError(w, Validation("name", err.Error()))
		case errors.Is(err, goals.ErrInvalidTargetURL):
			writeError(w, Validation("target_url", err.Error()))
		case errors.Is(err, goals.ErrLinkNotFound):
			writeError(w, Validation("qr_code_id", "no such link"))
		default:
			writeError(w, err)
		}
		return
	}
	writeJSON(w, 201, g)
}

func (s *Server) listGoals(w http.ResponseWriter, r *http.Request) {
	var linkID *int64
	if raw := r.URL.Query().Get("qr_code_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			linkID = &id
		}
	}
	rows, err := s.goals.List(linkID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, rows)
}

func (s *Server) deleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, Validation("id", "invalid goal id"))
		return
	}
	if err := s.goals.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]bool{"success": true})
}
