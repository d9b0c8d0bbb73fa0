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

	"github.com/soerfi/qr-wizard/internal/conversions"
	"github.com/soerfi/qr-wizard/internal/identity"
)

func (s *Server) createConversion(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		LinkID      *int64   `json:"qr_code_id"`
		Slug        string   `json:"slug"`
		GoalID      *int64   `json:"goal_id"`
		CurrentURL  string   `json:"current_url"`
		ScanEventID *int64   `json:"scan_event_id"`
		EventName   string   `json:"event_name"`
		Value       *float64 `json:"value"`
	}
	decodeJSON(r, &payload)

	c, err := s.conversions.Create(conversions.CreateInput{
		LinkID:      payload.LinkID,
		Slug:        payload.Slug,
		GoalID:      payload.GoalID,
		CurrentURL:  payload.CurrentURL,
		ScanEventID: payload.ScanEventID,
		EventName:   payload.EventName,
		Value:       payload.Value,
		ClientIP:    identity.ClientIP(r),
		UserAgent:   r.Header.Get("User-Agent"),
	})
	if err != nil {
		switch {
		case errors.Is(err, conversions.ErrLinkRequired):
			writeError(w, Validation("qr_code_id", err.Error()))
		case errors.Is(err, conversions.ErrGoalNotFound):
			writeError(w, Validation("goal_id", err.Error()))
		case errors.Is(err, conversions.ErrScanNotFound):
			writeError(w, Validation("scan_event_id", err.Error()))
		default:
			writeError(w, err)
		}
		return
	}
	writeJSON(w, 201, c)
}

// conversionPixel serves the 1x1 tracking beacon. It always responds with
// the GIF bytes and a 200, regardless of whether slug identifies a real
// link — existence is never revealed through this endpoint.
func (s *Server) conversionPixel(w http.ResponseWriter, r *http.Request) {
	data := s.conversions.Pixel(r)
	w.Header().Set("Content-Type", conversions.PixelContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
