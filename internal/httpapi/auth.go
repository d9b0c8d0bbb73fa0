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
	"net/http"

	"github.com/soerfi/qr-wizard/internal/auth"
)

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Password string `json:"password"`
	}
	decodeJSON(r, &payload)

	if !s.auth.CheckPassword(payload.Password) {
		writeError(w, Unauthorized("invalid password"))
		return
	}
	s.auth.IssueSession(w, r)
	writeJSON(w, 200, map[string]bool{"success": true})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	writeJSON(w, 200, map[string]bool{"success": true})
}

func (s *Server) authStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]bool{"authenticated": s.auth.IsAuthenticated(r)})
}
