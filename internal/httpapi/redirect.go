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

	"github.com/soerfi/qr-wizard/internal/redirect"
	"github.com/soerfi/qr-wizard/internal/store"
)

func (s *Server) redirectSlug(w http.ResponseWriter, r *http.Request) {
	destination, err := s.redirect.Resolve(r)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, NotFound("no such tracking link"))
		case errors.Is(err, redirect.ErrGone):
			writeError(w, Gone("this tracking link is no longer active"))
		default:
			writeError(w, Internal(err.Error()))
		}
		return
	}
	http.Redirect(w, r, destination, http.StatusFound)
}
