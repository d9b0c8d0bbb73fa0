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
	"encoding/json"
	"errors"
	"net/http"

	"github.com/soerfi/qr-wizard/internal/store"
)

// writeJSON marshals v to the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// decodeJSON reads and decodes the request body into dst. A missing or
// malformed body is treated the same as an empty payload ({}) — handlers
// validate required fields themselves, matching the original app's
// request.get_json(silent=True) or {} pattern.
func decodeJSON(r *http.Request, dst any) {
	if r.Body == nil {
		return
	}
	defer r.Body.Close()
	json.NewDecoder(r.Body).Decode(dst)
}

// writeError renders err as a JSON error body with the status its Kind
// maps to. Errors that aren't *AppError are treated as internal; a
// store.ErrNotFound bubbling up from a business-layer call that didn't
// wrap it is recognized directly so handlers don't all have to do it.
func writeError(w http.ResponseWriter, err error) {
	var ae *AppError
	if errors.As(err, &ae) {
		writeJSON(w, statusForKind(ae.Kind), map[string]string{"error": ae.Message})
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, 404, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, 500, map[string]string{"error": "internal error"})
}

func queryParams(r *http.Request) map[string]string {
	out := make(map[string]string)
	for k := range r.URL.Query() {
		out[k] = r.URL.Query().Get(k)
	}
	return out
}
