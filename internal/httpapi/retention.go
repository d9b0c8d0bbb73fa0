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

import "net/http"

// runRetention triggers an immediate purge of scan/conversion history past
// the configured retention window, outside of its normal background
// schedule — used by operators after lowering DATA_RETENTION_DAYS.
func (s *Server) runRetention(w http.ResponseWriter, r *http.Request) {
	scans, conversions, err := s.retention.Run()
	if err != nil {
		writeError(w, Internal(err.Error()))
		return
	}
	writeJSON(w, 200, map[string]int64{
		"scans_deleted":       scans,
		"conversions_deleted": conversions,
	})
}
