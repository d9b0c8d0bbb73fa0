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

	"github.com/soerfi/qr-wizard/internal/analytics"
)

func (s *Server) analyticsSummary(w http.ResponseWriter, r *http.Request) {
	f := analytics.ParseFilter(queryParams(r))
	summary, err := s.analytics.Summary(f, s.uniqueWindowHours)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, summary)
}

func (s *Server) analyticsTimeseries(w http.ResponseWriter, r *http.Request) {
	f := analytics.ParseFilter(queryParams(r))
	granularity := r.URL.Query().Get("granularity")
	if granularity == "" {
		granularity = "day"
	}
	points, err := s.analytics.Timeseries(f, granularity)
	if err != nil {
		if errors.Is(err, analytics.ErrInvalidGranularity) {
			writeError(w, Validation("granularity", err.Error()))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, 200, points)
}

func (s *Server) analyticsTop(w http.ResponseWriter, r *http.Request) {
	f := analytics.ParseFilter(queryParams(r))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	rows, err := s.analytics.Top(f, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, rows)
}

func (s *Server) analyticsBreakdown(w http.ResponseWriter, r *http.Request) {
	f := analytics.ParseFilter(queryParams(r))
	field := r.URL.Query().Get("by")
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := s.analytics.Breakdown(f, field, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, rows)
}

func (s *Server) analyticsOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.analytics.Options()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, opts)
}

func (s *Server) libraryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.analytics.LibraryStats()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, stats)
}

func (s *Server) exportScansCSV(w http.ResponseWriter, r *http.Request) {
	f := analytics.ParseFilter(queryParams(r))
	data, err := s.analytics.ExportScansCSV(f)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="scans.csv"`)
	w.Write(data)
}

func (s *Server) exportLinksCSV(w http.ResponseWriter, r *http.Request) {
	data, err := s.analytics.ExportLinksCSV(s.links.TrackingURL)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="qrcodes.csv"`)
	w.Write(data)
}
