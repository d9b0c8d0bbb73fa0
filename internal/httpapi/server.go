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
	"time"

	"github.com/soerfi/qr-wizard/internal/analytics"
	"github.com/soerfi/qr-wizard/internal/auth"
	"github.com/soerfi/qr-wizard/internal/conversions"
	"github.com/soerfi/qr-wizard/internal/goals"
	"github.com/soerfi/qr-wizard/internal/links"
	"github.com/soerfi/qr-wizard/internal/logging"
	"github.com/soerfi/qr-wizard/internal/monitor"
	"github.com/soerfi/qr-wizard/internal/redirect"
	"github.com/soerfi/qr-wizard/internal/requestid"
	"github.com/soerfi/qr-wizard/internal/retention"
	"github.com/soerfi/qr-wizard/internal/security"
	"github.com/soerfi/qr-wizard/internal/webassets"
	"github.com/soerfi/qr-wizard/internal/webauthz"
)

// Server holds every business-layer dependency the HTTP surface wires
// together, plus the handful of request-scoped settings handlers need
// directly (the unique-scan window, echoed into analytics summaries).
type Server struct {
	links       *links.Manager
	goals       *goals.Manager
	conversions *conversions.Manager
	analytics   *analytics.Manager
	redirect    *redirect.Handler
	retention   *retention.Purger
	auth        *auth.Authenticator
	monitor     *monitor.Monitor
	csrf        *webauthz.TokenStore
	assets      *webassets.Manager
	logger      *logging.Logger

	uniqueWindowHours int
}

// Deps bundles the constructed business-layer managers Routes needs to
// wire up the HTTP surface.
type Deps struct {
	Links             *links.Manager
	Goals             *goals.Manager
	Conversions       *conversions.Manager
	Analytics         *analytics.Manager
	Redirect          *redirect.Handler
	Retention         *retention.Purger
	Auth              *auth.Authenticator
	Monitor           *monitor.Monitor
	CSRF              *webauthz.TokenStore
	Assets            *webassets.Manager
	Logger            *logging.Logger
	UniqueWindowHours int
}

// NewServer builds a Server from its dependencies.
func NewServer(d Deps) *Server {
	return &Server{
		links:             d.Links,
		goals:             d.Goals,
		conversions:       d.Conversions,
		analytics:         d.Analytics,
		redirect:          d.Redirect,
		retention:         d.Retention,
		auth:              d.Auth,
		monitor:           d.Monitor,
		csrf:              d.CSRF,
		assets:            d.Assets,
		logger:            d.Logger,
		uniqueWindowHours: d.UniqueWindowHours,
	}
}

// isPublicPath reports the paths that never require a session: the index
// page, the health check, the redirect hot path, the conversion beacon,
// static assets, and the login/auth-status endpoints
// themselves (a client must be able to ask whether it's logged in, and to
// log in, without already being logged in).
func isPublicPath(path string) bool {
	switch {
	case path == "/":
		return true
	case path == "/health":
		return true
	case path == "/goal.gif":
		return true
	case path == "/api/login":
		return true
	case path == "/api/auth_status":
		return true
	case len(path) >= 3 && path[:3] == "/t/":
		return true
	case len(path) >= 8 && path[:8] == "/static/":
		return true
	default:
		return false
	}
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		s.auth.RequireSession(next).ServeHTTP(w, r)
	})
}

// accessLog wraps next with a per-request structured access-log line,
// timing the handler and capturing the status code it wrote.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		requestid.LogRequest(s.logger, r, sw.status, time.Since(start), sw.bytes)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	n, err := sw.ResponseWriter.Write(b)
	sw.bytes += n
	return n, err
}

// Routes builds the complete route table, wrapped in the middleware chain
// applied to every request: access logging, request ID tagging, security
// headers, session enforcement, and CSRF protection on state-changing
// admin requests.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.indexPage)
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /t/{slug}", s.redirectSlug)
	mux.HandleFunc("GET /goal.gif", s.conversionPixel)

	mux.HandleFunc("POST /api/login", s.login)
	mux.HandleFunc("POST /api/logout", s.logout)
	mux.HandleFunc("GET /api/auth_status", s.authStatus)

	mux.HandleFunc("POST /api/qrcodes", s.createLink)
	mux.HandleFunc("GET /api/qrcodes", s.listLinks)
	mux.HandleFunc("POST /api/qrcodes/bulk", s.bulkImportLinks)
	mux.HandleFunc("POST /api/qrcodes/bulk_action", s.bulkAction)
	mux.HandleFunc("GET /api/qrcodes/{id}", s.getLink)
	mux.HandleFunc("PATCH /api/qrcodes/{id}", s.updateLink)
	mux.HandleFunc("DELETE /api/qrcodes/{id}", s.deleteLink)
	mux.HandleFunc("GET /api/qrcodes/{id}/history", s.linkHistory)
	mux.HandleFunc("GET /api/qrcodes/{id}/download", s.downloadLinkImage)

	mux.HandleFunc("POST /api/goals", s.createGoal)
	mux.HandleFunc("GET /api/goals", s.listGoals)
	mux.HandleFunc("DELETE /api/goals/{id}", s.deleteGoal)

	mux.HandleFunc("POST /api/conversions", s.createConversion)

	mux.HandleFunc("GET /api/analytics/summary", s.analyticsSummary)
	mux.HandleFunc("GET /api/analytics/timeseries", s.analyticsTimeseries)
	mux.HandleFunc("GET /api/analytics/top", s.analyticsTop)
	mux.HandleFunc("GET /api/analytics/breakdown", s.analyticsBreakdown)
	mux.HandleFunc("GET /api/analytics/options", s.analyticsOptions)
	mux.HandleFunc("GET /api/export/scans.csv", s.exportScansCSV)
	mux.HandleFunc("GET /api/export/qrcodes.csv", s.exportLinksCSV)
	mux.HandleFunc("GET /api/library/stats", s.libraryStats)

	mux.HandleFunc("POST /api/retention/run", s.runRetention)

	mux.Handle("/static/", s.assets)

	var handler http.Handler = mux
	handler = s.csrf.Middleware(handler)
	handler = s.requireSession(handler)
	handler = security.Headers(handler)
	handler = requestid.Middleware(handler)
	handler = s.accessLog(handler)
	return handler
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.monitor.ServeHTTP(w, r)
}

func (s *Server) indexPage(w http.ResponseWriter, r *http.Request) {
	s.assets.ServeIndex(w, r)
}
