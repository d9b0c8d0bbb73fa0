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

// Package requestid assigns a unique ID to every incoming HTTP request and
// makes it available via context.Context, for correlation across log lines.
package requestid

import (
	"context"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/soerfi/qr-wizard/internal/logging"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// Header is the HTTP header carrying the request ID, honored if already set
// by an upstream proxy and echoed back on the response.
const Header = "X-Request-ID"

// FromContext extracts the request ID stored by Middleware, or "" if absent.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// New generates a fresh ULID-based request ID.
func New() string {
	return ulid.Make().String()
}

// Middleware assigns a request ID (from the incoming X-Request-ID header, or
// freshly generated) to each request's context and echoes it in the
// response headers so clients can correlate.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if id == "" {
			id = New()
		}
		r = r.WithContext(withRequestID(r.Context(), id))
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r)
	})
}

// LogRequest writes a single structured access-log line for a completed
// request, tagging it with the request ID carried in its context.
func LogRequest(logger *logging.Logger, r *http.Request, status int, latency time.Duration, bytes int) {
	ua := r.Header.Get("User-Agent")
	if len(ua) > 120 {
		ua = ua[:117] + "..."
	}
	logger.WithRequest(FromContext(r.Context())).Info(
		"request method=%s path=%s status=%d latency_ms=%d bytes=%d remote=%s ua=%q",
		r.Method, r.URL.Path, status, latency.Milliseconds(), bytes, r.RemoteAddr, ua,
	)
}
