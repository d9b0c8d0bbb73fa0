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

// Package analytics serves the reporting surface: filtered summaries, time
// series, breakdowns, top-link rankings, and CSV exports. Every query joins
// against links so a scan or conversion can be filtered by the link's
// campaign/channel/location/owner/status, not just its own columns.
package analytics

import (
	"strings"
	"time"
)

// Filter scopes a query to a time window and a set of link attributes,
// mirroring the original report page's query-string filter set.
type Filter struct {
	Start    *time.Time
	End      *time.Time
	Campaign string
	Channel  string
	Location string
	Owner    string
	Status   string
	LinkID   *int64
}

// ParseFilter builds a Filter from loosely-typed query parameters (as
// decoded from an HTTP request's query string). Unparseable start/end
// values are silently dropped rather than rejected, matching the
// original's best-effort fromisoformat handling.
func ParseFilter(params map[string]string) Filter {
	f := Filter{
		Campaign: strings.TrimSpace(params["campaign"]),
		Channel:  strings.TrimSpace(params["channel"]),
		Location: strings.TrimSpace(params["location"]),
		Owner:    strings.TrimSpace(params["owner"]),
		Status:   strings.TrimSpace(params["status"]),
	}
	if raw := params["start"]; raw != "" {
		if t, err := parseFlexibleTime(raw); err == nil {
			f.Start = &t
		}
	}
	if raw := params["end"]; raw != "" {
		if t, err := parseFlexibleTime(raw); err == nil {
			f.End = &t
		}
	}
	if raw := params["qr_code_id"]; raw != "" {
		if id, err := parseInt(raw); err == nil {
			f.LinkID = &id
		}
	}
	return f
}

func parseInt(s string) (int64, error) {
	var n int64
	var neg bool
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmptyInt
	}
	for i, r := range s {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		if r < '0' || r > '9' {
			return 0, errEmptyInt
		}
		n = n*10 + int64(r-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}

var errEmptyInt = parseError("not an integer")

type parseError string

func (e parseError) Error() string { return string(e) }

func parseFlexibleTime(raw string) (time.Time, error) {
	formats := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}
	var lastErr error
	for _, f := range formats {
		if t, err := time.Parse(f, raw); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}

// clause builds the shared WHERE fragment and argument list applied to
// both scan and conversion queries: a time range against timeColumn plus
// the link-attribute equality filters, joined against the links table
// aliased "l". eventsLinkIDColumn is the fully-qualified link_id column on
// the events table being filtered (e.g. "s.link_id" or "c.link_id").
func (f Filter) clause(timeColumn, eventsLinkIDColumn string) (string, []any) {
	var parts []string
	var args []any

	if f.Start != nil {
		parts = append(parts, timeColumn+" >= ?")
		args = append(args, f.Start.UTC())
	}
	if f.End != nil {
		parts = append(parts, timeColumn+" <= ?")
		args = append(args, f.End.UTC())
	}
	if f.Campaign != "" {
		parts = append(parts, "l.campaign = ?")
		args = append(args, f.Campaign)
	}
	if f.Channel != "" {
		parts = append(parts, "l.channel = ?")
		args = append(args, f.Channel)
	}
	if f.Location != "" {
		parts = append(parts, "l.location = ?")
		args = append(args, f.Location)
	}
	if f.Owner != "" {
		parts = append(parts, "l.owner = ?")
		args = append(args, f.Owner)
	}
	if f.Status != "" {
		parts = append(parts, "l.status = ?")
		args = append(args, f.Status)
	}
	if f.LinkID != nil {
		parts = append(parts, eventsLinkIDColumn+" = ?")
		args = append(args, *f.LinkID)
	}

	if len(parts) == 0 {
		return "", args
	}
	return " AND " + strings.Join(parts, " AND "), args
}
