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
	"strings"
	"time"

	"github.com/soerfi/qr-wizard/internal/links"
	"github.com/soerfi/qr-wizard/internal/qrimage"
)

func boolField(payload map[string]any, key string) bool {
	v, _ := payload[key].(bool)
	return v
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

func parseExpiresAt(payload map[string]any) *time.Time {
	raw, ok := payload["expires_at"].(string)
	if !ok || raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, strings.Replace(raw, "Z", "+00:00", 1))
	if err != nil {
		return nil
	}
	return &t
}

func (s *Server) createLink(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	decodeJSON(r, &payload)

	in := links.CreateInput{
		DestinationURL: stringField(payload, "destination_url"),
		Name:           stringField(payload, "name"),
		Campaign:       stringField(payload, "campaign"),
		Channel:        stringField(payload, "channel"),
		Location:       stringField(payload, "location"),
		Asset:          stringField(payload, "asset"),
		Owner:          stringField(payload, "owner"),
		Notes:          stringField(payload, "notes"),
		Status:         stringField(payload, "status"),
		AutoAppendUTM:  boolField(payload, "auto_append_utm"),
		UTMSource:      stringField(payload, "utm_source"),
		UTMMedium:      stringField(payload, "utm_medium"),
		UTMCampaign:    stringField(payload, "utm_campaign"),
		UTMTerm:        stringField(payload, "utm_term"),
		UTMContent:     stringField(payload, "utm_content"),
		ExpiresAt:      parseExpiresAt(payload),
		GoalName:       stringField(payload, "goal_name"),
		GoalTarget:     stringField(payload, "goal_target"),
	}

	view, err := s.links.Create(in)
	if err != nil {
		if errors.Is(err, links.ErrInvalidDestination) {
			writeError(w, Validation("destination_url", err.Error()))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, 201, view)
}

func (s *Server) bulkImportLinks(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, Validation("file", "please upload a CSV file under the 'file' field"))
		return
	}
	defer file.Close()

	result, err := s.links.BulkImportCSV(file)
	if err != nil {
		writeError(w, Validation("file", err.Error()))
		return
	}
	writeJSON(w, 200, result)
}

func (s *Server) listLinks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	res, err := s.links.List(links.ListFilter{
		Status:   q.Get("status"),
		Campaign: q.Get("campaign"),
		Channel:  q.Get("channel"),
		Location: q.Get("location"),
		Owner:    q.Get("owner"),
		Search:   q.Get("q"),
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{
		"items": res.Items, "page": res.Page, "per_page": res.PerPage,
		"total": res.Total, "pages": res.Pages,
	})
}

func linkID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (s *Server) getLink(w http.ResponseWriter, r *http.Request) {
	id, err := linkID(r)
	if err != nil {
		writeError(w, Validation("id", "invalid link id"))
		return
	}
	view, err := s.links.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, view)
}

func (s *Server) updateLink(w http.ResponseWriter, r *http.Request) {
	id, err := linkID(r)
	if err != nil {
		writeError(w, Validation("id", "invalid link id"))
		return
	}
	var fields map[string]any
	decodeJSON(r, &fields)

	view, err := s.links.Update(id, fields)
	if err != nil {
		if errors.Is(err, links.ErrInvalidDestination) {
			writeError(w, Validation("destination_url", err.Error()))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, 200, view)
}

func (s *Server) deleteLink(w http.ResponseWriter, r *http.Request) {
	id, err := linkID(r)
	if err != nil {
		writeError(w, Validation("id", "invalid link id"))
		return
	}
	if err := s.links.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]bool{"success": true})
}

func (s *Server) linkHistory(w http.ResponseWriter, r *http.Request) {
	id, err := linkID(r)
	if err != nil {
		writeError(w, Validation("id", "invalid link id"))
		return
	}
	rows, err := s.links.History(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, rows)
}

func parseFormat(q string) qrimage.Format {
	if strings.ToLower(q) == "svg" {
		return qrimage.FormatSVG
	}
	return qrimage.FormatPNG
}

func parseSize(q string) int {
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 {
		return 400
	}
	if n > 2000 {
		n = 2000
	}
	return n
}

func (s *Server) downloadLinkImage(w http.ResponseWriter, r *http.Request) {
	id, err := linkID(r)
	if err != nil {
		writeError(w, Validation("id", "invalid link id"))
		return
	}
	format := parseFormat(r.URL.Query().Get("format"))
	size := parseSize(r.URL.Query().Get("size"))

	img, err := s.links.DownloadImage(id, format, size)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+img.Filename+`"`)
	w.Write(img.Data)
}

func (s *Server) bulkAction(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Action string         `json:"action"`
		IDs    []int64        `json:"ids"`
		Data   map[string]any `json:"data"`
		Format string         `json:"format"`
		Size   int            `json:"size"`
	}
	decodeJSON(r, &payload)

	if len(payload.IDs) == 0 {
		writeError(w, Validation("ids", "no ids provided"))
		return
	}

	switch payload.Action {
	case "delete":
		count, err := s.links.BulkDelete(payload.IDs)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"success": true, "count": count})

	case "update":
		count, err := s.links.BulkUpdate(payload.IDs, payload.Data)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"success": true, "count": count})

	case "download_zip":
		format := qrimage.FormatPNG
		if strings.ToLower(payload.Format) == "svg" {
			format = qrimage.FormatSVG
		}
		size := payload.Size
		if size <= 0 {
			size = 400
		}
		zipped, err := s.links.BulkDownloadZIP(payload.IDs, format, size)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", `attachment; filename="`+zipped.Filename+`"`)
		w.Write(zipped.Data)

	default:
		writeError(w, Validation("action", "unsupported bulk action"))
	}
}
