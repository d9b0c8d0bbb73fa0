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

// Package redirect implements the service's hot path: resolving a tracking
// slug, recording the scan, and issuing the redirect — in that fixed order,
// synchronously, so a scan is never lost to a background worker that never
// ran. An earlier asynchronous version of this logging caused data-loss
// regressions and was reverted; this package intentionally does not offer an
// async mode.
package redirect

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/soerfi/qr-wizard/internal/geo"
	"github.com/soerfi/qr-wizard/internal/identity"
	"github.com/soerfi/qr-wizard/internal/logging"
	"github.com/soerfi/qr-wizard/internal/store"
)

// ErrGone is returned when a link exists but is not active (paused or
// archived, including just-archived-due-to-expiry).
var ErrGone = errors.New("redirect: link is not active")

// Handler resolves slugs, records scans and computes redirect destinations.
type Handler struct {
	store         *store.Store
	geo           geo.Resolver
	ipSalt        string
	uniqueWindow  time.Duration
	trackingParam string
	logger        *logging.Logger
}

// New builds a Handler. ipSalt seeds ip_hash; uniqueWindow is the
// look-back used to decide whether a scan is unique per visitor fingerprint;
// trackingParam is the query parameter non-destructively appended to every
// destination ("" disables it).
func New(s *store.Store, resolver geo.Resolver, ipSalt string, uniqueWindow time.Duration, trackingParam string, logger *logging.Logger) *Handler {
	return &Handler{store: s, geo: resolver, ipSalt: ipSalt, uniqueWindow: uniqueWindow, trackingParam: trackingParam, logger: logger}
}

// Resolve implements the full redirect contract for one request:
//  1. fetch the link by slug, or store.ErrNotFound
//  2. archive it in place if active and past expiry
//  3. return ErrGone if it is not (now) active
//  4. record the scan synchronously
//  5. compute the destination (UTM + tracking param, non-overwriting)
//
// It returns the destination URL on success. The caller is responsible for
// issuing the actual HTTP redirect.
func (h *Handler) Resolve(r *http.Request) (destination string, err error) {
	l, err := h.store.GetLinkBySlug(slugFromPath(r.URL.Path))
	if err != nil {
		return "", err
	}

	if _, err := h.store.ArchiveExpired(l, time.Now().UTC()); err != nil {
		h.logger.Warn("redirect: archive-on-expiry failed for link %d: %v", l.ID, err)
	}

	if l.Status != store.StatusActive {
		return "", ErrGone
	}

	h.recordScan(l, r)

	destination = applyUTM(l)
	destination = appendTrackingParam(destination, h.trackingParam, l.Slug)
	return destination, nil
}

// slugFromPath extracts the slug from a "/t/{slug}" path.
func slugFromPath(path string) string {
	return strings.TrimPrefix(path, "/t/")
}

// recordScan logs a scan event. Failures are logged, never returned or
// allowed to block the redirect — a write failure here must not turn into a
// 500 for the visitor.
func (h *Handler) recordScan(l *store.Link, r *http.Request) {
	ua := r.Header.Get("User-Agent")
	rawIP := identity.ClientIP(r)

	ipHash := identity.HashIP(h.ipSalt, rawIP)
	fingerprint := identity.VisitorFingerprint(ipHash, ua)
	isBot := identity.IsBotUserAgent(ua)

	var isUnique, isDuplicate bool
	if !isBot && fingerprint != "" {
		since := time.Now().UTC().Add(-h.uniqueWindow)
		seen, err := h.store.HasRecentFingerprint(l.ID, fingerprint, since)
		if err != nil {
			h.logger.Warn("redirect: uniqueness check failed for link %d: %v", l.ID, err)
		}
		isUnique = !seen
		isDuplicate = seen
	}

	geoResult := h.geo.Resolve(rawIP)
	device := identity.ParseDevice(ua)

	queryPayload, _ := json.Marshal(r.URL.Query())

	sc := &store.Scan{
		LinkID:             l.ID,
		ScannedAt:          time.Now().UTC(),
		IPHash:             ipHash,
		VisitorFingerprint: fingerprint,
		Country:            derefOr(geoResult.Country, ""),
		Region:             derefOr(geoResult.Region, ""),
		City:               derefOr(geoResult.City, ""),
		OS:                 device.OS,
		Browser:            device.Browser,
		DeviceType:         device.DeviceType,
		Referrer:           r.Header.Get("Referer"),
		UserAgent:          ua,
		IsBot:              isBot,
		IsUnique:           isUnique,
		IsDuplicate:        isDuplicate,
		QueryPayload:       string(queryPayload),
	}

	if err := h.store.InsertScan(sc); err != nil {
		h.logger.Error("redirect: failed to record scan for link %d: %v", l.ID, err)
	}
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

// applyUTM appends the link's configured UTM parameters to its destination
// URL, without overwriting any query parameter already present — matching
// the original's urlencode(..., doseq=True) + setdefault behavior.
func applyUTM(l *store.Link) string {
	if !l.AutoAppendUTM {
		return l.DestinationURL
	}
	utm := map[string]string{
		"utm_source":   l.UTMSource,
		"utm_medium":   l.UTMMedium,
		"utm_campaign": l.UTMCampaign,
		"utm_term":     l.UTMTerm,
		"utm_content":  l.UTMContent,
	}
	return mergeQueryDefaults(l.DestinationURL, utm)
}

// appendTrackingParam sets paramName=slug on destination unless the
// destination already has that parameter.
func appendTrackingParam(destination, paramName, slug string) string {
	if paramName == "" {
		return destination
	}
	return mergeQueryDefaults(destination, map[string]string{paramName: slug})
}

// mergeQueryDefaults adds each non-empty key in defaults to u's query string
// only if that key isn't already present. Existing parameters keep their
// values, but the whole query string is re-encoded with its keys in sorted
// order; the rest of the URL is unchanged.
func mergeQueryDefaults(rawURL string, defaults map[string]string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	for k, v := range defaults {
		if v == "" {
			continue
		}
		if _, exists := q[k]; !exists {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
