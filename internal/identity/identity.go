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

// Package identity derives short link slugs and privacy-preserving visitor
// identifiers from inbound HTTP requests: anonymized IP hashes, a
// UA+IP fingerprint used for unique-visitor bucketing, and bot/device
// classification.
package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"strings"

	useragent "github.com/mssola/user_agent"
)

// slugAlphabet avoids visually ambiguous characters (no 0, 1, I, O, l).
const slugAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// SlugLength is the number of characters minted for a new tracking slug.
const SlugLength = 7

var alphabetSize = big.NewInt(int64(len(slugAlphabet)))

// GenerateSlug returns a random slug of SlugLength characters drawn from
// slugAlphabet using a cryptographically secure source. Callers are
// responsible for retrying on collision.
func GenerateSlug() (string, error) {
	b := make([]byte, SlugLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		b[i] = slugAlphabet[n.Int64()]
	}
	return string(b), nil
}

// botKeywords are substrings that, if present in a lowercased user agent,
// mark the request as automated traffic regardless of what the UA parser
// concludes.
var botKeywords = []string{"bot", "spider", "crawler", "preview", "headless", "monitor", "httpclient"}

// IsBotUserAgent reports whether ua looks like an automated client.
func IsBotUserAgent(ua string) bool {
	if ua == "" {
		return false
	}
	lower := strings.ToLower(ua)
	for _, kw := range botKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return useragent.New(ua).Bot()
}

// Device describes the parsed OS/browser/device-type of a request's user
// agent.
type Device struct {
	OS         string
	Browser    string
	DeviceType string // mobile, tablet, desktop, bot, other, unknown
}

// ParseDevice classifies a user agent string.
func ParseDevice(ua string) Device {
	if ua == "" {
		return Device{DeviceType: "unknown"}
	}
	parsed := useragent.New(ua)

	osName, osVersion := parsed.OS(), ""
	// mssola/user_agent exposes OS as a single combined string; browser
	// name/version are exposed separately.
	browserName, browserVersion := parsed.Browser()

	dtype := "other"
	switch {
	case parsed.Mobile():
		dtype = "mobile"
	case isTablet(ua):
		dtype = "tablet"
	case parsed.Bot():
		dtype = "bot"
	case osName != "":
		dtype = "desktop"
	}

	return Device{
		OS:         strings.TrimSpace(osName + " " + osVersion),
		Browser:    strings.TrimSpace(fmt.Sprintf("%s %s", browserName, browserVersion)),
		DeviceType: dtype,
	}
}

// isTablet approximates tablet detection: mssola/user_agent has no direct
// IsTablet(), so iPad/tablet/Android-without-Mobile hints are used, mirroring
// the heuristic the reference implementation's UA parser applies.
func isTablet(ua string) bool {
	lower := strings.ToLower(ua)
	if strings.Contains(lower, "ipad") {
		return true
	}
	if strings.Contains(lower, "tablet") {
		return true
	}
	if strings.Contains(lower, "android") && !strings.Contains(lower, "mobile") {
		return true
	}
	return false
}

// ClientIP extracts the originating address from a request, preferring the
// first hop in X-Forwarded-For when present.
func ClientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		if first := strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// AnonymizeIP truncates ip to a /24 network (IPv4) or /48 network (IPv6) and
// returns its CIDR string, or "" if ip does not parse.
func AnonymizeIP(ip string) string {
	addr := net.ParseIP(ip)
	if addr == nil {
		return ""
	}
	if v4 := addr.To4(); v4 != nil {
		mask := net.CIDRMask(24, 32)
		return fmt.Sprintf("%s/24", v4.Mask(mask).String())
	}
	mask := net.CIDRMask(48, 128)
	return fmt.Sprintf("%s/48", addr.Mask(mask).String())
}

// HashIP returns the salted SHA-256 hex digest of ip's anonymized network, or
// "" if ip is empty/unparsable.
func HashIP(salt, ip string) string {
	anon := AnonymizeIP(ip)
	if anon == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(salt + "::" + anon))
	return hex.EncodeToString(sum[:])
}

// VisitorFingerprint combines an IP hash and a lowercased, truncated user
// agent into a single SHA-256 digest used to approximate a unique visitor
// within a sliding time window. Returns "" when both inputs are empty.
func VisitorFingerprint(ipHash, ua string) string {
	normalized := ua
	if len(normalized) > 300 {
		normalized = normalized[:300]
	}
	normalized = strings.ToLower(normalized)
	if ipHash == "" && normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(ipHash + "|" + normalized))
	return hex.EncodeToString(sum[:])
}

// ConstantTimeEqual compares two strings without leaking timing information,
// used for comparing tokens derived from secrets.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
