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

package identity

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateSlug(t *testing.T) {
	slug, err := GenerateSlug()
	if err != nil {
		t.Fatalf("GenerateSlug: %v", err)
	}
	if len(slug) != SlugLength {
		t.Errorf("len(slug) = %d; want %d", len(slug), SlugLength)
	}
	for _, r := range slug {
		if !strings.ContainsRune(slugAlphabet, r) {
			t.Errorf("slug %q contains disallowed rune %q", slug, r)
		}
	}
}

func TestIsBotUserAgent(t *testing.T) {
	cases := []struct {
		ua   string
		want bool
	}{
		{"", false},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36", false},
		{"Googlebot/2.1 (+http://www.google.com/bot.html)", true},
		{"curl/7.68.0", false},
		{"Mozilla/5.0 (compatible; Slackbot-LinkExpanding 1.0; +https://api.slack.com/robots)", true},
	}
	for _, c := range cases {
		if got := IsBotUserAgent(c.ua); got != c.want {
			t.Errorf("IsBotUserAgent(%q) = %v; want %v", c.ua, got, c.want)
		}
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")
	if got := ClientIP(r); got != "203.0.113.7" {
		t.Errorf("ClientIP = %q; want %q", got, "203.0.113.7")
	}
}

func TestClientIPFallsBackToRemoteAddr(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.5:5555"
	if got := ClientIP(r); got != "192.0.2.5" {
		t.Errorf("ClientIP = %q; want %q", got, "192.0.2.5")
	}
}

func TestAnonymizeIPv4(t *testing.T) {
	if got := AnonymizeIP("203.0.113.42"); got != "203.0.113.0/24" {
		t.Errorf("AnonymizeIP = %q; want %q", got, "203.0.113.0/24")
	}
	if got := AnonymizeIP("not-an-ip"); got != "" {
		t.Errorf("AnonymizeIP(invalid) = %q; want empty", got)
	}
}

func TestHashIPDeterministic(t *testing.T) {
	a := HashIP("salt", "203.0.113.42")
	b := HashIP("salt", "203.0.113.99") // same /24
	if a != b {
		t.Errorf("expected same /24 to hash identically: %q != %q", a, b)
	}
	c := HashIP("salt", "198.51.100.1")
	if a == c {
		t.Error("expected different /24 networks to hash differently")
	}
	if HashIP("salt", "") != "" {
		t.Error("expected empty IP to hash to empty string")
	}
}

func TestVisitorFingerprintEmptyInputs(t *testing.T) {
	if got := VisitorFingerprint("", ""); got != "" {
		t.Errorf("VisitorFingerprint(\"\",\"\") = %q; want empty", got)
	}
	fp := VisitorFingerprint("iphash", "Mozilla/5.0")
	if fp == "" {
		t.Error("expected non-empty fingerprint for non-empty inputs")
	}
}
