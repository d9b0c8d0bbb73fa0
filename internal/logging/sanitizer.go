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

package logging

import "regexp"

// Sanitizer masks patterns that look like PII before a log line is written.
// Scan records already store hashed/anonymized identifiers; logging must not
// leak the raw inputs those hashes were built from.
type Sanitizer struct {
	patterns map[string]*regexp.Regexp
}

// NewSanitizer builds a Sanitizer with the default pattern set.
func NewSanitizer() *Sanitizer {
	s := &Sanitizer{patterns: make(map[string]*regexp.Regexp)}
	s.initPatterns()
	return s
}

func (s *Sanitizer) initPatterns() {
	s.patterns["email"] = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	s.patterns["ipv4"] = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	s.patterns["ipv6"] = regexp.MustCompile(`\b([0-9a-fA-F]{1,4}:){2,7}[0-9a-fA-F]{1,4}\b`)
	s.patterns["apikey"] = regexp.MustCompile(`(?i)(api[_-]?key|token|secret)\s*[:=]\s*\S+`)
	s.patterns["jwt"] = regexp.MustCompile(`\beyJ[a-zA-Z0-9_\-]+\.[a-zA-Z0-9_\-]+\.[a-zA-Z0-9_\-]+\b`)
}

// Sanitize returns msg with every configured pattern replaced by a
// redaction marker naming the kind of data that was found.
func (s *Sanitizer) Sanitize(msg string) string {
	msg = s.patterns["email"].ReplaceAllString(msg, "[REDACTED_EMAIL]")
	msg = s.patterns["jwt"].ReplaceAllString(msg, "[REDACTED_TOKEN]")
	msg = s.patterns["apikey"].ReplaceAllString(msg, "[REDACTED_SECRET]")
	msg = s.patterns["ipv6"].ReplaceAllString(msg, "[REDACTED_IP]")
	msg = s.patterns["ipv4"].ReplaceAllString(msg, "[REDACTED_IP]")
	return msg
}
