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

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func testAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return New(hash, "test-secret")
}

func TestCheckPassword(t *testing.T) {
	a := testAuthenticator(t)
	if !a.CheckPassword("correct horse battery staple") {
		t.Error("expected the correct password to check out")
	}
	if a.CheckPassword("wrong password") {
		t.Error("expected an incorrect password to be rejected")
	}
}

func TestIssueSessionThenIsAuthenticated(t *testing.T) {
	a := testAuthenticator(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	a.IssueSession(rec, req)

	result := rec.Result()
	var cookie *http.Cookie
	for _, c := range result.Cookies() {
		if c.Name == "qr_wizard_session" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected a session cookie to be set")
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/auth_status", nil)
	req2.AddCookie(cookie)
	if !a.IsAuthenticated(req2) {
		t.Error("expected the issued session to authenticate")
	}
}

func TestIsAuthenticatedRejectsMissingCookie(t *testing.T) {
	a := testAuthenticator(t)
	req := httptest.NewRequest(http.MethodGet, "/api/auth_status", nil)
	if a.IsAuthenticated(req) {
		t.Error("expected no cookie to mean unauthenticated")
	}
}

func TestIsAuthenticatedRejectsTamperedCookie(t *testing.T) {
	a := testAuthenticator(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	a.IssueSession(rec, req)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "qr_wizard_session" {
			cookie = c
		}
	}
	tampered := *cookie
	tampered.Value = cookie.Value + "x"

	req2 := httptest.NewRequest(http.MethodGet, "/api/auth_status", nil)
	req2.AddCookie(&tampered)
	if a.IsAuthenticated(req2) {
		t.Error("expected a tampered signature to fail authentication")
	}
}

func TestIsAuthenticatedRejectsForeignSecret(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	issuer := New(hash, "secret-a")
	verifier := New(hash, "secret-b")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	issuer.IssueSession(rec, req)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "qr_wizard_session" {
			cookie = c
		}
	}
	req2 := httptest.NewRequest(http.MethodGet, "/api/auth_status", nil)
	req2.AddCookie(cookie)
	if verifier.IsAuthenticated(req2) {
		t.Error("expected a cookie signed with a different secret to fail authentication")
	}
}

func TestRequireSessionMiddleware(t *testing.T) {
	a := testAuthenticator(t)
	handler := a.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/qrcodes", nil)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401 without a session", rec.Code)
	}
}

func TestClearSessionExpiresCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearSession(rec)
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "qr_wizard_session" {
			cookie = c
		}
	}
	if cookie == nil || cookie.MaxAge >= 0 {
		t.Errorf("cookie = %+v; want MaxAge < 0 to expire immediately", cookie)
	}
}
