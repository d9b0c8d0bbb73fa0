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

package webauthz

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateAndValidateToken(t *testing.T) {
	ts := NewTokenStore()
	token, err := ts.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}
	if !ts.ValidateToken(token) {
		t.Error("expected freshly generated token to validate")
	}
}

func TestValidateTokenRejectsUnknown(t *testing.T) {
	ts := NewTokenStore()
	if ts.ValidateToken("not-a-real-token") {
		t.Error("expected an unregistered token to fail validation")
	}
}

func TestMiddlewareSetsCookieOnGet(t *testing.T) {
	ts := NewTokenStore()
	handler := ts.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/qrcodes", nil)
	handler.ServeHTTP(rec, req)

	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "csrf_token" {
			found = true
		}
	}
	if !found {
		t.Error("expected a csrf_token cookie to be set on a GET request")
	}
}

func TestMiddlewareRejectsPostWithoutToken(t *testing.T) {
	ts := NewTokenStore()
	handler := ts.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/qrcodes", nil)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d; want 403", rec.Code)
	}
}

func TestMiddlewareAcceptsPostWithMatchingDoubleSubmit(t *testing.T) {
	ts := NewTokenStore()
	token, err := ts.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	handler := ts.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/qrcodes", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: token})
	req.Header.Set("X-CSRF-Token", token)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d; want 200", rec.Code)
	}
}

func TestMiddlewareRejectsMismatchedCookieAndHeader(t *testing.T) {
	ts := NewTokenStore()
	token, err := ts.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	other, err := ts.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	handler := ts.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/qrcodes", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: token})
	req.Header.Set("X-CSRF-Token", other)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d; want 403", rec.Code)
	}
}

func TestTokenFromRequestMissingCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := TokenFromRequest(req); got != "" {
		t.Errorf("TokenFromRequest = %q; want empty", got)
	}
}
