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

// Package auth implements the admin dashboard's single shared-password
// session login. There are no user accounts: anyone holding the configured
// password is granted the same admin session.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	sessionCookieName = "qr_wizard_session"
	sessionTTL        = 12 * time.Hour
)

// Authenticator verifies the shared admin password and issues/validates
// session cookies.
type Authenticator struct {
	passwordHash []byte
	secret       []byte
}

// New builds an Authenticator. passwordHash is a bcrypt hash (from
// ADMIN_PASSWORD_HASH); secret signs session cookie values so they cannot be
// forged without the server's key.
func New(passwordHash, secret string) *Authenticator {
	return &Authenticator{passwordHash: []byte(passwordHash), secret: []byte(secret)}
}

// CheckPassword reports whether candidate matches the configured admin
// password.
func (a *Authenticator) CheckPassword(candidate string) bool {
	return bcrypt.CompareHashAndPassword(a.passwordHash, []byte(candidate)) == nil
}

// HashPassword bcrypt-hashes plaintext for storage in ADMIN_PASSWORD_HASH.
// Exposed for an operator setup script; never called on the request path.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// sign returns a hex HMAC-SHA256 of value under a.secret.
func (a *Authenticator) sign(value string) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// IssueSession sets a signed, expiring session cookie on w.
func (a *Authenticator) IssueSession(w http.ResponseWriter, r *http.Request) {
	expiry := time.Now().Add(sessionTTL).Unix()
	payload := strconv.FormatInt(expiry, 10)
	sig := a.sign(payload)
	value := base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." + sig

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL.Seconds()),
	})
}

// ClearSession removes the session cookie.
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// IsAuthenticated reports whether r carries a valid, unexpired session
// cookie signed by this Authenticator.
func (a *Authenticator) IsAuthenticated(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	parts := strings.SplitN(cookie.Value, ".", 2)
	if len(parts) != 2 {
		return false
	}
	payloadRaw, sig := parts[0], parts[1]
	payload, err := base64.RawURLEncoding.DecodeString(payloadRaw)
	if err != nil {
		return false
	}
	if !hmac.Equal([]byte(a.sign(string(payload))), []byte(sig)) {
		return false
	}
	expiry, err := strconv.ParseInt(string(payload), 10, 64)
	if err != nil {
		return false
	}
	return time.Now().Unix() < expiry
}

// RequireSession is HTTP middleware that returns 401 for unauthenticated
// requests instead of serving next.
func (a *Authenticator) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.IsAuthenticated(r) {
			http.Error(w, "login required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isSecureRequest allows a plain-HTTP cookie only on localhost, matching the
// rest of this service's cookie-issuing code.
func isSecureRequest(r *http.Request) bool {
	if r.Host == "localhost" || r.Host == "127.0.0.1" || strings.HasPrefix(r.Host, "localhost:") || strings.HasPrefix(r.Host, "127.0.0.1:") {
		return false
	}
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
