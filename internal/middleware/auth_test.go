package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestSessionAuth_RoundTrip(t *testing.T) {
	auth := NewSessionAuth("secret")
	id := uuid.New()

	token, expiresAt, err := auth.GenerateSessionToken(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Until(expiresAt) < 23*time.Hour {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}

	got, err := auth.ParseSessionToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != id {
		t.Fatalf("expected %s, got %s", id, got)
	}

	if _, err := NewSessionAuth("other").ParseSessionToken(token); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestSessionAuth_Middleware(t *testing.T) {
	auth := NewSessionAuth("secret")
	id := uuid.New()
	valid, _, _ := auth.GenerateSessionToken(id)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"session_id": id.String(),
		"exp":        time.Now().Add(-time.Minute).Unix(),
	})
	expiredStr, _ := expired.SignedString([]byte("secret"))

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantErr  string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage token", "Bearer nope", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"expired token", "Bearer " + expiredStr, http.StatusUnauthorized, "TOKEN_EXPIRED"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen uuid.UUID
			h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetSessionID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tc.wantCode {
				t.Fatalf("expected status %d, got %d", tc.wantCode, rr.Code)
			}
			if tc.wantErr == "" {
				if seen != id {
					t.Fatalf("expected session %s in context, got %s", id, seen)
				}
				return
			}

			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode error: %v", err)
			}
			if body.Error.Code != tc.wantErr {
				t.Fatalf("expected code %q, got %q", tc.wantErr, body.Error.Code)
			}
		})
	}
}

func TestGetSessionID_Missing(t *testing.T) {
	if id := GetSessionID(context.Background()); id != uuid.Nil {
		t.Fatalf("expected nil UUID, got %s", id)
	}
}
