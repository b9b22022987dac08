package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ownerEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, _ := OwnerFromContext(r.Context())
		_, _ = io.WriteString(w, owner)
	})
}

func TestAuth_Disabled(t *testing.T) {
	h := Auth(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))(ownerEcho())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, LocalOwner, rec.Body.String())
}

func TestAuth_Bearer(t *testing.T) {
	verifier := NewTokenVerifier("secret", "sales-api")
	h := Auth(verifier, slog.New(slog.NewTextHandler(io.Discard, nil)))(ownerEcho())

	valid, err := verifier.Sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	require.NoError(t, err)

	expired, err := verifier.Sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}})
	require.NoError(t, err)

	otherIssuer, err := NewTokenVerifier("secret", "someone-else").Sign(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-42"},
	})
	require.NoError(t, err)

	noSubject, err := verifier.Sign(&Claims{Email: "a@example.com"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + valid, http.StatusOK, "user-42"},
		{"missing", "", http.StatusUnauthorized, `{"error":"missing bearer token"}`},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, `{"error":"missing bearer token"}`},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, `{"error":"invalid bearer token"}`},
		{"wrong issuer", "Bearer " + otherIssuer, http.StatusUnauthorized, `{"error":"invalid bearer token"}`},
		{"no subject", "Bearer " + noSubject, http.StatusUnauthorized, `{"error":"invalid bearer token"}`},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized, `{"error":"invalid bearer token"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, rec.Body.String())
			} else {
				assert.JSONEq(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestTokenVerifier_RejectsOtherAlgorithms(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-42"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenVerifier("secret", "").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
