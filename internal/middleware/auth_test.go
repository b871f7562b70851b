package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signed(t *testing.T, secret, userID string, expires time.Time) string {
	t.Helper()
	claims := &models.JwtCustomClaims{
		UserID:           userID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(expires)},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func run(t *testing.T, mw echo.MiddlewareFunc, header string) (string, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var caller string
	err := mw(func(c echo.Context) error {
		caller = CallerID(c)
		return nil
	})(c)
	return caller, err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected echo.HTTPError, got %v", err)
	return he.Code
}

func TestJWTAuthMiddleware(t *testing.T) {
	mw := JWTAuthMiddleware(testSecret)

	caller, err := run(t, mw, "Bearer "+signed(t, testSecret, "u1", time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "u1", caller)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Token abc"},
		{"wrong secret", "Bearer " + signed(t, "other", "u1", time.Now().Add(time.Hour))},
		{"expired", "Bearer " + signed(t, testSecret, "u1", time.Now().Add(-time.Hour))},
		{"no user id", "Bearer " + signed(t, testSecret, "", time.Now().Add(time.Hour))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, mw, tt.header)
			assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
		})
	}
}

type fakeVerifier map[string]string

func (f fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	uid, ok := f[idToken]
	if !ok {
		return nil, errors.New("token rejected")
	}
	return &auth.Token{UID: uid}, nil
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	mw := FirebaseAuthMiddleware(fakeVerifier{"good": "firebase-uid"})

	caller, err := run(t, mw, "Bearer good")
	require.NoError(t, err)
	assert.Equal(t, "firebase-uid", caller)

	_, err = run(t, mw, "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}
