package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// authProbe hits a protected route and reports the status. 404 means the
// request made it past the auth middleware.
func (ta *testAPI) authProbe(t *testing.T, authorization string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodDelete, "/links/zzz999", nil)
	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func signedToken(t *testing.T, method jwt.SigningMethod, secret, username string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestRequireAuth(t *testing.T) {
	ta := newTestAPI(t)
	ta.createUser(t, "alice", false)
	ghost := ta.createUser(t, "ghost", false)
	ghost.IsActive = false
	require.NoError(t, ta.db.Save(ghost).Error)

	inHour := time.Now().Add(time.Hour)

	tests := []struct {
		name          string
		authorization string
		status        int
	}{
		{
			name:   "missing header",
			status: http.StatusUnauthorized,
		},
		{
			name:          "wrong scheme",
			authorization: "Token abc",
			status:        http.StatusUnauthorized,
		},
		{
			name:          "garbage token",
			authorization: "Bearer not-a-jwt",
			status:        http.StatusUnauthorized,
		},
		{
			name:          "wrong signing key",
			authorization: "Bearer " + signedToken(t, jwt.SigningMethodHS256, "other-secret", "alice", inHour),
			status:        http.StatusUnauthorized,
		},
		{
			name:          "unexpected signing method",
			authorization: "Bearer " + signedToken(t, jwt.SigningMethodHS384, "test-secret", "alice", inHour),
			status:        http.StatusUnauthorized,
		},
		{
			name:          "expired token",
			authorization: "Bearer " + signedToken(t, jwt.SigningMethodHS256, "test-secret", "alice", time.Now().Add(-time.Hour)),
			status:        http.StatusUnauthorized,
		},
		{
			name:          "unknown user",
			authorization: "Bearer " + signedToken(t, jwt.SigningMethodHS256, "test-secret", "nobody", inHour),
			status:        http.StatusUnauthorized,
		},
		{
			name:          "deactivated user",
			authorization: "Bearer " + signedToken(t, jwt.SigningMethodHS256, "test-secret", "ghost", inHour),
			status:        http.StatusUnauthorized,
		},
		{
			name:          "valid token reaches the handler",
			authorization: "Bearer " + signedToken(t, jwt.SigningMethodHS256, "test-secret", "alice", inHour),
			status:        http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, ta.authProbe(t, tt.authorization))
		})
	}
}

func TestOptionalAuthOnShorten(t *testing.T) {
	ta := newTestAPI(t)

	t.Run("no header creates an anonymous link", func(t *testing.T) {
		resp := ta.request(t, http.MethodPost, "/links/shorten", "", fiber.Map{"original_url": "https://example.com"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		link := decodeLink(t, resp)
		assert.Nil(t, link.UserID)
	})

	t.Run("a bad token is rejected, not ignored", func(t *testing.T) {
		resp := ta.request(t, http.MethodPost, "/links/shorten", "not-a-jwt", fiber.Map{"original_url": "https://example.com"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("a valid token attaches the owner", func(t *testing.T) {
		user := ta.createUser(t, "alice", false)
		resp := ta.request(t, http.MethodPost, "/links/shorten", ta.token(t, "alice"), fiber.Map{"original_url": "https://example.com/owned"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		link := decodeLink(t, resp)
		require.NotNil(t, link.UserID)
		assert.Equal(t, user.ID, *link.UserID)
	})
}
