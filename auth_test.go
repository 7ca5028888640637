package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokens(t *testing.T) (*HostTokens, *time.Time) {
	t.Helper()

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tokens, err := newHostTokens(&Config{hostSecret: "test-secret", hostTokenTTL: time.Hour})
	require.NoError(t, err)
	tokens.now = func() time.Time { return current }

	return tokens, &current
}

func TestHostTokenRoundTrip(t *testing.T) {
	tokens, _ := newTestTokens(t)

	token, err := tokens.issue("AB12CD34", "player-1")
	require.NoError(t, err)

	assert.NoError(t, tokens.verify(token, "AB12CD34", "player-1"))
}

func TestHostTokenRejected(t *testing.T) {
	tokens, now := newTestTokens(t)

	token, err := tokens.issue("AB12CD34", "player-1")
	require.NoError(t, err)

	elsewhere, err := tokens.issue("ZZ99ZZ99", "player-1")
	require.NoError(t, err)

	// A valid signature lifted from another token.
	parts, donor := strings.Split(token, "."), strings.Split(elsewhere, ".")
	forged := parts[0] + "." + parts[1] + "." + donor[2]

	other, err := newHostTokens(&Config{hostSecret: "other-secret", hostTokenTTL: time.Hour})
	require.NoError(t, err)
	other.now = tokens.now

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, hostClaims{
		Room: "AB12CD34",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   "player-1",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		tokens *HostTokens
		token  string
		room   string
		player string
	}{
		{"empty", tokens, "", "AB12CD34", "player-1"},
		{"garbage", tokens, "not-a-token", "AB12CD34", "player-1"},
		{"forged", tokens, forged, "AB12CD34", "player-1"},
		{"unsigned", tokens, unsigned, "AB12CD34", "player-1"},
		{"other room", tokens, token, "ZZ99ZZ99", "player-1"},
		{"other player", tokens, token, "AB12CD34", "player-2"},
		{"other secret", other, token, "AB12CD34", "player-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.tokens.verify(tt.token, tt.room, tt.player), errInvalidHostToken)
		})
	}
}

func TestHostTokenExpires(t *testing.T) {
	tokens, now := newTestTokens(t)

	token, err := tokens.issue("AB12CD34", "player-1")
	require.NoError(t, err)

	*now = now.Add(59 * time.Minute)
	assert.NoError(t, tokens.verify(token, "AB12CD34", "player-1"))

	*now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, tokens.verify(token, "AB12CD34", "player-1"), errInvalidHostToken)
}

func TestHostTokenRandomSecret(t *testing.T) {
	cfg := &Config{hostTokenTTL: time.Hour}

	a, err := newHostTokens(cfg)
	require.NoError(t, err)
	b, err := newHostTokens(cfg)
	require.NoError(t, err)

	assert.Len(t, a.secret, 32)
	assert.NotEqual(t, a.secret, b.secret)

	token, err := a.issue("AB12CD34", "player-1")
	require.NoError(t, err)
	assert.Error(t, b.verify(token, "AB12CD34", "player-1"))
}

func TestHostTokenCookie(t *testing.T) {
	tokens, _ := newTestTokens(t)
	cfg := testConfig()

	w := httptest.NewRecorder()
	require.NoError(t, tokens.setCookie(cfg, w, "/watch/AB12CD34", "AB12CD34", "player-1"))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	c := cookies[0]
	assert.Equal(t, hostCookieName, c.Name)
	assert.Equal(t, "/watch/AB12CD34", c.Path)
	assert.Equal(t, 3600, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	r := httptest.NewRequest(http.MethodGet, "/watch/AB12CD34/ws", nil)
	assert.False(t, tokens.isCreator(r, "AB12CD34", "player-1"))

	r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	assert.True(t, tokens.isCreator(r, "AB12CD34", "player-1"))
	assert.False(t, tokens.isCreator(r, "AB12CD34", "player-2"))
	assert.False(t, tokens.isCreator(r, "EF56GH78", "player-1"))
}
