/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	hostCookieName = "watchparty_host"
	tokenIssuer    = "watchparty"
)

var errInvalidHostToken = errors.New("invalid host token")

// hostClaims ties a room to the player cookie that created it.
type hostClaims struct {
	Room string `json:"room"`
	jwt.RegisteredClaims
}

// HostTokens signs and checks the tokens that prove a websocket client
// created the room it is joining.
type HostTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func newHostTokens(cfg *Config) (*HostTokens, error) {
	secret := []byte(cfg.hostSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generating host secret: %w", err)
		}
	}

	return &HostTokens{
		secret: secret,
		ttl:    cfg.hostTokenTTL,
		now:    time.Now,
	}, nil
}

func (h *HostTokens) issue(roomCode, playerID string) (string, error) {
	now := h.now()

	claims := hostClaims{
		Room: roomCode,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
}

func (h *HostTokens) verify(token, roomCode, playerID string) error {
	if token == "" {
		return errInvalidHostToken
	}

	claims := &hostClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return h.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithSubject(playerID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(h.now),
	)
	if err != nil || !parsed.Valid {
		return errInvalidHostToken
	}

	if claims.Room != roomCode {
		return errInvalidHostToken
	}

	return nil
}

func (h *HostTokens) setCookie(cfg *Config, w http.ResponseWriter, path, roomCode, playerID string) error {
	token, err := h.issue(roomCode, playerID)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     hostCookieName,
		Value:    token,
		Path:     path,
		MaxAge:   int(h.ttl.Seconds()),
		HttpOnly: true,
		Secure:   cfg.scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// isCreator reports whether r carries a valid host token for roomCode.
func (h *HostTokens) isCreator(r *http.Request, roomCode, playerID string) bool {
	c, err := r.Cookie(hostCookieName)
	if err != nil {
		return false
	}

	return h.verify(c.Value, roomCode, playerID) == nil
}
