package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"stonebirds/lobby"
)

const inviteExpiry = 30 * time.Minute

// Invites signs and verifies room invite tokens
type Invites struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

type inviteClaims struct {
	Room string     `json:"room"`
	Role lobby.Role `json:"role"`
	jwt.RegisteredClaims
}

// NewInvites creates an invite signer. An empty secret is loaded from the
// database, or generated and persisted there.
func NewInvites(secret string, db *DB) *Invites {
	key := []byte(secret)
	if len(key) == 0 {
		key = loadOrCreateSecret(db)
	}
	return &Invites{secret: key, expiry: inviteExpiry, now: time.Now}
}

// loadOrCreateSecret loads the signing secret from the database, or generates
// and persists a new one if none exists.
func loadOrCreateSecret(db *DB) []byte {
	if db != nil {
		if h := db.GetSetting("invite_secret"); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b
			}
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate invite secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting("invite_secret", hex.EncodeToString(secret)); err != nil {
			slog.Warn("could not persist invite secret", "err", err)
		}
	}
	return secret
}

// Issue signs an invite to take role in room
func (iv *Invites) Issue(room string, role lobby.Role) (string, error) {
	now := iv.now()
	claims := inviteClaims{
		Room: room,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(iv.expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(iv.secret)
}

// Parse verifies an invite and returns the room and role it grants
func (iv *Invites) Parse(tokenStr string) (string, lobby.Role, error) {
	var claims inviteClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return iv.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(iv.now))
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrBadInvite, err)
	}
	if claims.Room == "" || !claims.Role.Valid() {
		return "", "", errors.Join(ErrBadInvite, errors.New("invite claims incomplete"))
	}
	return claims.Room, claims.Role, nil
}
