// Package auth issues and verifies the two JWT kinds the server uses: a
// short-lived access token carrying the user id, and a longer-lived refresh
// token that additionally names the session it belongs to.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/antonpetrovs/whisperline/internal/common"
)

type AccessClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

type RefreshClaims struct {
	jwt.RegisteredClaims
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
}

func GenerateAccessToken(userID string, secretKey []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: userID,
	})
	return token.SignedString(secretKey)
}

func GenerateRefreshToken(userID, sessionID string, secretKey []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID:    userID,
		SessionID: sessionID,
	})
	return token.SignedString(secretKey)
}

// ParseAccessToken validates the signature and expiry and returns the user
// id. Expired tokens map to ErrTokenExpired so callers can tell the client
// to refresh.
func ParseAccessToken(tokenString string, secretKey []byte) (string, error) {
	claims := &AccessClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" {
		return "", common.ErrInvalidToken
	}
	return claims.UserID, nil
}

// ParseRefreshToken returns the user and session ids embedded in a refresh
// token.
func ParseRefreshToken(tokenString string, secretKey []byte) (userID, sessionID string, err error) {
	claims := &RefreshClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", common.ErrRefreshTokenExpired
		}
		return "", "", common.ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" || claims.SessionID == "" {
		return "", "", common.ErrInvalidToken
	}
	return claims.UserID, claims.SessionID, nil
}

// HashToken reduces a refresh token to the hex SHA-256 digest that is safe
// to persist.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
