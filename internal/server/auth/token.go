// Package auth issues and verifies the short-lived signed tokens embedded in
// container retrieval URLs. The install instruction handed to firmware is
// the only place these URLs appear, so a valid token proves the request
// originated from a provisioning handshake.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/openpmca/webinstaller/internal/common"
)

type Claims struct {
	jwt.RegisteredClaims
	Handle string
}

// GenerateToken signs a retrieval token binding the given package handle.
func GenerateToken(handle string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		Handle: handle,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetHandleFromToken verifies a retrieval token and returns the package
// handle it was issued for. Expired, malformed or tampered tokens fail with
// common.ErrorInvalidToken.
func GetHandleFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return "", common.ErrorInvalidToken
	}

	if !token.Valid {
		return "", common.ErrorInvalidToken
	}

	return claims.Handle, nil
}
