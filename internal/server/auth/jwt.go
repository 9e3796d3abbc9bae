// Package auth issues and verifies the signed tokens used by the server and
// hashes user passwords.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/featureboard/internal/common"
	"github.com/dmitrijs2005/featureboard/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Purpose separates token kinds signed with the same key, so a verification
// link cannot be replayed as an access token.
type Purpose string

const (
	PurposeAccess        Purpose = "access"
	PurposeVerification  Purpose = "verify"
	PurposePasswordReset Purpose = "reset"
)

type Claims struct {
	jwt.RegisteredClaims
	UserID  string
	Role    models.Role
	Purpose Purpose
}

func GenerateToken(userID string, role models.Role, purpose Purpose, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID:  userID,
		Role:    role,
		Purpose: purpose,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates tokenString and checks it was issued for purpose.
// Expired tokens yield common.ErrTokenExpired; anything else that fails
// validation yields common.ErrInvalidToken.
func ParseToken(tokenString string, purpose Purpose, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Purpose != purpose || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// ActorFromToken resolves the caller of an authenticated request.
func ActorFromToken(tokenString string, secretKey []byte) (models.Actor, error) {
	claims, err := ParseToken(tokenString, PurposeAccess, secretKey)
	if err != nil {
		return models.Actor{}, err
	}
	return models.Actor{ID: claims.UserID, Role: claims.Role}, nil
}
