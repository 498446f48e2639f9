// Package auth mints and validates the creator token handed out when a
// match is created. Holding the token is what authorizes control-plane
// actions on that match (abandoning it); player identities are never
// validated here.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type CreatorClaims struct {
	jwt.RegisteredClaims
}

// GenerateCreatorToken signs a token whose subject is the match ID.
func GenerateCreatorToken(matchID, secret string, expireHours int) (string, error) {
	claims := CreatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(expireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Subject:   matchID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateCreatorToken(tokenString, secret string) (*CreatorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CreatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CreatorClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
