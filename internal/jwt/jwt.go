package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const TokenTTL = 24 * time.Hour

type UserClaims struct {
	Id string
	*jwt.RegisteredClaims
}

func CreateJWTToken(id string, secret string) (string, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &UserClaims{
		Id: id,
		RegisteredClaims: &jwt.RegisteredClaims{
			Issuer:    "grimoire",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenTTL)),
		},
	}).SignedString([]byte(secret))

	if err != nil {
		return "", fmt.Errorf("error signing jwt token: %v", err)
	}

	return token, nil
}

func DecodeJWTToken(token string, secret string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &UserClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		return "", fmt.Errorf("error decoding jwt token: %v", err)
	}

	claims, ok := parsed.Claims.(*UserClaims)

	if !ok || !parsed.Valid {
		return "", fmt.Errorf("invalid jwt claims")
	}

	return claims.Id, nil
}
