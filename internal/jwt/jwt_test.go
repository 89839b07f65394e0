package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestCreateJWTToken(t *testing.T) {
	expect := "12345"

	secret := "secret"

	token, err := CreateJWTToken(expect, secret)

	if err != nil {
		t.Fatal(err)
	}

	got := &UserClaims{}

	jwt.ParseWithClaims(token, got, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})

	if got.Id != expect {
		t.Fatalf("expected %s, got %s", expect, got.Id)
	}
}

func TestDecodeJWTToken(t *testing.T) {
	expect := "123456789"
	secret := "secret"

	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &UserClaims{
		Id: expect,
		RegisteredClaims: &jwt.RegisteredClaims{
			Issuer:    "grimoire",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}).SignedString([]byte(secret))

	got, err := DecodeJWTToken(token, secret)

	if err != nil {
		t.Fatal(err)
	}

	if expect != got {
		t.Fatalf("expected %s, got %s", expect, got)
	}
}

func TestDecodeJWTTokenExpired(t *testing.T) {
	secret := "secret"

	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &UserClaims{
		Id: "12345",
		RegisteredClaims: &jwt.RegisteredClaims{
			Issuer:    "grimoire",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte(secret))

	if _, err := DecodeJWTToken(token, secret); err == nil {
		t.Fatal("expected error for expired token, got nil")
	}
}

func TestDecodeJWTTokenWrongSecret(t *testing.T) {
	token, _ := CreateJWTToken("12345", "secret")

	if _, err := DecodeJWTToken(token, "other-secret"); err == nil {
		t.Fatal("expected error for wrong secret, got nil")
	}
}
