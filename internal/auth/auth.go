package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/grimoire-app/grimoire/internal/bcrypt"
	"github.com/grimoire-app/grimoire/internal/jwt"
	"github.com/grimoire-app/grimoire/internal/models"
	"github.com/grimoire-app/grimoire/internal/store"
)

var (
	ErrMissingFields      = errors.New("email and password are required")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const MinPasswordLength = 8

type Authenticator interface {
	Register(ctx context.Context, email string, password string) (string, error)
	Authenticate(ctx context.Context, email string, password string) (string, string, error)
	Verify(token string) (string, error)
}

type Store interface {
	CreateUser(ctx context.Context, email string, password string) (*uuid.UUID, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type Service struct {
	store  Store
	secret string
}

func NewService(store Store, secret string) *Service {
	return &Service{
		store:  store,
		secret: secret,
	}
}

func (s *Service) Register(ctx context.Context, email string, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if email == "" || password == "" {
		return "", ErrMissingFields
	}

	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}

	hash, err := bcrypt.HashPassword(password)

	if err != nil {
		return "", err
	}

	id, err := s.store.CreateUser(ctx, email, hash)

	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// Authenticate returns the same error for an unknown email and a wrong
// password so accounts cannot be enumerated.
func (s *Service) Authenticate(ctx context.Context, email string, password string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if email == "" || password == "" {
		return "", "", ErrMissingFields
	}

	user, err := s.store.GetUserByEmail(ctx, email)

	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return "", "", ErrInvalidCredentials
		}

		return "", "", err
	}

	if err := bcrypt.ComparePassword(password, user.Password); err != nil {
		return "", "", ErrInvalidCredentials
	}

	token, err := jwt.CreateJWTToken(user.Id.String(), s.secret)

	if err != nil {
		return "", "", err
	}

	return user.Id.String(), token, nil
}

func (s *Service) Verify(token string) (string, error) {
	id, err := jwt.DecodeJWTToken(token, s.secret)

	if err != nil {
		return "", ErrInvalidCredentials
	}

	return id, nil
}
