package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/grimoire-app/grimoire/internal/bcrypt"
	"github.com/grimoire-app/grimoire/internal/models"
	"github.com/grimoire-app/grimoire/internal/store"
)

type testStore struct {
	createUserFunc     func(ctx context.Context, email string, password string) (*uuid.UUID, error)
	getUserByEmailFunc func(ctx context.Context, email string) (*models.User, error)
}

func (s *testStore) CreateUser(ctx context.Context, email string, password string) (*uuid.UUID, error) {
	if s.createUserFunc != nil {
		return s.createUserFunc(ctx, email, password)
	}

	id := uuid.New()
	return &id, nil
}

func (s *testStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.getUserByEmailFunc != nil {
		return s.getUserByEmailFunc(ctx, email)
	}
	return nil, store.ErrUserNotFound
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name           string
		email          string
		password       string
		createUserFunc func(ctx context.Context, email string, password string) (*uuid.UUID, error)
		expectedErr    error
	}{
		{
			name:        "should fail when email is missing",
			email:       "",
			password:    "12345678",
			expectedErr: ErrMissingFields,
		},
		{
			name:        "should fail when password is missing",
			email:       "test@test.com",
			password:    "",
			expectedErr: ErrMissingFields,
		},
		{
			name:        "should fail when password is shorter than 8 characters",
			email:       "test@test.com",
			password:    "1234567",
			expectedErr: ErrWeakPassword,
		},
		{
			name:     "should fail when email is already registered",
			email:    "test@test.com",
			password: "12345678",
			createUserFunc: func(ctx context.Context, email string, password string) (*uuid.UUID, error) {
				return nil, store.ErrEmailTaken
			},
			expectedErr: store.ErrEmailTaken,
		},
		{
			name:     "should register a valid account",
			email:    "test@test.com",
			password: "12345678",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(&testStore{createUserFunc: tt.createUserFunc}, "secret")

			id, err := s.Register(context.TODO(), tt.email, tt.password)

			if !errors.Is(err, tt.expectedErr) {
				t.Fatalf("expected %v, got %v", tt.expectedErr, err)
			}

			if tt.expectedErr == nil && id == "" {
				t.Fatal("expected an account id, got empty string")
			}
		})
	}
}

func TestRegisterNormalizesEmail(t *testing.T) {
	var stored string

	s := NewService(&testStore{
		createUserFunc: func(ctx context.Context, email string, password string) (*uuid.UUID, error) {
			stored = email
			id := uuid.New()
			return &id, nil
		},
	}, "secret")

	if _, err := s.Register(context.TODO(), "  Test@Test.COM ", "12345678"); err != nil {
		t.Fatal(err)
	}

	if stored != "test@test.com" {
		t.Fatalf("expected test@test.com, got %s", stored)
	}
}

func TestRegisterNeverStoresPlaintext(t *testing.T) {
	var stored string

	s := NewService(&testStore{
		createUserFunc: func(ctx context.Context, email string, password string) (*uuid.UUID, error) {
			stored = password
			id := uuid.New()
			return &id, nil
		},
	}, "secret")

	if _, err := s.Register(context.TODO(), "test@test.com", "12345678"); err != nil {
		t.Fatal(err)
	}

	if stored == "12345678" {
		t.Fatal("plaintext password was stored")
	}

	if err := bcrypt.ComparePassword("12345678", stored); err != nil {
		t.Fatalf("stored value is not a hash of the password: %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	userId := uuid.New()
	hash, _ := bcrypt.HashPassword("12345678")

	knownUser := func(ctx context.Context, email string) (*models.User, error) {
		if email != "test@test.com" {
			return nil, store.ErrUserNotFound
		}

		return &models.User{Id: userId, Email: email, Password: hash}, nil
	}

	tests := []struct {
		name        string
		email       string
		password    string
		expectedErr error
	}{
		{
			name:        "should fail for unknown email",
			email:       "nobody@test.com",
			password:    "12345678",
			expectedErr: ErrInvalidCredentials,
		},
		{
			name:        "should fail for wrong password",
			email:       "test@test.com",
			password:    "87654321",
			expectedErr: ErrInvalidCredentials,
		},
		{
			name:     "should succeed for correct credentials",
			email:    "test@test.com",
			password: "12345678",
		},
		{
			name:     "should match email case-insensitively",
			email:    "TEST@TEST.com",
			password: "12345678",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(&testStore{getUserByEmailFunc: knownUser}, "secret")

			id, token, err := s.Authenticate(context.TODO(), tt.email, tt.password)

			if !errors.Is(err, tt.expectedErr) {
				t.Fatalf("expected %v, got %v", tt.expectedErr, err)
			}

			if tt.expectedErr != nil {
				return
			}

			if id != userId.String() {
				t.Fatalf("expected %s, got %s", userId.String(), id)
			}

			verified, err := s.Verify(token)

			if err != nil {
				t.Fatal(err)
			}

			if verified != userId.String() {
				t.Fatalf("expected %s, got %s", userId.String(), verified)
			}
		})
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	s := NewService(&testStore{}, "secret")

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := s.Verify(token); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected %v, got %v", ErrInvalidCredentials, err)
		}
	}
}
