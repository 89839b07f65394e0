package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/grimoire-app/grimoire/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

func (s *PostgresStore) CreateUser(ctx context.Context, email string, password string) (*uuid.UUID, error) {
	var id uuid.UUID

	query := `
			INSERT INTO users (email, password)
			VALUES ($1, $2) RETURNING id;
	`

	if err := s.DB.QueryRowContext(ctx, query, email, password).Scan(&id); err != nil {
		var pqErr *pq.Error

		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrEmailTaken
		}

		return nil, fmt.Errorf("error inserting into users table: %v", err)
	}

	return &id, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User

	query := `
			SELECT id, email, password, created_at
			FROM users
			WHERE LOWER(email) = LOWER($1);
	`

	if err := s.DB.QueryRowContext(ctx, query, email).Scan(&user.Id, &user.Email, &user.Password, &user.Created_at); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("error querying users table: %v", err)
	}

	return &user, nil
}
