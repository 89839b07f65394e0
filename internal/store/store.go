package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/grimoire-app/grimoire/internal/models"
)

type Store interface {
	CreateUser(ctx context.Context, email string, password string) (*uuid.UUID, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetBooks(ctx context.Context) ([]models.Book, error)
	GetBook(ctx context.Context, id string) (*models.Book, error)
	GetBestRatedBooks(ctx context.Context, limit int) ([]models.Book, error)
	CreateBook(ctx context.Context, book *models.Book) (*uuid.UUID, error)
	UpdateBook(ctx context.Context, update *models.BookUpdate) error
	DeleteBook(ctx context.Context, id string) error
	AddRating(ctx context.Context, bookId string, userId string, grade float64) (*models.Book, error)
}

type PostgresStore struct {
	*sql.DB
}

func NewPostgresStore(conn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", conn)

	if err != nil {
		return nil, fmt.Errorf("error connecting to db: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error pinging db: %v", err)
	}

	return &PostgresStore{
		DB: db,
	}, nil
}
