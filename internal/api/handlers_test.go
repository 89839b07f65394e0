package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/grimoire-app/grimoire/internal/config"
	"github.com/grimoire-app/grimoire/internal/models"
	"github.com/grimoire-app/grimoire/internal/store"
)

type testLogger struct{}

func (l *testLogger) Info(msg string, args ...any)  {}
func (l *testLogger) Warn(msg string, args ...any)  {}
func (l *testLogger) Error(msg string, args ...any) {}

type testAuth struct {
	registerFunc     func(ctx context.Context, email string, password string) (string, error)
	authenticateFunc func(ctx context.Context, email string, password string) (string, string, error)
	verifyFunc       func(token string) (string, error)
}

func (a *testAuth) Register(ctx context.Context, email string, password string) (string, error) {
	if a.registerFunc != nil {
		return a.registerFunc(ctx, email, password)
	}
	return uuid.NewString(), nil
}

func (a *testAuth) Authenticate(ctx context.Context, email string, password string) (string, string, error) {
	if a.authenticateFunc != nil {
		return a.authenticateFunc(ctx, email, password)
	}
	return uuid.NewString(), "token", nil
}

func (a *testAuth) Verify(token string) (string, error) {
	if a.verifyFunc != nil {
		return a.verifyFunc(token)
	}
	return "", fmt.Errorf("invalid token")
}

type testPipeline struct {
	processFunc func(data []byte, declaredType string) (string, error)
	removeFunc  func(filename string) error
	removed     []string
}

func (p *testPipeline) Process(data []byte, declaredType string) (string, error) {
	if p.processFunc != nil {
		return p.processFunc(data, declaredType)
	}
	return "book_12345.jpg", nil
}

func (p *testPipeline) Remove(filename string) error {
	p.removed = append(p.removed, filename)
	if p.removeFunc != nil {
		return p.removeFunc(filename)
	}
	return nil
}

type testStore struct {
	createUserFunc        func(ctx context.Context, email string, password string) (*uuid.UUID, error)
	getUserByEmailFunc    func(ctx context.Context, email string) (*models.User, error)
	getBooksFunc          func(ctx context.Context) ([]models.Book, error)
	getBookFunc           func(ctx context.Context, id string) (*models.Book, error)
	getBestRatedBooksFunc func(ctx context.Context, limit int) ([]models.Book, error)
	createBookFunc        func(ctx context.Context, book *models.Book) (*uuid.UUID, error)
	updateBookFunc        func(ctx context.Context, update *models.BookUpdate) error
	deleteBookFunc        func(ctx context.Context, id string) error
	addRatingFunc         func(ctx context.Context, bookId string, userId string, grade float64) (*models.Book, error)
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

func (s *testStore) GetBooks(ctx context.Context) ([]models.Book, error) {
	if s.getBooksFunc != nil {
		return s.getBooksFunc(ctx)
	}
	return []models.Book{}, nil
}

func (s *testStore) GetBook(ctx context.Context, id string) (*models.Book, error) {
	if s.getBookFunc != nil {
		return s.getBookFunc(ctx, id)
	}
	return nil, store.ErrBookNotFound
}

func (s *testStore) GetBestRatedBooks(ctx context.Context, limit int) ([]models.Book, error) {
	if s.getBestRatedBooksFunc != nil {
		return s.getBestRatedBooksFunc(ctx, limit)
	}
	return []models.Book{}, nil
}

func (s *testStore) CreateBook(ctx context.Context, book *models.Book) (*uuid.UUID, error) {
	if s.createBookFunc != nil {
		return s.createBookFunc(ctx, book)
	}
	id := uuid.New()
	return &id, nil
}

func (s *testStore) UpdateBook(ctx context.Context, update *models.BookUpdate) error {
	if s.updateBookFunc != nil {
		return s.updateBookFunc(ctx, update)
	}
	return nil
}

func (s *testStore) DeleteBook(ctx context.Context, id string) error {
	if s.deleteBookFunc != nil {
		return s.deleteBookFunc(ctx, id)
	}
	return nil
}

func (s *testStore) AddRating(ctx context.Context, bookId string, userId string, grade float64) (*models.Book, error) {
	if s.addRatingFunc != nil {
		return s.addRatingFunc(ctx, bookId, userId, grade)
	}
	return &models.Book{}, nil
}

// newTestApi wires an Api over the fakes with routes registered, so requests
// go through chi routing and the auth middleware.
func newTestApi(st *testStore, au *testAuth, pipe *testPipeline) *Api {
	a := New(chi.NewRouter(), &testLogger{}, au, pipe, st, &config.Config{Jwt_secret: "secret"})
	a.RegisterRoutes()
	return a
}

// verifyAs makes every bearer token resolve to the given account id.
func verifyAs(id string) *testAuth {
	return &testAuth{
		verifyFunc: func(token string) (string, error) {
			return id, nil
		},
	}
}

func multipartBody(t *testing.T, book any, image []byte, imageType string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if book != nil {
		data, err := json.Marshal(book)

		if err != nil {
			t.Fatalf("error marshalling book: %v", err)
		}

		if err := writer.WriteField("book", string(data)); err != nil {
			t.Fatalf("error writing book field: %v", err)
		}
	}

	if image != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="image"; filename="cover.png"`)
		header.Set("Content-Type", imageType)

		part, err := writer.CreatePart(header)

		if err != nil {
			t.Fatalf("error creating image part: %v", err)
		}

		if _, err := part.Write(image); err != nil {
			t.Fatalf("error writing image part: %v", err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("error closing multipart writer: %v", err)
	}

	return body, writer.FormDataContentType()
}

func bearer(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer test-token")
	return req
}
