package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/grimoire-app/grimoire/internal/models"
)

var (
	ErrBookNotFound                      = errors.New("book not found")
	ErrAlreadyRated                      = errors.New("book already rated by this user")
	ErrShouldAtLeastPassOneFieldToUpdate = errors.New("one field at least is required to update")
)

const bookColumns = "id, user_id, title, author, year, genre, image_url, average_rating, created_at"

func scanBook(row interface{ Scan(...any) error }) (*models.Book, error) {
	var book models.Book

	err := row.Scan(
		&book.Id,
		&book.User_id,
		&book.Title,
		&book.Author,
		&book.Year,
		&book.Genre,
		&book.Image,
		&book.Average_rating,
		&book.Created_at,
	)

	if err != nil {
		return nil, err
	}

	return &book, nil
}

// getRatings loads the ratings of every book in booksMap, in insertion order.
func (s *PostgresStore) getRatings(ctx context.Context, bookIds []uuid.UUID, booksMap map[uuid.UUID]*models.Book) error {
	query := `
			SELECT book_id, user_id, grade
			FROM ratings
			WHERE book_id = ANY($1)
			ORDER BY id;
	`

	rows, err := s.DB.QueryContext(ctx, query, pq.Array(bookIds))

	if err != nil {
		return fmt.Errorf("error getting ratings: %v", err)
	}

	defer rows.Close()

	for rows.Next() {
		var bookId uuid.UUID
		var rating models.Rating

		if err := rows.Scan(&bookId, &rating.User_id, &rating.Grade); err != nil {
			return fmt.Errorf("error scanning ratings: %v", err)
		}

		if b, ok := booksMap[bookId]; ok {
			b.Ratings = append(b.Ratings, rating)
		}
	}

	return rows.Err()
}

func (s *PostgresStore) queryBooks(ctx context.Context, query string, args ...any) ([]models.Book, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)

	if err != nil {
		return nil, fmt.Errorf("error querying books table: %v", err)
	}

	defer rows.Close()

	var ordered []*models.Book
	booksMap := map[uuid.UUID]*models.Book{}

	for rows.Next() {
		book, err := scanBook(rows)

		if err != nil {
			return nil, fmt.Errorf("error scanning books: %v", err)
		}

		ordered = append(ordered, book)
		booksMap[book.Id] = book
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating books: %v", err)
	}

	bookIds := make([]uuid.UUID, 0, len(ordered))

	for _, b := range ordered {
		bookIds = append(bookIds, b.Id)
	}

	if len(bookIds) > 0 {
		if err := s.getRatings(ctx, bookIds, booksMap); err != nil {
			return nil, err
		}
	}

	books := make([]models.Book, 0, len(ordered))

	for _, b := range ordered {
		books = append(books, *b)
	}

	return books, nil
}

func (s *PostgresStore) GetBooks(ctx context.Context) ([]models.Book, error) {
	query := fmt.Sprintf(`
			SELECT %s FROM books ORDER BY created_at DESC;
	`, bookColumns)

	return s.queryBooks(ctx, query)
}

func (s *PostgresStore) GetBestRatedBooks(ctx context.Context, limit int) ([]models.Book, error) {
	query := fmt.Sprintf(`
			SELECT %s FROM books ORDER BY average_rating DESC, id ASC LIMIT $1;
	`, bookColumns)

	return s.queryBooks(ctx, query, limit)
}

func (s *PostgresStore) GetBook(ctx context.Context, id string) (*models.Book, error) {
	query := fmt.Sprintf(`
			SELECT %s FROM books WHERE id = $1;
	`, bookColumns)

	book, err := scanBook(s.DB.QueryRowContext(ctx, query, id))

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBookNotFound
		}

		return nil, fmt.Errorf("error querying books table: %v", err)
	}

	booksMap := map[uuid.UUID]*models.Book{book.Id: book}

	if err := s.getRatings(ctx, []uuid.UUID{book.Id}, booksMap); err != nil {
		return nil, err
	}

	return book, nil
}

func (s *PostgresStore) CreateBook(ctx context.Context, book *models.Book) (*uuid.UUID, error) {
	var id uuid.UUID

	query := `
			INSERT INTO books (user_id, title, author, year, genre, image_url)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id;
	`

	err := s.DB.QueryRowContext(
		ctx,
		query,
		book.User_id,
		book.Title,
		book.Author,
		book.Year,
		book.Genre,
		book.Image,
	).Scan(&id)

	if err != nil {
		return nil, fmt.Errorf("error inserting into books table: %v", err)
	}

	return &id, nil
}

func (s *PostgresStore) UpdateBook(ctx context.Context, update *models.BookUpdate) error {
	clauses := []string{}
	arguments := []interface{}{}
	index := 1

	if update.Title != nil {
		clauses = append(clauses, fmt.Sprintf("title = $%d", index))
		arguments = append(arguments, *update.Title)
		index++
	}

	if update.Author != nil {
		clauses = append(clauses, fmt.Sprintf("author = $%d", index))
		arguments = append(arguments, *update.Author)
		index++
	}

	if update.Year != nil {
		clauses = append(clauses, fmt.Sprintf("year = $%d", index))
		arguments = append(arguments, *update.Year)
		index++
	}

	if update.Genre != nil {
		clauses = append(clauses, fmt.Sprintf("genre = $%d", index))
		arguments = append(arguments, *update.Genre)
		index++
	}

	if update.Image != nil {
		clauses = append(clauses, fmt.Sprintf("image_url = $%d", index))
		arguments = append(arguments, *update.Image)
		index++
	}

	if len(clauses) == 0 {
		return ErrShouldAtLeastPassOneFieldToUpdate
	}

	arguments = append(arguments, update.Id)

	query := fmt.Sprintf(`UPDATE books SET %s WHERE id = $%d;`, strings.Join(clauses, ", "), index)

	result, err := s.DB.ExecContext(ctx, query, arguments...)

	if err != nil {
		return fmt.Errorf("error updating books table: %v", err)
	}

	affected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("error reading affected rows: %v", err)
	}

	if affected == 0 {
		return ErrBookNotFound
	}

	return nil
}

func (s *PostgresStore) DeleteBook(ctx context.Context, id string) error {
	result, err := s.DB.ExecContext(ctx, `DELETE FROM books WHERE id = $1;`, id)

	if err != nil {
		return fmt.Errorf("error deleting from books table: %v", err)
	}

	affected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("error reading affected rows: %v", err)
	}

	if affected == 0 {
		return ErrBookNotFound
	}

	return nil
}

// AddRating appends a rating and recomputes the cached average in one
// transaction, with the book row locked so concurrent calls serialize at the
// store.
func (s *PostgresStore) AddRating(ctx context.Context, bookId string, userId string, grade float64) (*models.Book, error) {
	tx, err := s.DB.BeginTx(ctx, nil)

	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %v", err)
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var lockedId uuid.UUID

	err = tx.QueryRowContext(ctx, `SELECT id FROM books WHERE id = $1 FOR UPDATE;`, bookId).Scan(&lockedId)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBookNotFound
		}

		return nil, fmt.Errorf("error locking book row: %v", err)
	}

	var alreadyRated bool

	err = tx.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM ratings WHERE book_id = $1 AND user_id = $2);`,
		bookId,
		userId,
	).Scan(&alreadyRated)

	if err != nil {
		return nil, fmt.Errorf("error checking existing rating: %v", err)
	}

	if alreadyRated {
		err = ErrAlreadyRated
		return nil, err
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO ratings (book_id, user_id, grade) VALUES ($1, $2, $3);`,
		bookId,
		userId,
		grade,
	)

	if err != nil {
		return nil, fmt.Errorf("error inserting into ratings table: %v", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT grade FROM ratings WHERE book_id = $1 ORDER BY id;`, bookId)

	if err != nil {
		return nil, fmt.Errorf("error getting grades: %v", err)
	}

	var ratings []models.Rating

	for rows.Next() {
		var rating models.Rating

		if err = rows.Scan(&rating.Grade); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning grades: %v", err)
		}

		ratings = append(ratings, rating)
	}

	rows.Close()

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grades: %v", err)
	}

	_, err = tx.ExecContext(
		ctx,
		`UPDATE books SET average_rating = $1 WHERE id = $2;`,
		models.AverageGrade(ratings),
		bookId,
	)

	if err != nil {
		return nil, fmt.Errorf("error updating average rating: %v", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing transaction: %v", err)
	}

	return s.GetBook(ctx, bookId)
}
