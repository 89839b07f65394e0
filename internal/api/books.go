package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/grimoire-app/grimoire/internal/images"
	"github.com/grimoire-app/grimoire/internal/models"
	"github.com/grimoire-app/grimoire/internal/store"
)

const imagePathPrefix = "/images/"

// multipart bodies carry up to a 4MiB image plus the book json
const maxMultipartBody = 8 << 20

func toBookResponse(book *models.Book) models.BookResponse {
	ratings := make([]models.RatingResponse, 0, len(book.Ratings))

	for _, rating := range book.Ratings {
		ratings = append(ratings, models.RatingResponse{
			UserId: rating.User_id.String(),
			Grade:  rating.Grade,
		})
	}

	var imageUrl *string

	if book.Image.Valid {
		imageUrl = &book.Image.String
	}

	return models.BookResponse{
		Id:            book.Id.String(),
		UserId:        book.User_id.String(),
		Title:         book.Title,
		Author:        book.Author,
		Year:          book.Year,
		Genre:         book.Genre,
		ImageUrl:      imageUrl,
		Ratings:       ratings,
		AverageRating: book.Average_rating,
		Created_at:    book.Created_at,
	}
}

func toBookResponses(books []models.Book) []models.BookResponse {
	responses := make([]models.BookResponse, 0, len(books))

	for i := range books {
		responses = append(responses, toBookResponse(&books[i]))
	}

	return responses
}

func validGrade(grade float64) bool {
	return !math.IsNaN(grade) && !math.IsInf(grade, 0) && grade >= 0 && grade <= 5
}

// extractInitialRating picks the creation payload's initial rating by fixed
// priority: rating, note, grade, ratings[0].grade, averageRating. The first
// finite value in [0,5] wins; everything else is ignored.
func extractInitialRating(params *models.HandleCreateBookParams) *float64 {
	candidates := []*float64{params.Rating, params.Note, params.Grade}

	if len(params.Ratings) > 0 {
		candidates = append(candidates, params.Ratings[0].Grade)
	}

	candidates = append(candidates, params.AverageRating)

	for _, candidate := range candidates {
		if candidate == nil || !validGrade(*candidate) {
			continue
		}

		grade := *candidate
		return &grade
	}

	return nil
}

// multipartError keeps the size-cap message when the body blew past the
// MaxBytesReader instead of surfacing a generic parse failure.
func multipartError(err error) error {
	var maxBytesErr *http.MaxBytesError

	if errors.As(err, &maxBytesErr) {
		return images.ErrTooLarge
	}

	return fmt.Errorf("error parsing form: %v", err)
}

// processUpload reads the optional multipart image and runs it through the
// pipeline. A missing file is not an error.
func (a *Api) processUpload(w http.ResponseWriter, r *http.Request, service string) (string, bool) {
	file, header, err := r.FormFile("image")

	if err == http.ErrMissingFile {
		return "", true
	}

	if err != nil {
		a.logger.Error(fmt.Sprintf("error reading image: %v", err), "service", service)
		respondWithError(w, http.StatusInternalServerError, fmt.Errorf("error reading image: %v", err))
		return "", false
	}

	defer file.Close()

	data, err := io.ReadAll(file)

	if err != nil {
		a.logger.Error(fmt.Sprintf("error reading bytes: %v", err), "service", service)
		respondWithError(w, http.StatusInternalServerError, fmt.Errorf("error reading bytes: %v", err))
		return "", false
	}

	filename, err := a.images.Process(data, header.Header.Get("Content-Type"))

	if err != nil {
		if errors.Is(err, images.ErrTooLarge) || errors.Is(err, images.ErrUnsupportedFormat) {
			a.logger.Warn(err.Error(), "service", service)
			respondWithError(w, http.StatusBadRequest, err)
			return "", false
		}

		a.logger.Error(err.Error(), "service", service)
		respondWithError(w, http.StatusInternalServerError, err)
		return "", false
	}

	return imagePathPrefix + filename, true
}

func (a *Api) removeImage(imageUrl string, service string) {
	if err := a.images.Remove(strings.TrimPrefix(imageUrl, imagePathPrefix)); err != nil {
		a.logger.Warn(err.Error(), "service", service)
	}
}

// HandleGetBooks godoc
//
//	@Summary		List books
//	@Description	All books, newest first
//	@Tags			books
//	@Produce		json
//	@Failure		500	{object}	models.ErrorResponse
//	@Success		200	{array}		models.BookResponse
//	@Router			/books [get]
func (a *Api) HandleGetBooks(w http.ResponseWriter, r *http.Request) {
	books, err := a.store.GetBooks(r.Context())

	if err != nil {
		a.logger.Error(err.Error(), "service", "HandleGetBooks")
		respondWithError(w, http.StatusInternalServerError, err)
		return
	}

	respondWithSuccess(w, http.StatusOK, toBookResponses(books))
}

// HandleGetBestRatedBooks godoc
//
//	@Summary		Best rated books
//	@Description	At most three books by descending average rating
//	@Tags			books
//	@Produce		json
//	@Failure		500	{object}	models.ErrorResponse
//	@Success		200	{array}		models.BookResponse
//	@Router			/books/bestrating [get]
func (a *Api) HandleGetBestRatedBooks(w http.ResponseWriter, r *http.Request) {
	books, err := a.store.GetBestRatedBooks(r.Context(), 3)

	if err != nil {
		a.logger.Error(err.Error(), "service", "HandleGetBestRatedBooks")
		respondWithError(w, http.StatusInternalServerError, err)
		return
	}

	respondWithSuccess(w, http.StatusOK, toBookResponses(books))
}

// HandleGetBook godoc
//
//	@Summary		Get book
//	@Description	Get book by id
//	@Tags			books
//	@Produce		json
//	@Param			bookId	path		string	true	"book id"
//	@Failure		404		{object}	models.ErrorResponse
//	@Failure		500		{object}	models.ErrorResponse
//	@Success		200		{object}	models.BookResponse
//	@Router			/books/{bookId} [get]
func (a *Api) HandleGetBook(w http.ResponseWriter, r *http.Request) {
	bookId := chi.URLParam(r, "bookId")

	if _, err := uuid.Parse(bookId); err != nil {
		respondWithError(w, http.StatusNotFound, store.ErrBookNotFound)
		return
	}

	book, err := a.store.GetBook(r.Context(), bookId)

	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			a.logger.Warn(err.Error(), "service", "HandleGetBook")
			respondWithError(w, http.StatusNotFound, err)
			return
		}

		a.logger.Error(err.Error(), "service", "HandleGetBook")
		respondWithError(w, http.StatusInternalServerError, err)
		return
	}

	respondWithSuccess(w, http.StatusOK, toBookResponse(book))
}

// HandleCreateBook godoc
//
//	@Summary		Create book
//	@Description	Create a book from a multipart form with an optional cover image
//	@Tags			books
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			book	formData	string	true	"book json"
//	@Param			image	formData	file	false	"cover image (max 4MiB, jpeg or png)"
//	@Failure		400		{object}	models.ErrorResponse
//	@Failure		401		{object}	models.ErrorResponse
//	@Failure		500		{object}	models.ErrorResponse
//	@Success		201		{object}	models.HandleCreateBookResponse
//	@Router			/books [post]
func (a *Api) HandleCreateBook(w http.ResponseWriter, r *http.Request) {
	userId := accountIdFrom(r)

	ownerId, err := uuid.Parse(userId)

	if err != nil {
		respondWithError(w, http.StatusUnauthorized, fmt.Errorf("invalid account id"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)

	if err := r.ParseMultipartForm(maxMultipartBody); err != nil {
		a.logger.Warn(fmt.Sprintf("error parsing form: %v", err), "service", "HandleCreateBook")
		respondWithError(w, http.StatusBadRequest, multipartError(err))
		return
	}

	defer r.MultipartForm.RemoveAll()

	var params models.HandleCreateBookParams

	if err := json.Unmarshal([]byte(r.FormValue("book")), &params); err != nil {
		a.logger.Warn(fmt.Sprintf("error decoding book json: %v", err), "service", "HandleCreateBook")
		respondWithError(w, http.StatusBadRequest, fmt.Errorf("error decoding book json: %v", err))
		return
	}

	if err := validate.Struct(&params); err != nil {
		a.logger.Warn(fmt.Sprintf("error validating fields: %v", err), "service", "HandleCreateBook")
		respondWithError(w, http.StatusBadRequest, fmt.Errorf("error validating fields: %v", err))
		return
	}

	initialRating := extractInitialRating(&params)

	imageUrl, ok := a.processUpload(w, r, "HandleCreateBook")

	if !ok {
		return
	}

	// rating-shaped payload fields never reach the store: the book is
	// persisted with an empty rating list, then the extracted initial
	// rating is applied the same way a rating request would be
	book := models.Book{
		User_id: ownerId,
		Title:   params.Title,
		Author:  params.Author,
		Year:    params.Year,
		Genre:   params.Genre,
	}

	if imageUrl != "" {
		book.Image = sql.NullString{String: imageUrl, Valid: true}
	}

	id, err := a.store.CreateBook(r.Context(), &book)

	if err != nil {
		// the file was written before the insert, do not orphan it
		if imageUrl != "" {
			a.removeImage(imageUrl, "HandleCreateBook")
		}

		a.logger.Error(err.Error(), "service", "HandleCreateBook")
		respondWithError(w, http.StatusInternalServerError, err)
		return
	}

	if initialRating != nil {
		if _, err := a.store.AddRating(r.Context(), id.String(), userId, *initialRating); err != nil {
			a.logger.Error(err.Error(), "service", "HandleCreateBook")
			respondWithError(w, http.StatusInternalServerError, err)
			return
		}
	}

	respondWithSuccess(w, http.StatusCreated, &models.HandleCreateBookResponse{Id: id.String()})
}

// HandleUpdateBook godoc
//
//	@Summary		Update book
//	@Description	Owner-only shallow merge of book fields, with optional image replacement
//	@Tags			books
//	@Accept			multipart/form-data
//	@Accept			application/json
//	@Produce		json
//	@Param			bookId	path		string	true	"book id"
//	@Failure		400		{object}	models.ErrorResponse
//	@Failure		403		{object}	models.ErrorResponse
//	@Failure		404		{object}	models.ErrorResponse
//	@Failure		500		{object}	models.ErrorResponse
//	@Success		200		{object}	models.MessageResponse
//	@Router			/books/{bookId} [put]
func (a *Api) HandleUpdateBook(w http.ResponseWriter, r *http.Request) {
	userId := accountIdFrom(r)
	bookId := chi.URLParam(r, "bookId")

	if _, err := uuid.Parse(bookId); err != nil {
		respondWithError(w, http.StatusNotFound, store.ErrBookNotFound)
		return
	}

	book, err := a.store.GetBook(r.Context(), bookId)

	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			a.logger.Warn(err.Error(), "service", "HandleUpdateBook")
			respondWithError(w, http.StatusNotFound, err)
			return
		}

		a.logger.Error(err.Error(), "service", "HandleUpdateBook")
		respondWithError(w, http.StatusInternalServerError, err)
		return
	}

	if book.User_id.String() != userId {
		a.logger.Warn("caller does not own this book", "service", "HandleUpdateBook")
		respondWithError(w, http.StatusForbidden, fmt.Errorf("caller does not own this book"))
		return
	}

	var params models.HandleUpdateBookParams
	var newImageUrl string

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)

		if err := r.ParseMultipartForm(maxMultipartBody); err != nil {
			a.logger.Warn(fmt.Sprintf("error parsing form: %v", err), "service", "HandleUpdateBook")
			respondWithError(w, http.StatusBadRequest, multipartError(err))
			return
		}

		defer r.MultipartForm.RemoveAll()

		if raw := r.FormValue("book"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &params); err != nil {
				a.logger.Warn(fmt.Sprintf("error decoding book json: %v", err), "service", "HandleUpdateBook")
				respondWithError(w, http.StatusBadRequest, fmt.Errorf("error decoding book json: %v", err))
				return
			}
		}

		// the new file is written before the record is touched, per the
		// replacement policy
		imageUrl, ok := a.processUpload(w, r, "HandleUpdateBook")

		if !ok {
			return
		}

		newImageUrl = imageUrl
	} else {
		if err := decodeJson(w, r, &params); err != nil {
			a.logger.Warn(err.Error(), "service", "HandleUpdateBook")
			respondWithError(w, http.StatusBadRequest, err)
			return
		}
	}

	update := models.BookUpdate{
		Id:     bookId,
		Title:  params.Title,
		Author: params.Author,
		Year:   params.Year,
		Genre:  params.Genre,
	}

	if newImageUrl != "" {
		update.Image = &newImageUrl
	}

	if err := a.store.UpdateBook(r.Context(), &update); err != nil {
		if newImageUrl != "" {
			a.removeImage(newImageUrl, "HandleUpdateBook")
		}

		switch {
		case errors.Is(err, store.ErrShouldAtLeastPassOneFieldToUpdate):
			a.logger.Warn(err.Error(), "service", "HandleUpdateBook")
			respondWithError(w, http.StatusBadRequest, err)

		case errors.Is(err, store.ErrBookNotFound):
			a.logger.Warn(err.Error(), "service", "HandleUpdateBook")
			respondWithError(w, http.StatusNotFound, err)

		default:
			a.logger.Error(err.Error(), "service", "HandleUpdateBook")
			respondWithError(w, http.StatusInternalServerError, err)
		}
		return
	}

	// old file goes only after the record points at the new one
	if newImageUrl != "" && book.Image.Valid {
		a.removeImage(book.Image.String, "HandleUpdateBook")
	}

	respondWithSuccess(w, http.StatusOK, &models.MessageResponse{Message: "book updated"})
}

// HandleDeleteBook godoc
//
//	@Summary		Delete book
//	@Description	Owner-only delete of a book and its image
//	@Tags			books
//	@Produce		json
//	@Param			bookId	path		string	true	"book id"
//	@Failure		403		{object}	models.ErrorResponse
//	@Failure		404		{object}	models.ErrorResponse
//	@Failure		500		{object}	models.ErrorResponse
//	@Success		200		{object}	models.MessageResponse
//	@Router			/books/{bookId} [delete]
func (a *Api) HandleDeleteBook(w http.ResponseWriter, r *http.Request) {
	userId := accountIdFrom(r)
	bookId := chi.URLParam(r, "bookId")

	if _, err := uuid.Parse(bookId); err != nil {
		respondWithError(w, http.StatusNotFound, store.ErrBookNotFound)
		return
	}

	book, err := a.store.GetBook(r.Context(), bookId)

	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			a.logger.Warn(err.Error(), "service", "HandleDeleteBook")
			respondWithError(w, http.StatusNotFound, err)
			return
		}

		a.logger.Error(err.Error(), "service", "HandleDeleteBook")
		respondWithError(w, http.StatusInternalServerError, err)
		return
	}

	if book.User_id.String() != userId {
		a.logger.Warn("caller does not own this book", "service", "HandleDeleteBook")
		respondWithError(w, http.StatusForbidden, fmt.Errorf("caller does not own this book"))
		return
	}

	if err := a.store.DeleteBook(r.Context(), bookId); err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			a.logger.Warn(err.Error(), "service", "HandleDeleteBook")
			respondWithError(w, http.StatusNotFound, err)
			return
		}

		a.logger.Error(err.Error(), "service", "HandleDeleteBook")
		respondWithError(w, http.StatusInternalServerError, err)
		return
	}

	// file cleanup is best effort and never fails the request
	if book.Image.Valid {
		a.removeImage(book.Image.String, "HandleDeleteBook")
	}

	respondWithSuccess(w, http.StatusOK, &models.MessageResponse{Message: "book deleted"})
}

// HandleRateBook godoc
//
//	@Summary		Rate book
//	@Description	Add a rating in [0,5]; one rating per account per book
//	@Tags			books
//	@Accept			application/json
//	@Produce		json
//	@Param			bookId	path		string						true	"book id"
//	@Param			rating	body		models.HandleRateBookParams	true	"rating"
//	@Failure		400		{object}	models.ErrorResponse
//	@Failure		404		{object}	models.ErrorResponse
//	@Failure		500		{object}	models.ErrorResponse
//	@Success		201		{object}	models.BookResponse
//	@Router			/books/{bookId}/rating [post]
func (a *Api) HandleRateBook(w http.ResponseWriter, r *http.Request) {
	userId := accountIdFrom(r)
	bookId := chi.URLParam(r, "bookId")

	var params models.HandleRateBookParams

	if err := decodeJson(w, r, &params); err != nil {
		a.logger.Warn(err.Error(), "service", "HandleRateBook")
		respondWithError(w, http.StatusBadRequest, err)
		return
	}

	if err := validate.Struct(&params); err != nil {
		a.logger.Warn(fmt.Sprintf("error validating fields: %v", err), "service", "HandleRateBook")
		respondWithError(w, http.StatusBadRequest, fmt.Errorf("error validating fields: %v", err))
		return
	}

	if !validGrade(*params.Rating) {
		a.logger.Warn("rating out of range", "service", "HandleRateBook")
		respondWithError(w, http.StatusBadRequest, fmt.Errorf("rating must be between 0 and 5"))
		return
	}

	if _, err := uuid.Parse(bookId); err != nil {
		respondWithError(w, http.StatusNotFound, store.ErrBookNotFound)
		return
	}

	book, err := a.store.GetBook(r.Context(), bookId)

	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			a.logger.Warn(err.Error(), "service", "HandleRateBook")
			respondWithError(w, http.StatusNotFound, err)
			return
		}

		a.logger.Error(err.Error(), "service", "HandleRateBook")
		respondWithError(w, http.StatusInternalServerError, err)
		return
	}

	for _, rating := range book.Ratings {
		if rating.User_id.String() == userId {
			a.logger.Warn(store.ErrAlreadyRated.Error(), "service", "HandleRateBook")
			respondWithError(w, http.StatusBadRequest, store.ErrAlreadyRated)
			return
		}
	}

	updated, err := a.store.AddRating(r.Context(), bookId, userId, *params.Rating)

	if err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyRated):
			a.logger.Warn(err.Error(), "service", "HandleRateBook")
			respondWithError(w, http.StatusBadRequest, err)

		case errors.Is(err, store.ErrBookNotFound):
			a.logger.Warn(err.Error(), "service", "HandleRateBook")
			respondWithError(w, http.StatusNotFound, err)

		default:
			a.logger.Error(err.Error(), "service", "HandleRateBook")
			respondWithError(w, http.StatusInternalServerError, err)
		}
		return
	}

	respondWithSuccess(w, http.StatusCreated, toBookResponse(updated))
}
