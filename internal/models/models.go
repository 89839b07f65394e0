package models

import (
	"database/sql"
	"math"
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id         uuid.UUID
	Email      string
	Password   string
	Created_at time.Time
}

type Rating struct {
	User_id uuid.UUID
	Grade   float64
}

type Book struct {
	Id             uuid.UUID
	User_id        uuid.UUID
	Title          string
	Author         string
	Year           int
	Genre          string
	Image          sql.NullString
	Ratings        []Rating
	Average_rating float64
	Created_at     time.Time
}

// AverageGrade is the mean of all grades rounded to one decimal place,
// 0 when there are no ratings.
func AverageGrade(ratings []Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}

	var sum float64

	for _, r := range ratings {
		sum += r.Grade
	}

	return math.Round(sum/float64(len(ratings))*10) / 10
}

type BookUpdate struct {
	Id     string
	Title  *string
	Author *string
	Year   *int
	Genre  *string
	Image  *string
}

type HandleCreateAccountParams struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type HandleCreateAccountResponse struct {
	Id string `json:"accountId"`
}

type HandleCreateSessionParams struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type HandleCreateSessionResponse struct {
	AccountId string `json:"accountId"`
	Token     string `json:"token"`
}

type HandleGetMeResponse struct {
	AccountId string `json:"accountId"`
}

type InitialRating struct {
	Grade *float64 `json:"grade"`
}

type HandleCreateBookParams struct {
	Title         string          `json:"title" validate:"required"`
	Author        string          `json:"author" validate:"required"`
	Year          int             `json:"year" validate:"required"`
	Genre         string          `json:"genre" validate:"required"`
	Rating        *float64        `json:"rating"`
	Note          *float64        `json:"note"`
	Grade         *float64        `json:"grade"`
	Ratings       []InitialRating `json:"ratings"`
	AverageRating *float64        `json:"averageRating"`
}

type HandleCreateBookResponse struct {
	Id string `json:"id"`
}

type HandleUpdateBookParams struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	Year   *int    `json:"year"`
	Genre  *string `json:"genre"`
}

type HandleRateBookParams struct {
	Rating *float64 `json:"rating" validate:"required"`
}

type RatingResponse struct {
	UserId string  `json:"userId"`
	Grade  float64 `json:"grade"`
}

type BookResponse struct {
	Id            string           `json:"id"`
	UserId        string           `json:"userId"`
	Title         string           `json:"title"`
	Author        string           `json:"author"`
	Year          int              `json:"year"`
	Genre         string           `json:"genre"`
	ImageUrl      *string          `json:"imageUrl"`
	Ratings       []RatingResponse `json:"ratings"`
	AverageRating float64          `json:"averageRating"`
	Created_at    time.Time        `json:"createdAt"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
