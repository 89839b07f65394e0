package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/grimoire-app/grimoire/internal/models"
)

var validate = validator.New()

// non-multipart bodies are capped at 1MiB
const maxJsonBody = 1 << 20

func respondWithSuccess(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func respondWithError(w http.ResponseWriter, code int, error error) {
	respondWithSuccess(w, code, models.ErrorResponse{Error: error.Error()})
}

func decodeJson(w http.ResponseWriter, r *http.Request, params any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJsonBody)

	if err := json.NewDecoder(r.Body).Decode(params); err != nil {
		return fmt.Errorf("error decoding json: %v", err)
	}

	return nil
}
