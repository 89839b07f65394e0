package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/grimoire-app/grimoire/internal/auth"
	"github.com/grimoire-app/grimoire/internal/models"
	"github.com/grimoire-app/grimoire/internal/store"
)

// HandleCreateAccount godoc
//
//	@Summary		Create account
//	@Description	Register an account with email and password
//	@Tags			accounts
//	@Accept			application/json
//	@Produce		json
//	@Param			account	body		models.HandleCreateAccountParams	true	"account"
//	@Failure		400		{object}	models.ErrorResponse
//	@Failure		409		{object}	models.ErrorResponse
//	@Failure		500		{object}	models.ErrorResponse
//	@Success		201		{object}	models.HandleCreateAccountResponse
//	@Router			/accounts [post]
func (a *Api) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var params models.HandleCreateAccountParams

	if err := decodeJson(w, r, &params); err != nil {
		a.logger.Warn(err.Error(), "service", "HandleCreateAccount")
		respondWithError(w, http.StatusBadRequest, err)
		return
	}

	if err := validate.Struct(&params); err != nil {
		a.logger.Warn(fmt.Sprintf("error validating fields: %v", err), "service", "HandleCreateAccount")
		respondWithError(w, http.StatusBadRequest, fmt.Errorf("error validating fields: %v", err))
		return
	}

	id, err := a.auth.Register(r.Context(), params.Email, params.Password)

	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingFields), errors.Is(err, auth.ErrWeakPassword):
			a.logger.Warn(err.Error(), "service", "HandleCreateAccount")
			respondWithError(w, http.StatusBadRequest, err)

		case errors.Is(err, store.ErrEmailTaken):
			a.logger.Warn(err.Error(), "service", "HandleCreateAccount")
			respondWithError(w, http.StatusConflict, err)

		default:
			a.logger.Error(err.Error(), "service", "HandleCreateAccount")
			respondWithError(w, http.StatusInternalServerError, err)
		}
		return
	}

	respondWithSuccess(w, http.StatusCreated, &models.HandleCreateAccountResponse{Id: id})
}

// HandleCreateSession godoc
//
//	@Summary		Create session
//	@Description	Exchange email and password for a bearer token
//	@Tags			accounts
//	@Accept			application/json
//	@Produce		json
//	@Param			credentials	body		models.HandleCreateSessionParams	true	"credentials"
//	@Failure		400			{object}	models.ErrorResponse
//	@Failure		401			{object}	models.ErrorResponse
//	@Failure		500			{object}	models.ErrorResponse
//	@Success		200			{object}	models.HandleCreateSessionResponse
//	@Router			/sessions [post]
func (a *Api) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var params models.HandleCreateSessionParams

	if err := decodeJson(w, r, &params); err != nil {
		a.logger.Warn(err.Error(), "service", "HandleCreateSession")
		respondWithError(w, http.StatusBadRequest, err)
		return
	}

	if err := validate.Struct(&params); err != nil {
		a.logger.Warn(fmt.Sprintf("error validating fields: %v", err), "service", "HandleCreateSession")
		respondWithError(w, http.StatusBadRequest, fmt.Errorf("error validating fields: %v", err))
		return
	}

	id, token, err := a.auth.Authenticate(r.Context(), params.Email, params.Password)

	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingFields):
			a.logger.Warn(err.Error(), "service", "HandleCreateSession")
			respondWithError(w, http.StatusBadRequest, err)

		case errors.Is(err, auth.ErrInvalidCredentials):
			a.logger.Warn(err.Error(), "service", "HandleCreateSession")
			respondWithError(w, http.StatusUnauthorized, err)

		default:
			a.logger.Error(err.Error(), "service", "HandleCreateSession")
			respondWithError(w, http.StatusInternalServerError, err)
		}
		return
	}

	respondWithSuccess(w, http.StatusOK, &models.HandleCreateSessionResponse{AccountId: id, Token: token})
}

// HandleGetMe godoc
//
//	@Summary		Current account
//	@Description	Return the account id bound to the bearer token
//	@Tags			accounts
//	@Produce		json
//	@Failure		401	{object}	models.ErrorResponse
//	@Success		200	{object}	models.HandleGetMeResponse
//	@Router			/me [get]
func (a *Api) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	id := accountIdFrom(r)

	if id == "" {
		respondWithError(w, http.StatusUnauthorized, fmt.Errorf("missing bearer token"))
		return
	}

	respondWithSuccess(w, http.StatusOK, &models.HandleGetMeResponse{AccountId: id})
}
