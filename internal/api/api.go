package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/grimoire-app/grimoire/internal/auth"
	"github.com/grimoire-app/grimoire/internal/config"
	"github.com/grimoire-app/grimoire/internal/images"
	"github.com/grimoire-app/grimoire/internal/logger"
	"github.com/grimoire-app/grimoire/internal/store"
)

type Api struct {
	router *chi.Mux
	logger logger.Logger
	auth   auth.Authenticator
	images images.Pipeline
	store  store.Store
	config *config.Config
}

func New(
	router *chi.Mux,
	logger logger.Logger,
	auth auth.Authenticator,
	images images.Pipeline,
	store store.Store,
	config *config.Config,
) *Api {
	return &Api{
		router: router,
		logger: logger,
		auth:   auth,
		images: images,
		store:  store,
		config: config,
	}
}

func (a *Api) RegisterRoutes() {
	a.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	a.router.Use(a.SecureHeaders)

	// anti-bruteforce on the credential routes
	authLimiter := httprate.LimitByIP(100, 15*time.Minute)

	a.router.Group(func(r chi.Router) {
		r.Use(a.LoggingMiddleware)

		r.With(authLimiter).Post("/accounts", a.HandleCreateAccount)
		r.With(authLimiter).Post("/sessions", a.HandleCreateSession)
		r.With(a.RequireAuth).Get("/me", a.HandleGetMe)

		r.Route("/books", func(r chi.Router) {
			r.Get("/", a.HandleGetBooks)
			r.Get("/bestrating", a.HandleGetBestRatedBooks)
			r.With(a.RequireAuth).Post("/", a.HandleCreateBook)

			r.Route("/{bookId}", func(r chi.Router) {
				r.Get("/", a.HandleGetBook)
				r.With(a.RequireAuth).Put("/", a.HandleUpdateBook)
				r.With(a.RequireAuth).Delete("/", a.HandleDeleteBook)
				r.With(a.RequireAuth).Post("/rating", a.HandleRateBook)
			})
		})
	})

	a.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, fmt.Errorf("route not found"))
	})
}
