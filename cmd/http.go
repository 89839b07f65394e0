package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/grimoire-app/grimoire/internal/api"
	"github.com/grimoire-app/grimoire/internal/auth"
	"github.com/grimoire-app/grimoire/internal/config"
	"github.com/grimoire-app/grimoire/internal/images"
	"github.com/grimoire-app/grimoire/internal/logger"
	"github.com/grimoire-app/grimoire/internal/store"
)

func mount(logger logger.Logger, auth auth.Authenticator, pipeline images.Pipeline, store store.Store, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	// RegisterRoutes installs router-wide middleware, so it has to run
	// before any route lands on the mux
	a := api.New(r, logger, auth, pipeline, store, cfg)
	a.RegisterRoutes()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	r.Handle("/images/*", http.StripPrefix("/images/", http.FileServer(http.Dir(cfg.Image_dir))))

	return r
}

func loadConfig() (*config.Config, error) {
	viper.SetConfigFile("internal/config/.env")
	viper.AutomaticEnv()

	viper.SetDefault("DB_CONN", "")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("IMAGE_DIR", "images")

	// the env file is optional, real environments configure through env vars
	if err := viper.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error reading in config: %v", err)
	}

	var cfg config.Config

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %v", err)
	}

	return &cfg, nil
}

func HTTPCommand(ctx context.Context) *cobra.Command {
	var addr int
	var env string

	cmd := &cobra.Command{
		Use:   "http",
		Short: "run grimoire http server",
		RunE: func(cmd *cobra.Command, args []string) error {
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

			var handler slog.Handler

			switch env {
			case "dev":
				handler = slog.NewTextHandler(os.Stderr, nil)
			case "prod":
				handler = slog.NewJSONHandler(os.Stderr, nil)
			default:
				return fmt.Errorf("environment can only be dev or prod")
			}

			baseLogger := slog.New(handler).With(
				slog.String("app", "grimoire"),
				slog.String("runtime", runtime.Version()),
				slog.String("os", runtime.GOOS),
				slog.String("architecture", runtime.GOARCH),
			)

			cfg, err := loadConfig()

			if err != nil {
				return err
			}

			logger := logger.NewSlogLogger(baseLogger)

			db, err := store.NewPostgresStore(cfg.Db_conn)

			if err != nil {
				return err
			}

			pipeline, err := images.NewDiskPipeline(cfg.Image_dir)

			if err != nil {
				return err
			}

			authenticator := auth.NewService(db, cfg.Jwt_secret)

			httpServer := &http.Server{
				Addr:        fmt.Sprintf(":%d", addr),
				Handler:     mount(logger, authenticator, pipeline, db, cfg),
				IdleTimeout: 15 * time.Minute,
			}
			errCh := make(chan error, 1)

			logger.Info("server startup", "status", fmt.Sprintf("server starting on port: %d", addr))
			go func() {
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err

			case <-sig:
				logger.Info("server shutdown", "status", "kill signal received")
				ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
				defer cancel()

				if err := httpServer.Shutdown(ctx); err != nil {
					return fmt.Errorf("error shutting down server: %v", err)
				}

				logger.Info("server shutdown", "status", "shutdown complete...")
				return nil
			}
		},
	}

	cmd.Flags().IntVarP(&addr, "addr", "a", 8080, "server address")
	cmd.Flags().StringVarP(&env, "env", "e", "dev", "current working environment")

	return cmd
}
