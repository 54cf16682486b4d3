package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"github.com/truthbyte/backend/internal/database"
	"github.com/truthbyte/backend/internal/metrics"
	"github.com/truthbyte/backend/internal/middleware"
	"github.com/truthbyte/backend/internal/server"
	"go.uber.org/zap"
)

type ServeOptions struct {
	*RootOptions
	Migrate bool
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Migrate, "migrate", true, "apply pending migrations before serving")
	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	cfg, log, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if opts.Migrate {
		if err := database.Migrate(cfg.Database, database.Up); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	metrics.Init()
	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, cfg.Server.TrustProxy, log)
	go limiter.Cleanup(ctx, 10*time.Minute)
	go purgeSessions(ctx, app, time.Hour)

	router := server.NewRouter(app.HTTPDeps(limiter))
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-User-ID", "X-Admin-Key"},
		AllowCredentials: false,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr), zap.String("driver", cfg.Database.Driver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// purgeSessions deletes expired session rows every interval until ctx ends.
func purgeSessions(ctx context.Context, app *App, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.Auth.PurgeExpired(ctx)
			if err != nil {
				app.Log.Warn("session purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				app.Log.Info("expired sessions purged", zap.Int64("count", n))
			}
		}
	}
}
