package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/truescope/internal/api"
	"github.com/ppiankov/truescope/internal/identity"
	"github.com/ppiankov/truescope/internal/logging"
	"github.com/ppiankov/truescope/internal/ratelimit"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the claims HTTP API",
	Long: `Serve the claims API:

  GET  /claims              list claims (q, status, tag, page, limit)
  GET  /claims/{id}         fetch one claim
  POST /claims              submit a claim (authenticated)
  PUT  /claims/{id}/status  move a claim through review (reviewer, admin)
  GET  /health              liveness and database check
  GET  /metrics             Prometheus metrics

Bearer tokens are HS256 JWTs signed with auth.jwt_secret
(TRUESCOPE_AUTH_JWT_SECRET).

Example:
  TRUESCOPE_AUTH_JWT_SECRET=change-me truescope serve --listen :4000 --db claims.db`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "", "listen address (default :4000)")
	_ = viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	srv := &http.Server{
		Addr: cfg.Server.Listen,
		Handler: api.NewRouter(api.Config{
			Claims:       a.claims,
			Resolver:     identity.NewJWTResolver([]byte(cfg.Auth.JWTSecret)),
			Limiter:      limiter,
			Metrics:      a.metrics,
			Logger:       logger,
			MaxBodyBytes: cfg.Server.MaxBodyBytes,
			Health:       a.store.Ping,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
