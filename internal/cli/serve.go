package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/teawithlucas/keycloak-provisioner/internal/config"
	"github.com/teawithlucas/keycloak-provisioner/internal/httpapi"
	"github.com/teawithlucas/keycloak-provisioner/internal/keycloak"
	"github.com/teawithlucas/keycloak-provisioner/internal/logging"
	"github.com/teawithlucas/keycloak-provisioner/internal/provisioning"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /users",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, logger, closer, err := loadRuntime(cmd, os.Stdout)
			if err != nil {
				return err
			}
			defer closer.Close()

			server, err := newServer(ctx, cfg, logger)
			if err != nil {
				logger.Error("failed to initialise provisioner", "error", err)
				return err
			}

			logger.Info("starting provisioner",
				"listen", cfg.ListenAddr,
				"keycloak", cfg.Keycloak.AuthServerURL,
				"realm", cfg.Keycloak.Realm,
				"auth_enabled", cfg.Auth.Enabled,
			)

			errCh := make(chan error, 1)
			go func() {
				if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					logger.Error("server error", "error", err)
					return err
				}
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown error", "error", err)
				return err
			}
			return nil
		},
	}
}

// loadRuntime reads configuration and builds the logger for a command.
func loadRuntime(cmd *cobra.Command, stdout io.Writer) (config.Config, *slog.Logger, io.Closer, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		logging.Fallback().Error("configuration error", "error", err)
		return cfg, nil, nil, err
	}
	logger, closer, err := logging.New(stdout, logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		logging.Fallback().Error("logging configuration error", "error", err)
		return cfg, nil, nil, err
	}
	return cfg, logger, closer, nil
}

// newServer wires the admin client, provisioning service and router. Realm
// discovery is bounded by the configured HTTP timeout.
func newServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*http.Server, error) {
	discoverCtx, cancel := context.WithTimeout(ctx, cfg.Keycloak.HTTPTimeout)
	defer cancel()

	admin, err := keycloak.NewAdminClient(discoverCtx, cfg.AdminClientConfig())
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc := provisioning.NewService(admin, admin.Realm(), logger,
		provisioning.WithMetrics(provisioning.NewMetrics(reg)))

	routerCfg := httpapi.RouterConfig{Logger: logger, Registry: reg}
	if cfg.Auth.Enabled {
		verifier, err := keycloak.NewVerifier(discoverCtx, cfg.AdminClientConfig(), nil)
		if err != nil {
			return nil, fmt.Errorf("caller authentication: %w", err)
		}
		routerCfg.Verifier = verifier
		routerCfg.RequiredRole = cfg.Auth.RequiredRole
	}

	return &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.NewRouter(httpapi.NewHandler(svc, logger), routerCfg),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}, nil
}
