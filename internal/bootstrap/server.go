package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/opentrusty/console/config"
	"github.com/opentrusty/console/internal/adapters/authroles"
	"github.com/opentrusty/console/internal/adapters/oidc"
	"github.com/opentrusty/console/internal/adapters/redisstore"
	"github.com/opentrusty/console/internal/api"
	httpx "github.com/opentrusty/console/internal/http"
	"github.com/opentrusty/console/internal/session"
)

const shutdownTimeout = 10 * time.Second

// BuildServer assembles the console HTTP server from configuration and an
// established Redis connection.
func BuildServer(ctx context.Context, cfg config.AppConfig, rdb redis.UniversalClient, logger *slog.Logger) (*http.Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	renderer, err := httpx.NewTemplateRenderer(logger)
	if err != nil {
		return nil, fmt.Errorf("build renderer: %w", err)
	}

	sessions := session.NewManager(session.ManagerOptions{
		Records: redisstore.NewRecordStoreWithPrefix(rdb, cfg.Redis.KeyPrefix),
		NewClient: func() (*api.Client, error) {
			return api.NewClient(api.Config{
				BaseURL:   cfg.Upstream.BaseURL,
				CSRFToken: cfg.Upstream.CSRFToken,
				Timeout:   cfg.Upstream.Timeout,
				Logger:    logger,
			})
		},
		TTL:     cfg.Session.TTL,
		Refresh: cfg.Session.Refresh,
		Logger:  logger,
	})

	var flow *httpx.OIDCFlow
	if cfg.Auth.Mode == config.AuthModeOIDC {
		flow, err = buildOIDCFlow(ctx, cfg.Auth.OIDC)
		if err != nil {
			return nil, err
		}
	}

	router := httpx.NewRouter(httpx.RouterServices{
		Sessions: sessions,
		Renderer: renderer,
		Cookie: httpx.SessionCookieConfig{
			Name:   cfg.Session.CookieName,
			Domain: cfg.HTTP.CookieDomain,
			Secure: cfg.HTTP.CookieSecure,
		},
		OIDC:             flow,
		AuditSummaryExpr: cfg.Upstream.AuditSummaryExpr,
		CookieDomain:     cfg.HTTP.CookieDomain,
		CookieSecure:     cfg.HTTP.CookieSecure,
		Logger:           logger,
	})

	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

func buildOIDCFlow(ctx context.Context, cfg config.OIDCConfig) (*httpx.OIDCFlow, error) {
	provider, err := oidc.NewProvider(ctx, oidc.Config{
		IssuerURL:    cfg.IssuerURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
	})
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	flow := &httpx.OIDCFlow{Provider: provider}
	if cfg.RoleClaimsExpr != "" {
		mapper, err := authroles.NewClaimsMapper(cfg.RoleClaimsExpr)
		if err != nil {
			return nil, fmt.Errorf("role claims expression: %w", err)
		}
		flow.Roles = mapper
	}
	return flow, nil
}

// RunServer serves until the context is canceled, then drains connections.
func RunServer(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}
