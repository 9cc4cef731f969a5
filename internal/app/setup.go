// Package app wires the storefront dependencies and servers from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sabowaryan/sabowaryantech/internal/cart"
	"github.com/sabowaryan/sabowaryantech/internal/catalog"
	"github.com/sabowaryan/sabowaryantech/internal/config"
	"github.com/sabowaryan/sabowaryantech/internal/order"
	"github.com/sabowaryan/sabowaryantech/internal/persist"
	"github.com/sabowaryan/sabowaryantech/internal/platform/bootstrap"
	"github.com/sabowaryan/sabowaryantech/internal/platform/metrics"
	"github.com/sabowaryan/sabowaryantech/internal/platform/server"
	"github.com/sabowaryan/sabowaryantech/internal/session"
	"github.com/sabowaryan/sabowaryantech/internal/shopper"
	grpcImpl "github.com/sabowaryan/sabowaryantech/internal/transport/grpc"
	"github.com/sabowaryan/sabowaryantech/internal/transport/rest"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
)

type Dependencies struct {
	Catalog   *catalog.Catalog
	Repo      persist.Backend
	Shoppers  *shopper.Registry
	Directory *session.Directory
	Issuer    *session.Issuer
	Orders    *order.Drafter
	Metrics   *metrics.Metrics
	Registry  *prometheus.Registry
	Logger    *slog.Logger

	closers []func()
}

// SetupDependencies connects the configured storage backend and builds the stores' collaborators.
func SetupDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: logger, Registry: prometheus.NewRegistry()}
	deps.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deps.Metrics = metrics.New(deps.Registry)

	repo, err := deps.newRepository(ctx, cfg)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Repo = repo

	var src catalog.Source = catalog.SeedProducts
	if cfg.Catalog.File != "" {
		src = catalog.NewFileSource(cfg.Catalog.File)
	}
	deps.Catalog, err = catalog.Load(ctx, src)
	if err != nil {
		deps.Close()
		return nil, err
	}
	logger.Info("Catalog loaded", "products", deps.Catalog.Len(), "file", cfg.Catalog.File)

	var accounts []session.Account
	if cfg.Auth.AccountsFile != "" {
		accounts, err = session.LoadAccounts(cfg.Auth.AccountsFile)
		if err != nil {
			deps.Close()
			return nil, err
		}
	} else {
		logger.Warn("No accounts file configured, every login will be rejected")
	}
	deps.Directory = session.NewDirectory(accounts)
	deps.Issuer = session.NewIssuer(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	deps.Orders = order.NewDrafter()

	deps.Shoppers = shopper.NewRegistry(repo, cart.StockConfirmer{Catalog: deps.Catalog}, cfg.Shopper.IdleTTL, logger, deps.Metrics)
	deps.closers = append(deps.closers, deps.Shoppers.Close)
	return deps, nil
}

func (d *Dependencies) newRepository(ctx context.Context, cfg *config.Config) (persist.Backend, error) {
	repo, err := d.openBackend(ctx, cfg)
	if err != nil || !cfg.Breaker.Enabled {
		return repo, err
	}
	switch cfg.Storage.Backend {
	case config.BackendRedis, config.BackendPostgres:
		return persist.NewBreakerRepository(repo, persist.BreakerSettings{
			Name:                cfg.Storage.Backend,
			ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
			ErrorRatePercent:    cfg.Breaker.ErrorRatePercent,
			OpenTimeout:         cfg.Breaker.OpenTimeout,
		}, d.Logger), nil
	}
	return repo, nil
}

func (d *Dependencies) openBackend(ctx context.Context, cfg *config.Config) (persist.Backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendFile:
		repo, err := persist.NewFileRepository(cfg.Storage.Dir)
		if err != nil {
			return nil, err
		}
		d.Logger.Info("Using file storage", "dir", cfg.Storage.Dir)
		return repo, nil
	case config.BackendRedis:
		client, err := bootstrap.NewRedisClient(ctx, bootstrap.RedisOptions{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.Timeout,
			Timeout:     cfg.Redis.Timeout,
		})
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, func() { _ = client.Close() })
		d.Logger.Info("Successfully connected to redis!", "addr", cfg.Redis.Addr)
		return persist.NewRedisRepository(client, cfg.Redis.TTL), nil
	case config.BackendPostgres:
		if err := persist.Migrate(cfg.Database.URL); err != nil {
			return nil, err
		}
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, dbPool.Close)
		d.Logger.Info("Successfully connected to the database!")
		return persist.NewPgRepository(dbPool), nil
	case config.BackendMemory, "":
		d.Logger.Warn("Using in-memory storage, carts and preferences are lost on restart")
		return persist.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Storage.Backend)
	}
}

// Close flushes the shoppers and releases the storage clients, in reverse order of creation.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

// SetupHttpHandler builds the router with every storefront route.
// Used by E2E tests to run the application inside an httptest.Server.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger, deps.Metrics)
	wireRoutes(mux, deps)
	return mux
}

func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	handler := rest.NewHandler(rest.Deps{
		Catalog:  deps.Catalog,
		Shoppers: deps.Shoppers,
		Auth:     deps.Directory,
		Tokens:   deps.Issuer,
		Orders:   deps.Orders,
		Health:   deps.Repo,
	}, deps.Logger)
	handler.RegisterRoutes(mux)
	mux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

// SetupHttpServer creates the HTTP server of the storefront.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, otelhttp.NewHandler(mux, "storefront-http"))
}

// SetupGrpcServer creates the gRPC server serving the health reporter.
func SetupGrpcServer(reporter *grpcImpl.HealthReporter, reflectionEnabled bool, logger *slog.Logger) *grpc.Server {
	return server.NewGRPCServer(logger, reflectionEnabled, reporter.Register)
}
