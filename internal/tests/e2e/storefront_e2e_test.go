// Package e2e runs the storefront against a real PostgreSQL storage backend.
// The suite starts PostgreSQL with testcontainers-go, serves the application from an
// httptest.Server and restarts it between steps to check which state is durable.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sabowaryan/sabowaryantech/internal/app"
	"github.com/sabowaryan/sabowaryantech/internal/catalog"
	"github.com/sabowaryan/sabowaryantech/internal/config"
	"github.com/sabowaryan/sabowaryantech/internal/platform/web"
	"github.com/sabowaryan/sabowaryantech/internal/preferences"
	"github.com/sabowaryan/sabowaryantech/internal/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// skipE2ETests is the environment variable that can be set to skip E2E tests.
const skipE2ETests = "STOREFRONT_SKIP_INTEGRATION_TESTS"

const (
	testEmail    = "jane@example.com"
	testPassword = "secret1"
)

type StorefrontE2ESuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	deps        *app.Dependencies
	server      *httptest.Server
	appCfg      *config.Config
	accountsDir string
	clientID    string
	logger      *slog.Logger
	ctx         context.Context
}

func testConfig(dbURL, accountsFile string) *config.Config {
	var cfg config.Config
	cfg.Storage.Backend = config.BackendPostgres
	cfg.Database.URL = dbURL
	cfg.Database.Timeout = 10 * time.Second
	cfg.Auth.Secret = "e2e-secret-0123456789"
	cfg.Auth.Issuer = "storefront-e2e"
	cfg.Auth.AccessTTL = time.Minute
	cfg.Auth.RefreshTTL = time.Hour
	cfg.Auth.AccountsFile = accountsFile
	cfg.Shopper.IdleTTL = time.Minute
	return &cfg
}

func (s *StorefrontE2ESuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// 1. Start a PostgreSQL container and wait until it accepts connections.
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgx pool")
	for i := range 10 {
		s.logger.Info("Pinging E2E PostgreSQL database", "attempt", i+1)
		if err = s.dbPool.Ping(s.ctx); err == nil {
			break
		}
		time.Sleep(time.Second * 2)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	// 2. Write an accounts file with one shopper.
	s.accountsDir, err = os.MkdirTemp("", "storefront-e2e")
	require.NoError(s.T(), err)
	hash, err := session.HashPassword(testPassword)
	require.NoError(s.T(), err)
	accounts, err := json.Marshal([]session.Account{{
		User:         session.User{ID: uuid.NewString(), Email: testEmail, Name: "Jane", Role: session.RoleUser},
		PasswordHash: hash,
	}})
	require.NoError(s.T(), err)
	accountsFile := filepath.Join(s.accountsDir, "accounts.json")
	require.NoError(s.T(), os.WriteFile(accountsFile, accounts, 0o600))

	// 3. Start the application. Migrations are applied on startup.
	s.appCfg = testConfig(connStr, accountsFile)
	s.startApp()
}

func (s *StorefrontE2ESuite) TearDownSuite() {
	s.stopApp()
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.accountsDir != "" {
		_ = os.RemoveAll(s.accountsDir)
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Warn("Failed to terminate E2E PostgreSQL container", "error", err)
		}
	}
}

// SetupTest gives every test a fresh shopper and an empty blob table.
func (s *StorefrontE2ESuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE state_blobs")
	require.NoError(s.T(), err, "Failed to truncate state_blobs table")
	s.clientID = uuid.NewString()
}

func (s *StorefrontE2ESuite) startApp() {
	deps, err := app.SetupDependencies(s.ctx, s.appCfg, s.logger)
	require.NoError(s.T(), err, "Failed to setup application for E2E")
	s.deps = deps
	s.server = httptest.NewServer(app.SetupHttpHandler(deps))
}

func (s *StorefrontE2ESuite) stopApp() {
	if s.server != nil {
		s.server.Close()
		s.server = nil
	}
	if s.deps != nil {
		s.deps.Close()
		s.deps = nil
	}
}

// restartApp drops every in-memory shopper, as a process restart would.
func (s *StorefrontE2ESuite) restartApp() {
	s.stopApp()
	s.startApp()
}

// settle waits for the background stock confirmations of the current shopper.
func (s *StorefrontE2ESuite) settle() {
	s.deps.Shoppers.Get(s.ctx, s.clientID).Additions.Wait()
}

func TestStorefrontE2E(t *testing.T) {
	if os.Getenv(skipE2ETests) == "1" {
		t.Skip("Skipping integration tests based on " + skipE2ETests + " env var")
	}
	suite.Run(t, new(StorefrontE2ESuite))
}

func (s *StorefrontE2ESuite) TestProducts() {
	var result catalog.Result
	status := s.doJSON(http.MethodGet, "/api/v1/products?sort=price-asc&pageSize=2", nil, &result)

	s.Require().Equal(http.StatusOK, status)
	s.Equal(6, result.TotalCount)
	s.Equal(3, result.TotalPages)
	s.Require().Len(result.Items, 2)
	s.Equal("Form Builder Advanced", result.Items[0].Name)
	s.Equal("Landing Page Kit", result.Items[1].Name)
}

func (s *StorefrontE2ESuite) TestCartSurvivesRestart() {
	// given
	s.Require().Equal(http.StatusOK, s.doJSON(http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": "1", "quantity": 2}, nil))
	s.Require().Equal(http.StatusOK, s.doJSON(http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": "4"}, nil))
	s.settle()

	// when
	s.restartApp()

	// then
	var view cartView
	s.Require().Equal(http.StatusOK, s.doJSON(http.MethodGet, "/api/v1/cart", nil, &view))
	s.Equal(3, view.ItemCount)
	s.True(view.TotalPrice.Equal(decimal.NewFromInt(2*49+29)), view.TotalPrice.String())
	s.Require().Len(view.Items, 2)
	s.Equal("1", view.Items[0].ProductID)
	s.Equal("4", view.Items[1].ProductID)
}

func (s *StorefrontE2ESuite) TestOutOfStockAdditionIsRolledBack() {
	// given a quantity above the seeded stock
	s.Require().Equal(http.StatusOK, s.doJSON(http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": "3", "quantity": 500}, nil))

	// when
	s.settle()

	// then the rollback is durable too
	s.restartApp()
	var view cartView
	s.Require().Equal(http.StatusOK, s.doJSON(http.MethodGet, "/api/v1/cart", nil, &view))
	s.Equal(0, view.ItemCount)
}

func (s *StorefrontE2ESuite) TestPreferencesSurviveRestart() {
	// given
	s.Require().Equal(http.StatusOK, s.doJSON(http.MethodPatch, "/api/v1/preferences", map[string]any{"currency": "GBP", "language": "fr"}, nil))
	s.Require().Equal(http.StatusOK, s.doJSON(http.MethodPost, "/api/v1/preferences/theme", map[string]any{"theme": "dark"}, nil))

	// when
	s.restartApp()

	// then
	var prefs preferences.Preferences
	s.Require().Equal(http.StatusOK, s.doJSON(http.MethodGet, "/api/v1/preferences", nil, &prefs))
	s.Equal(preferences.ThemeDark, prefs.Theme)
	s.Equal("GBP", prefs.Currency)
	s.Equal("fr", prefs.Language)
	s.True(prefs.Notifications)
}

func (s *StorefrontE2ESuite) TestSessionAndCompareAreNotDurable() {
	// given
	s.Require().Equal(http.StatusOK, s.doJSON(http.MethodPost, "/api/v1/session/login", map[string]any{"email": testEmail, "password": testPassword}, nil))
	s.Require().Equal(http.StatusOK, s.doJSON(http.MethodPost, "/api/v1/compare/2/toggle", nil, nil))

	// when
	s.restartApp()

	// then
	var sess struct {
		State session.State `json:"state"`
	}
	s.Require().Equal(http.StatusOK, s.doJSON(http.MethodGet, "/api/v1/session", nil, &sess))
	s.Equal(session.StateAnonymous, sess.State)
	var cmp struct {
		IDs []string `json:"ids"`
	}
	s.Require().Equal(http.StatusOK, s.doJSON(http.MethodGet, "/api/v1/compare", nil, &cmp))
	s.Empty(cmp.IDs)
}

func (s *StorefrontE2ESuite) TestHealthz() {
	s.Equal(http.StatusOK, s.doJSON(http.MethodGet, "/healthz", nil, nil))
}

// --------------------------------------------------------------------------
// ---------- Payload structures and Helper methods for E2E tests -----------
// --------------------------------------------------------------------------

type cartView struct {
	Items []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	ItemCount  int             `json:"itemCount"`
}

// doJSON sends payload as JSON on behalf of the suite's shopper and decodes a 2xx body into dst.
// Returns the HTTP status code.
func (s *StorefrontE2ESuite) doJSON(method, path string, payload, dst any) int {
	s.T().Helper()
	var body io.Reader
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		s.Require().NoError(err)
		body = bytes.NewBuffer(payloadBytes)
	}

	req, err := http.NewRequestWithContext(s.ctx, method, s.server.URL+path, body)
	s.Require().NoError(err, "Failed to create HTTP request")
	req.Header.Set(web.XClientID, s.clientID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err, "HTTP request failed")
	defer func() {
		s.Require().NoError(resp.Body.Close(), "Failed to close response body")
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	s.Require().NoError(err, "Failed to read response body")
	if dst != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		s.Require().NoError(json.Unmarshal(bodyBytes, dst), string(bodyBytes))
	}
	return resp.StatusCode
}
