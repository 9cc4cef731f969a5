package persist

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const skipIntegrationTests = "STOREFRONT_SKIP_INTEGRATION_TESTS"

func skipIfRequested(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
}

// PgRepositorySuite runs the repository contract against a real PostgreSQL.
type PgRepositorySuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	repo        *PgRepository
	logger      *slog.Logger
	ctx         context.Context
}

func (s *PgRepositorySuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var err error
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
	require.NoError(s.T(), err, "Failed to create pgxpool")
	for i := range 10 {
		s.logger.Info("Pinging PostgreSQL database", "attempt", i+1)
		if err = s.dbPool.Ping(s.ctx); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	require.NoError(s.T(), Migrate(connStr), "Failed to apply migrations")
	// a second run must be a no-op
	require.NoError(s.T(), Migrate(connStr))

	s.repo = NewPgRepository(s.dbPool)
}

func (s *PgRepositorySuite) TearDownSuite() {
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Warn("failed to terminate PostgreSQL container", "error", err)
		}
	}
}

func (s *PgRepositorySuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE state_blobs")
	require.NoError(s.T(), err, "Failed to truncate state_blobs table")
}

func (s *PgRepositorySuite) TestContract() {
	runRepositoryContract(s.T(), s.repo)
}

func (s *PgRepositorySuite) TestPing() {
	require.NoError(s.T(), s.repo.Ping(s.ctx))
}

func TestPgRepositoryIntegration(t *testing.T) {
	skipIfRequested(t)
	suite.Run(t, new(PgRepositorySuite))
}

// RedisRepositorySuite runs the repository contract against a real Redis.
type RedisRepositorySuite struct {
	suite.Suite
	container testcontainers.Container
	client    *redis.Client
	ctx       context.Context
}

func (s *RedisRepositorySuite) SetupSuite() {
	s.ctx = context.Background()

	var err error
	s.container, err = testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(s.T(), err, "Failed to run Redis container")

	endpoint, err := s.container.Endpoint(s.ctx, "")
	require.NoError(s.T(), err, "Failed to get Redis endpoint")

	s.client = redis.NewClient(&redis.Options{Addr: endpoint})
	require.NoError(s.T(), s.client.Ping(s.ctx).Err())
}

func (s *RedisRepositorySuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *RedisRepositorySuite) SetupTest() {
	require.NoError(s.T(), s.client.FlushDB(s.ctx).Err())
}

func (s *RedisRepositorySuite) TestContract() {
	runRepositoryContract(s.T(), NewRedisRepository(s.client, 0))
}

func (s *RedisRepositorySuite) TestSaveAppliesTTL() {
	repo := NewRedisRepository(s.client, time.Hour)
	key := Key(PreferencesNamespace, "ttl")

	require.NoError(s.T(), repo.Save(s.ctx, key, []byte(`{"theme":"dark"}`)))

	ttl, err := s.client.TTL(s.ctx, key).Result()
	require.NoError(s.T(), err)
	s.Greater(ttl, 59*time.Minute)
}

func TestRedisRepositoryIntegration(t *testing.T) {
	skipIfRequested(t)
	suite.Run(t, new(RedisRepositorySuite))
}
