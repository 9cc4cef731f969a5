package persist

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the state_blobs schema to the database at url.
func Migrate(url string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// PgRepository implements Repository using a PostgreSQL table of JSONB blobs.
type PgRepository struct {
	db *pgxpool.Pool
}

// NewPgRepository creates a PgRepository on an existing pool.
func NewPgRepository(db *pgxpool.Pool) *PgRepository {
	return &PgRepository{db: db}
}

// Load selects the blob stored under key.
// Returns ErrNotFound if no row exists for key.
func (p *PgRepository) Load(ctx context.Context, key string) ([]byte, error) {
	var blob []byte
	err := p.db.QueryRow(ctx, `SELECT blob FROM state_blobs WHERE key = $1`, key).Scan(&blob)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return blob, nil
}

// Save upserts the blob stored under key.
func (p *PgRepository) Save(ctx context.Context, key string, blob []byte) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO state_blobs (key, blob, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET blob = EXCLUDED.blob, updated_at = EXCLUDED.updated_at`,
		key, string(blob))
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// Delete removes the row for key.
func (p *PgRepository) Delete(ctx context.Context, key string) error {
	if _, err := p.db.Exec(ctx, `DELETE FROM state_blobs WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Ping checks the pool.
func (p *PgRepository) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}
