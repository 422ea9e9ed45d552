package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLite keeps the cart in a local database file, one row per key.
type SQLite struct {
	db  *sql.DB
	key string
}

func NewSQLite(dbPath, key string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// a single writer avoids SQLITE_BUSY between our own connections
	db.SetMaxOpenConns(1)

	if key == "" {
		key = DefaultKey
	}
	return &SQLite{db: db, key: key}, nil
}

func (s *SQLite) RunMigrations() error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{
		MigrationsTable: "cart_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context) (domain.CartState, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM cart_state WHERE key = $1`, s.key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CartState{}, ErrNotFound
	}
	if err != nil {
		return domain.CartState{}, fmt.Errorf("failed to load cart: %w", err)
	}
	return unmarshalState([]byte(data))
}

func (s *SQLite) Save(ctx context.Context, state domain.CartState) error {
	data, err := marshalState(state)
	if err != nil {
		return err
	}

	query := `INSERT INTO cart_state (key, state, updated_at) VALUES ($1, $2, $3)
	          ON CONFLICT(key) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, s.key, string(data), time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
