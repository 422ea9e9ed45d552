package reconcile

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	migrationsTable = "reconciliation_schema_migrations"
)

var (
	ErrIncidentNotFound  = errors.New("incident not found")
	ErrDuplicateIncident = errors.New("incident already recorded for this attempt")
	ErrUnsupportedDriver = errors.New("unsupported reconciliation driver")
)

// Repository stores incidents in SQLite for a single client or Postgres when
// several clients share one journal. Both dialects accept the same SQL.
type Repository struct {
	db     *sql.DB
	driver string
}

func NewRepository(driver, dsn string) (*Repository, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}
	return &Repository{db: db, driver: driver}, nil
}

func (r *Repository) RunMigrations() error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	var driver database.Driver
	switch r.driver {
	case DriverPostgres:
		driver, err = postgres.WithInstance(r.db, &postgres.Config{MigrationsTable: migrationsTable})
	default:
		driver, err = sqlite.WithInstance(r.db, &sqlite.Config{MigrationsTable: migrationsTable})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, r.driver, driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (r *Repository) Record(ctx context.Context, inc *Incident) error {
	query := `INSERT INTO reconciliation_incidents
	          (id, attempt_id, payment_id, mocked, amount, currency, order_payload, reason, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	mocked := 0
	if inc.Mocked {
		mocked = 1
	}
	_, err := r.db.ExecContext(ctx, query,
		inc.ID,
		inc.AttemptID,
		inc.PaymentID,
		mocked,
		inc.Amount.String(),
		inc.Currency,
		string(inc.OrderPayload),
		inc.Reason,
		inc.CreatedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateIncident
		}
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

// Unpublished returns up to limit incidents not yet handed to a sink, oldest first.
func (r *Repository) Unpublished(ctx context.Context, limit int) ([]*Incident, error) {
	query := `SELECT id, attempt_id, payment_id, mocked, amount, currency, order_payload, reason, created_at, published_at
	          FROM reconciliation_incidents
	          WHERE published_at IS NULL
	          ORDER BY created_at ASC
	          LIMIT $1`
	return r.query(ctx, query, limit)
}

func (r *Repository) List(ctx context.Context, includePublished bool) ([]*Incident, error) {
	query := `SELECT id, attempt_id, payment_id, mocked, amount, currency, order_payload, reason, created_at, published_at
	          FROM reconciliation_incidents`
	if !includePublished {
		query += ` WHERE published_at IS NULL`
	}
	query += ` ORDER BY created_at DESC`
	return r.query(ctx, query)
}

func (r *Repository) MarkPublished(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reconciliation_incidents SET published_at = $1 WHERE id = $2`,
		at.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("mark incident published: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark incident published: %w", err)
	}
	if n == 0 {
		return ErrIncidentNotFound
	}
	return nil
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]*Incident, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	var incidents []*Incident
	for rows.Next() {
		var (
			inc       Incident
			mocked    int64
			amount    string
			payload   string
			createdAt int64
			published sql.NullInt64
		)
		if err := rows.Scan(
			&inc.ID,
			&inc.AttemptID,
			&inc.PaymentID,
			&mocked,
			&amount,
			&inc.Currency,
			&payload,
			&inc.Reason,
			&createdAt,
			&published,
		); err != nil {
			return nil, fmt.Errorf("scan incident row: %w", err)
		}

		inc.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount of incident %s: %w", inc.ID, err)
		}
		inc.Mocked = mocked != 0
		inc.OrderPayload = []byte(payload)
		inc.CreatedAt = time.UnixMilli(createdAt)
		if published.Valid {
			t := time.UnixMilli(published.Int64)
			inc.PublishedAt = &t
		}
		incidents = append(incidents, &inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return incidents, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	// modernc only exposes the constraint in the message
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
