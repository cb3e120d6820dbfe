// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/clubdesk/internal/model"
	"github.com/alfredjeanlab/clubdesk/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewWithDB wraps an already open database without migrating it.
func NewWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) ListClubs(ctx context.Context) ([]model.Club, error) {
	return queryListClubs(ctx, s.db)
}

func (s *PostgresStore) GetClub(ctx context.Context, id string) (*model.Club, error) {
	return queryGetClub(ctx, s.db, id, false)
}

func (s *PostgresStore) SetClubStatus(ctx context.Context, id string, status model.Status, reason string) (*model.Club, error) {
	return querySetClubStatus(ctx, s.db, id, status, reason)
}

func (s *PostgresStore) UpdateClub(ctx context.Context, id string, u model.ClubUpdate) (*model.Club, error) {
	return queryUpdateClub(ctx, s.db, id, u)
}

func (s *PostgresStore) DeleteClub(ctx context.Context, id string) error {
	return queryDelete(ctx, s.db, "clubs", id)
}

func (s *PostgresStore) ListTournaments(ctx context.Context, f store.TournamentFilter) ([]model.Tournament, int, error) {
	return queryListTournaments(ctx, s.db, f)
}

func (s *PostgresStore) DeleteTournament(ctx context.Context, id string) error {
	return queryDelete(ctx, s.db, "tournaments", id)
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]model.User, error) {
	return queryListUsers(ctx, s.db)
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id string) error {
	return queryDelete(ctx, s.db, "users", id)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx. Reads of a single club
// lock the row until the transaction ends.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) ListClubs(ctx context.Context) ([]model.Club, error) {
	return queryListClubs(ctx, s.tx)
}

func (s *txStore) GetClub(ctx context.Context, id string) (*model.Club, error) {
	return queryGetClub(ctx, s.tx, id, true)
}

func (s *txStore) SetClubStatus(ctx context.Context, id string, status model.Status, reason string) (*model.Club, error) {
	return querySetClubStatus(ctx, s.tx, id, status, reason)
}

func (s *txStore) UpdateClub(ctx context.Context, id string, u model.ClubUpdate) (*model.Club, error) {
	return queryUpdateClub(ctx, s.tx, id, u)
}

func (s *txStore) DeleteClub(ctx context.Context, id string) error {
	return queryDelete(ctx, s.tx, "clubs", id)
}

func (s *txStore) ListTournaments(ctx context.Context, f store.TournamentFilter) ([]model.Tournament, int, error) {
	return queryListTournaments(ctx, s.tx, f)
}

func (s *txStore) DeleteTournament(ctx context.Context, id string) error {
	return queryDelete(ctx, s.tx, "tournaments", id)
}

func (s *txStore) ListUsers(ctx context.Context) ([]model.User, error) {
	return queryListUsers(ctx, s.tx)
}

func (s *txStore) DeleteUser(ctx context.Context, id string) error {
	return queryDelete(ctx, s.tx, "users", id)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

func (s *txStore) Ping(context.Context) error { return nil }

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
