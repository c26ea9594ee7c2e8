package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mewilker/jwt-pizza-service/internal/config"
	"github.com/mewilker/jwt-pizza-service/internal/models"
	"github.com/mewilker/jwt-pizza-service/internal/storage"
)

// Ensure Store satisfies the full storage surface at compile time.
var _ storage.Store = (*Store)(nil)

// Store provides Postgres-backed persistence for the whole service.
type Store struct {
	db          *sql.DB
	listPerPage int
}

// New opens the database, tunes the pool, runs migrations, and seeds the
// default admin when the database is fresh.
func New(ctx context.Context, cfg config.Config) (*Store, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{db: db, listPerPage: cfg.List.PerPage}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.seedAdmin(ctx, cfg.Admin); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// newWithDB wires a store around an existing connection, used by tests.
func newWithDB(db *sql.DB, listPerPage int) *Store {
	return &Store{db: db, listPerPage: listPerPage}
}

// Close releases database resources.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS franchise (
			id BIGSERIAL PRIMARY KEY,
			name TEXT UNIQUE NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS store (
			id BIGSERIAL PRIMARY KEY,
			franchise_id BIGINT NOT NULL REFERENCES franchise(id),
			name TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS user_role (
			user_id BIGINT NOT NULL REFERENCES users(id),
			role TEXT NOT NULL,
			object_id BIGINT NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS auth (
			token TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS menu (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			image TEXT NOT NULL,
			price NUMERIC(10,4) NOT NULL CHECK (price >= 0)
		);`,
		`CREATE TABLE IF NOT EXISTS diner_order (
			id BIGSERIAL PRIMARY KEY,
			diner_id BIGINT NOT NULL,
			franchise_id BIGINT NOT NULL REFERENCES franchise(id),
			store_id BIGINT NOT NULL REFERENCES store(id),
			date TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS order_item (
			id BIGSERIAL PRIMARY KEY,
			order_id BIGINT NOT NULL REFERENCES diner_order(id),
			menu_id BIGINT NOT NULL REFERENCES menu(id),
			description TEXT NOT NULL,
			price NUMERIC(10,4) NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

func (s *Store) seedAdmin(ctx context.Context, admin config.AdminConfig) error {
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_role WHERE role = $1`, models.RoleAdmin)
	if err := row.Scan(&count); err != nil {
		return fmt.Errorf("check for admin: %w", err)
	}
	if count > 0 {
		return nil
	}
	_, err := s.AddUser(ctx, models.User{
		Name:     admin.Name,
		Email:    admin.Email,
		Password: admin.Password,
		Roles:    []models.UserRole{{Role: models.RoleAdmin}},
	})
	if err != nil && !errors.Is(err, storage.ErrAlreadyExists) {
		return fmt.Errorf("seed default admin: %w", err)
	}
	return nil
}

// getOffset converts a 1-indexed page into a row offset.
func getOffset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
