package storage

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"sportscast/pkg/logger"
	"sportscast/pkg/model"
)

type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage opens the pool and applies pending migrations.
func NewPostgresStorage(databaseURL string) (*PostgresStorage, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established")

	if err := runMigrations(databaseURL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database migrations completed successfully")

	return &PostgresStorage{pool: pool}, nil
}

// Executing database migrations
func runMigrations(databaseURL string) error {
	migrationsPath, err := filepath.Abs("migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	// Build file URL from path (works on both Windows and Unix)
	var migrationsURL string
	if runtime.GOOS == "windows" {
		u := &url.URL{
			Scheme: "file",
			Path:   filepath.ToSlash(migrationsPath),
		}
		migrationsURL = u.String()
	} else {
		migrationsURL = fmt.Sprintf("file://%s", migrationsPath)
	}

	logger.Info("Running migrations", zap.String("path", migrationsURL))

	db := stdlib.OpenDB(*parseConfig(databaseURL))
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationsURL,
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply")
	} else {
		logger.Info("Migrations applied successfully")
	}

	return nil
}

// ResetMigrations drops every table and re-applies all migrations.
func ResetMigrations(databaseURL string) error {
	logger.Warn("Resetting database - this will drop all data!")

	migrationsPath, err := filepath.Abs("migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	var migrationsURL string
	if runtime.GOOS == "windows" {
		u := &url.URL{
			Scheme: "file",
			Path:   filepath.ToSlash(migrationsPath),
		}
		migrationsURL = u.String()
	} else {
		migrationsURL = fmt.Sprintf("file://%s", migrationsPath)
	}

	db := stdlib.OpenDB(*parseConfig(databaseURL))
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationsURL,
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Drop(); err != nil {
		return fmt.Errorf("failed to drop database: %w", err)
	}

	logger.Info("Database dropped successfully")

	if err := m.Up(); err != nil {
		return fmt.Errorf("failed to run migrations after reset: %w", err)
	}

	logger.Info("Database reset and migrations applied successfully")
	return nil
}

// Parses database URL into pgx config
func parseConfig(databaseURL string) *pgx.ConnConfig {
	config, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		logger.Fatal("Failed to parse database URL", zap.Error(err))
	}
	return config
}

// Closes the database connection pool
func (s *PostgresStorage) Close() {
	s.pool.Close()
}

// CreateQuery inserts a new query record
func (s *PostgresStorage) CreateQuery(ctx context.Context, record *model.QueryRecord) error {
	query := `
		INSERT INTO queries (
			id, source, chat_id, status, text, domain, intent,
			confidence, cache_key, error_text, meta, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)`

	_, err := s.pool.Exec(ctx, query,
		record.ID,
		record.Source,
		record.ChatID,
		record.Status,
		record.Text,
		record.Domain,
		record.Intent,
		record.Confidence,
		record.CacheKey,
		record.ErrorText,
		record.Meta,
		record.CreatedAt,
		record.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create query record: %w", err)
	}

	return nil
}

// GetQueryByID retrieves a query record by its ID
func (s *PostgresStorage) GetQueryByID(ctx context.Context, id string) (*model.QueryRecord, error) {
	query := `
		SELECT id, source, chat_id, status, text, domain, intent,
		       confidence, cache_key, error_text, meta, created_at, updated_at
		FROM queries
		WHERE id = $1`

	var record model.QueryRecord
	row := s.pool.QueryRow(ctx, query, id)

	err := row.Scan(
		&record.ID,
		&record.Source,
		&record.ChatID,
		&record.Status,
		&record.Text,
		&record.Domain,
		&record.Intent,
		&record.Confidence,
		&record.CacheKey,
		&record.ErrorText,
		&record.Meta,
		&record.CreatedAt,
		&record.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("query record not found")
		}
		return nil, fmt.Errorf("failed to get query record: %w", err)
	}

	return &record, nil
}

// UpdateQuery updates a full query record
func (s *PostgresStorage) UpdateQuery(ctx context.Context, record *model.QueryRecord) error {
	query := `
		UPDATE queries
		SET source = $2, chat_id = $3, status = $4, text = $5, domain = $6,
		    intent = $7, confidence = $8, cache_key = $9, error_text = $10,
		    meta = $11, updated_at = $12
		WHERE id = $1`

	result, err := s.pool.Exec(ctx, query,
		record.ID,
		record.Source,
		record.ChatID,
		record.Status,
		record.Text,
		record.Domain,
		record.Intent,
		record.Confidence,
		record.CacheKey,
		record.ErrorText,
		record.Meta,
		record.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update query record: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("query record not found")
	}

	return nil
}

// RecentQueries lists the most recent query records, newest first
func (s *PostgresStorage) RecentQueries(ctx context.Context, limit int) ([]*model.QueryRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, source, chat_id, status, text, domain, intent,
		       confidence, cache_key, error_text, meta, created_at, updated_at
		FROM queries
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list query records: %w", err)
	}
	defer rows.Close()

	var records []*model.QueryRecord
	for rows.Next() {
		var record model.QueryRecord
		err := rows.Scan(
			&record.ID,
			&record.Source,
			&record.ChatID,
			&record.Status,
			&record.Text,
			&record.Domain,
			&record.Intent,
			&record.Confidence,
			&record.CacheKey,
			&record.ErrorText,
			&record.Meta,
			&record.CreatedAt,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query record: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}
