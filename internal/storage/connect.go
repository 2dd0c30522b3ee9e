// internal/storage/connect.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/alegjs044/Gecko-house-sub000/internal/config"
)

// Connect opens the Postgres pool, retrying with exponential backoff so
// the gateway survives the database coming up after it.
func Connect(ctx context.Context, log *zap.Logger, cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)

	var db *sql.DB
	attempt := 0
	operation := func() error {
		attempt++
		log.Info("attempting database connection", zap.Int("attempt", attempt))
		var err error
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return err
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	log.Info("database connection established")
	return db, nil
}

// EnsureSchema creates the reading tables and the user directory if they
// do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS usuarios (
			id SERIAL PRIMARY KEY,
			nombre TEXT NOT NULL UNIQUE,
			correo TEXT NOT NULL,
			contrasena TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS lecturas_temperatura (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL,
			valor DOUBLE PRECISION NOT NULL,
			zona TEXT NOT NULL,
			es_critico BOOLEAN NOT NULL DEFAULT FALSE,
			fecha TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS lecturas_humedad (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL,
			valor DOUBLE PRECISION NOT NULL,
			en_muda BOOLEAN NOT NULL DEFAULT FALSE,
			es_critico BOOLEAN NOT NULL DEFAULT FALSE,
			fecha TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS lecturas_uv (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL,
			valor DOUBLE PRECISION NOT NULL,
			es_critico BOOLEAN NOT NULL DEFAULT FALSE,
			fecha TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}
	return nil
}
