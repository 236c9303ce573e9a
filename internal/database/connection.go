package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pilotage-service/internal/config"

	_ "github.com/go-sql-driver/mysql"
)

func NewConnection(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		if !strings.Contains(err.Error(), "Unknown database") {
			db.Close()
			return nil, fmt.Errorf("error pinging database: %w", err)
		}

		slog.Warn("database does not exist, creating it", "database", cfg.Database.Name)
		db.Close()

		if err := createDatabase(ctx, cfg); err != nil {
			return nil, err
		}

		db, err = sql.Open("mysql", cfg.GetDSN())
		if err != nil {
			return nil, fmt.Errorf("error connecting to new database: %w", err)
		}
		if err = db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("error verifying connection to new database: %w", err)
		}
	}

	maxConns := cfg.Database.MaxConns
	if maxConns <= 0 {
		maxConns = 25
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	slog.Info("connected to MySQL", "host", cfg.Database.Host, "database", cfg.Database.Name)
	return db, nil
}

func createDatabase(ctx context.Context, cfg *config.Config) error {
	rootDB, err := sql.Open("mysql", getRootDSN(cfg))
	if err != nil {
		return fmt.Errorf("error connecting to MySQL root: %w", err)
	}
	defer rootDB.Close()

	_, err = rootDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", cfg.Database.Name))
	if err != nil {
		return fmt.Errorf("error creating database: %w", err)
	}
	slog.Info("created database", "database", cfg.Database.Name)
	return nil
}

func getRootDSN(cfg *config.Config) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/?parseTime=true",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
	)
}

// Transaction wraps a *sql.Tx shared by the repositories of one unit of work.
type Transaction struct {
	*sql.Tx
}

func BeginTx(ctx context.Context, db *sql.DB) (*Transaction, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Transaction{tx}, nil
}

func (tx *Transaction) Commit() error {
	return tx.Tx.Commit()
}

func (tx *Transaction) Rollback() error {
	return tx.Tx.Rollback()
}

// WithTx runs fn inside a transaction, committing on success and rolling back on error.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *Transaction) error) error {
	tx, err := BeginTx(ctx, db)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
