package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/lib/pq"
	"github.com/shopsphere/commerce-core/internal/config"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Repository struct {
	DB      *sql.DB
	Product ProductRepository
	Cart    CartRepository
	Order   OrderRepository
	Review  ReviewRepository
}

func New(cfg *config.Config) (*Repository, error) {

	db, err := otelsql.Open("postgres", cfg.Database.GetDSN(),
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	// Test the connection to make sure DB is reachable
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Repository{
		DB:      db,
		Product: NewProductRepo(db),
		Cart:    NewCartRepo(db),
		Order:   NewOrderRepo(db),
		Review:  NewReviewRepo(db),
	}, nil
}

func (p *Repository) Close() error {
	return p.DB.Close()
}

const (
	txMaxRetries   = 3
	txRetryBackoff = 25 * time.Millisecond
)

// ErrTxConflict marks a serialization failure that survived the bounded
// retry. Services translate it to a CONCURRENCY_CONFLICT for the caller.
var ErrTxConflict = errors.New("transaction serialization conflict")

// runInTx executes fn inside a serializable transaction. Serialization
// failures and deadlocks are retried up to txMaxRetries times; anything
// else rolls back and is returned as-is.
func runInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {

	var lastErr error

	for attempt := 0; attempt < txMaxRetries; attempt++ {

		if attempt > 0 {
			select {
			case <-time.After(txRetryBackoff << (attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if err := fn(tx); err != nil {
			tx.Rollback()

			if isSerializationFailure(err) {
				lastErr = err
				continue
			}

			return err
		}

		if err := tx.Commit(); err != nil {
			if isSerializationFailure(err) {
				lastErr = err
				continue
			}

			return fmt.Errorf("failed to commit transaction: %w", err)
		}

		return nil
	}

	return fmt.Errorf("%w: %v", ErrTxConflict, lastErr)
}

// 40001 = serialization_failure, 40P01 = deadlock_detected
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error

	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}

	return false
}

// 23505 = unique_violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error

	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	return false
}
