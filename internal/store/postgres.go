package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const undefinedTable = "42P01"

// PostgresStore implements SlotStorer on a single JSONB table.
type PostgresStore struct {
	db  *sql.DB
	log logrus.FieldLogger
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB, log logrus.FieldLogger) *PostgresStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PostgresStore{db: db, log: log.WithField("component", "postgres-slots")}
}

// EnsureSchema creates the slot table when it is missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE SCHEMA IF NOT EXISTS storefront;
		CREATE TABLE IF NOT EXISTS storefront.client_slots (
			slot       TEXT PRIMARY KEY,
			payload    JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("store: EnsureSchema failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, slot string) ([]byte, error) {
	if slot == "" {
		return nil, ErrEmptySlotName
	}
	query := `
		SELECT payload
		FROM storefront.client_slots
		WHERE slot = $1;
	`
	var payload []byte
	err := s.db.QueryRowContext(ctx, query, slot).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, s.mapError("Load", err)
	}
	return payload, nil
}

// Save upserts the slot; the stored payload is always the latest full state.
func (s *PostgresStore) Save(ctx context.Context, slot string, payload []byte) error {
	if slot == "" {
		return ErrEmptySlotName
	}
	query := `
		INSERT INTO storefront.client_slots (slot, payload, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (slot) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = CURRENT_TIMESTAMP;
	`
	if _, err := s.db.ExecContext(ctx, query, slot, payload); err != nil {
		return s.mapError("Save", err)
	}
	return nil
}

// Delete removes the slot. Deleting a missing slot is not an error.
func (s *PostgresStore) Delete(ctx context.Context, slot string) error {
	if slot == "" {
		return ErrEmptySlotName
	}
	query := `DELETE FROM storefront.client_slots WHERE slot = $1;`
	result, err := s.db.ExecContext(ctx, query, slot)
	if err != nil {
		return s.mapError("Delete", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		s.log.WithField("slot", slot).Debug("delete of absent slot")
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) mapError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == undefinedTable {
		return fmt.Errorf("store: %s: %w", op, ErrSchemaMissing)
	}
	return fmt.Errorf("store: %s failed: %w", op, err)
}

func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	s.log.Info("closing database connection pool")
	if err := s.db.Close(); err != nil {
		s.log.WithError(err).Error("failed to close database connection pool")
		return err
	}
	return nil
}
