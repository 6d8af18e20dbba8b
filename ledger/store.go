package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/0xmeta/newsgate/types"
)

// ErrNotFound is returned when no record exists for a payment key.
var ErrNotFound = errors.New("payment record not found")

// Store persists payment records keyed by payment key. A given payment key
// has at most one record.
type Store interface {
	Upsert(ctx context.Context, rec types.PaymentRecord) error
	Get(ctx context.Context, paymentKey string) (types.PaymentRecord, error)
	ListByState(ctx context.Context, state types.SettlementState, limit int) ([]types.PaymentRecord, error)
}

// SQLStore is a Store backed by a payment_transactions table in Postgres.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLStore connects to the database at the given URL.
func OpenSQLStore(databaseURL string) (*SQLStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// NewSQLStore wraps an existing database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Close closes the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Upsert inserts the record or updates the existing row for its payment key.
func (s *SQLStore) Upsert(ctx context.Context, rec types.PaymentRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_transactions
			(id, payment_key, endpoint, category, amount, payer,
			 verified, settled, state, tx_hash, created_at, verified_at, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (payment_key) DO UPDATE SET
			verified = EXCLUDED.verified,
			settled = EXCLUDED.settled,
			state = EXCLUDED.state,
			tx_hash = EXCLUDED.tx_hash,
			verified_at = EXCLUDED.verified_at,
			settled_at = EXCLUDED.settled_at`,
		rec.ID, rec.PaymentKey, rec.Endpoint, rec.Category, rec.Amount, rec.Payer,
		rec.Verified, rec.Settled, string(rec.State), rec.TxHash,
		rec.CreatedAt, nullTime(rec.VerifiedAt), nullTime(rec.SettledAt),
	)
	if err != nil {
		return fmt.Errorf("upsert payment record: %w", err)
	}
	return nil
}

// Get returns the record for a payment key, or ErrNotFound.
func (s *SQLStore) Get(ctx context.Context, paymentKey string) (types.PaymentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, payment_key, endpoint, category, amount, payer,
		       verified, settled, state, tx_hash, created_at, verified_at, settled_at
		FROM payment_transactions
		WHERE payment_key = $1`,
		paymentKey,
	)
	return scanRecord(row)
}

// ListByState returns up to limit records in the given settlement state,
// oldest first. Used by reconciliation to surface failed settlements.
func (s *SQLStore) ListByState(ctx context.Context, state types.SettlementState, limit int) ([]types.PaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payment_key, endpoint, category, amount, payer,
		       verified, settled, state, tx_hash, created_at, verified_at, settled_at
		FROM payment_transactions
		WHERE state = $1
		ORDER BY created_at ASC
		LIMIT $2`,
		string(state), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list payment records: %w", err)
	}
	defer rows.Close()

	var recs []types.PaymentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (types.PaymentRecord, error) {
	var rec types.PaymentRecord
	var state string
	var verifiedAt, settledAt sql.NullTime
	err := row.Scan(
		&rec.ID, &rec.PaymentKey, &rec.Endpoint, &rec.Category, &rec.Amount, &rec.Payer,
		&rec.Verified, &rec.Settled, &state, &rec.TxHash,
		&rec.CreatedAt, &verifiedAt, &settledAt,
	)
	if err == sql.ErrNoRows {
		return types.PaymentRecord{}, ErrNotFound
	}
	if err != nil {
		return types.PaymentRecord{}, fmt.Errorf("scan payment record: %w", err)
	}
	rec.State = types.SettlementState(state)
	if verifiedAt.Valid {
		rec.VerifiedAt = &verifiedAt.Time
	}
	if settledAt.Valid {
		rec.SettledAt = &settledAt.Time
	}
	return rec, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
