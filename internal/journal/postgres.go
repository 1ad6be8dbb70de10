package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS payment_attempts (
    id UUID PRIMARY KEY,
    state TEXT NOT NULL,
    purpose TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    amount_usd NUMERIC(20, 6) NOT NULL,
    native_amount NUMERIC(38, 18) NOT NULL,
    wallet_address TEXT NOT NULL DEFAULT '',
    tx_hash TEXT NOT NULL DEFAULT '',
    chain_id BIGINT NOT NULL DEFAULT 0,
    error_kind TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS payment_attempts_tx_hash_idx ON payment_attempts (lower(tx_hash));
CREATE TABLE IF NOT EXISTS payment_attempt_states (
    id UUID PRIMARY KEY,
    attempt_id UUID NOT NULL REFERENCES payment_attempts (id),
    state TEXT NOT NULL,
    at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// PostgresJournal persists attempts in PostgreSQL.
type PostgresJournal struct {
	db *pgxpool.Pool
}

// NewPostgresJournal constructs a Postgres-backed journal.
func NewPostgresJournal(db *pgxpool.Pool) *PostgresJournal {
	return &PostgresJournal{db: db}
}

// EnsureSchema creates the journal tables when missing.
func (j *PostgresJournal) EnsureSchema(ctx context.Context) error {
	_, err := j.db.Exec(ctx, schema)
	return err
}

// Save upserts rec and records a state step when the state changed.
func (j *PostgresJournal) Save(ctx context.Context, rec Record) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return fmt.Errorf("attempt id %q: %w", rec.ID, err)
	}

	tx, err := j.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var prevState string
	err = tx.QueryRow(ctx, `SELECT state FROM payment_attempts WHERE id = $1 FOR UPDATE`, id).Scan(&prevState)
	exists := err == nil
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	const upsert = `
        INSERT INTO payment_attempts (id, state, purpose, description, amount_usd, native_amount,
            wallet_address, tx_hash, chain_id, error_kind)
        VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9, $10)
        ON CONFLICT (id) DO UPDATE SET
            state = EXCLUDED.state,
            native_amount = EXCLUDED.native_amount,
            wallet_address = EXCLUDED.wallet_address,
            tx_hash = EXCLUDED.tx_hash,
            chain_id = EXCLUDED.chain_id,
            error_kind = EXCLUDED.error_kind,
            updated_at = now()`
	if _, err := tx.Exec(ctx, upsert, id, rec.State, rec.Purpose, rec.Description,
		rec.AmountUSD.String(), rec.NativeAmount.String(), rec.WalletAddress, rec.TxHash,
		int64(rec.ChainID), rec.ErrorKind); err != nil {
		return err
	}

	if !exists || prevState != rec.State {
		if _, err := tx.Exec(ctx, `INSERT INTO payment_attempt_states (id, attempt_id, state) VALUES ($1, $2, $3)`,
			uuid.New(), id, rec.State); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

const selectRecord = `
    SELECT id, state, purpose, description, amount_usd::text, native_amount::text,
        wallet_address, tx_hash, chain_id, error_kind, created_at, updated_at
    FROM payment_attempts`

// Get loads an attempt by id.
func (j *PostgresJournal) Get(ctx context.Context, id string) (Record, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return Record{}, ErrNotFound
	}
	return scanRecord(j.db.QueryRow(ctx, selectRecord+` WHERE id = $1`, uid))
}

// FindByTxHash loads the attempt that broadcast hash.
func (j *PostgresJournal) FindByTxHash(ctx context.Context, hash string) (Record, error) {
	if hash == "" {
		return Record{}, ErrNotFound
	}
	return scanRecord(j.db.QueryRow(ctx, selectRecord+` WHERE lower(tx_hash) = $1 ORDER BY updated_at DESC LIMIT 1`, strings.ToLower(hash)))
}

// History lists the states an attempt moved through, oldest first.
func (j *PostgresJournal) History(ctx context.Context, id string) ([]Step, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	rows, err := j.db.Query(ctx, `SELECT state, at FROM payment_attempt_states WHERE attempt_id = $1 ORDER BY at, id`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var s Step
		if err := rows.Scan(&s.State, &s.At); err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, ErrNotFound
	}
	return steps, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec          Record
		id           uuid.UUID
		amountUSD    string
		nativeAmount string
		chainID      int64
	)
	err := row.Scan(&id, &rec.State, &rec.Purpose, &rec.Description, &amountUSD, &nativeAmount,
		&rec.WalletAddress, &rec.TxHash, &chainID, &rec.ErrorKind, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	rec.ID = id.String()
	rec.ChainID = uint64(chainID)
	if rec.AmountUSD, err = decimal.NewFromString(amountUSD); err != nil {
		return Record{}, fmt.Errorf("decode amount_usd: %w", err)
	}
	if rec.NativeAmount, err = decimal.NewFromString(nativeAmount); err != nil {
		return Record{}, fmt.Errorf("decode native_amount: %w", err)
	}
	return rec, nil
}
