// Package postgres persists the pool state in PostgreSQL over the pgx stdlib
// driver. Multi-write operations run inside one transaction carried through
// the context by pkg/platform/tx, so no partial-operation state is ever
// persisted.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"givepool/internal/pool/models"
	"givepool/pkg/domain"
	"givepool/pkg/platform/sentinel"
	txcontext "givepool/pkg/platform/tx"
)

const uniqueViolation = "23505"

// Schema creates the pool tables. Idempotent; applied at startup.
const Schema = `
CREATE TABLE IF NOT EXISTS beneficiaries (
    id                 TEXT PRIMARY KEY,
    allocation_percent INTEGER NOT NULL CHECK (allocation_percent BETWEEN 1 AND 100),
    active             BOOLEAN NOT NULL,
    balance            BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
    position           INTEGER NOT NULL,
    registered_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS donations (
    idx        BIGINT PRIMARY KEY,
    donor      TEXT NOT NULL,
    amount     BIGINT NOT NULL CHECK (amount > 0),
    donated_at TIMESTAMPTZ NOT NULL,
    processed  BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS pool_totals (
    id             SMALLINT PRIMARY KEY CHECK (id = 1),
    total_received BIGINT NOT NULL,
    donation_count BIGINT NOT NULL
);

INSERT INTO pool_totals (id, total_received, donation_count)
    VALUES (1, 0, 0)
    ON CONFLICT (id) DO NOTHING;
`

// Open connects via the pgx stdlib driver and applies the schema.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// Store implements store.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) execer(ctx context.Context) txcontext.Executor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) InsertBeneficiary(ctx context.Context, b *models.Beneficiary) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO beneficiaries (id, allocation_percent, active, balance, position, registered_at)
		VALUES ($1, $2, $3, 0, (SELECT COUNT(*) FROM beneficiaries), $4)`,
		b.ID.String(), b.AllocationPercent, b.Active, b.RegisteredAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert beneficiary: %w", err)
	}
	return nil
}

func (s *Store) UpdateBeneficiary(ctx context.Context, b *models.Beneficiary) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE beneficiaries SET allocation_percent = $2, active = $3 WHERE id = $1`,
		b.ID.String(), b.AllocationPercent, b.Active,
	)
	if err != nil {
		return fmt.Errorf("update beneficiary: %w", err)
	}
	return requireRow(res)
}

func (s *Store) GetBeneficiary(ctx context.Context, id domain.PrincipalID) (*models.Beneficiary, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, allocation_percent, active, balance, position, registered_at
		FROM beneficiaries WHERE id = $1`, id.String(),
	)
	b, err := scanBeneficiary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get beneficiary: %w", err)
	}
	return b, nil
}

func (s *Store) ListBeneficiaries(ctx context.Context) ([]*models.Beneficiary, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, allocation_percent, active, balance, position, registered_at
		FROM beneficiaries ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("list beneficiaries: %w", err)
	}
	defer rows.Close()

	var out []*models.Beneficiary
	for rows.Next() {
		b, err := scanBeneficiary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan beneficiary: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) CountBeneficiaries(ctx context.Context) (int, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM beneficiaries`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count beneficiaries: %w", err)
	}
	return count, nil
}

func (s *Store) Credit(ctx context.Context, id domain.PrincipalID, amount int64) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE beneficiaries SET balance = balance + $2 WHERE id = $1`,
		id.String(), amount,
	)
	if err != nil {
		return fmt.Errorf("credit: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DebitAll(ctx context.Context, id domain.PrincipalID) (int64, error) {
	var prior int64
	err := s.execer(ctx).QueryRowContext(ctx, `
		UPDATE beneficiaries b SET balance = 0
		FROM (SELECT id, balance FROM beneficiaries WHERE id = $1 FOR UPDATE) old
		WHERE b.id = old.id
		RETURNING old.balance`, id.String(),
	).Scan(&prior)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, sentinel.ErrNotFound
		}
		return 0, fmt.Errorf("debit: %w", err)
	}
	return prior, nil
}

func (s *Store) Balance(ctx context.Context, id domain.PrincipalID) (int64, error) {
	var balance int64
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT balance FROM beneficiaries WHERE id = $1`, id.String(),
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("balance: %w", err)
	}
	return balance, nil
}

func (s *Store) AppendDonation(ctx context.Context, record models.DonationRecord) (int64, error) {
	execer := s.execer(ctx)

	// The totals row is the index allocator; locking it serializes appends.
	var index int64
	err := execer.QueryRowContext(ctx, `
		SELECT donation_count FROM pool_totals WHERE id = 1 FOR UPDATE`,
	).Scan(&index)
	if err != nil {
		return 0, fmt.Errorf("lock totals: %w", err)
	}

	_, err = execer.ExecContext(ctx, `
		INSERT INTO donations (idx, donor, amount, donated_at, processed)
		VALUES ($1, $2, $3, $4, $5)`,
		index, record.Donor.String(), record.Amount, record.Timestamp, record.Processed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert donation: %w", err)
	}

	_, err = execer.ExecContext(ctx, `
		UPDATE pool_totals SET total_received = total_received + $1, donation_count = donation_count + 1
		WHERE id = 1`, record.Amount,
	)
	if err != nil {
		return 0, fmt.Errorf("update totals: %w", err)
	}
	return index, nil
}

func (s *Store) GetDonation(ctx context.Context, index int64) (models.DonationRecord, error) {
	var (
		record models.DonationRecord
		donor  string
	)
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT idx, donor, amount, donated_at, processed FROM donations WHERE idx = $1`, index,
	).Scan(&record.Index, &donor, &record.Amount, &record.Timestamp, &record.Processed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DonationRecord{}, sentinel.ErrNotFound
		}
		return models.DonationRecord{}, fmt.Errorf("get donation: %w", err)
	}
	record.Donor = domain.PrincipalID(donor)
	return record, nil
}

func (s *Store) Totals(ctx context.Context) (models.Totals, error) {
	var totals models.Totals
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT total_received, donation_count FROM pool_totals WHERE id = 1`,
	).Scan(&totals.TotalReceived, &totals.DonationCount)
	if err != nil {
		return models.Totals{}, fmt.Errorf("totals: %w", err)
	}
	return totals, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBeneficiary(row rowScanner) (*models.Beneficiary, error) {
	var (
		b  models.Beneficiary
		id string
	)
	if err := row.Scan(&id, &b.AllocationPercent, &b.Active, &b.Balance, &b.Position, &b.RegisteredAt); err != nil {
		return nil, err
	}
	b.ID = domain.PrincipalID(id)
	return &b, nil
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
