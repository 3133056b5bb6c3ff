// Package pg backs the authcore account store with PostgreSQL through
// database/sql and the pgx stdlib driver.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	authcore "github.com/ForwardAfrica/authcore"
	"github.com/ForwardAfrica/authcore/permission"
)

// Schema is the table the store runs against. EnsureSchema applies it;
// deployments with managed migrations can apply it themselves.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id               TEXT PRIMARY KEY,
	identifier       TEXT NOT NULL UNIQUE,
	password_hash    TEXT NOT NULL,
	role             TEXT NOT NULL,
	overrides        TEXT NOT NULL DEFAULT '',
	active           BOOLEAN NOT NULL DEFAULT TRUE,
	failed_attempts  INTEGER NOT NULL DEFAULT 0,
	last_failure_at  TIMESTAMPTZ,
	refresh_token_id TEXT,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
)`

const selectColumns = `id, identifier, password_hash, role, overrides, active,
	failed_attempts, last_failure_at, refresh_token_id, created_at, updated_at`

// Store is a PostgreSQL-backed AccountStore. The refresh pointer swap
// runs as one conditional UPDATE, so rotation races resolve in the
// database.
type Store struct {
	db *sql.DB
}

// Open connects with the pgx stdlib driver and pings the database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ authcore.AccountStore = (*Store)(nil)

// EnsureSchema creates the accounts table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

// Close closes the underlying handle.
func (s *Store) Close() error { return s.db.Close() }

func scanAccount(row *sql.Row) (*authcore.Account, error) {
	var (
		a         authcore.Account
		role      string
		overrides string
		lastFail  sql.NullTime
		refreshID sql.NullString
	)
	err := row.Scan(&a.ID, &a.Identifier, &a.PasswordHash, &role, &overrides, &a.Active,
		&a.FailedAttempts, &lastFail, &refreshID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authcore.ErrAccountNotFound
		}
		return nil, err
	}
	a.Role = authcore.Role(role)
	a.Overrides = permission.NormalizeOverrides(overrides)
	if lastFail.Valid {
		a.LastFailureAt = lastFail.Time
	}
	if refreshID.Valid {
		a.RefreshTokenID = refreshID.String
	}
	return &a, nil
}

func (s *Store) AccountByIdentifier(ctx context.Context, identifier string) (*authcore.Account, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM accounts WHERE identifier = $1`, identifier)
	return scanAccount(row)
}

func (s *Store) AccountByID(ctx context.Context, id string) (*authcore.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (s *Store) CreateAccount(ctx context.Context, account *authcore.Account) error {
	identifier := strings.ToLower(strings.TrimSpace(account.Identifier))
	overrides := strings.Join(permission.NormalizeOverrideStrings(account.Overrides), ",")
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts
			(id, identifier, password_hash, role, overrides, active,
			 failed_attempts, last_failure_at, refresh_token_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		account.ID, identifier, account.PasswordHash, string(account.Role), overrides,
		account.Active, account.FailedAttempts, nullTime(account.LastFailureAt),
		nullString(account.RefreshTokenID), account.CreatedAt, account.UpdatedAt)
	return err
}

func (s *Store) UpdateFailureState(ctx context.Context, id string, count int, last time.Time) error {
	return s.exec(ctx,
		`UPDATE accounts SET failed_attempts = $2, last_failure_at = $3, updated_at = now()
		 WHERE id = $1`, id, count, nullTime(last))
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return s.exec(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
}

func (s *Store) SetRefreshPointer(ctx context.Context, id, refreshID string) error {
	return s.exec(ctx,
		`UPDATE accounts SET refresh_token_id = $2, updated_at = now() WHERE id = $1`,
		id, nullString(refreshID))
}

// SwapRefreshPointer is a conditional UPDATE: the row changes only when
// the stored pointer still equals expected, and the affected-row count
// says whether this caller won.
func (s *Store) SwapRefreshPointer(ctx context.Context, id, expected, next string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET refresh_token_id = $3, updated_at = now()
		 WHERE id = $1 AND refresh_token_id = $2`, id, expected, nullString(next))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	// Distinguish a lost race from a missing account.
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, authcore.ErrAccountNotFound
	}
	return false, nil
}

func (s *Store) ClearRefreshPointer(ctx context.Context, id string) error {
	return s.exec(ctx,
		`UPDATE accounts SET refresh_token_id = NULL, updated_at = now() WHERE id = $1`, id)
}

func (s *Store) UpdateRole(ctx context.Context, id string, role authcore.Role, overrides []string) error {
	joined := strings.Join(permission.NormalizeOverrideStrings(overrides), ",")
	return s.exec(ctx,
		`UPDATE accounts SET role = $2, overrides = $3, updated_at = now() WHERE id = $1`,
		id, string(role), joined)
}

func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	return s.exec(ctx,
		`UPDATE accounts SET active = $2, updated_at = now() WHERE id = $1`, id, active)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return authcore.ErrAccountNotFound
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
