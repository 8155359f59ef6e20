package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries provides access to main-account rows.
type Queries struct {
	pool *pgxpool.Pool
}

// New creates the query layer over a pool.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

// GetMainAccountByEmail looks an account up by normalized e-mail.
func (q *Queries) GetMainAccountByEmail(ctx context.Context, email string) (MainAccount, error) {
	const query = `
        SELECT id, name, email, password_hash, active, created_at
        FROM main_accounts
        WHERE lower(email) = $1
    `
	return scanMainAccount(q.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))))
}

// GetMainAccountByID looks an account up by id.
func (q *Queries) GetMainAccountByID(ctx context.Context, id uuid.UUID) (MainAccount, error) {
	const query = `
        SELECT id, name, email, password_hash, active, created_at
        FROM main_accounts
        WHERE id = $1
    `
	return scanMainAccount(q.pool.QueryRow(ctx, query, id))
}

func scanMainAccount(row pgx.Row) (MainAccount, error) {
	var acc MainAccount
	if err := row.Scan(&acc.ID, &acc.Name, &acc.Email, &acc.PasswordHash, &acc.Active, &acc.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MainAccount{}, ErrNotFound
		}
		return MainAccount{}, err
	}
	return acc, nil
}
