package subaccount

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository abstracts sub-account persistence. Two implementations exist:
// the PostgreSQL repository and a local-fallback store used when the backend
// table is unreachable.
type Repository interface {
	Create(ctx context.Context, sub SubAccount) (*SubAccount, error)
	GetByID(ctx context.Context, id uuid.UUID) (*SubAccount, error)
	GetByUsername(ctx context.Context, mainAccountID uuid.UUID, username string) (*SubAccount, error)
	ListByMainAccount(ctx context.Context, mainAccountID uuid.UUID) ([]SubAccount, error)
	Update(ctx context.Context, input UpdateInput) (*SubAccount, error)
	Delete(ctx context.Context, mainAccountID, id uuid.UUID) error
	SetPasswordHash(ctx context.Context, mainAccountID, id uuid.UUID, hash string) error
	SetLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// PostgresRepository provides access to the sub_accounts table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const subAccountColumns = `id, main_account_id, username, display_name, password_hash, is_active, pdf_access, download_only, last_login_at, created_at, updated_at`

// Create inserts a new sub-account.
func (r *PostgresRepository) Create(ctx context.Context, sub SubAccount) (*SubAccount, error) {
	const query = `
        INSERT INTO sub_accounts (id, main_account_id, username, display_name, password_hash, is_active, pdf_access, download_only)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING ` + subAccountColumns + `
    `

	row := r.pool.QueryRow(ctx, query,
		sub.ID,
		sub.MainAccountID,
		strings.TrimSpace(sub.Username),
		strings.TrimSpace(sub.DisplayName),
		sub.PasswordHash,
		sub.Active,
		sub.Permissions.PDFAccess,
		sub.Permissions.DownloadOnly,
	)

	created, err := scanSubAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return created, nil
}

// GetByID fetches one sub-account.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*SubAccount, error) {
	const query = `
        SELECT ` + subAccountColumns + `
        FROM sub_accounts
        WHERE id = $1
    `
	return scanSubAccount(r.pool.QueryRow(ctx, query, id))
}

// GetByUsername fetches a sub-account by owner and username.
func (r *PostgresRepository) GetByUsername(ctx context.Context, mainAccountID uuid.UUID, username string) (*SubAccount, error) {
	const query = `
        SELECT ` + subAccountColumns + `
        FROM sub_accounts
        WHERE main_account_id = $1 AND lower(username) = $2
    `
	return scanSubAccount(r.pool.QueryRow(ctx, query, mainAccountID, strings.ToLower(strings.TrimSpace(username))))
}

// ListByMainAccount lists all sub-accounts owned by one account.
func (r *PostgresRepository) ListByMainAccount(ctx context.Context, mainAccountID uuid.UUID) ([]SubAccount, error) {
	const query = `
        SELECT ` + subAccountColumns + `
        FROM sub_accounts
        WHERE main_account_id = $1
        ORDER BY created_at DESC
    `

	rows, err := r.pool.Query(ctx, query, mainAccountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []SubAccount
	for rows.Next() {
		sub, err := scanSubAccount(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return subs, nil
}

// Update applies partial changes to display name, active flag and permissions.
func (r *PostgresRepository) Update(ctx context.Context, input UpdateInput) (*SubAccount, error) {
	setParts := []string{}
	args := []any{}
	idx := 1

	if input.DisplayName != nil {
		setParts = append(setParts, fmt.Sprintf("display_name = $%d", idx))
		args = append(args, strings.TrimSpace(*input.DisplayName))
		idx++
	}
	if input.Active != nil {
		setParts = append(setParts, fmt.Sprintf("is_active = $%d", idx))
		args = append(args, *input.Active)
		idx++
	}
	if input.Permissions != nil {
		setParts = append(setParts, fmt.Sprintf("pdf_access = $%d", idx))
		args = append(args, input.Permissions.PDFAccess)
		idx++
		setParts = append(setParts, fmt.Sprintf("download_only = $%d", idx))
		args = append(args, input.Permissions.DownloadOnly)
		idx++
	}

	if len(setParts) == 0 {
		sub, err := r.GetByID(ctx, input.ID)
		if err != nil {
			return nil, err
		}
		if sub.MainAccountID != input.MainAccountID {
			return nil, ErrNotFound
		}
		return sub, nil
	}

	setParts = append(setParts, "updated_at = now()")

	args = append(args, input.ID, input.MainAccountID)
	query := fmt.Sprintf(`
        UPDATE sub_accounts
        SET %s
        WHERE id = $%d AND main_account_id = $%d
        RETURNING %s
    `, strings.Join(setParts, ", "), idx, idx+1, subAccountColumns)

	return scanSubAccount(r.pool.QueryRow(ctx, query, args...))
}

// Delete removes a sub-account owned by the given account.
func (r *PostgresRepository) Delete(ctx context.Context, mainAccountID, id uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM sub_accounts WHERE id = $1 AND main_account_id = $2`, id, mainAccountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPasswordHash overwrites the stored hash. No history is kept.
func (r *PostgresRepository) SetPasswordHash(ctx context.Context, mainAccountID, id uuid.UUID, hash string) error {
	cmd, err := r.pool.Exec(ctx, `
        UPDATE sub_accounts SET password_hash = $1, updated_at = now()
        WHERE id = $2 AND main_account_id = $3
    `, hash, id, mainAccountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetLastLogin records a successful credential exchange.
func (r *PostgresRepository) SetLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE sub_accounts SET last_login_at = $1 WHERE id = $2`, at, id)
	return err
}

func scanSubAccount(row pgx.Row) (*SubAccount, error) {
	var s SubAccount
	err := row.Scan(
		&s.ID,
		&s.MainAccountID,
		&s.Username,
		&s.DisplayName,
		&s.PasswordHash,
		&s.Active,
		&s.Permissions.PDFAccess,
		&s.Permissions.DownloadOnly,
		&s.LastLoginAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
