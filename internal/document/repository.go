package document

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides access to the documents table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const documentColumns = `id, user_id, file_name, template_name, form_title, signer_name, file_size, pdf_content, created_at`

// Create inserts a generated PDF.
func (r *Repository) Create(ctx context.Context, input CreateInput, size int64) (*Document, error) {
	const query = `
        INSERT INTO documents (id, user_id, file_name, template_name, form_title, signer_name, file_size, pdf_content)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING ` + documentColumns + `
    `

	row := r.pool.QueryRow(ctx, query,
		uuid.New(),
		input.UserID,
		strings.TrimSpace(input.FileName),
		strings.TrimSpace(input.TemplateName),
		strings.TrimSpace(input.FormTitle),
		strings.TrimSpace(input.SignerName),
		size,
		input.PDFContent,
	)

	return scanDocument(row)
}

// CountByOwner counts all documents owned by one account.
func (r *Repository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM documents WHERE user_id = $1`, ownerID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// ListByOwner returns one page of documents, newest first. Content is not
// included; it is fetched per document on view/download.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Document, error) {
	const query = `
        SELECT id, user_id, file_name, template_name, form_title, signer_name, file_size, '' AS pdf_content, created_at
        FROM documents
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `

	rows, err := r.pool.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return docs, nil
}

// GetByOwner fetches one document scoped to its owner. A cross-account id
// reads as not found.
func (r *Repository) GetByOwner(ctx context.Context, ownerID, id uuid.UUID) (*Document, error) {
	const query = `
        SELECT ` + documentColumns + `
        FROM documents
        WHERE id = $1 AND user_id = $2
    `
	return scanDocument(r.pool.QueryRow(ctx, query, id, ownerID))
}

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.FileName,
		&d.TemplateName,
		&d.FormTitle,
		&d.SignerName,
		&d.FileSize,
		&d.PDFContent,
		&d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}
