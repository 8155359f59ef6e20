package document

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("document not found")
)

// Document is a generated PDF owned by a main account. Content travels
// base64-encoded, mirroring how the signing pipeline stores it.
type Document struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	FileName     string    `json:"file_name"`
	TemplateName string    `json:"template_name"`
	FormTitle    string    `json:"form_title"`
	SignerName   string    `json:"signer_name"`
	FileSize     int64     `json:"file_size"`
	PDFContent   string    `json:"pdf_content,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateInput carries a freshly generated PDF from the form-submission
// pipeline.
type CreateInput struct {
	UserID       uuid.UUID
	FileName     string
	TemplateName string
	FormTitle    string
	SignerName   string
	PDFContent   string
}

// Page is one page of documents plus the total for pagination UI.
type Page struct {
	Documents []Document `json:"documents"`
	Total     int64      `json:"total"`
	Page      int        `json:"page"`
	PageSize  int        `json:"page_size"`
}
