package document

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/formsigner/api/internal/storage"
	"github.com/formsigner/api/internal/util"
)

var (
	ErrInvalidContent = errors.New("invalid pdf content")
)

type repository interface {
	Create(ctx context.Context, input CreateInput, size int64) (*Document, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Document, error)
	GetByOwner(ctx context.Context, ownerID, id uuid.UUID) (*Document, error)
}

// Service handles document ingestion and owner-scoped reads.
type Service struct {
	repo     repository
	pageSize int
	archive  storage.Uploader
}

// NewService creates the service. archive may be a NoopUploader.
func NewService(repo repository, pageSize int, archive storage.Uploader) *Service {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Service{repo: repo, pageSize: pageSize, archive: archive}
}

// PageSize exposes the fixed page size used for listings.
func (s *Service) PageSize() int {
	return s.pageSize
}

// Ingest stores a generated PDF coming from the form-submission pipeline and
// archives a copy when an uploader is configured.
func (s *Service) Ingest(ctx context.Context, input CreateInput) (*Document, error) {
	if err := util.RequireString(input.FileName, "file_name"); err != nil {
		return nil, err
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(input.PDFContent))
	if err != nil || len(decoded) == 0 {
		return nil, ErrInvalidContent
	}
	input.PDFContent = strings.TrimSpace(input.PDFContent)

	doc, err := s.repo.Create(ctx, input, int64(len(decoded)))
	if err != nil {
		return nil, err
	}

	if s.archive != nil {
		key := "documents/" + doc.UserID.String() + "/" + doc.ID.String() + ".pdf"
		if _, err := s.archive.Upload(ctx, storage.UploadInput{
			Key:         key,
			Body:        decoded,
			ContentType: "application/pdf",
		}); err != nil {
			// Archive copies are best effort; the row is the source of truth.
			log.Warn().Err(err).Str("document_id", doc.ID.String()).Msg("document archive failed")
		}
	}

	return doc, nil
}

// ListPage returns one page of documents owned by ownerID, newest first,
// plus the total count for pagination.
func (s *Service) ListPage(ctx context.Context, ownerID uuid.UUID, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}

	total, err := s.repo.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	docs, err := s.repo.ListByOwner(ctx, ownerID, s.pageSize, (page-1)*s.pageSize)
	if err != nil {
		return nil, err
	}

	return &Page{Documents: docs, Total: total, Page: page, PageSize: s.pageSize}, nil
}

// Get fetches one document with content, scoped to its owner.
func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*Document, error) {
	return s.repo.GetByOwner(ctx, ownerID, id)
}

// Decode turns the stored base64 content back into raw PDF bytes.
func Decode(doc *Document) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(doc.PDFContent)
	if err != nil {
		return nil, ErrInvalidContent
	}
	return decoded, nil
}

// DataURL builds the inline representation used to open a document in a new
// browsing context.
func DataURL(doc *Document) string {
	return "data:application/pdf;base64," + doc.PDFContent
}
