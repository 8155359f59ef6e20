package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/formsigner/api/internal/document"
	httpmiddleware "github.com/formsigner/api/internal/http/middleware"
)

// CreateDocument ingests a generated PDF from the form-submission pipeline.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	if h.documents == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "documents unavailable", nil)
		return
	}

	ownerID, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid subject", nil)
		return
	}

	var body struct {
		FileName     string `json:"file_name"`
		TemplateName string `json:"template_name"`
		FormTitle    string `json:"form_title"`
		SignerName   string `json:"signer_name"`
		PDFContent   string `json:"pdf_content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", nil)
		return
	}

	doc, err := h.documents.Ingest(r.Context(), document.CreateInput{
		UserID:       ownerID,
		FileName:     body.FileName,
		TemplateName: body.TemplateName,
		FormTitle:    body.FormTitle,
		SignerName:   body.SignerName,
		PDFContent:   body.PDFContent,
	})
	if err != nil {
		if errors.Is(err, document.ErrInvalidContent) {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid pdf content", nil)
			return
		}
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"document": doc})
}

// ListDocuments pages through the main account's own documents.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	if h.documents == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "documents unavailable", nil)
		return
	}

	ownerID, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid subject", nil)
		return
	}

	h.writeDocumentPage(w, r, ownerID)
}

// ListSubAccountDocuments pages through the owning account's documents on
// behalf of a sub-account session. The owner always comes from the session
// record, never from the request.
func (h *Handler) ListSubAccountDocuments(w http.ResponseWriter, r *http.Request) {
	if h.documents == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "documents unavailable", nil)
		return
	}

	sub := httpmiddleware.GetSubAccount(r.Context())
	if sub == nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid session", nil)
		return
	}

	h.writeDocumentPage(w, r, sub.MainAccountID)
}

// GetSubAccountDocument fetches one document with content for a sub-account
// session. Cross-account ids answer 404.
func (h *Handler) GetSubAccountDocument(w http.ResponseWriter, r *http.Request) {
	if h.documents == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "documents unavailable", nil)
		return
	}

	sub := httpmiddleware.GetSubAccount(r.Context())
	if sub == nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid session", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid id", nil)
		return
	}

	doc, err := h.documents.Get(r.Context(), sub.MainAccountID, id)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "document not found", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "fetch failed", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"document": doc})
}

func (h *Handler) writeDocumentPage(w http.ResponseWriter, r *http.Request, ownerID uuid.UUID) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			page = parsed
		}
	}

	result, err := h.documents.ListPage(r.Context(), ownerID, page)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "listing failed", nil)
		return
	}
	if result.Documents == nil {
		result.Documents = []document.Document{}
	}

	WriteJSON(w, http.StatusOK, result)
}
