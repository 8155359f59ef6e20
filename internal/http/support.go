package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httpmiddleware "github.com/formsigner/api/internal/http/middleware"
	"github.com/formsigner/api/internal/support"
)

// CreateTicket opens a support ticket for the authenticated main account.
func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	if h.support == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "support unavailable", nil)
		return
	}

	accountID, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid subject", nil)
		return
	}

	var body struct {
		Subject  string `json:"subject"`
		Category string `json:"category"`
		Body     string `json:"body"`
		Priority string `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", nil)
		return
	}

	ticket, err := h.support.CreateTicket(r.Context(), support.CreateTicketInput{
		AccountID: accountID,
		Subject:   body.Subject,
		Category:  body.Category,
		Body:      body.Body,
		Priority:  body.Priority,
	})
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"ticket": ticket})
}

// ListTickets lists the main account's tickets.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	accountID, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid subject", nil)
		return
	}
	h.writeTicketList(w, r, accountID)
}

// GetTicket fetches one ticket scoped to the account.
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	if h.support == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "support unavailable", nil)
		return
	}

	accountID, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid subject", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid id", nil)
		return
	}

	ticket, err := h.support.GetTicket(r.Context(), accountID, id)
	if err != nil {
		if errors.Is(err, support.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "ticket not found", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "fetch failed", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"ticket": ticket})
}

// ListTicketMessages lists a ticket's messages for the main account.
func (h *Handler) ListTicketMessages(w http.ResponseWriter, r *http.Request) {
	accountID, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid subject", nil)
		return
	}
	h.writeTicketMessages(w, r, accountID)
}

// AddTicketMessage appends an account-authored message.
func (h *Handler) AddTicketMessage(w http.ResponseWriter, r *http.Request) {
	if h.support == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "support unavailable", nil)
		return
	}

	accountID, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid subject", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid id", nil)
		return
	}

	if _, err := h.support.GetTicket(r.Context(), accountID, id); err != nil {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "ticket not found", nil)
		return
	}

	var body struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", nil)
		return
	}

	author := accountID
	msg, err := h.support.AddMessage(r.Context(), support.CreateMessageInput{
		TicketID:   id,
		AuthorType: support.AuthorAccount,
		AuthorID:   &author,
		Body:       body.Body,
	})
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"message": msg})
}

// MarkTicketRead bumps the server-side read marker for the main account.
func (h *Handler) MarkTicketRead(w http.ResponseWriter, r *http.Request) {
	accountID, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid subject", nil)
		return
	}
	h.markTicketRead(w, r, accountID)
}

// ListSubAccountTickets lists the owning account's tickets for a sub-account
// session.
func (h *Handler) ListSubAccountTickets(w http.ResponseWriter, r *http.Request) {
	sub := httpmiddleware.GetSubAccount(r.Context())
	if sub == nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid session", nil)
		return
	}
	h.writeTicketList(w, r, sub.MainAccountID)
}

// ListSubAccountTicketMessages lists a ticket's messages for a sub-account
// session.
func (h *Handler) ListSubAccountTicketMessages(w http.ResponseWriter, r *http.Request) {
	sub := httpmiddleware.GetSubAccount(r.Context())
	if sub == nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid session", nil)
		return
	}
	h.writeTicketMessages(w, r, sub.MainAccountID)
}

// MarkSubAccountTicketRead bumps the read marker on behalf of a sub-account.
func (h *Handler) MarkSubAccountTicketRead(w http.ResponseWriter, r *http.Request) {
	sub := httpmiddleware.GetSubAccount(r.Context())
	if sub == nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid session", nil)
		return
	}
	h.markTicketRead(w, r, sub.MainAccountID)
}

func (h *Handler) writeTicketList(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) {
	if h.support == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "support unavailable", nil)
		return
	}

	tickets, err := h.support.ListTickets(r.Context(), accountID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "listing failed", nil)
		return
	}
	if tickets == nil {
		tickets = []support.Ticket{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"tickets": tickets})
}

func (h *Handler) writeTicketMessages(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) {
	if h.support == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "support unavailable", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid id", nil)
		return
	}

	messages, err := h.support.ListMessages(r.Context(), accountID, id)
	if err != nil {
		if errors.Is(err, support.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "ticket not found", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "listing failed", nil)
		return
	}
	if messages == nil {
		messages = []support.Message{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *Handler) markTicketRead(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) {
	if h.support == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "support unavailable", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid id", nil)
		return
	}

	ticket, err := h.support.MarkRead(r.Context(), accountID, id)
	if err != nil {
		if errors.Is(err, support.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "ticket not found", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "mark read failed", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"ticket": ticket})
}
