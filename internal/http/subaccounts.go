package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/formsigner/api/internal/subaccount"
)

// ListSubAccounts lists the authenticated account's sub-accounts.
func (h *Handler) ListSubAccounts(w http.ResponseWriter, r *http.Request) {
	if h.subAccounts == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "sub-accounts unavailable", nil)
		return
	}

	ownerID, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid subject", nil)
		return
	}

	subs, err := h.subAccounts.List(r.Context(), ownerID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "listing failed", nil)
		return
	}
	if subs == nil {
		subs = []subaccount.SubAccount{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"sub_accounts": subs})
}

// CreateSubAccount registers a sub-account under the authenticated account.
func (h *Handler) CreateSubAccount(w http.ResponseWriter, r *http.Request) {
	if h.subAccounts == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "sub-accounts unavailable", nil)
		return
	}

	ownerID, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid subject", nil)
		return
	}

	var body struct {
		Username    string                 `json:"username"`
		DisplayName string                 `json:"display_name"`
		Password    string                 `json:"password"`
		Permissions subaccount.Permissions `json:"permissions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", nil)
		return
	}

	sub, err := h.subAccounts.Create(r.Context(), subaccount.CreateInput{
		MainAccountID: ownerID,
		Username:      body.Username,
		DisplayName:   body.DisplayName,
		Password:      body.Password,
		Permissions:   body.Permissions,
	})
	if err != nil {
		if errors.Is(err, subaccount.ErrUsernameTaken) {
			WriteError(w, http.StatusConflict, "CONFLICT", "username already in use", nil)
			return
		}
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"sub_account": sub})
}

// UpdateSubAccount applies a partial update to one sub-account.
func (h *Handler) UpdateSubAccount(w http.ResponseWriter, r *http.Request) {
	if h.subAccounts == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "sub-accounts unavailable", nil)
		return
	}

	ownerID, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid subject", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid id", nil)
		return
	}

	var body struct {
		DisplayName *string                 `json:"display_name"`
		Active      *bool                   `json:"is_active"`
		Permissions *subaccount.Permissions `json:"permissions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", nil)
		return
	}

	sub, err := h.subAccounts.Update(r.Context(), subaccount.UpdateInput{
		ID:            id,
		MainAccountID: ownerID,
		DisplayName:   body.DisplayName,
		Active:        body.Active,
		Permissions:   body.Permissions,
	})
	if err != nil {
		if errors.Is(err, subaccount.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "sub-account not found", nil)
			return
		}
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"sub_account": sub})
}

// DeleteSubAccount removes one sub-account.
func (h *Handler) DeleteSubAccount(w http.ResponseWriter, r *http.Request) {
	if h.subAccounts == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "sub-accounts unavailable", nil)
		return
	}

	ownerID, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid subject", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid id", nil)
		return
	}

	if err := h.subAccounts.Delete(r.Context(), ownerID, id); err != nil {
		if errors.Is(err, subaccount.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "sub-account not found", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "delete failed", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ResetSubAccountPassword overwrites a sub-account's password hash.
func (h *Handler) ResetSubAccountPassword(w http.ResponseWriter, r *http.Request) {
	if h.subAccounts == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "sub-accounts unavailable", nil)
		return
	}

	ownerID, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid subject", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid id", nil)
		return
	}

	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", nil)
		return
	}

	if err := h.subAccounts.ResetPassword(r.Context(), ownerID, id, body.Password); err != nil {
		if errors.Is(err, subaccount.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "sub-account not found", nil)
			return
		}
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}
