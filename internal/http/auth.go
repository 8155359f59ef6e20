package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/formsigner/api/internal/auth"
	httpmiddleware "github.com/formsigner/api/internal/http/middleware"
	"github.com/formsigner/api/internal/repo"
	"github.com/formsigner/api/internal/subaccount"
	"github.com/formsigner/api/internal/util"
)

// LoginMainAccount authenticates the account holder and issues an access JWT.
func (h *Handler) LoginMainAccount(w http.ResponseWriter, r *http.Request) {
	if h.accounts == nil || h.jwt == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "authentication unavailable", nil)
		return
	}

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", nil)
		return
	}

	if err := util.ValidateEmail(body.Email); err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid credentials", nil)
		return
	}

	account, err := h.accounts.GetMainAccountByEmail(r.Context(), body.Email)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			log.Warn().Err(err).Msg("login: account lookup failed")
		}
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid credentials", nil)
		return
	}

	ok, err := auth.Verify(body.Password, account.PasswordHash)
	if err != nil || !ok || !account.Active {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid credentials", nil)
		return
	}

	token, _, err := h.jwt.GenerateAccessToken(account.ID.String(), "formsigner", []string{"owner"})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "token generation failed", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"account": map[string]any{
			"id":    account.ID,
			"name":  account.Name,
			"email": account.Email,
		},
	})
}

// Me returns the authenticated main account.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	if h.accounts == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "accounts unavailable", nil)
		return
	}

	id, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid subject", nil)
		return
	}

	account, err := h.accounts.GetMainAccountByID(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "account not found", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"account": map[string]any{
			"id":     account.ID,
			"name":   account.Name,
			"email":  account.Email,
			"active": account.Active,
		},
	})
}

// SubAccountLogin runs the credential exchange: main-account e-mail plus
// sub-account username and password in, opaque session token out. Every
// failure class answers the same way.
func (h *Handler) SubAccountLogin(w http.ResponseWriter, r *http.Request) {
	if h.subAccounts == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "sessions unavailable", nil)
		return
	}

	var body struct {
		MainAccountEmail string `json:"main_account_email"`
		Username         string `json:"username"`
		Password         string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", nil)
		return
	}

	meta := subaccount.LoginMeta{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}

	session, err := h.subAccounts.Login(r.Context(), body.MainAccountEmail, body.Username, body.Password, meta)
	if err != nil {
		// Disabled accounts included: one answer for every failure.
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid credentials", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"session_token": session.Token,
		"sub_account":   session.SubAccount,
	})
}

// SubAccountMe echoes the session's sub-account record.
func (h *Handler) SubAccountMe(w http.ResponseWriter, r *http.Request) {
	sub := httpmiddleware.GetSubAccount(r.Context())
	if sub == nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid session", nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"sub_account": sub})
}

// SubAccountLogout revokes the presented session token.
func (h *Handler) SubAccountLogout(w http.ResponseWriter, r *http.Request) {
	if h.subAccounts == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "sessions unavailable", nil)
		return
	}

	token := ""
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		token = strings.TrimSpace(parts[1])
	}

	if err := h.subAccounts.Logout(r.Context(), token); err != nil {
		log.Warn().Err(err).Msg("subaccount logout failed")
	}
	WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func clientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	return r.RemoteAddr
}
