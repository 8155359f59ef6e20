package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/formsigner/api/internal/auth"
	"github.com/formsigner/api/internal/subaccount"
)

type contextKey string

const (
	ContextKeySubject    contextKey = "subject"
	ContextKeyAudience   contextKey = "audience"
	ContextKeySubAccount contextKey = "sub_account"
)

type sessionResolver interface {
	GetSession(ctx context.Context, rawToken string) (*subaccount.SubAccount, error)
}

// Auth validates a main-account access JWT and injects claims into the
// context.
func Auth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "AUTH", "missing token")
				return
			}

			claims, err := jwtManager.ParseAndValidate(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "invalid token")
				return
			}

			if len(claims.Audience) == 0 {
				writeError(w, http.StatusUnauthorized, "AUTH", "invalid audience")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySubject, claims.Subject)
			ctx = context.WithValue(ctx, ContextKeyAudience, claims.Audience[0])

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubAccountAuth resolves an opaque sub-account session token and injects the
// record into the context. Row scoping downstream always derives from this
// record's main_account_id, never from request input.
func SubAccountAuth(sessions sessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "AUTH", "missing token")
				return
			}

			sub, err := sessions.GetSession(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "invalid session")
				return
			}
			if !sub.Active {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "sub-account disabled")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySubAccount, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject returns the authenticated main-account subject.
func GetSubject(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeySubject).(string)
	return val
}

// GetAudience returns the token audience.
func GetAudience(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeyAudience).(string)
	return val
}

// GetSubAccount returns the authenticated sub-account record.
func GetSubAccount(ctx context.Context) *subaccount.SubAccount {
	val, _ := ctx.Value(ContextKeySubAccount).(*subaccount.SubAccount)
	return val
}

// RequirePDFAccess gates document routes on the pdf_access permission.
func RequirePDFAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub := GetSubAccount(r.Context())
		if sub == nil || !sub.Permissions.PDFAccess {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "pdf access not granted")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
