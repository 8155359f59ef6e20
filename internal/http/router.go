package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/formsigner/api/internal/auth"
	"github.com/formsigner/api/internal/config"
	"github.com/formsigner/api/internal/document"
	httpmiddleware "github.com/formsigner/api/internal/http/middleware"
	"github.com/formsigner/api/internal/realtime"
	"github.com/formsigner/api/internal/repo"
	"github.com/formsigner/api/internal/subaccount"
	"github.com/formsigner/api/internal/support"
)

// Handler bundles the services behind the HTTP API. Nil services mean the
// feature degraded to unavailable (backend not reachable at startup).
type Handler struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	redis         *redis.Client
	jwt           *auth.JWTManager
	accounts      *repo.Queries
	subAccounts   *subaccount.Service
	documents     *document.Service
	support       *support.Service
	broker        *realtime.Broker
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
}

// Deps carries the constructed services into the router.
type Deps struct {
	Pool        *pgxpool.Pool
	Redis       *redis.Client
	JWT         *auth.JWTManager
	Accounts    *repo.Queries
	SubAccounts *subaccount.Service
	Documents   *document.Service
	Support     *support.Service
	Broker      *realtime.Broker
}

// NewRouter wires middleware and routes.
func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	h := &Handler{
		cfg:           cfg,
		pool:          deps.Pool,
		redis:         deps.Redis,
		jwt:           deps.JWT,
		accounts:      deps.Accounts,
		subAccounts:   deps.SubAccounts,
		documents:     deps.Documents,
		support:       deps.Support,
		broker:        deps.Broker,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)

		public.Post("/api/v1/auth/login", h.LoginMainAccount)
		public.Post("/api/v1/subaccount/login", h.SubAccountLogin)
	})

	r.Route("/api/v1/subaccount", func(sub chi.Router) {
		sub.Use(httpmiddleware.SubAccountAuth(h.subAccounts))
		sub.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		sub.Get("/me", h.SubAccountMe)
		sub.Post("/logout", h.SubAccountLogout)

		sub.Group(func(docs chi.Router) {
			docs.Use(httpmiddleware.RequirePDFAccess)
			docs.Get("/documents", h.ListSubAccountDocuments)
			docs.Get("/documents/{id}", h.GetSubAccountDocument)
		})

		sub.Get("/tickets", h.ListSubAccountTickets)
		sub.Get("/tickets/{id}/messages", h.ListSubAccountTicketMessages)
		sub.Post("/tickets/{id}/read", h.MarkSubAccountTicketRead)
		sub.Get("/notifications/stream", h.SubAccountNotificationStream)
	})

	r.Route("/api/v1", func(private chi.Router) {
		private.Use(httpmiddleware.Auth(h.jwt))
		private.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		private.Get("/me", h.Me)

		private.Route("/subaccounts", func(s chi.Router) {
			s.Get("/", h.ListSubAccounts)
			s.Post("/", h.CreateSubAccount)
			s.Patch("/{id}", h.UpdateSubAccount)
			s.Delete("/{id}", h.DeleteSubAccount)
			s.Post("/{id}/password", h.ResetSubAccountPassword)
		})

		private.Post("/documents", h.CreateDocument)
		private.Get("/documents", h.ListDocuments)

		private.Route("/tickets", func(t chi.Router) {
			t.Get("/", h.ListTickets)
			t.Post("/", h.CreateTicket)
			t.Get("/{id}", h.GetTicket)
			t.Get("/{id}/messages", h.ListTicketMessages)
			t.Post("/{id}/messages", h.AddTicketMessage)
			t.Post("/{id}/read", h.MarkTicketRead)
		})
	})

	return r
}

// Health answers a static liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// Ready checks the backing stores.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.pool != nil {
		if err := h.pool.Ping(ctx); err != nil {
			WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "database unreachable", nil)
			return
		}
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "redis unreachable", nil)
			return
		}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// subjectUUID parses the authenticated main-account subject.
func (h *Handler) subjectUUID(r *http.Request) (uuid.UUID, error) {
	subject := httpmiddleware.GetSubject(r.Context())
	if subject == "" {
		return uuid.Nil, errors.New("missing subject")
	}
	return uuid.Parse(subject)
}
