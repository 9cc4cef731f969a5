// Package rest exposes the storefront state over HTTP.
package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/sabowaryan/sabowaryantech/internal/catalog"
	"github.com/sabowaryan/sabowaryantech/internal/order"
	"github.com/sabowaryan/sabowaryantech/internal/platform/web"
	"github.com/sabowaryan/sabowaryantech/internal/session"
	"github.com/sabowaryan/sabowaryantech/internal/shopper"
	"github.com/sabowaryan/sabowaryantech/internal/validation"
)

// Shoppers resolves the state of a client.
type Shoppers interface {
	Get(ctx context.Context, clientID string) *shopper.Shopper
}

// Authenticator checks login forms.
type Authenticator interface {
	// Authenticate returns the user matching form.
	// Returns session.ErrInvalidCredentials if the email or password is wrong.
	Authenticate(ctx context.Context, form session.LoginForm) (session.User, error)
}

// TokenIssuer mints and verifies session tokens.
type TokenIssuer interface {
	Issue(user session.User) (session.Session, error)
	// Verify parses an access token.
	// Returns session.ErrInvalidToken if the token does not verify.
	Verify(token string) (*session.Claims, error)
	// Refresh exchanges a refresh token for a new session.
	// Returns session.ErrInvalidToken if the refresh token does not verify.
	Refresh(refreshToken string) (session.User, session.Session, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of Handler. Health may be nil.
type Deps struct {
	Catalog  *catalog.Catalog
	Shoppers Shoppers
	Auth     Authenticator
	Tokens   TokenIssuer
	Orders   *order.Drafter
	Health   Pinger
}

type Handler struct {
	Deps
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates the storefront HTTP handler.
func NewHandler(deps Deps, logger *slog.Logger) *Handler {
	return &Handler{
		Deps:     deps,
		validate: validation.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the storefront routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/facets", h.Facets)
			r.Get("/{id}", h.FindProduct)
		})

		r.Group(func(r chi.Router) {
			r.Use(web.ClientIdentifier)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Delete("/", h.ClearCart)
				r.With(h.RequireAccessToken).Get("/order-draft", h.DraftOrder)
				r.Post("/items", h.AddCartItem)
				r.Put("/items/{id}", h.UpdateCartItem)
				r.Delete("/items/{id}", h.RemoveCartItem)
			})

			r.Route("/compare", func(r chi.Router) {
				r.Get("/", h.GetCompare)
				r.Delete("/", h.ClearCompare)
				r.Post("/{id}/toggle", h.ToggleCompare)
			})

			r.Route("/session", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Post("/login", h.Login)
				r.Post("/logout", h.Logout)
				r.Post("/refresh", h.Refresh)
			})

			r.Route("/preferences", func(r chi.Router) {
				r.Get("/", h.GetPreferences)
				r.Patch("/", h.UpdatePreferences)
				r.Post("/theme", h.SetTheme)
				r.Post("/sidebar/toggle", h.ToggleSidebar)
			})
		})
	})
	r.Get("/healthz", h.HealthCheck)
}

// HealthCheck reports 503 while the storage backend is unreachable.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health.Ping(r.Context()); err != nil {
			h.loggerWithReqID(r).WarnContext(r.Context(), "Health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

// shopper returns the state of the calling client.
func (h *Handler) shopper(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*shopper.Shopper, bool) {
	clientID, ok := web.GetClientID(r.Context())
	if !ok {
		logger.ErrorContext(r.Context(), "Client id missing from context")
		web.RespondError(w, logger, http.StatusBadRequest, "Missing client id")
		return nil, false
	}
	return h.Shoppers.Get(r.Context(), clientID.String()), true
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
