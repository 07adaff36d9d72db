package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veloracart/velora/internal/cache"
	"github.com/veloracart/velora/internal/config"
	"github.com/veloracart/velora/internal/db"
	"github.com/veloracart/velora/internal/logging"
	"github.com/veloracart/velora/internal/services"
	"github.com/veloracart/velora/internal/session"
)

const maxWebhookBodyBytes = 1 << 20 // 1 MB

const maxJSONBodyBytes = 64 << 10

// Handlers provides HTTP request handlers for the Velora storefront and
// admin APIs.
type Handlers struct {
	config            *config.Config
	db                *pgxpool.Pool
	cacheProvider     cache.Provider
	stripeRouter      *StripeEventRouter
	authService       *services.AuthService
	checkoutService   *services.CheckoutService
	deliveryService   *services.DeliveryService
	adminOrderService *services.AdminOrderService
	viewService       *services.OrderViewService
	storefrontService *services.StorefrontService
	catalogService    *services.CatalogService
	userStore         *db.UserStore
	sessionManager    *session.Manager
	logger            *slog.Logger
}

type Dependencies struct {
	Config            *config.Config
	DB                *pgxpool.Pool
	CacheProvider     cache.Provider
	StripeRouter      *StripeEventRouter
	AuthService       *services.AuthService
	CheckoutService   *services.CheckoutService
	DeliveryService   *services.DeliveryService
	AdminOrderService *services.AdminOrderService
	ViewService       *services.OrderViewService
	StorefrontService *services.StorefrontService
	CatalogService    *services.CatalogService
	UserStore         *db.UserStore
	SessionManager    *session.Manager
	Logger            *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.CacheProvider == nil {
		return nil, fmt.Errorf("handlers dependencies: cacheProvider is required")
	}
	if deps.StripeRouter == nil {
		return nil, fmt.Errorf("handlers dependencies: stripeRouter is required")
	}
	if deps.AuthService == nil {
		return nil, fmt.Errorf("handlers dependencies: authService is required")
	}
	if deps.CheckoutService == nil {
		return nil, fmt.Errorf("handlers dependencies: checkoutService is required")
	}
	if deps.DeliveryService == nil {
		return nil, fmt.Errorf("handlers dependencies: deliveryService is required")
	}
	if deps.AdminOrderService == nil {
		return nil, fmt.Errorf("handlers dependencies: adminOrderService is required")
	}
	if deps.ViewService == nil {
		return nil, fmt.Errorf("handlers dependencies: viewService is required")
	}
	if deps.StorefrontService == nil {
		return nil, fmt.Errorf("handlers dependencies: storefrontService is required")
	}
	if deps.CatalogService == nil {
		return nil, fmt.Errorf("handlers dependencies: catalogService is required")
	}
	if deps.UserStore == nil {
		return nil, fmt.Errorf("handlers dependencies: userStore is required")
	}
	if deps.SessionManager == nil {
		return nil, fmt.Errorf("handlers dependencies: sessionManager is required")
	}

	return &Handlers{
		config:            deps.Config,
		db:                deps.DB,
		cacheProvider:     deps.CacheProvider,
		stripeRouter:      deps.StripeRouter,
		authService:       deps.AuthService,
		checkoutService:   deps.CheckoutService,
		deliveryService:   deps.DeliveryService,
		adminOrderService: deps.AdminOrderService,
		viewService:       deps.ViewService,
		storefrontService: deps.StorefrontService,
		catalogService:    deps.CatalogService,
		userStore:         deps.UserStore,
		sessionManager:    deps.SessionManager,
		logger:            logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	// Test database connection
	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	}); err != nil {
		logger.Error("failed to encode health response", "error", err)
	}
}

// SessionMiddleware adds session data to the request context
func (h *Handlers) SessionMiddleware(next http.Handler) http.Handler {
	return h.sessionManager.Middleware(next)
}

func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return h.sessionManager.RequireAuth("/auth/login")(next)
}

func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return h.sessionManager.RequireAdmin("/auth/login")(next)
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func (h *Handlers) isSecure() bool {
	return secureCookiesFromConfig(h.config)
}

func SecureCookiesFromConfig(cfg *config.Config) bool {
	if cfg == nil {
		return false
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		if parsed, err := url.Parse(baseURL); err == nil {
			return strings.EqualFold(parsed.Scheme, "https")
		}
	}

	return cfg.Port == "443" || cfg.Port == "8443"
}

func secureCookiesFromConfig(cfg *config.Config) bool {
	return SecureCookiesFromConfig(cfg)
}
