package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veloracart/velora/internal/cache"
	"github.com/veloracart/velora/internal/catalog"
	"github.com/veloracart/velora/internal/config"
	"github.com/veloracart/velora/internal/crypto"
	"github.com/veloracart/velora/internal/db"
	"github.com/veloracart/velora/internal/email"
	"github.com/veloracart/velora/internal/handlers"
	"github.com/veloracart/velora/internal/services"
	"github.com/veloracart/velora/internal/session"
	"github.com/veloracart/velora/internal/stripe"
)

type App struct {
	Config         *config.Config
	Logger         *slog.Logger
	DB             *pgxpool.Pool
	CacheProvider  cache.Provider
	SessionManager *session.Manager
	Handlers       *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	sessionStore, err := session.NewStore(startupCtx, session.Config{
		Provider:              cfg.SessionStoreProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	sessionManager := session.NewManager(sessionStore, handlers.SecureCookiesFromConfig(cfg))

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	orderStore, err := db.NewOrderStore(database, encryptor)
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize order store: %w", err)
	}
	userStore := db.NewUserStore(database)
	productStore := db.NewProductStore(database)
	bagStore := db.NewBagStore(database)
	wishlistStore := db.NewWishlistStore(database)
	codeStore := db.NewCodeStore(database)
	reviewStore := db.NewReviewStore(database)
	subscriberStore := db.NewSubscriberStore(database)

	authService, err := services.NewAuthService(cfg, userStore, logger.With("component", "auth_service"))
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}

	var emailProvider email.Provider
	if cfg.EmailAPIKey != "" {
		emailProvider, err = email.NewProvider(email.Config{
			Provider: cfg.EmailProvider,
			APIKey:   cfg.EmailAPIKey,
			From:     cfg.EmailFrom,
			Domain:   cfg.EmailDomain,
		})
		if err != nil {
			closeSessionManager(logger, sessionManager)
			closeCacheProvider(logger, cacheProvider)
			database.Close()
			return nil, fmt.Errorf("failed to initialize email provider: %w", err)
		}
	}
	orderEmailer := services.NewProviderOrderEmailSender(emailProvider)

	checkoutClient := stripe.NewCheckoutClient(cfg.StripeSecretKey, cfg.BaseURL)

	checkoutService := services.NewCheckoutService(
		bagStore,
		orderStore,
		userStore,
		checkoutClient,
		orderEmailer,
		cfg.BaseURL,
		logger.With("component", "checkout_service"),
	)
	deliveryService := services.NewDeliveryService(codeStore, orderStore, orderEmailer, logger.With("component", "delivery_service"))
	adminOrderService := services.NewAdminOrderService(orderStore, logger.With("component", "admin_order_service"))
	viewService := services.NewOrderViewService(orderStore, userStore, codeStore, logger.With("component", "view_service"))
	storefrontService := services.NewStorefrontService(
		bagStore,
		wishlistStore,
		productStore,
		reviewStore,
		subscriberStore,
		logger.With("component", "storefront_service"),
	)
	catalogService := services.NewCatalogService(productStore, catalog.NewParser(), catalog.NewValidator(), logger.With("component", "catalog_service"))
	stripeRouter := handlers.NewStripeEventRouter(checkoutService, logger.With("component", "stripe_router"))

	h, err := handlers.New(handlers.Dependencies{
		Config:            cfg,
		DB:                database,
		CacheProvider:     cacheProvider,
		StripeRouter:      stripeRouter,
		AuthService:       authService,
		CheckoutService:   checkoutService,
		DeliveryService:   deliveryService,
		AdminOrderService: adminOrderService,
		ViewService:       viewService,
		StorefrontService: storefrontService,
		CatalogService:    catalogService,
		UserStore:         userStore,
		SessionManager:    sessionManager,
		Logger:            logger,
	})
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:         cfg,
		Logger:         logger,
		DB:             database,
		CacheProvider:  cacheProvider,
		SessionManager: sessionManager,
		Handlers:       h,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.SessionManager != nil {
		closeSessionManager(a.Logger, a.SessionManager)
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	case "text", "":
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level: cfg.LogLevel,
		}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: cfg.LogLevel}))
}

func closeSessionManager(logger *slog.Logger, manager *session.Manager) {
	if manager == nil {
		return
	}
	if err := manager.Close(); err != nil && logger != nil {
		logger.Warn("failed to close session manager", "error", err)
	}
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
