package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/veloracart/velora/internal/config"
	"github.com/veloracart/velora/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.SecurityHeaders)
	r.Use(h.MetricsContext)
	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")
	r.HandleFunc("/webhooks/stripe", h.StripeWebhook).Methods("POST").Name("webhooks.stripe")

	// 404 handler - must be last
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	})

	r.HandleFunc("/auth/login", h.Login).Methods("GET").Name("auth.login")
	r.HandleFunc("/auth/callback", h.Callback).Methods("GET").Name("auth.callback")
	r.HandleFunc("/auth/logout", h.Logout).Methods("GET").Name("auth.logout")

	// Public storefront routes - registered before the authenticated /api
	// subrouter so they match without a session
	r.HandleFunc("/api/products", h.ListProducts).Methods("GET").Name("api.products")
	r.HandleFunc("/api/products/{id}", h.GetProduct).Methods("GET").Name("api.products.get")
	r.HandleFunc("/api/newsletter", h.Subscribe).Methods("POST").Name("api.newsletter")

	// Customer routes - require a session
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(h.SessionMiddleware)
	apiRouter.Use(h.RequireAuth)
	apiRouter.Use(h.RequireSameOrigin)
	apiRouter.HandleFunc("/bag", h.ListBag).Methods("GET").Name("api.bag")
	apiRouter.HandleFunc("/bag", h.AddToBag).Methods("POST").Name("api.bag.add")
	apiRouter.HandleFunc("/bag/{id}", h.RemoveFromBag).Methods("DELETE").Name("api.bag.remove")
	apiRouter.HandleFunc("/checkout", h.StartCheckout).Methods("POST").Name("api.checkout")
	apiRouter.HandleFunc("/orders", h.ListMyOrders).Methods("GET").Name("api.orders")
	apiRouter.HandleFunc("/orders/{id}", h.DeleteMyOrder).Methods("DELETE").Name("api.orders.delete")
	apiRouter.HandleFunc("/orders/{id}/code", h.RequestDeliveryCode).Methods("POST").Name("api.orders.code")
	apiRouter.HandleFunc("/delivery/redeem", h.RedeemDeliveryCode).Methods("POST").Name("api.delivery.redeem")
	apiRouter.HandleFunc("/wishlist", h.ListWishlist).Methods("GET").Name("api.wishlist")
	apiRouter.HandleFunc("/wishlist/{id}", h.ToggleWishlist).Methods("POST").Name("api.wishlist.toggle")
	apiRouter.HandleFunc("/products/{id}/reviews", h.AddReview).Methods("POST").Name("api.products.review")
	apiRouter.HandleFunc("/profile", h.UpdateProfile).Methods("PATCH").Name("api.profile")

	// Fulfillment dashboard routes - require an admin session
	adminRouter := r.PathPrefix("/admin/api").Subrouter()
	adminRouter.Use(h.SessionMiddleware)
	adminRouter.Use(h.RequireAdmin)
	adminRouter.Use(h.RequireSameOrigin)
	adminRouter.HandleFunc("/orders", h.ListOrders).Methods("GET").Name("admin.orders")
	adminRouter.HandleFunc("/orders/{id}/status", h.UpdateOrderStatus).Methods("PATCH").Name("admin.orders.status")
	adminRouter.HandleFunc("/orders/{id}", h.DeleteOrder).Methods("DELETE").Name("admin.orders.delete")
	adminRouter.HandleFunc("/catalog/import", h.ImportCatalog).Methods("POST").Name("admin.catalog.import")

	return r
}
