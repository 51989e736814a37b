package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mateabags/storefront/internal/config"
	"github.com/mateabags/storefront/internal/handlers"
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
	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")

	// The webhook endpoint authenticates with the Stripe signature, never
	// with cookies or origin checks.
	r.HandleFunc("/webhooks/stripe", h.StripeWebhook).Methods("POST").Name("webhooks.stripe")

	r.HandleFunc("/storefront/status", h.StorefrontStatus).Methods("GET").Name("storefront.status")
	r.HandleFunc("/waitlist", h.WaitlistJoin).Methods("POST").Name("waitlist.join")

	r.HandleFunc("/checkout/success", h.CheckoutSuccess).Methods("GET").Name("checkout.success")
	r.HandleFunc("/checkout/cancel", h.CheckoutCancel).Methods("GET").Name("checkout.cancel")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.RequireSameOrigin)
	api.HandleFunc("/products", h.ListProducts).Methods("GET").Name("api.products")
	api.HandleFunc("/cart", h.CartView).Methods("GET").Name("api.cart")
	api.HandleFunc("/cart", h.CartClear).Methods("DELETE").Name("api.cart.clear")
	api.HandleFunc("/cart/items", h.CartAddItem).Methods("POST").Name("api.cart.items.add")
	api.HandleFunc("/cart/items/{productID}", h.CartSetQuantity).Methods("PATCH").Name("api.cart.items.quantity")
	api.HandleFunc("/cart/items/{productID}", h.CartRemoveItem).Methods("DELETE").Name("api.cart.items.remove")
	api.HandleFunc("/cart/coupon", h.CartApplyCoupon).Methods("POST").Name("api.cart.coupon.apply")
	api.HandleFunc("/cart/coupon", h.CartRemoveCoupon).Methods("DELETE").Name("api.cart.coupon.remove")
	api.HandleFunc("/checkout", h.CheckoutSubmit).Methods("POST").Name("api.checkout")

	r.HandleFunc("/admin/login", h.AdminLogin).Methods("POST").Name("admin.login")

	adminRouter := r.PathPrefix("/admin").Subrouter()
	adminRouter.Use(h.RequireAdmin)
	adminRouter.HandleFunc("/orders", h.AdminListOrders).Methods("GET").Name("admin.orders")
	adminRouter.HandleFunc("/orders/{id}", h.AdminOrderDetail).Methods("GET").Name("admin.orders.detail")
	adminRouter.HandleFunc("/orders/{id}/processing", h.AdminOrderProcessing).Methods("POST").Name("admin.orders.processing")
	adminRouter.HandleFunc("/orders/{id}/ship", h.AdminOrderShip).Methods("POST").Name("admin.orders.ship")
	adminRouter.HandleFunc("/orders/{id}/deliver", h.AdminOrderDeliver).Methods("POST").Name("admin.orders.deliver")
	adminRouter.HandleFunc("/orders/{id}/cancel", h.AdminOrderCancel).Methods("POST").Name("admin.orders.cancel")
	adminRouter.HandleFunc("/summary", h.AdminSummary).Methods("GET").Name("admin.summary")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	return r
}
