package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mateabags/storefront/internal/cache"
	"github.com/mateabags/storefront/internal/cart"
	"github.com/mateabags/storefront/internal/catalog"
	"github.com/mateabags/storefront/internal/config"
	"github.com/mateabags/storefront/internal/coupon"
	"github.com/mateabags/storefront/internal/logging"
	"github.com/mateabags/storefront/internal/models"
	"github.com/mateabags/storefront/internal/services"
	"github.com/mateabags/storefront/internal/session"
)

const maxWebhookBodyBytes = 1 << 20 // 1 MB

// OrderStore is the slice of the order store the storefront handlers use
// directly. The Postgres OrderStore is the production implementation.
type OrderStore interface {
	GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetDetails(ctx context.Context, orderID uuid.UUID) (*models.OrderDetails, error)
	Cancel(ctx context.Context, orderID uuid.UUID) error
}

type PaymentStore interface {
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	MarkCancelled(ctx context.Context, paymentID uuid.UUID) error
}

// EventStore records received webhook events; its unique constraint is the
// authoritative dedup behind the cache fast path.
type EventStore interface {
	Insert(ctx context.Context, stripeEventID, kind string, payload []byte) (uuid.UUID, error)
	MarkProcessed(ctx context.Context, eventID uuid.UUID, orderID, paymentID uuid.UUID) error
	MarkFailed(ctx context.Context, eventID uuid.UUID) error
}

// Handlers provides the HTTP surface of the storefront.
type Handlers struct {
	config          *config.Config
	db              *pgxpool.Pool
	cacheProvider   cache.Provider
	sessionManager  *session.Manager
	catalog         *catalog.Catalog
	cartStore       *cart.Store
	couponValidator *coupon.Validator
	checkoutService *services.CheckoutService
	orderStore      OrderStore
	paymentStore    PaymentStore
	eventStore      EventStore
	stripeRouter    *StripeEventRouter
	authService     *services.AdminAuthService
	adminService    *services.AdminOrderService
	waitlistService *services.WaitlistService
	logger          *slog.Logger
}

type Dependencies struct {
	Config          *config.Config
	DB              *pgxpool.Pool
	CacheProvider   cache.Provider
	SessionManager  *session.Manager
	Catalog         *catalog.Catalog
	CartStore       *cart.Store
	CouponValidator *coupon.Validator
	CheckoutService *services.CheckoutService
	OrderStore      OrderStore
	PaymentStore    PaymentStore
	EventStore      EventStore
	StripeRouter    *StripeEventRouter
	AuthService     *services.AdminAuthService
	AdminService    *services.AdminOrderService
	WaitlistService *services.WaitlistService
	Logger          *slog.Logger
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
	if deps.SessionManager == nil {
		return nil, fmt.Errorf("handlers dependencies: sessionManager is required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("handlers dependencies: catalog is required")
	}
	if deps.CartStore == nil {
		return nil, fmt.Errorf("handlers dependencies: cartStore is required")
	}
	if deps.CouponValidator == nil {
		return nil, fmt.Errorf("handlers dependencies: couponValidator is required")
	}
	if deps.CheckoutService == nil {
		return nil, fmt.Errorf("handlers dependencies: checkoutService is required")
	}
	if deps.OrderStore == nil {
		return nil, fmt.Errorf("handlers dependencies: orderStore is required")
	}
	if deps.PaymentStore == nil {
		return nil, fmt.Errorf("handlers dependencies: paymentStore is required")
	}
	if deps.EventStore == nil {
		return nil, fmt.Errorf("handlers dependencies: eventStore is required")
	}
	if deps.StripeRouter == nil {
		return nil, fmt.Errorf("handlers dependencies: stripeRouter is required")
	}
	if deps.AuthService == nil {
		return nil, fmt.Errorf("handlers dependencies: authService is required")
	}
	if deps.AdminService == nil {
		return nil, fmt.Errorf("handlers dependencies: adminService is required")
	}
	if deps.WaitlistService == nil {
		return nil, fmt.Errorf("handlers dependencies: waitlistService is required")
	}

	return &Handlers{
		config:          deps.Config,
		db:              deps.DB,
		cacheProvider:   deps.CacheProvider,
		sessionManager:  deps.SessionManager,
		catalog:         deps.Catalog,
		cartStore:       deps.CartStore,
		couponValidator: deps.CouponValidator,
		checkoutService: deps.CheckoutService,
		orderStore:      deps.OrderStore,
		paymentStore:    deps.PaymentStore,
		eventStore:      deps.EventStore,
		stripeRouter:    deps.StripeRouter,
		authService:     deps.AuthService,
		adminService:    deps.AdminService,
		waitlistService: deps.WaitlistService,
		logger:          logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
		return
	}

	h.respondData(w, ctx, http.StatusOK, map[string]string{"status": "healthy"})
}

// ensureSession returns the visitor session, creating one (and its cart ID)
// on first contact.
func (h *Handlers) ensureSession(w http.ResponseWriter, r *http.Request) (*session.Data, error) {
	sess, err := h.sessionManager.GetSession(r.Context(), r)
	if err == nil {
		return sess, nil
	}
	return h.sessionManager.CreateSession(r.Context(), w)
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
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
