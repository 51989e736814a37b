package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"

	"github.com/mateabags/storefront/internal/cache"
	"github.com/mateabags/storefront/internal/cart"
	"github.com/mateabags/storefront/internal/catalog"
	"github.com/mateabags/storefront/internal/config"
	"github.com/mateabags/storefront/internal/coupon"
	"github.com/mateabags/storefront/internal/db"
	"github.com/mateabags/storefront/internal/email"
	"github.com/mateabags/storefront/internal/handlers"
	"github.com/mateabags/storefront/internal/logging"
	"github.com/mateabags/storefront/internal/services"
	"github.com/mateabags/storefront/internal/session"
	"github.com/mateabags/storefront/internal/stripe"
)

type App struct {
	Config         *config.Config
	Logger         *slog.Logger
	DB             *pgxpool.Pool
	CacheProvider  cache.Provider
	SessionManager *session.Manager
	Handlers       *handlers.Handlers
	Reconciler     *services.Reconciler
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	shopCatalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		database.Close()
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

	customerStore := db.NewCustomerStore(database)
	addressStore := db.NewAddressStore(database)
	orderStore := db.NewOrderStore(database)
	paymentStore := db.NewPaymentStore(database)
	couponStore := db.NewCouponStore(database)
	eventStore := db.NewEventStore(database)
	waitlistStore := db.NewWaitlistStore(database)

	emailProvider, err := email.NewProvider(email.Config{
		Provider: emailProviderName(cfg),
		APIKey:   cfg.ResendAPIKey,
		From:     cfg.EmailFrom,
	})
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize email provider: %w", err)
	}
	orderEmailer := services.NewStorefrontEmailSender(emailProvider, shopCatalog.Shop.Name, cfg.BaseURL)

	var sessions *stripe.Client
	if cfg.PaymentMode == config.PaymentModeStripe {
		sessions = stripe.NewClient(cfg.StripeSecretKey)
	}

	checkoutService := services.NewCheckoutService(services.CheckoutConfig{
		Catalog:       shopCatalog,
		Customers:     customerStore,
		Addresses:     addressStore,
		Orders:        orderStore,
		Payments:      paymentStore,
		Coupons:       couponStore,
		Sessions:      sessions,
		BaseURL:       cfg.BaseURL,
		Currency:      cfg.DefaultCurrency,
		PaymentWindow: cfg.PaymentWindow,
		Simulate:      cfg.PaymentMode == config.PaymentModeSimulate,
		Logger:        logger.With("component", "checkout_service"),
	})

	eventService := services.NewStripeEventService(orderStore, paymentStore, orderEmailer, logger.With("component", "stripe_event_service"))
	stripeRouter := handlers.NewStripeEventRouter(eventService, logger.With("component", "stripe_router"))

	authService := services.NewAdminAuthService(cfg.AdminEmail, cfg.AdminPasswordHash, cfg.JWTSigningKey)
	adminService := services.NewAdminOrderService(orderStore, orderEmailer, logger.With("component", "admin_service"))

	launchAt, err := cfg.LaunchTime()
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, err
	}
	waitlistService := services.NewWaitlistService(waitlistStore, emailProvider, launchAt, logger.With("component", "waitlist_service"))

	reconciler := services.NewReconciler(orderStore, paymentStore, cfg.ReconcileInterval, logger.With("component", "reconciler"))

	h, err := handlers.New(handlers.Dependencies{
		Config:          cfg,
		DB:              database,
		CacheProvider:   cacheProvider,
		SessionManager:  sessionManager,
		Catalog:         shopCatalog,
		CartStore:       cart.NewStore(cacheProvider),
		CouponValidator: coupon.NewValidator(couponStore),
		CheckoutService: checkoutService,
		OrderStore:      orderStore,
		PaymentStore:    paymentStore,
		EventStore:      eventStore,
		StripeRouter:    stripeRouter,
		AuthService:     authService,
		AdminService:    adminService,
		WaitlistService: waitlistService,
		Logger:          logger,
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
		Reconciler:     reconciler,
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
	sentry.Flush(2 * time.Second)
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	parsed, err := catalog.NewParser().ParseFile(path)
	if err != nil {
		return nil, err
	}
	if err := catalog.NewValidator().Validate(parsed); err != nil {
		return nil, fmt.Errorf("catalog validation failed: %w", err)
	}
	return parsed, nil
}

func emailProviderName(cfg *config.Config) string {
	if strings.TrimSpace(cfg.ResendAPIKey) != "" {
		return "resend"
	}
	return "noop"
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var base slog.Handler
	switch strings.ToLower(strings.TrimSpace(cfg.LogFormat)) {
	case "json":
		base = slog.NewJSONHandler(os.Stdout, opts)
	default:
		base = tint.NewHandler(os.Stdout, &tint.Options{Level: cfg.LogLevel})
	}

	if strings.TrimSpace(cfg.SentryDSN) == "" {
		return slog.New(base), nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		EnableTracing:    true,
		TracesSampleRate: 0.1,
		EnableLogs:       true,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
	}.NewSentryHandler(context.Background())

	return slog.New(logging.MultiHandler(base, sentryHandler)), nil
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
