package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sports-academy-api/api/swagger"
	"github.com/noah-isme/sports-academy-api/internal/dto"
	"github.com/noah-isme/sports-academy-api/internal/handler"
	"github.com/noah-isme/sports-academy-api/internal/repository"
	"github.com/noah-isme/sports-academy-api/internal/service"
	"github.com/noah-isme/sports-academy-api/pkg/cache"
	"github.com/noah-isme/sports-academy-api/pkg/config"
	"github.com/noah-isme/sports-academy-api/pkg/database"
	"github.com/noah-isme/sports-academy-api/pkg/export"
	"github.com/noah-isme/sports-academy-api/pkg/jobs"
	"github.com/noah-isme/sports-academy-api/pkg/logger"
	"github.com/noah-isme/sports-academy-api/pkg/notify"
	"github.com/noah-isme/sports-academy-api/pkg/payments"
	"github.com/noah-isme/sports-academy-api/pkg/payments/razorpay"
	"github.com/noah-isme/sports-academy-api/pkg/payments/stripe"
	"github.com/noah-isme/sports-academy-api/pkg/storage"
)

// @title Sports Academy Registration API
// @version 1.0.0
// @description Student sport registration with card, bank transfer and parent-delegated payment
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	pricingRepo := repository.NewPricingRepository(db)
	sportRepo := repository.NewSportRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, cache.PricingPrefix)
	checkoutRepo := repository.NewCheckoutRepository(redisClient, cache.CheckoutPrefix, cfg.Checkout.SessionTTL)

	linkSigner := storage.NewLinkSigner(cfg.Notifications.ParentLinkSecret, cfg.Notifications.ParentLinkTTL)
	dispatcher := jobs.NewDispatcher(jobs.Config{
		Workers:    cfg.Notifications.WorkerCount,
		MaxRetries: cfg.Notifications.WorkerRetries,
		Logger:     logr.Named("jobs"),
	})
	notifications := service.NewNotificationService(
		dispatcher,
		buildEmailSender(cfg, logr),
		buildStaffAlerter(cfg, logr),
		linkSigner,
		cfg.Notifications.PortalBaseURL,
		logr.Named("notify"),
	)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Pricing.CacheTTL, logr, cfg.Pricing.CacheEnabled)
	// Price rows are edited out of band; start every deploy from a cold cache.
	if err := cacheSvc.Invalidate(ctx, "*"); err != nil {
		logr.Warn("pricing cache not cleared", zap.Error(err))
	}
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	pricingSvc := service.NewPricingService(pricingRepo, cacheSvc, cfg.Pricing.CacheTTL, validate, logr)
	eligibilitySvc := service.NewEligibilityService(sportRepo, studentRepo, validate, logr)
	registrationSvc := service.NewRegistrationService(eligibilitySvc, paymentRepo, registrationRepo, notifications, metrics, logr)

	proofStore, err := buildProofStore(cfg.Uploads)
	if err != nil {
		return err
	}
	checkoutDeps := service.CheckoutDeps{
		Store:         checkoutRepo,
		Pricing:       pricingSvc,
		Registrations: registrationSvc,
		Eligibility:   eligibilitySvc,
		Notifier:      notifications,
		Links:         linkSigner,
		Proofs:        service.NewProofValidator(cfg.Uploads.MaxFileSizeBytes, cfg.Uploads.AllowedMIMEs),
		ProofStore:    proofStore,
		Receipts:      export.NewReceiptRenderer("Registration Receipt"),
		Metrics:       metrics,
		Validator:     validate,
		Logger:        logr.Named("checkout"),
	}
	// A nil registry leaves card payments disabled while free and bank transfer flows keep working.
	if registry, err := buildPaymentRegistry(cfg.Payments); err != nil {
		logr.Warn("card payments disabled", zap.Error(err))
	} else {
		checkoutDeps.Providers = registry
	}
	checkoutSvc := service.NewCheckoutService(checkoutDeps)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(cfg, logr, routes{
		auth:         handler.NewAuthHandler(authSvc),
		pricing:      handler.NewPricingHandler(pricingSvc, bankDetails(cfg.Bank)),
		sports:       handler.NewSportHandler(eligibilitySvc),
		checkouts:    handler.NewCheckoutHandler(checkoutSvc, cfg.Uploads.MaxFileSizeBytes),
		registration: handler.NewRegistrationHandler(registrationSvc),
		metrics: handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
			"postgres": db.PingContext,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		}),
		metricsSvc: metrics,
		tokens:     authSvc,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildPaymentRegistry registers every provider that has credentials.
func buildPaymentRegistry(cfg config.PaymentsConfig) (*payments.Registry, error) {
	var providers []payments.Provider
	if cfg.StripeSecretKey != "" {
		p, err := stripe.New(cfg.StripeSecretKey, cfg.ProviderTimeout)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if cfg.RazorpayKeyID != "" {
		p, err := razorpay.New(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		return nil, errors.New("no payment provider credentials configured")
	}
	defaultName := cfg.DefaultProvider
	if defaultName == "" {
		defaultName = providers[0].Name()
	}
	return payments.NewRegistry(defaultName, cfg.CurrencyProviders, providers...)
}

func buildProofStore(cfg config.UploadsConfig) (storage.ProofStore, error) {
	switch cfg.Backend {
	case config.StorageCloudinary:
		return storage.NewCloudinaryStorage(cfg.CloudinaryName, cfg.CloudinaryKey, cfg.CloudinarySecret, cfg.CloudinaryFolder)
	case config.StorageLocal, "":
		return storage.NewLocalStorage(cfg.StorageDir)
	default:
		return nil, fmt.Errorf("unknown uploads backend %q", cfg.Backend)
	}
}

func buildEmailSender(cfg *config.Config, logr *zap.Logger) notify.EmailSender {
	n := cfg.Notifications
	if n.EmailAPIKey == "" {
		logr.Warn("email delivery disabled, ZEPTO_API_KEY not set")
		return nil
	}
	sender, err := notify.NewZeptoMailSender(n.EmailAPIURL, n.EmailAPIKey, n.EmailFrom, 10*time.Second)
	if err != nil {
		logr.Warn("email delivery disabled", zap.Error(err))
		return nil
	}
	return sender
}

func buildStaffAlerter(cfg *config.Config, logr *zap.Logger) notify.StaffAlerter {
	n := cfg.Notifications
	if n.TelegramToken == "" {
		logr.Warn("staff alerts disabled, TELEGRAM_BOT_TOKEN not set")
		return nil
	}
	alerter, err := notify.NewTelegramAlerter(n.TelegramToken, n.TelegramChatID)
	if err != nil {
		logr.Warn("staff alerts disabled", zap.Error(err))
		return nil
	}
	return alerter
}

func bankDetails(cfg config.BankConfig) dto.BankDetails {
	return dto.BankDetails{
		BankName:      cfg.BankName,
		AccountNumber: cfg.AccountNumber,
		AccountHolder: cfg.AccountHolder,
		SwiftCode:     cfg.SwiftCode,
	}
}
