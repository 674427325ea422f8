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
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/bataryakit/notifier/internal/api"
	"github.com/bataryakit/notifier/internal/config"
	"github.com/bataryakit/notifier/internal/email"
	"github.com/bataryakit/notifier/internal/invoice"
	"github.com/bataryakit/notifier/internal/notify"
	"github.com/bataryakit/notifier/internal/observability"
	"github.com/bataryakit/notifier/internal/order"
	"github.com/bataryakit/notifier/internal/render"
	"github.com/bataryakit/notifier/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	metrics := observability.NewMetrics()

	dispatcher := email.NewDispatcher(
		[]email.Backend{
			email.NewSMTPBackend(email.SMTPConfig{
				Host:               cfg.SMTPHost,
				Port:               cfg.SMTPPort,
				Username:           cfg.SMTPUsername(),
				Password:           cfg.SMTPPassword,
				From:               cfg.SMTPFromHeader(),
				Secure:             cfg.SMTPSecure,
				InsecureSkipVerify: !cfg.SMTPTLSRejectUnauthorized,
				PoolSize:           cfg.SMTPPoolSize,
				Timeout:            cfg.SMTPTimeout,
			}),
			email.NewResendBackend(email.ResendConfig{
				APIKey: cfg.ResendAPIKey,
				From:   cfg.ResendFrom,
			}),
		},
		email.WithSendTimeout(cfg.SendTimeout),
		email.WithRenderTimeout(cfg.RenderTimeout),
		email.WithLogger(logger),
		email.WithMetrics(metrics),
	)
	defer dispatcher.Close()

	if _, ok := dispatcher.Active(); !ok {
		logger.Warn("no email backend configured; notifications will report failure")
	}

	uploader, err := newUploader(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}

	orders, closeOrders, err := newOrderStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeOrders()

	renderer := render.New(
		render.WithAdminEmail(cfg.AdminEmail),
		render.WithSiteURL(cfg.PublicURL()),
		render.WithBrand(cfg.CompanyName),
		render.WithLocale(cfg.InvoiceLocale),
	)
	generator := invoice.NewGenerator(invoice.Company{
		Name:    cfg.CompanyName,
		Address: cfg.CompanyAddress,
		TaxID:   cfg.CompanyTaxID,
		Phone:   cfg.CompanyPhone,
		Email:   cfg.CompanyEmail,
	}, invoice.WithLocale(cfg.InvoiceLocale))

	notifier := notify.New(renderer, dispatcher,
		notify.WithPDFGenerator(generator),
		notify.WithArchiver(uploader),
		notify.WithUploadTimeout(cfg.UploadTimeout),
		notify.WithLogger(logger),
		notify.WithMetrics(metrics),
	)

	gin.SetMode(gin.ReleaseMode)
	h := api.NewHandler(notifier, orders, uploader, dispatcher, logger)
	router := api.NewRouter(h, api.RouterConfig{
		APIKey:  cfg.APIKey,
		Metrics: metrics,
		Logger:  logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
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

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newUploader orders the storage backends local first, then cloud. The cloud
// backend is only added when a bucket is configured.
func newUploader(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) (*storage.Uploader, error) {
	backends := []storage.Backend{storage.NewLocalBackend(cfg.UploadBaseDir, cfg.PublicURL())}

	if cfg.GCSBucket != "" {
		store, err := storage.NewGCSObjectStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("init gcs: %w", err)
		}
		backends = append(backends, storage.NewCloudBackend(cfg.GCSBucket, store))
	}
	if cfg.UploadBaseDir == "" && cfg.GCSBucket == "" {
		logger.Warn("no storage backend configured; invoice archiving disabled")
	}

	return storage.NewUploader(backends,
		storage.WithLogger(logger),
		storage.WithMetrics(metrics),
	), nil
}

func newOrderStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (order.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set; using in-memory order store")
		return order.NewMemoryStore(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	store := order.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}
