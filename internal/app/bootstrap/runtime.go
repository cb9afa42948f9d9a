package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/topcoder-platform/email-preferences-service/internal/adapters/cache"
	eventadapter "github.com/topcoder-platform/email-preferences-service/internal/adapters/events"
	httpadapter "github.com/topcoder-platform/email-preferences-service/internal/adapters/http"
	"github.com/topcoder-platform/email-preferences-service/internal/adapters/identity"
	"github.com/topcoder-platform/email-preferences-service/internal/adapters/mailchimp"
	"github.com/topcoder-platform/email-preferences-service/internal/adapters/postgres"
	"github.com/topcoder-platform/email-preferences-service/internal/adapters/security"
	"github.com/topcoder-platform/email-preferences-service/internal/application"
	"github.com/topcoder-platform/email-preferences-service/internal/domain"
	"github.com/topcoder-platform/email-preferences-service/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	tokenCache := cache.NewRedisCache(redisClient)

	verifier, err := security.NewJWTVerifier(cfg.JWTSecret)
	if err != nil {
		_ = redisClient.Close()
		_ = sqlDB.Close()
		return nil, err
	}

	publisher := ports.EventPublisher(eventadapter.NewLoggingPublisher(logger))
	var closers []io.Closer
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, map[string]string{
			"preference.created": cfg.KafkaTopicPreferenceCreated,
			"preference.updated": cfg.KafkaTopicPreferenceUpdated,
		})
		if pubErr != nil {
			logger.WarnContext(ctx, "kafka publisher disabled, using logging publisher", "error", pubErr)
		} else {
			publisher = kafkaPublisher
			closers = append(closers, kafkaPublisher)
		}
	}

	service := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName: cfg.ServiceID,
			Catalog:     domain.Catalog(cfg.Subscriptions),
		},
		Identity: identity.NewClient(identity.Config{
			SearchUsersURL: cfg.SearchUsersURL,
			AuthURL:        cfg.AuthURL,
			AuthAudience:   cfg.AuthAudience,
			ClientID:       cfg.AuthClientID,
			ClientSecret:   cfg.AuthClientSecret,
			TokenCacheTTL:  cfg.TokenCacheTTL,
		}, tokenCache),
		Directory: mailchimp.NewClient(mailchimp.Config{
			BaseURL: cfg.MailchimpBaseURL,
			APIKey:  cfg.MailchimpAPIKey,
			ListID:  cfg.MailchimpListID,
		}),
		Snapshots: postgres.NewSnapshotRepository(db),
		Publisher: publisher,
		Logger:    logger,
	})

	handler := httpadapter.NewHandler(service, verifier)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		cleanupFn: func(ctx context.Context) {
			for _, closer := range closers {
				_ = closer.Close()
			}
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 1)

	go func() {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		r.logger.ErrorContext(ctx, "runtime failure", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.cleanupFn(shutdownCtx)
	return nil
}
