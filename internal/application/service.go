package application

import (
	"log/slog"
	"time"

	"github.com/topcoder-platform/email-preferences-service/internal/domain"
	"github.com/topcoder-platform/email-preferences-service/internal/ports"
)

type Config struct {
	ServiceName      string
	Catalog          domain.Catalog
	EventTypeCreated string
	EventTypeUpdated string
}

type Service struct {
	cfg       Config
	identity  ports.IdentityResolver
	directory ports.ContactDirectory
	snapshots ports.SnapshotStore
	publisher ports.EventPublisher
	logger    *slog.Logger
	nowFn     func() time.Time
}

type Dependencies struct {
	Config    Config
	Identity  ports.IdentityResolver
	Directory ports.ContactDirectory
	Snapshots ports.SnapshotStore
	Publisher ports.EventPublisher
	Logger    *slog.Logger
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "email-preferences-service"
	}
	if len(cfg.Catalog) == 0 {
		cfg.Catalog = domain.DefaultCatalog
	}
	if cfg.EventTypeCreated == "" {
		cfg.EventTypeCreated = "preference.created"
	}
	if cfg.EventTypeUpdated == "" {
		cfg.EventTypeUpdated = "preference.updated"
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		cfg:       cfg,
		identity:  deps.Identity,
		directory: deps.Directory,
		snapshots: deps.Snapshots,
		publisher: deps.Publisher,
		logger:    logger,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}
