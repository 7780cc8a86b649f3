package application

import (
	"fmt"
	"time"

	checkapp "github.com/khanhnv2901/wisafe/internal/application/check"
	scanapp "github.com/khanhnv2901/wisafe/internal/application/scan"
	"github.com/khanhnv2901/wisafe/internal/auth"
	"github.com/khanhnv2901/wisafe/internal/checker"
	"github.com/khanhnv2901/wisafe/internal/domain/scan"
	"github.com/khanhnv2901/wisafe/internal/infrastructure/persistence/json"
	"github.com/khanhnv2901/wisafe/internal/scanner"
	"go.uber.org/zap"
)

// AuthConfig configures the operator account and token signing
type AuthConfig struct {
	Username     string
	PasswordHash string
	Password     string
	Secret       string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	DenylistSize int
}

// Config collects everything needed to build the container
type Config struct {
	DataDir     string
	CatalogFile string
	UseNmcli    bool
	MaxResults  int
	Crack       checker.CrackConfig
	Auth        AuthConfig
}

// Container holds all application services and repositories
// This is a simple dependency injection container
type Container struct {
	// Repositories
	ScanRepo scan.Repository

	// Scanning
	Catalog     *scanner.Catalog
	Coordinator *scanner.Coordinator

	// Services
	ScanService       *scanapp.Service
	CheckOrchestrator *checkapp.Orchestrator
	Auth              *auth.Manager
}

// NewContainer creates a new application service container. tracker holds
// job state; recorder may be nil.
func NewContainer(cfg Config, tracker checkapp.Tracker, recorder scanapp.Recorder, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Initialize repositories
	scanRepo, err := json.NewScanRepository(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan repository: %w", err)
	}

	catalog, err := scanner.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	var live scanner.Source
	if cfg.UseNmcli {
		src := scanner.NewNmcliSource()
		if cfg.MaxResults > 0 {
			src.MaxResults = cfg.MaxResults
		}
		live = src
	}
	coordinator := scanner.NewCoordinator(catalog, live, logger.Named("scanner"))

	manager, err := newAuthManager(cfg.Auth)
	if err != nil {
		return nil, err
	}

	// Initialize services
	scanService := scanapp.NewService(coordinator, scanRepo, recorder, logger.Named("scan"))
	cracker := checker.NewCracker(cfg.Crack, logger.Named("cracker"))
	orchestrator := checkapp.NewOrchestrator(tracker, cracker, catalog, logger.Named("check"))

	return &Container{
		ScanRepo:          scanRepo,
		Catalog:           catalog,
		Coordinator:       coordinator,
		ScanService:       scanService,
		CheckOrchestrator: orchestrator,
		Auth:              manager,
	}, nil
}

func newAuthManager(cfg AuthConfig) (*auth.Manager, error) {
	creds, err := auth.NewCredentials(cfg.Username, cfg.PasswordHash, cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to configure credentials: %w", err)
	}
	issuer, err := auth.NewIssuer(cfg.Secret, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to configure token issuer: %w", err)
	}
	return auth.NewManager(creds, issuer, auth.NewDenylist(cfg.DenylistSize)), nil
}
