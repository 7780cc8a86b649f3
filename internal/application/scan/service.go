package scan

import (
	"context"
	"fmt"

	"github.com/khanhnv2901/wisafe/internal/domain/network"
	"github.com/khanhnv2901/wisafe/internal/domain/scan"
	"github.com/khanhnv2901/wisafe/internal/scanner"
	sharedErrors "github.com/khanhnv2901/wisafe/internal/shared/errors"
	"go.uber.org/zap"
)

// DefaultHistoryLimit applies when History is called without a limit.
const DefaultHistoryLimit = 20

// Scanner produces merged scan results.
type Scanner interface {
	Scan(ctx context.Context) (scanner.Result, error)
	Catalog() *scanner.Catalog
}

// Recorder observes completed scans.
type Recorder interface {
	ObserveScan(audience string, records int)
}

// Service provides application-level scan operations
type Service struct {
	scanner  Scanner
	repo     scan.Repository
	recorder Recorder
	logger   *zap.Logger
}

// NewService creates a new scan service. repo and recorder may be nil.
func NewService(s Scanner, repo scan.Repository, recorder Recorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		scanner:  s,
		repo:     repo,
		recorder: recorder,
		logger:   logger,
	}
}

// UserScan runs a scan and returns the reduced public view
func (s *Service) UserScan(ctx context.Context) ([]network.UserRecord, error) {
	res, err := s.scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	records := scanner.UserRecords(res.Records)
	s.observe(string(scanner.AudienceUser), len(records))
	return records, nil
}

// ExpertScan runs a scan, stores it in the history and returns the saved scan
// together with any live-source warning.
func (s *Service) ExpertScan(ctx context.Context, operator string) (*scan.Scan, string, error) {
	res, err := s.scanner.Scan(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to scan: %w", err)
	}

	sc, err := scan.NewScan(operator, res.Records)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create scan: %w", err)
	}

	if s.repo != nil {
		if err := s.repo.Save(ctx, sc); err != nil {
			// History is best effort; the caller still gets its results.
			s.logger.Warn("failed to save scan",
				zap.String("scan_id", sc.ID()),
				zap.Error(err),
			)
		}
	}

	s.observe(string(scanner.AudienceExpert), len(res.Records))
	return sc, res.Warning, nil
}

// History returns summaries of the most recent scans
func (s *Service) History(ctx context.Context, limit int) ([]scan.Summary, error) {
	if s.repo == nil {
		return []scan.Summary{}, nil
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	scans, err := s.repo.FindRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	out := make([]scan.Summary, 0, len(scans))
	for _, sc := range scans {
		out = append(out, sc.Summarize())
	}
	return out, nil
}

// GetScan retrieves a stored scan by ID
func (s *Service) GetScan(ctx context.Context, id string) (*scan.Scan, error) {
	if s.repo == nil {
		return nil, sharedErrors.ErrScanNotFound
	}
	sc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return sc, nil
}

// Guide returns the security guide for audience. An empty audience selects
// the user guide.
func (s *Service) Guide(audience string) (scanner.Guide, error) {
	a := scanner.Audience(audience)
	switch a {
	case "":
		a = scanner.AudienceUser
	case scanner.AudienceUser, scanner.AudienceExpert:
	default:
		return nil, fmt.Errorf("%w: unknown audience %q", sharedErrors.ErrInvalidInput, audience)
	}
	catalog := s.scanner.Catalog()
	if catalog == nil {
		return scanner.Guide{}, nil
	}
	return catalog.Guide(a), nil
}

func (s *Service) observe(audience string, n int) {
	if s.recorder != nil {
		s.recorder.ObserveScan(audience, n)
	}
}
