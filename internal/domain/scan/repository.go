package scan

import "context"

// Repository defines the interface for scan history persistence
type Repository interface {
	// Save persists a scan with its records
	Save(ctx context.Context, s *Scan) error

	// FindByID retrieves a scan by its ID
	FindByID(ctx context.Context, id string) (*Scan, error)

	// FindRecent retrieves up to limit scans, newest first
	FindRecent(ctx context.Context, limit int) ([]*Scan, error)
}
