package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/khanhnv2901/wisafe/internal/domain/network"
	"github.com/khanhnv2901/wisafe/internal/domain/scan"
	"github.com/khanhnv2901/wisafe/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/wisafe/internal/shared/errors"
	"github.com/khanhnv2901/wisafe/internal/shared/security"
)

// scanDTO is the data transfer object for JSON serialization
type scanDTO struct {
	ID        string      `json:"id"`
	Operator  string      `json:"operator"`
	ScannedAt string      `json:"scanned_at"`
	Records   []recordDTO `json:"records"`
}

type recordDTO struct {
	SSID            string   `json:"ssid"`
	BSSID           string   `json:"bssid,omitempty"`
	Protocol        string   `json:"protocol"`
	Channel         int      `json:"channel,omitempty"`
	Encryption      string   `json:"encryption,omitempty"`
	SignalStrength  int      `json:"signal_strength,omitempty"`
	Vulnerabilities []string `json:"vulnerabilities,omitempty"`
	CheckStatus     string   `json:"check_status"`
	AuthType        string   `json:"auth_type,omitempty"`
	IsRealScan      bool     `json:"is_real_scan"`
	IsNewData       bool     `json:"is_new_data,omitempty"`
	KrackChecked    bool     `json:"krack_checked,omitempty"`
	KrackVulnerable bool     `json:"krack_vulnerable,omitempty"`
}

// ScanRepository implements the scan.Repository interface using one JSON file per scan
type ScanRepository struct {
	scansDir string
	mu       sync.RWMutex
}

// NewScanRepository creates a new JSON-based scan repository under dataDir
func NewScanRepository(dataDir string) (*ScanRepository, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	scansDir := filepath.Join(dataDir, "scans")
	if err := os.MkdirAll(scansDir, constants.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create scans directory: %w", err)
	}

	return &ScanRepository{
		scansDir: scansDir,
	}, nil
}

// Save persists a scan with all its records
func (r *ScanRepository) Save(ctx context.Context, s *scan.Scan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	filePath, err := r.pathFor(s.ID())
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(r.toDTO(s), "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrSerializationFailed, err)
	}

	if err := security.WriteFileAtomic(filePath, data, constants.DefaultFilePerm); err != nil {
		return fmt.Errorf("%w: save scan: %v", sharedErrors.ErrRepositoryOperation, err)
	}

	return nil
}

// FindByID retrieves a scan by its ID
func (r *ScanRepository) FindByID(ctx context.Context, id string) (*scan.Scan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	filePath, err := r.pathFor(id)
	if err != nil {
		return nil, err
	}

	s, err := r.loadFromFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, sharedErrors.ErrScanNotFound
	}
	return s, err
}

// FindRecent retrieves up to limit scans, newest first. A non-positive limit
// returns every scan.
func (r *ScanRepository) FindRecent(ctx context.Context, limit int) ([]*scan.Scan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.scansDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scans directory: %w", err)
	}

	scans := make([]*scan.Scan, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		s, err := r.loadFromFile(filepath.Join(r.scansDir, entry.Name()))
		if err != nil {
			continue
		}
		scans = append(scans, s)
	}

	sort.Slice(scans, func(i, j int) bool {
		return scans[i].ScannedAt().After(scans[j].ScannedAt())
	})

	if limit > 0 && limit < len(scans) {
		scans = scans[:limit]
	}
	return scans, nil
}

// Helper methods

func (r *ScanRepository) pathFor(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: scan id %q", sharedErrors.ErrInvalidInput, id)
	}
	return security.ResolveWithin(r.scansDir, id+".json")
}

func (r *ScanRepository) loadFromFile(filePath string) (*scan.Scan, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var dto scanDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, err)
	}

	return r.fromDTO(dto)
}

func (r *ScanRepository) toDTO(s *scan.Scan) scanDTO {
	dto := scanDTO{
		ID:        s.ID(),
		Operator:  s.Operator(),
		ScannedAt: s.ScannedAt().Format(time.RFC3339Nano),
		Records:   make([]recordDTO, 0),
	}
	for _, rec := range s.Records() {
		dto.Records = append(dto.Records, recordDTO{
			SSID:            rec.SSID,
			BSSID:           rec.BSSID,
			Protocol:        string(rec.Protocol),
			Channel:         rec.Channel,
			Encryption:      rec.Encryption,
			SignalStrength:  rec.SignalStrength,
			Vulnerabilities: rec.Vulnerabilities,
			CheckStatus:     string(rec.CheckStatus),
			AuthType:        rec.AuthType,
			IsRealScan:      rec.IsRealScan,
			IsNewData:       rec.IsNewData,
			KrackChecked:    rec.KrackChecked,
			KrackVulnerable: rec.KrackVulnerable,
		})
	}
	return dto
}

func (r *ScanRepository) fromDTO(dto scanDTO) (*scan.Scan, error) {
	scannedAt, err := time.Parse(time.RFC3339Nano, dto.ScannedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scanned at time: %w", err)
	}

	records := make([]network.Record, 0, len(dto.Records))
	for _, rec := range dto.Records {
		records = append(records, network.Record{
			SSID:            rec.SSID,
			BSSID:           rec.BSSID,
			Protocol:        network.Protocol(rec.Protocol),
			Channel:         rec.Channel,
			Encryption:      rec.Encryption,
			SignalStrength:  rec.SignalStrength,
			Vulnerabilities: rec.Vulnerabilities,
			CheckStatus:     network.CheckStatus(rec.CheckStatus),
			AuthType:        rec.AuthType,
			IsRealScan:      rec.IsRealScan,
			IsNewData:       rec.IsNewData,
			KrackChecked:    rec.KrackChecked,
			KrackVulnerable: rec.KrackVulnerable,
		})
	}
	// Derived fields and rogue flags are recomputed rather than stored.
	network.NormalizeAll(records)

	return scan.Reconstruct(dto.ID, dto.Operator, scannedAt, records), nil
}
