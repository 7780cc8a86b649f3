package scan

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/khanhnv2901/wisafe/internal/domain/network"
)

// Scan is one completed discovery run and the records it produced
type Scan struct {
	id        string
	operator  string
	scannedAt time.Time
	records   []network.Record
}

// Summary is the history listing view of a scan
type Summary struct {
	ID            string    `json:"id"`
	Operator      string    `json:"operator"`
	ScannedAt     time.Time `json:"scanned_at"`
	Count         int       `json:"count"`
	RealCount     int       `json:"real_count"`
	OpenCount     int       `json:"open_count"`
	RogueCount    int       `json:"rogue_count"`
	CriticalSSIDs []string  `json:"critical_ssids,omitempty"`
}

// NewScan records a scan performed by operator
func NewScan(operator string, records []network.Record) (*Scan, error) {
	if operator == "" {
		return nil, errors.New("operator cannot be empty")
	}
	cp := make([]network.Record, len(records))
	copy(cp, records)
	return &Scan{
		id:        uuid.NewString(),
		operator:  operator,
		scannedAt: time.Now().UTC(),
		records:   cp,
	}, nil
}

// Reconstruct creates a scan from persisted data
func Reconstruct(id, operator string, scannedAt time.Time, records []network.Record) *Scan {
	return &Scan{
		id:        id,
		operator:  operator,
		scannedAt: scannedAt,
		records:   records,
	}
}

// Getters

func (s *Scan) ID() string           { return s.id }
func (s *Scan) Operator() string     { return s.operator }
func (s *Scan) ScannedAt() time.Time { return s.scannedAt }

// Records returns a copy of the scanned records
func (s *Scan) Records() []network.Record {
	out := make([]network.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Summarize builds the listing view of the scan
func (s *Scan) Summarize() Summary {
	sum := Summary{
		ID:        s.id,
		Operator:  s.operator,
		ScannedAt: s.scannedAt,
		Count:     len(s.records),
	}
	for _, r := range s.records {
		if r.IsRealScan {
			sum.RealCount++
		}
		if r.Protocol == network.ProtocolOpen {
			sum.OpenCount++
		}
		if r.RogueAP {
			sum.RogueCount++
		}
		if r.SecurityLevel == network.LevelCritical {
			sum.CriticalSSIDs = append(sum.CriticalSSIDs, r.SSID)
		}
	}
	return sum
}
