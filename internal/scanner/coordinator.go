package scanner

import (
	"context"

	"github.com/khanhnv2901/wisafe/internal/domain/network"
	"go.uber.org/zap"
)

// Source discovers access points.
type Source interface {
	Name() string
	Scan(ctx context.Context) ([]network.Record, error)
}

// Result is the merged output of one scan.
type Result struct {
	Records   []network.Record
	RealCount int
	// Warning is set when the live source failed and only catalog records
	// were returned.
	Warning string
}

// Coordinator merges catalog records with a live source.
type Coordinator struct {
	catalog *Catalog
	live    Source
	logger  *zap.Logger
}

// NewCoordinator builds a coordinator. live may be nil.
func NewCoordinator(catalog *Catalog, live Source, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{catalog: catalog, live: live, logger: logger}
}

// Catalog returns the catalog backing the coordinator.
func (c *Coordinator) Catalog() *Catalog {
	return c.catalog
}

// Scan returns catalog records first, then live records. A failing live
// source degrades to catalog-only results.
func (c *Coordinator) Scan(ctx context.Context) (Result, error) {
	var res Result
	if c.catalog != nil {
		res.Records = c.catalog.Records()
	}

	if c.live != nil {
		found, err := c.live.Scan(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return Result{}, ctx.Err()
		case err != nil:
			c.logger.Warn("live scan failed",
				zap.String("source", c.live.Name()),
				zap.Error(err),
			)
			res.Warning = err.Error()
		default:
			for i := range found {
				found[i].IsRealScan = true
			}
			res.RealCount = len(found)
			res.Records = append(res.Records, found...)
		}
	}

	network.NormalizeAll(res.Records)
	c.logger.Debug("scan merged",
		zap.Int("total", len(res.Records)),
		zap.Int("real", res.RealCount),
	)
	return res, nil
}

// UserRecords reduces records to the public view, keeping one entry per
// SSID and protocol pair in first-seen order.
func UserRecords(records []network.Record) []network.UserRecord {
	type pair struct {
		ssid     string
		protocol network.Protocol
	}
	seen := make(map[pair]int)
	out := make([]network.UserRecord, 0, len(records))
	for _, r := range records {
		p := pair{r.SSID, r.Protocol}
		if i, ok := seen[p]; ok {
			out[i].KrackVulnerable = out[i].KrackVulnerable || r.KrackVulnerable
			continue
		}
		seen[p] = len(out)
		out = append(out, r.UserView())
	}
	return out
}
