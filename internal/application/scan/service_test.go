package scan

import (
	"context"
	"errors"
	"testing"

	"github.com/khanhnv2901/wisafe/internal/domain/network"
	"github.com/khanhnv2901/wisafe/internal/infrastructure/persistence/json"
	"github.com/khanhnv2901/wisafe/internal/scanner"
	sharedErrors "github.com/khanhnv2901/wisafe/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubScanner struct {
	result  scanner.Result
	err     error
	catalog *scanner.Catalog
}

func (s stubScanner) Scan(context.Context) (scanner.Result, error) { return s.result, s.err }
func (s stubScanner) Catalog() *scanner.Catalog                    { return s.catalog }

type countingRecorder struct {
	calls map[string]int
}

func (c *countingRecorder) ObserveScan(audience string, records int) {
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[audience] += records
}

func sampleRecords() []network.Record {
	records := []network.Record{
		{SSID: "Cafe_WiFi", BSSID: "00:11:22:33:44:70", Protocol: network.ProtocolWPA2},
		{SSID: "Cafe_WiFi", BSSID: "00:11:22:33:44:71", Protocol: network.ProtocolOpen},
		{SSID: "Home", BSSID: "00:11:22:33:44:72", Protocol: network.ProtocolWPA2},
		{SSID: "Home", BSSID: "00:11:22:33:44:73", Protocol: network.ProtocolWPA2},
	}
	network.NormalizeAll(records)
	return records
}

func TestUserScan_ReducesView(t *testing.T) {
	rec := &countingRecorder{}
	svc := NewService(stubScanner{result: scanner.Result{Records: sampleRecords()}}, nil, rec, zaptest.NewLogger(t))

	out, err := svc.UserScan(context.Background())
	require.NoError(t, err)
	assert.Len(t, out, 3, "duplicate ssid/protocol pairs collapse")
	assert.Equal(t, 3, rec.calls["user"])
}

func TestExpertScan_SavesHistory(t *testing.T) {
	repo, err := json.NewScanRepository(t.TempDir())
	require.NoError(t, err)
	rec := &countingRecorder{}
	svc := NewService(stubScanner{result: scanner.Result{Records: sampleRecords(), Warning: "nmcli missing"}}, repo, rec, zaptest.NewLogger(t))

	sc, warning, err := svc.ExpertScan(context.Background(), "expert")
	require.NoError(t, err)
	assert.Equal(t, "nmcli missing", warning)
	assert.Len(t, sc.Records(), 4)
	assert.Equal(t, 4, rec.calls["expert"])

	history, err := svc.History(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, sc.ID(), history[0].ID)
	assert.Equal(t, 1, history[0].OpenCount)
	assert.Equal(t, 2, history[0].RogueCount)

	stored, err := svc.GetScan(context.Background(), sc.ID())
	require.NoError(t, err)
	assert.Equal(t, "expert", stored.Operator())
}

func TestExpertScan_PropagatesScanError(t *testing.T) {
	svc := NewService(stubScanner{err: context.Canceled}, nil, nil, nil)
	_, _, err := svc.ExpertScan(context.Background(), "expert")
	assert.True(t, errors.Is(err, context.Canceled))

	_, err = svc.UserScan(context.Background())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestHistory_WithoutRepository(t *testing.T) {
	svc := NewService(stubScanner{}, nil, nil, nil)
	history, err := svc.History(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = svc.GetScan(context.Background(), "missing")
	assert.ErrorIs(t, err, sharedErrors.ErrScanNotFound)
}

func TestGuide(t *testing.T) {
	catalog, err := scanner.DefaultCatalog()
	require.NoError(t, err)
	svc := NewService(stubScanner{catalog: catalog}, nil, nil, nil)

	g, err := svc.Guide("")
	require.NoError(t, err)
	assert.Contains(t, g, network.LevelCritical)

	g, err = svc.Guide("expert")
	require.NoError(t, err)
	assert.NotEmpty(t, g[network.LevelCritical].AttackVectors)

	_, err = svc.Guide("admin")
	assert.ErrorIs(t, err, sharedErrors.ErrInvalidInput)
}
