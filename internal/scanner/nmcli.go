package scanner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/khanhnv2901/wisafe/internal/domain/network"
	"github.com/khanhnv2901/wisafe/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/wisafe/internal/shared/errors"
)

var bssidPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)

// nmcliArgs requests terse output restricted to the parsed columns.
var nmcliArgs = []string{"-t", "-f", "SSID,BSSID,CHAN,SIGNAL,SECURITY", "device", "wifi", "list"}

// CommandRunner executes an external command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// NmcliSource lists nearby access points through NetworkManager.
type NmcliSource struct {
	Binary     string
	Timeout    time.Duration
	MaxResults int
	Run        CommandRunner
}

// NewNmcliSource returns a source with the default binary, timeout and cap.
func NewNmcliSource() *NmcliSource {
	return &NmcliSource{
		Binary:     "nmcli",
		Timeout:    constants.NmcliTimeout,
		MaxResults: constants.MaxScanResults,
		Run:        execRunner,
	}
}

// Name identifies the source in logs.
func (s *NmcliSource) Name() string { return "nmcli" }

// Scan runs nmcli once and parses its terse output.
func (s *NmcliSource) Scan(ctx context.Context) ([]network.Record, error) {
	if s.Run == nil {
		s.Run = execRunner
	}
	if s.Binary == "" {
		s.Binary = "nmcli"
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = constants.NmcliTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := s.Run(ctx, s.Binary, nmcliArgs...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", sharedErrors.ErrScannerMissing, s.Binary)
		}
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %s timed out after %s", sharedErrors.ErrScanUnavailable, s.Binary, timeout)
		}
		return nil, fmt.Errorf("%w: %s: %v", sharedErrors.ErrScanUnavailable, s.Binary, err)
	}

	records := ParseNmcliOutput(string(out))
	max := s.MaxResults
	if max <= 0 {
		max = constants.MaxScanResults
	}
	if len(records) > max {
		records = records[:max]
	}
	return records, nil
}

// ParseNmcliOutput parses `nmcli -t -f SSID,BSSID,CHAN,SIGNAL,SECURITY`
// output. Both the escaped form (AA\:BB\:...) and the raw colon-joined form
// are accepted. Lines with an invalid BSSID are skipped.
func ParseNmcliOutput(output string) []network.Record {
	var records []network.Record
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := splitTerse(line)
		ssid, bssid, chanField, signalField, security, ok := assembleFields(fields)
		if !ok || !bssidPattern.MatchString(bssid) {
			continue
		}
		if ssid == "" {
			ssid = network.HiddenSSID
		}

		rec := network.Record{
			SSID:           ssid,
			BSSID:          bssid,
			Protocol:       network.ParseSecurity(security),
			Channel:        atoiOrZero(chanField),
			SignalStrength: atoiOrZero(signalField),
			Encryption:     security,
			IsRealScan:     true,
		}
		rec.Normalize()
		records = append(records, rec)
	}
	return records
}

// splitTerse splits on unescaped colons and removes backslash escapes.
func splitTerse(line string) []string {
	var (
		fields []string
		cur    strings.Builder
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\\' && i+1 < len(line):
			i++
			cur.WriteByte(line[i])
		case c == ':':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(fields, cur.String())
}

func assembleFields(f []string) (ssid, bssid, channel, signal, security string, ok bool) {
	switch {
	case len(f) == 5:
		return f[0], f[1], f[2], f[3], f[4], true
	case len(f) >= 9:
		// unescaped output: the BSSID spans six fields
		return f[0], strings.Join(f[1:7], ":"), f[7], f[8], strings.Join(f[9:], ":"), true
	default:
		return "", "", "", "", "", false
	}
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
