package checker

import (
	"strings"
	"time"

	"github.com/khanhnv2901/wisafe/internal/domain/network"
	sharedErrors "github.com/khanhnv2901/wisafe/internal/shared/errors"
)

// CheckSteps are the four phases reported by a synchronous security check.
var CheckSteps = []string{
	"Checking security configuration...",
	"Looking for weak encryption...",
	"Scanning for vulnerabilities...",
	"Finishing analysis...",
}

// simulatedDuration is the nominal duration of a synchronous check in seconds.
const simulatedDuration = 5.0

// Verdict is the outcome of a synchronous security check
type Verdict struct {
	Protocol        string   `json:"protocol"`
	RiskLevel       string   `json:"risk_level"`
	Vulnerabilities []string `json:"vulnerabilities"`
	Recommendations []string `json:"recommendations"`
	CheckSteps      []string `json:"check_steps"`
	ScanDuration    float64  `json:"scan_duration"`
	Timestamp       float64  `json:"timestamp"`
}

type verdictEntry struct {
	risk            network.SecurityLevel
	vulnerabilities []string
	recommendations []string
}

var verdicts = map[string]verdictEntry{
	"wep": {
		risk: network.LevelDanger,
		vulnerabilities: []string{
			"WEP has had severe published weaknesses since 2001",
			"IV reuse allows the key to be recovered",
			"Off-the-shelf tools recover the key within minutes",
			"Traffic can be sniffed and read",
		},
		recommendations: []string{
			"Upgrade to WPA2 or WPA3 immediately",
			"Stop using WEP",
			"Reconfigure the network",
		},
	},
	"wpa": {
		risk: network.LevelWarning,
		vulnerabilities: []string{
			"WPA-TKIP has known weaknesses",
			"WPS PIN brute force may be possible",
			"Susceptible to dictionary attacks",
			"Packet replay is possible",
		},
		recommendations: []string{
			"Upgrade to WPA2-CCMP or WPA3",
			"Disable WPS",
			"Use a strong passphrase",
		},
	},
	"wpa2": {
		risk: network.LevelSafe,
		vulnerabilities: []string{
			"No known critical vulnerabilities",
			"A strong passphrase is recommended",
			"Keep firmware up to date",
		},
		recommendations: []string{
			"Currently a safe protocol",
			"Use a strong passphrase",
			"Apply security updates regularly",
			"Disabling WPS is recommended",
		},
	},
	"wpa2_wps": {
		risk: network.LevelDanger,
		vulnerabilities: []string{
			"Highly exposed to WPS PIN brute force",
			"KRACK attack possible",
			"The WPS PIN is validated in two halves",
			"The PIN can be recovered in about 11,000 attempts",
		},
		recommendations: []string{
			"Disable WPS immediately",
			"Upgrade to WPA3",
			"Use a strong passphrase",
			"Consider MAC address filtering",
		},
	},
	"wpa3": {
		risk: network.LevelSafe,
		vulnerabilities: []string{
			"No known critical vulnerabilities",
			"Dragonblood side channels (theoretical)",
			"Compatibility issues with legacy clients",
		},
		recommendations: []string{
			"Currently the safest protocol",
			"Keep firmware up to date",
			"Use a strong passphrase",
		},
	},
}

// Evaluate returns the verdict for protocol. Open networks are rejected with
// ErrOpenNetwork; unrecognized protocols yield an "unknown" risk level.
func Evaluate(protocol string, now time.Time) (Verdict, error) {
	key := strings.ToLower(strings.TrimSpace(protocol))
	if key == "" {
		return Verdict{}, sharedErrors.ErrMissingProtocol
	}
	if key == "open" {
		return Verdict{}, sharedErrors.ErrOpenNetwork
	}
	key = strings.ReplaceAll(key, "-", "_")
	if strings.HasPrefix(key, "wpa2") && strings.Contains(key, "wps") {
		key = "wpa2_wps"
	}

	entry, ok := verdicts[key]
	if !ok {
		entry = verdictEntry{
			risk:            network.LevelUnknown,
			vulnerabilities: []string{"Unknown protocol"},
			recommendations: []string{"Verify the protocol"},
		}
	}

	return Verdict{
		Protocol:        protocol,
		RiskLevel:       string(entry.risk),
		Vulnerabilities: append([]string{}, entry.vulnerabilities...),
		Recommendations: append([]string{}, entry.recommendations...),
		CheckSteps:      append([]string{}, CheckSteps...),
		ScanDuration:    simulatedDuration,
		Timestamp:       float64(now.UnixNano()) / float64(time.Second),
	}, nil
}

// CheckStatus maps a verdict onto the record status shown to clients.
func (v Verdict) CheckStatus() network.CheckStatus {
	switch network.SecurityLevel(v.RiskLevel) {
	case network.LevelSafe:
		return network.CheckSafe
	case network.LevelUnknown:
		return network.CheckUnchecked
	default:
		return network.CheckVulnerable
	}
}
