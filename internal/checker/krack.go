package checker

import (
	"fmt"
	"time"

	"github.com/khanhnv2901/wisafe/internal/domain/network"
	sharedErrors "github.com/khanhnv2901/wisafe/internal/shared/errors"
)

// KrackResult is the outcome of a key reinstallation check
type KrackResult struct {
	Vulnerable bool      `json:"vulnerable"`
	SSID       string    `json:"ssid"`
	BSSID      string    `json:"bssid"`
	CheckedAt  time.Time `json:"checked_at"`
}

// KrackFlagger reports access points known to be unpatched.
type KrackFlagger interface {
	KrackVulnerable(key network.Key) bool
}

// CheckKrack evaluates rec for key reinstallation exposure. Only WPA2
// networks qualify. A record is vulnerable when it carries the flag, when the
// catalog flags it, or when WPS is enabled.
func CheckKrack(rec network.Record, flags KrackFlagger, now time.Time) (KrackResult, error) {
	if !rec.Protocol.IsWPA2Family() {
		return KrackResult{}, fmt.Errorf("%w: %s is %s", sharedErrors.ErrNotWPA2, rec.SSID, rec.Protocol)
	}

	vulnerable := rec.KrackVulnerable ||
		network.NormalizeProtocol(string(rec.Protocol)) == network.ProtocolWPA2WPS
	if !vulnerable && flags != nil {
		vulnerable = flags.KrackVulnerable(rec.Key())
	}

	return KrackResult{
		Vulnerable: vulnerable,
		SSID:       rec.SSID,
		BSSID:      rec.BSSID,
		CheckedAt:  now.UTC(),
	}, nil
}
