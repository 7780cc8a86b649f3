package cmd

import (
	"fmt"
	"strings"

	"github.com/khanhnv2901/wisafe/internal/client"
)

// NetworkNotFoundError indicates no cached network matched the selector.
type NetworkNotFoundError struct {
	SSID  string
	BSSID string
}

func (e *NetworkNotFoundError) Error() string {
	if e.BSSID != "" {
		return fmt.Sprintf("network %s (%s) not found in the last scan", e.SSID, e.BSSID)
	}
	return fmt.Sprintf("network %s not found in the last scan", e.SSID)
}

// AmbiguousNetworkError signals that an SSID matches several access points.
type AmbiguousNetworkError struct {
	SSID   string
	BSSIDs []string
}

func (e *AmbiguousNetworkError) Error() string {
	return fmt.Sprintf("network %s matches %d access points (%s); pass --bssid",
		e.SSID, len(e.BSSIDs), strings.Join(e.BSSIDs, ", "))
}

// describeError renders err for the terminal.
func describeError(err error) string {
	return client.Describe(err)
}
