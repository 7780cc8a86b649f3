package network

import "strings"

// Protocol is the wireless security protocol advertised by an access point.
type Protocol string

const (
	ProtocolOpen    Protocol = "OPEN"
	ProtocolWEP     Protocol = "WEP"
	ProtocolWPA     Protocol = "WPA"
	ProtocolWPA2    Protocol = "WPA2"
	ProtocolWPA2WPS Protocol = "WPA2_WPS"
	ProtocolWPA3    Protocol = "WPA3"
)

// SecurityLevel is the risk classification shown for a network.
type SecurityLevel string

const (
	LevelCritical SecurityLevel = "critical"
	LevelDanger   SecurityLevel = "danger"
	LevelWarning  SecurityLevel = "warning"
	LevelSafe     SecurityLevel = "safe"
	LevelUnknown  SecurityLevel = "unknown"
)

var protocolLevels = map[Protocol]SecurityLevel{
	ProtocolOpen:    LevelCritical,
	ProtocolWEP:     LevelDanger,
	ProtocolWPA:     LevelWarning,
	ProtocolWPA2:    LevelSafe,
	ProtocolWPA2WPS: LevelDanger,
	ProtocolWPA3:    LevelSafe,
}

var protocolVulnerabilities = map[Protocol][]string{
	ProtocolOpen:    {"unrestricted access", "traffic eavesdropping", "man-in-the-middle", "packet sniffing"},
	ProtocolWEP:     {"weak WEP encryption", "WEP key recovery"},
	ProtocolWPA:     {"weak WPA encryption", "WPA-TKIP weaknesses"},
	ProtocolWPA2:    {},
	ProtocolWPA2WPS: {"WPS enabled", "WPS PIN brute force", "KRACK exposure"},
	ProtocolWPA3:    {},
}

var protocolEncryption = map[Protocol]string{
	ProtocolOpen:    "none",
	ProtocolWEP:     "WEP",
	ProtocolWPA:     "WPA-TKIP",
	ProtocolWPA2:    "WPA2-CCMP",
	ProtocolWPA2WPS: "WPA2-CCMP + WPS",
	ProtocolWPA3:    "WPA3-SAE",
}

// ParseSecurity derives a protocol from a raw security descriptor such as the
// SECURITY column printed by nmcli ("WPA2 WPA3", "WPA1", "--", "").
func ParseSecurity(security string) Protocol {
	upper := strings.ToUpper(strings.TrimSpace(security))
	switch {
	case upper == "" || upper == "--" || strings.Contains(upper, "NONE"):
		return ProtocolOpen
	case strings.Contains(upper, "WPA3"):
		return ProtocolWPA3
	case strings.Contains(upper, "WPA2"):
		if strings.Contains(upper, "WPS") {
			return ProtocolWPA2WPS
		}
		return ProtocolWPA2
	case strings.Contains(upper, "WPA"):
		return ProtocolWPA
	case strings.Contains(upper, "WEP"):
		return ProtocolWEP
	default:
		return ProtocolOpen
	}
}

// NormalizeProtocol canonicalizes a protocol name supplied by a client
// ("wpa2", "WPA2-WPS", "wpa2_wps"). Unrecognized names are upper-cased and
// returned as-is so callers can report them.
func NormalizeProtocol(name string) Protocol {
	upper := strings.ToUpper(strings.TrimSpace(name))
	upper = strings.ReplaceAll(upper, "-", "_")
	if strings.HasPrefix(upper, "WPA2") && strings.Contains(upper, "WPS") {
		return ProtocolWPA2WPS
	}
	return Protocol(upper)
}

// Known reports whether p is one of the supported protocols.
func (p Protocol) Known() bool {
	_, ok := protocolLevels[p]
	return ok
}

// IsOpen reports whether p carries no encryption.
func (p Protocol) IsOpen() bool {
	return NormalizeProtocol(string(p)) == ProtocolOpen
}

// IsWPA2Family reports whether p is WPA2, with or without WPS.
func (p Protocol) IsWPA2Family() bool {
	n := NormalizeProtocol(string(p))
	return n == ProtocolWPA2 || n == ProtocolWPA2WPS
}

// SecurityLevel returns the risk classification for p.
func (p Protocol) SecurityLevel() SecurityLevel {
	if level, ok := protocolLevels[NormalizeProtocol(string(p))]; ok {
		return level
	}
	return LevelUnknown
}

// Vulnerabilities returns the known weaknesses of p.
func (p Protocol) Vulnerabilities() []string {
	vulns := protocolVulnerabilities[NormalizeProtocol(string(p))]
	return append([]string{}, vulns...)
}

// Encryption returns the cipher description displayed for p.
func (p Protocol) Encryption() string {
	if enc, ok := protocolEncryption[NormalizeProtocol(string(p))]; ok {
		return enc
	}
	return "unknown"
}
