package network

// CheckStatus is the outcome of the last security check run against a record.
type CheckStatus string

const (
	CheckUnchecked  CheckStatus = "unchecked"
	CheckSafe       CheckStatus = "safe"
	CheckVulnerable CheckStatus = "vulnerable"
)

// HiddenSSID is displayed for access points that do not broadcast a name.
const HiddenSSID = "<Hidden Network>"

// Record is a single discovered access point.
type Record struct {
	SSID            string        `json:"ssid" yaml:"ssid"`
	BSSID           string        `json:"bssid,omitempty" yaml:"bssid"`
	Protocol        Protocol      `json:"protocol" yaml:"protocol"`
	Channel         int           `json:"channel,omitempty" yaml:"channel"`
	Encryption      string        `json:"encryption,omitempty" yaml:"encryption"`
	SignalStrength  int           `json:"signal_strength,omitempty" yaml:"signal_strength"`
	SecurityLevel   SecurityLevel `json:"security_level" yaml:"security_level"`
	Vulnerabilities []string      `json:"vulnerabilities" yaml:"vulnerabilities"`
	CheckStatus     CheckStatus   `json:"check_status" yaml:"check_status"`
	AuthType        string        `json:"auth_type,omitempty" yaml:"auth_type"`
	IsRealScan      bool          `json:"is_real_scan" yaml:"is_real_scan"`
	IsNewData       bool          `json:"is_new_data" yaml:"is_new_data"`
	RogueAP         bool          `json:"rogue_ap,omitempty" yaml:"-"`
	RogueImpostor   bool          `json:"rogue_impostor,omitempty" yaml:"-"`
	KrackChecked    bool          `json:"krack_checked,omitempty" yaml:"krack_checked"`
	KrackVulnerable bool          `json:"krack_vulnerable,omitempty" yaml:"krack_vulnerable"`
	CrackedPassword string        `json:"cracked_password,omitempty" yaml:"-"`
}

// Key identifies a record within one scan. SSIDs alone are not unique: a rogue
// access point deliberately reuses a legitimate SSID.
type Key struct {
	SSID  string
	BSSID string
}

// Key returns the identity of r.
func (r Record) Key() Key {
	return Key{SSID: r.SSID, BSSID: r.BSSID}
}

// Normalize fills derived fields and enforces the OPEN invariant: an open
// network is always vulnerable, whatever status was stored before.
func (r *Record) Normalize() {
	if r.SSID == "" {
		r.SSID = HiddenSSID
	}
	if r.Protocol == "" {
		r.Protocol = ParseSecurity(r.Encryption)
	}
	r.Protocol = NormalizeProtocol(string(r.Protocol))
	r.SecurityLevel = r.Protocol.SecurityLevel()
	if r.Vulnerabilities == nil {
		r.Vulnerabilities = r.Protocol.Vulnerabilities()
	}
	if r.Encryption == "" {
		r.Encryption = r.Protocol.Encryption()
	}
	if r.CheckStatus == "" {
		r.CheckStatus = CheckUnchecked
	}
	if r.Protocol == ProtocolOpen {
		r.CheckStatus = CheckVulnerable
	}
}

// UserRecord is the reduced view served to unauthenticated users.
type UserRecord struct {
	SSID            string        `json:"ssid"`
	Protocol        Protocol      `json:"protocol"`
	SecurityLevel   SecurityLevel `json:"security_level"`
	CheckStatus     CheckStatus   `json:"check_status"`
	IsNewData       bool          `json:"is_new_data,omitempty"`
	RogueAP         bool          `json:"rogue_ap,omitempty"`
	RogueImpostor   bool          `json:"rogue_impostor,omitempty"`
	KrackVulnerable bool          `json:"krack_vulnerable,omitempty"`
}

// UserView strips hardware and radio details from r.
func (r Record) UserView() UserRecord {
	return UserRecord{
		SSID:            r.SSID,
		Protocol:        r.Protocol,
		SecurityLevel:   r.SecurityLevel,
		CheckStatus:     r.CheckStatus,
		IsNewData:       r.IsNewData,
		RogueAP:         r.RogueAP,
		RogueImpostor:   r.RogueImpostor,
		KrackVulnerable: r.KrackVulnerable,
	}
}

// NormalizeAll normalizes every record and recomputes rogue AP flags.
func NormalizeAll(records []Record) {
	for i := range records {
		records[i].Normalize()
	}
	MarkRogueAPs(records)
}

// RogueSSIDs returns the SSIDs shared by two or more records where at least
// one of them is an open network.
func RogueSSIDs(records []Record) map[string]bool {
	counts := make(map[string]int)
	hasOpen := make(map[string]bool)
	for _, r := range records {
		counts[r.SSID]++
		if NormalizeProtocol(string(r.Protocol)) == ProtocolOpen {
			hasOpen[r.SSID] = true
		}
	}
	rogue := make(map[string]bool)
	for ssid, n := range counts {
		if n >= 2 && hasOpen[ssid] {
			rogue[ssid] = true
		}
	}
	return rogue
}

// MarkRogueAPs sets RogueAP on every record whose SSID group qualifies and
// RogueImpostor on the open members of those groups.
func MarkRogueAPs(records []Record) {
	rogue := RogueSSIDs(records)
	for i := range records {
		r := &records[i]
		r.RogueAP = rogue[r.SSID]
		r.RogueImpostor = r.RogueAP && NormalizeProtocol(string(r.Protocol)) == ProtocolOpen
	}
}
