package network

import (
	"testing"

	sharedErrors "github.com/khanhnv2901/wisafe/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSecurity(t *testing.T) {
	tests := []struct {
		in   string
		want Protocol
	}{
		{"", ProtocolOpen},
		{"--", ProtocolOpen},
		{"none", ProtocolOpen},
		{"WPA2 WPA3", ProtocolWPA3},
		{"WPA3", ProtocolWPA3},
		{"WPA2", ProtocolWPA2},
		{"WPA1 WPA2", ProtocolWPA2},
		{"WPA2 WPS", ProtocolWPA2WPS},
		{"WPA1", ProtocolWPA},
		{"WEP", ProtocolWEP},
		{"802.1X", ProtocolOpen},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSecurity(tt.in), "ParseSecurity(%q)", tt.in)
	}
}

func TestNormalizeProtocol(t *testing.T) {
	assert.Equal(t, ProtocolWPA2, NormalizeProtocol("wpa2"))
	assert.Equal(t, ProtocolWPA2WPS, NormalizeProtocol("WPA2-WPS"))
	assert.Equal(t, ProtocolWPA2WPS, NormalizeProtocol("wpa2_wps"))
	assert.Equal(t, Protocol("FOO"), NormalizeProtocol(" foo "))
	assert.False(t, Protocol("FOO").Known())
}

func TestProtocolClassification(t *testing.T) {
	levels := map[Protocol]SecurityLevel{
		ProtocolOpen:    LevelCritical,
		ProtocolWEP:     LevelDanger,
		ProtocolWPA:     LevelWarning,
		ProtocolWPA2:    LevelSafe,
		ProtocolWPA2WPS: LevelDanger,
		ProtocolWPA3:    LevelSafe,
		"ZIGBEE":        LevelUnknown,
	}
	for p, want := range levels {
		assert.Equal(t, want, p.SecurityLevel(), "level of %s", p)
	}
	assert.Equal(t, "WPA2-CCMP + WPS", ProtocolWPA2WPS.Encryption())
	assert.Equal(t, "none", ProtocolOpen.Encryption())
	assert.True(t, ProtocolWPA2WPS.IsWPA2Family())
	assert.False(t, ProtocolWPA3.IsWPA2Family())
	assert.Empty(t, ProtocolWPA3.Vulnerabilities())
	assert.NotEmpty(t, ProtocolWEP.Vulnerabilities())
}

func TestNormalize_OpenIsAlwaysVulnerable(t *testing.T) {
	for _, status := range []CheckStatus{"", CheckUnchecked, CheckSafe, CheckVulnerable} {
		r := Record{SSID: "Free", Protocol: ProtocolOpen, CheckStatus: status}
		r.Normalize()
		assert.Equal(t, CheckVulnerable, r.CheckStatus, "stored status %q", status)
		assert.Equal(t, LevelCritical, r.SecurityLevel)
	}
}

func TestNormalize_FillsDerivedFields(t *testing.T) {
	r := Record{Protocol: "wpa2"}
	r.Normalize()
	assert.Equal(t, HiddenSSID, r.SSID)
	assert.Equal(t, ProtocolWPA2, r.Protocol)
	assert.Equal(t, "WPA2-CCMP", r.Encryption)
	assert.Equal(t, CheckUnchecked, r.CheckStatus)
	assert.NotNil(t, r.Vulnerabilities)
}

func TestMarkRogueAPs(t *testing.T) {
	records := []Record{
		{SSID: "Cafe_WiFi", BSSID: "00:11:22:33:44:70", Protocol: ProtocolWPA2},
		{SSID: "Cafe_WiFi", BSSID: "00:11:22:33:44:71", Protocol: ProtocolOpen},
		{SSID: "Home", BSSID: "00:11:22:33:44:72", Protocol: ProtocolWPA2},
		{SSID: "Home", BSSID: "00:11:22:33:44:73", Protocol: ProtocolWPA3},
		{SSID: "Lonely", BSSID: "00:11:22:33:44:74", Protocol: ProtocolOpen},
	}
	MarkRogueAPs(records)

	assert.True(t, records[0].RogueAP)
	assert.True(t, records[1].RogueAP)
	assert.False(t, records[2].RogueAP, "duplicates without an open member are not rogue")
	assert.False(t, records[3].RogueAP)
	assert.False(t, records[4].RogueAP, "a single open network is not rogue")

	assert.False(t, records[0].RogueImpostor, "the encrypted twin is the legitimate AP")
	assert.True(t, records[1].RogueImpostor)
	for _, r := range records[2:] {
		assert.False(t, r.RogueImpostor, r.SSID)
	}

	// Recomputing after the open twin leaves clears both flags.
	records = records[:1]
	MarkRogueAPs(records)
	assert.False(t, records[0].RogueAP)
	assert.False(t, records[0].RogueImpostor)
}

func TestUserView(t *testing.T) {
	r := Record{SSID: "Lab", BSSID: "aa:bb:cc:dd:ee:ff", Protocol: ProtocolWPA2, Channel: 6, SignalStrength: -40}
	r.Normalize()
	v := r.UserView()
	assert.Equal(t, "Lab", v.SSID)
	assert.Equal(t, LevelSafe, v.SecurityLevel)
}

func TestList_Mutations(t *testing.T) {
	l := NewList()
	l.Replace([]Record{
		{SSID: "Lab", BSSID: "aa:aa:aa:aa:aa:01", Protocol: ProtocolWPA2},
		{SSID: "Lab", BSSID: "aa:aa:aa:aa:aa:02", Protocol: ProtocolWPA2},
		{SSID: "Guest", BSSID: "aa:aa:aa:aa:aa:03", Protocol: ProtocolOpen, CheckStatus: CheckSafe},
	})
	require.Equal(t, 3, l.Len())

	guest, ok := l.Find(Key{SSID: "Guest", BSSID: "aa:aa:aa:aa:aa:03"})
	require.True(t, ok)
	assert.Equal(t, CheckVulnerable, guest.CheckStatus)

	second := Key{SSID: "Lab", BSSID: "aa:aa:aa:aa:aa:02"}
	require.NoError(t, l.ApplyCrackResult(second, "letmein"))
	require.NoError(t, l.ApplyKrackResult(second, true))

	first, _ := l.Find(Key{SSID: "Lab", BSSID: "aa:aa:aa:aa:aa:01"})
	assert.Equal(t, CheckUnchecked, first.CheckStatus, "only the matching bssid is updated")
	assert.False(t, first.KrackChecked)

	updated, _ := l.Find(second)
	assert.Equal(t, CheckVulnerable, updated.CheckStatus)
	assert.Equal(t, "letmein", updated.CrackedPassword)
	assert.True(t, updated.KrackChecked)
	assert.True(t, updated.KrackVulnerable)

	require.NoError(t, l.ApplyCheckStatus(Key{SSID: "Guest", BSSID: "aa:aa:aa:aa:aa:03"}, CheckSafe))
	guest, _ = l.Find(Key{SSID: "Guest", BSSID: "aa:aa:aa:aa:aa:03"})
	assert.Equal(t, CheckVulnerable, guest.CheckStatus, "open networks stay vulnerable")

	err := l.ApplyKrackResult(Key{SSID: "Missing"}, true)
	assert.ErrorIs(t, err, sharedErrors.ErrNetworkNotFound)
}

func TestList_RecordsIsACopy(t *testing.T) {
	l := NewList()
	l.Replace([]Record{{SSID: "Lab", BSSID: "aa:aa:aa:aa:aa:01", Protocol: ProtocolWPA2}})
	out := l.Records()
	out[0].SSID = "changed"
	r, ok := l.Find(Key{SSID: "Lab", BSSID: "aa:aa:aa:aa:aa:01"})
	assert.True(t, ok)
	assert.Equal(t, "Lab", r.SSID)
}
