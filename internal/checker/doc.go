// Package checker evaluates WiFi networks.
//
// Three checks live here:
//
//   - Evaluate returns the immediate verdict for a protocol, used for catalog
//     networks that cannot be probed.
//   - Cracker drives a simulated key-recovery job for live networks. Progress
//     is reported through a Reporter so any job tracker can hold the state.
//     Only lab access points with a configured passphrase can succeed.
//   - CheckKrack decides key reinstallation exposure for WPA2-family records.
//
// Nothing in this package transmits or captures radio frames.
package checker
