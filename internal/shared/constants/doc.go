// Package constants centralizes defaults shared across the service and the CLI.
//
// File permissions, scan caps, polling cadence and token lifetimes live here so
// cmd/ and internal/ agree on them without importing each other.
package constants
