package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
	// SecretFilePerm is used for files holding session tokens.
	SecretFilePerm fs.FileMode = 0o600
)

const (
	// MaxScanResults caps how many records a single scan source may contribute.
	MaxScanResults = 15
	// NmcliTimeout bounds a single nmcli invocation.
	NmcliTimeout = 10 * time.Second
	// ScanRequestTimeout is the client-side deadline for a scan round trip.
	ScanRequestTimeout = 60 * time.Second
	// PollInterval is the fixed delay between job progress polls.
	PollInterval = 2 * time.Second
)

const (
	// AccessTokenTTL is the lifetime of an access token.
	AccessTokenTTL = 15 * time.Minute
	// RefreshTokenTTL is the lifetime of a refresh token.
	RefreshTokenTTL = 7 * 24 * time.Hour
)
