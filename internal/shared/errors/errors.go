package errors

import "errors"

// Domain errors
var (
	// Network errors
	ErrOpenNetwork         = errors.New("open networks cannot be checked")
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
	ErrMissingProtocol     = errors.New("protocol is required")
	ErrNotWPA2             = errors.New("KRACK checks require a WPA2 network")
	ErrNetworkNotFound     = errors.New("network not found")

	// Job errors
	ErrJobNotFound = errors.New("job not found")
	ErrJobTerminal = errors.New("job already finished")
	ErrJobCanceled = errors.New("job cancelled")

	// Scan errors
	ErrScanNotFound    = errors.New("scan not found")
	ErrScannerMissing  = errors.New("scanner tool not available")
	ErrScanUnavailable = errors.New("scan source unavailable")

	// Auth errors
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTokenMissing       = errors.New("token not provided")
	ErrTokenInvalid       = errors.New("invalid or expired token")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrLoginRequired      = errors.New("login required")

	// Repository errors
	ErrRepositoryOperation   = errors.New("repository operation failed")
	ErrSerializationFailed   = errors.New("serialization failed")
	ErrDeserializationFailed = errors.New("deserialization failed")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingRequired = errors.New("missing required field")
)
