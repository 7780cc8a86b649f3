package client

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// Describe turns a client error into a message fit for an operator.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	var netErr net.Error
	switch {
	case errors.Is(err, ErrLoginRequired):
		return "Your session has expired. Please log in again."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. The scan may take longer than expected, please try again."
	case errors.Is(err, context.Canceled):
		return "The request was cancelled."
	case errors.Is(err, syscall.ECONNREFUSED):
		return "Cannot reach the server. Check that it is running and the address is correct."
	case errors.As(err, &apiErr):
		if apiErr.Status >= 500 {
			return "The server hit an internal error. Please try again later."
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return apiErr.Error()
	case errors.As(err, &netErr) && netErr.Timeout():
		return "The request timed out. Please check the network connection."
	case errors.As(err, &netErr):
		return "Network error: " + err.Error()
	default:
		return err.Error()
	}
}
