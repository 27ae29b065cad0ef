package vapi

import (
	"errors"
	"fmt"
)

// ErrCredentialMissing means the calling user has no private key stored.
// Raised before any upstream request is attempted.
var ErrCredentialMissing = errors.New("vapi: private API key not configured")

// ErrUpstreamFormat wraps decode failures: the platform answered 2xx but the
// body did not match the expected shape.
var ErrUpstreamFormat = errors.New("vapi: unexpected upstream response format")

// UpstreamError is a non-success upstream status. Status and body are kept
// for diagnostics; the body may be truncated.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("vapi: upstream error: status %d: %s", e.Status, e.Body)
}

// AsUpstream unwraps an *UpstreamError if err is one.
func AsUpstream(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

const maxErrBodyLen = 2048

func truncateBody(b []byte) string {
	if len(b) > maxErrBodyLen {
		return string(b[:maxErrBodyLen]) + "…(truncated)"
	}
	return string(b)
}
