package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// ProviderErrorKind classifies failures from LLM provider APIs.
type ProviderErrorKind string

const (
	ProviderErrAuth      ProviderErrorKind = "authentication"
	ProviderErrRateLimit ProviderErrorKind = "rate_limit"
	ProviderErrTimeout   ProviderErrorKind = "timeout"
	ProviderErrMalformed ProviderErrorKind = "malformed_response"
)

// ProviderError wraps a provider API failure with its kind. Rate-limit and
// timeout errors are retried; the rest surface as a missing vote for that
// model.
type ProviderError struct {
	Provider string
	Kind     ProviderErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + string(e.Kind) + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err with a provider name and failure kind.
func NewProviderError(provider string, kind ProviderErrorKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// ClassifyProviderStatus maps an HTTP status from a provider API to an error
// kind. Returns ("", false) for statuses with no special handling.
func ClassifyProviderStatus(status int) (ProviderErrorKind, bool) {
	switch {
	case status == 401 || status == 403:
		return ProviderErrAuth, true
	case status == 429:
		return ProviderErrRateLimit, true
	case status == 408 || status == 504:
		return ProviderErrTimeout, true
	default:
		return "", false
	}
}

// IsTransient reports whether an error is safe to retry: rate-limit or
// timeout provider errors, network timeouts, connection resets, DNS blips.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind == ProviderErrRateLimit || pe.Kind == ProviderErrTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"rate limit",
		"overloaded",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
