// Package fetcher downloads blog pages over HTTP with retry, backoff, and
// adaptive rate limiting.
package fetcher

import "context"

// Fetcher retrieves the body of a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
