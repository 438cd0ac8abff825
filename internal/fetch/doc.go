// Package fetch is the polite HTTP client shared by the LEGISinfo and Gazette
// sources: per-host rate limiting, an optional robots.txt gate, a response
// cache for archived resources and classified, retryable errors.
package fetch
