// Package errors provides the classified error primitives used across legistrack.
//
// A ClassifiedError carries a category, a severity and a retry strategy so the
// tracker loop, the CLI and the HTTP query surface can decide how to react
// without string matching:
//
//   - CategoryTransport: a fetch failed, timed out or returned a malformed envelope.
//     The cycle is treated as failed and retried after the cooldown.
//   - CategoryRecord: one raw observation was unparsable or missing identity fields.
//     The record is skipped and the batch proceeds.
//   - CategoryPersistence: the stored collection could not be read or written.
//   - CategoryInvariant: the source reported something that makes no domain sense
//     (a publication count going down, an unknown chamber). Logged, never raised.
//
// Example usage:
//
//	err := errors.TransportError("legisinfo fetch failed").
//		WithContext("url", url).
//		WithCause(originalErr).
//		Build()
package errors
