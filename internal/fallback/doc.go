// Package fallback wraps stage invocations with bounded per-provider retry
// and ordered provider rotation.
//
// Transient runner failures (timeouts, non-zero exits, I/O errors) are
// retried against the same provider with a configurable backoff. Output that
// was received but could not be parsed, and output rejected by the caller's
// acceptor, rotate to the next provider immediately. When every provider has
// been tried the policy returns an *ExhaustedError carrying the full attempt
// history so operators can tell unreachable providers from misbehaving ones.
package fallback
