// Package rate provides Redis-backed fixed-window counters for the two
// throttled operations: refresh rotation per subject and sign-in per client IP.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - rl:r: — refresh per-subject
//   - rl:s: — sign-in per-IP
//
// # What this package must NOT do
//
//   - Decide HTTP status codes or error messages (the engine maps ErrRateLimited).
//   - Be imported outside the sellerhub module.
package rate
