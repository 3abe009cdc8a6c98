// Package session stores the current refresh token of every seller in Redis.
//
// Each subject owns at most one entry, keyed by subject id, whose value is the
// refresh token most recently issued to it and whose TTL equals the refresh
// token lifetime. Rotation and revocation are single Lua scripts, so two
// concurrent callers presenting the same token can never both succeed.
//
// # What this package must NOT do
//
//   - Import sellerhub or jwt (no upward imports).
//   - Interpret token contents. Values are opaque strings compared byte for byte.
package session
