// Package sellerhub is the authentication core of a seller-facing storefront backend:
// OAuth-profile sign-up, HS256 access and refresh tokens, a Redis-backed refresh
// token cache, and the explicit refresh flow used once an access token expires.
//
// Engine methods are safe to call from multiple goroutines after initialization
// through [Builder.Build].
//
// # Architecture boundaries
//
// sellerhub is the public surface. It exposes [Engine], [Builder], [Config], the
// [Error] taxonomy and value types ([TokenPair], [AuthResult], [Subject]). Flow
// orchestration lives in internal/flows, HTTP transport in internal/api, and
// storage adapters in docstore, session and blob.
//
// # What this package must NOT do
//
//   - Expose Redis clients or session-cache key layout in its public API.
//   - Write HTTP responses. Cookies and status codes belong to the transport layer.
//   - Import any sub-package that re-imports sellerhub (no import cycles).
//
// # Performance contract
//
// Validate is the hot path. It verifies the access token signature and expiry
// only and never touches Redis. Refresh, sign-in and logout are allowed one or
// two Redis round-trips per call.
package sellerhub
