// Package internal contains helper utilities that are intentionally private to sellerhub,
// such as secure random generation for placeholder credentials.
//
// # Sub-packages
//
//   - flows — pure-function flow orchestrators for every Engine operation
//   - rate — Redis-backed refresh and sign-in throttles
//   - api — HTTP handlers, cookies and the centralized error responder
//   - memstore — in-memory subject and product stores for the example and tests
//
// # What this package must NOT do
//
//   - Export types that appear in the public sellerhub API.
//   - Be imported by any package outside the sellerhub module.
package internal
