// Package middleware exposes the Access Guard: HTTP middleware that reads the
// access token cookie, validates it through sellerhub.Engine and injects the
// result into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// parse JWTs itself and never touches Redis; a guarded request costs one
// signature check and nothing else. There is no automatic refresh: an
// expired access token is rejected and the client calls the refresh
// endpoint.
package middleware
