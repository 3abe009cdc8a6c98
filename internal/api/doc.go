// Package api is the HTTP surface of sellerhub: a gorilla/mux router over the
// auth engine and the product catalog.
//
// Handlers decode, call one engine or catalog operation and hand the result to
// the responder in respond.go. Cookies are written only after the operation
// that produced the tokens has fully succeeded.
package api
