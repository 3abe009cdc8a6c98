// Package jwt issues and verifies the HS256 access and refresh tokens that carry
// a seller's identity. Access and refresh tokens are signed with distinct
// secrets, so a token of one kind never verifies as the other.
package jwt
