// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunIssue, RunRefresh, RunValidate, RunLogout,
// RunResolveIdentity) accepts a typed dependency struct and returns a result
// carrying a failure kind, so the Engine maps outcomes to public errors,
// metrics and audit events in one place.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the session cache, token codec, rate
// limiter and subject store. They do NOT own any of these resources;
// ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import sellerhub (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows
