// Package docstore is the MongoDB document store behind sellerhub.
//
// [Open] creates the single client for the process. [DB.Subjects] satisfies
// sellerhub.SubjectStore and [DB.Products] satisfies catalog.Store. Driver
// errors are translated into the sellerhub error taxonomy here so callers
// never inspect Mongo types: a duplicate key on the email index becomes
// sellerhub.ErrEmailTaken and a malformed ObjectID becomes a not-found.
package docstore
