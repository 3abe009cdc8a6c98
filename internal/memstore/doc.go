// Package memstore provides in-memory subject and product stores with the
// same error contract as the document store. It backs the runnable example
// and the HTTP tests.
package memstore
