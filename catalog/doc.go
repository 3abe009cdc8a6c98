// Package catalog manages a seller's products.
//
// Every operation is scoped to the authenticated seller: a product owned by
// someone else is reported exactly like a missing one. Images are uploaded
// to the blob store before the product is written, so a stored product never
// points at an image that failed to upload.
package catalog
