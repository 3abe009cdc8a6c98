// Package blob stores product images in an S3-compatible bucket.
//
// One [S3] value wraps one SDK client built at startup and is safe for
// concurrent use. Uploads fan out per file and either all succeed or the
// batch fails.
package blob
