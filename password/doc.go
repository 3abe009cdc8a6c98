// Package password hashes credentials with Argon2id.
//
// Sellers sign in through an OAuth provider, so the only credential stored for
// them is a random placeholder secret. It is still hashed, never kept in plain
// text, so that a future password login can verify against the same column.
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
package password
