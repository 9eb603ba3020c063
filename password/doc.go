// Package password implements password hashing and verification with Argon2id
// defaults and bcrypt as an alternative.
//
// # Output format
//
// Argon2id hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// bcrypt hashes use the standard $2a$/$2b$ modular crypt form. The Argon2
// hasher verifies bcrypt hashes too and reports them through NeedsRehash, so a
// deployment can move from bcrypt to Argon2id on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password confirmation and
// profile rules are enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other goIdentity package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
