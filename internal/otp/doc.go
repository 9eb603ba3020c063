// Package otp implements the one-time-code state machine that backs
// registration and password-reset confirmation.
//
// # Key layout
//
// Every entry is a plain Redis string with its own TTL, namespaced by
// (purpose, email):
//
//	otp:{purpose}:{email}          code, TTL = Expire
//	otp_attempt:{purpose}:{email}  failure counter, TTL = Expire
//	otp_lock:{purpose}:{email}     RFC3339 lock expiry, TTL = LockDuration
//	otp_request:{purpose}:{email}  RFC3339 last request, TTL = Cooldown
//	pending_registration:{email}   JSON payload, TTL = Expire
//
// # Concurrency
//
// Generate runs inside a WATCH/MULTI optimistic transaction over the keys it
// touches and retries on contention, so two concurrent generations cannot both
// pass the cooldown. Verify compares, counts and locks in one Lua script, so
// every mismatch a caller sees has been recorded.
//
// # What this package must NOT do
//
//   - Send mail or know about users; callers deliver the code.
//   - Import goIdentity or any sibling internal package other than internal.
//   - Report a mismatch before it is counted.
package otp
