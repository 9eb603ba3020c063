// Package rate provides a Redis-backed fixed-window request limiter used to
// throttle the public authentication endpoints per client address.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys are
// {prefix}:{scope}:{client}, prefix defaults to "rl".
//
// # What this package must NOT do
//
//   - Implement OTP attempt accounting (that lives in internal/otp).
//   - Be imported outside the goIdentity module.
package rate
