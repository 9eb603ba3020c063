// Package internal contains helper utilities that are intentionally private to goIdentity,
// starting with secure numeric code generation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - metrics: lock-free counters and latency histograms
//   - otp: Redis-backed OTP state machine and pending-registration staging
//   - rate: Redis-backed fixed-window request limiter
//
// # What this package must NOT do
//
//   - Export types that appear in the public goIdentity API.
//   - Be imported by any package outside the goIdentity module.
package internal
