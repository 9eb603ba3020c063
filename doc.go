// Package goIdentity provides an identity engine for email/password accounts
// confirmed by one-time codes, password reset by one-time code, Google sign-in
// and a minimal profile surface, issuing HS256 access tokens.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goIdentity is the public surface. It exposes [Engine], [Builder], [Config],
// the [BusinessError] taxonomy and the collaborator interfaces
// ([UserDirectory], [Mailer], [OAuthProvider], [PrincipalResolver]). OTP state,
// rate limiting, audit dispatch and metric storage live under internal/.
// Adapters for those interfaces live in directory/, mail/ and oauth/.
//
// # What this package must NOT do
//
//   - Expose Redis clients or OTP key layout in its public API.
//   - Talk HTTP; transport lives in httpapi/ and middleware/.
//   - Import any sub-package that re-imports goIdentity (no import cycles).
package goIdentity
