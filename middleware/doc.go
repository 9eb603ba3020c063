// Package middleware adapts goIdentity.Engine authentication to net/http.
//
// [Guard] reads the Authorization bearer token, calls Engine.Authenticate and
// stores the resolved [goIdentity.Principal] in the request context, where
// handlers read it back with [PrincipalFromContext].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT parse
// JWTs, touch Redis or query the user directory itself.
package middleware
