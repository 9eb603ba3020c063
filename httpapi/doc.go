// Package httpapi exposes goIdentity.Engine over HTTP with a chi router.
//
// Every response uses the same JSON envelope:
//
//	{"success": true, "message": "...", "data": {...}}
//
// Domain failures are mapped through goIdentity.StatusCode and
// goIdentity.PublicMessage. Internal failures are logged and answered with a
// generic 500 message.
//
// # Routes
//
//	POST  /auth/register
//	POST  /auth/register/verify
//	POST  /auth/login
//	POST  /auth/login/google
//	POST  /auth/password/forgot
//	PATCH /auth/password/forgot/verify
//	GET   /profile        (bearer token)
//	PATCH /profile        (bearer token)
//	GET   /healthz
//	GET   /metrics        (when Options.MetricsHandler is set)
//
// /auth/* is rate limited per client IP through Engine.AllowRequest.
package httpapi
