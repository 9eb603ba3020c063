// Package jwt issues and verifies HS256 access tokens whose subject is the
// user email and whose private claims carry the role and auth provider.
//
// Secrets can be rotated: the Manager signs with Secret under KeyID and also
// accepts tokens whose kid names an entry of VerifySecrets.
package jwt
