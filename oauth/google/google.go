// Package google implements goIdentity.OAuthProvider for Google sign-in: the
// authorization code is exchanged with golang.org/x/oauth2 and the returned
// ID token is verified with google.golang.org/api/idtoken.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goIdentity "github.com/MrEthical07/goIdentity"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"google.golang.org/api/idtoken"
)

// ErrEmailNotVerified is returned for ID tokens whose email Google has not verified.
var ErrEmailNotVerified = errors.New("google: email not verified")

// Config holds the OAuth client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Timeout      time.Duration
}

// ValidateFunc verifies a raw ID token for audience.
type ValidateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// Provider exchanges authorization codes and verifies ID tokens.
type Provider struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	validate   ValidateFunc
}

// Option customizes a Provider.
type Option func(*Provider)

// WithEndpoint overrides the Google token endpoint.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(p *Provider) {
		p.oauth.Endpoint = endpoint
	}
}

// WithValidator replaces idtoken.Validate.
func WithValidator(fn ValidateFunc) Option {
	return func(p *Provider) {
		if fn != nil {
			p.validate = fn
		}
	}
}

func New(cfg Config, opts ...Option) (*Provider, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("google: client id and secret are required")
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	p := &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoints.Google,
		},
		httpClient: &http.Client{Timeout: timeout},
		validate:   idtoken.Validate,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// AuthCodeURL returns the consent page URL carrying state.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades code for tokens and returns the id_token. An empty string
// means the token response carried no ID token.
func (p *Provider) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("google: exchange: %w", err)
	}
	idToken, _ := tok.Extra("id_token").(string)
	return idToken, nil
}

// VerifyIDToken checks signature, expiry and audience (the client ID).
func (p *Provider) VerifyIDToken(ctx context.Context, raw string) (goIdentity.OAuthIdentity, error) {
	payload, err := p.validate(ctx, raw, p.oauth.ClientID)
	if err != nil {
		return goIdentity.OAuthIdentity{}, fmt.Errorf("google: validate id token: %w", err)
	}

	identity := goIdentity.OAuthIdentity{Subject: payload.Subject}
	identity.Email, _ = payload.Claims["email"].(string)
	identity.Name, _ = payload.Claims["name"].(string)
	identity.Picture, _ = payload.Claims["picture"].(string)
	identity.EmailVerified = claimBool(payload.Claims["email_verified"])

	if _, present := payload.Claims["email_verified"]; present && !identity.EmailVerified {
		return goIdentity.OAuthIdentity{}, ErrEmailNotVerified
	}
	return identity, nil
}

// claimBool accepts both JSON booleans and the "true" strings some issuers emit.
func claimBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	default:
		return false
	}
}
