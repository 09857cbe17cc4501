package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/RussPalms/docs-dev-0a/internal/auth"
	"github.com/RussPalms/docs-dev-0a/internal/logger"
)

// Provider implements the OIDC authorization-code exchange against any
// discovery-capable identity provider.
type Provider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
	httpClient  *http.Client

	userinfoEndpoint string
	jwksURL          string
}

// Options configures a Provider. Scopes must include "openid".
type Options struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// HTTPClient is used for discovery, the token exchange and JWKS
	// fetches. Nil falls back to http.DefaultClient.
	HTTPClient *http.Client
}

// New initializes the provider using OIDC discovery.
func New(ctx context.Context, opts Options) (*Provider, error) {
	if opts.Issuer == "" || opts.ClientID == "" || opts.RedirectURL == "" {
		return nil, errors.New("oidc provider config missing required fields")
	}

	if opts.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, opts.HTTPClient)
	}

	oidcProvider, err := oidc.NewProvider(ctx, opts.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init oidc provider: %w", err)
	}

	verifier := oidcProvider.Verifier(&oidc.Config{
		ClientID: opts.ClientID,
	})

	var discovery struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := oidcProvider.Claims(&discovery); err != nil {
		return nil, fmt.Errorf("failed to read discovery document: %w", err)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		RedirectURL:  opts.RedirectURL,
		Endpoint:     oidcProvider.Endpoint(),
		Scopes:       opts.Scopes,
	}

	return &Provider{
		oauthConfig:      oauthCfg,
		verifier:         verifier,
		httpClient:       opts.HTTPClient,
		userinfoEndpoint: oidcProvider.UserInfoEndpoint(),
		jwksURL:          discovery.JWKSURI,
	}, nil
}

// UserInfoEndpoint returns the userinfo URL published by discovery.
func (p *Provider) UserInfoEndpoint() string {
	return p.userinfoEndpoint
}

// JWKSURL returns the signing key set URL published by discovery.
func (p *Provider) JWKSURL() string {
	return p.jwksURL
}

// AuthCodeURL builds the authorization URL with PKCE parameters.
func (p *Provider) AuthCodeURL(state string, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// ExchangeCode exchanges the authorization code for tokens and
// verifies the ID token. No user or session decisions are made here.
func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	codeVerifier string,
) (*auth.TokenSet, error) {

	if p.httpClient != nil {
		ctx = oidc.ClientContext(ctx, p.httpClient)
	}

	token, err := p.oauthConfig.Exchange(
		ctx,
		code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		logger.Error("oidc token exchange failed", map[string]any{
			"error": err.Error(),
		})
		return nil, err
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("provider did not return id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		logger.Error("oidc id_token verification failed", map[string]any{
			"error": err.Error(),
		})
		return nil, err
	}

	logger.Info("oidc code exchange verified", map[string]any{
		"issuer":      idToken.Issuer,
		"audience":    idToken.Audience,
		"expiry_unix": idToken.Expiry.Unix(),
		"has_refresh": token.RefreshToken != "",
	})

	return &auth.TokenSet{
		AccessToken:  token.AccessToken,
		IDToken:      rawIDToken,
		RefreshToken: token.RefreshToken,
	}, nil
}
