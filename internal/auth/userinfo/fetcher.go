// Package userinfo fetches and decodes claims from the identity
// provider's userinfo endpoint. Most providers answer with plain JSON;
// some (e.g. ProConnect) answer with a signed and/or encrypted JOSE
// token, which is why decoding falls back from JSON to JWE to JWS.
package userinfo

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/RussPalms/docs-dev-0a/internal/auth"
	"github.com/RussPalms/docs-dev-0a/internal/logger"
)

var signingMethods = []string{"RS256", "RS384", "RS512", "PS256", "ES256", "ES384", "ES512"}

var (
	keyAlgorithms     = []jose.KeyAlgorithm{jose.RSA_OAEP, jose.RSA_OAEP_256, jose.RSA1_5}
	contentAlgorithms = []jose.ContentEncryption{
		jose.A128CBC_HS256, jose.A192CBC_HS384, jose.A256CBC_HS512,
		jose.A128GCM, jose.A192GCM, jose.A256GCM,
	}
)

// Config wires a Fetcher.
type Config struct {
	// Endpoint is the provider's userinfo URL.
	Endpoint string

	// JWKSURL is the provider's published signing key set, used to
	// verify signed userinfo responses.
	JWKSURL string

	// DecryptionKeyPEM is the relying party's RSA private key for
	// encrypted userinfo responses. Optional.
	DecryptionKeyPEM string

	// Client is the outbound HTTP client (TLS toggle, timeout, proxy
	// already applied).
	Client *http.Client
}

// Fetcher retrieves claims for an access token.
type Fetcher struct {
	endpoint string
	client   *http.Client
	decKey   *rsa.PrivateKey

	jwksURL   string
	jwksCache *jwk.Cache

	// lazy JWKS registration, so startup does not block on the provider
	jwksMu         sync.Mutex
	jwksRegistered bool
}

func New(ctx context.Context, cfg Config) (*Fetcher, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("userinfo endpoint is required")
	}

	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}

	f := &Fetcher{
		endpoint: cfg.Endpoint,
		client:   client,
		jwksURL:  cfg.JWKSURL,
	}

	if cfg.DecryptionKeyPEM != "" {
		key, err := parseRSAPrivateKey(cfg.DecryptionKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("userinfo decryption key: %w", err)
		}
		f.decKey = key
	}

	if cfg.JWKSURL != "" {
		cache, err := jwk.NewCache(ctx, httprc.NewClient(httprc.WithHTTPClient(client)))
		if err != nil {
			return nil, fmt.Errorf("create jwks cache: %w", err)
		}
		f.jwksCache = cache
	}

	return f, nil
}

// Fetch calls the userinfo endpoint with the access token and returns
// the decoded claims. The response body is first decoded as a JSON
// object; failing that it is treated as a JOSE compact token (JWE
// and/or JWS). A body that is neither is rejected as suspicious with
// the detail logged only.
func (f *Fetcher) Fetch(ctx context.Context, accessToken string) (auth.Claims, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json, application/jwt")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read userinfo response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &auth.HTTPError{Status: resp.StatusCode, Body: snippet(body)}
	}

	var claims auth.Claims
	if err := json.Unmarshal(body, &claims); err == nil && claims != nil {
		return claims, nil
	}

	claims, err = f.decodeJOSE(ctx, strings.TrimSpace(string(body)))
	if err != nil {
		logger.Error("userinfo response is neither JSON nor a verifiable token", map[string]any{
			"error": err.Error(),
		})
		return nil, auth.ErrInvalidUserInfoFormat
	}

	return claims, nil
}

// decodeJOSE unwraps a compact token: five segments mean a JWE that
// must first be decrypted with the relying party's key, then the
// result is either bare claims JSON or a nested JWS verified against
// the provider's key set.
func (f *Fetcher) decodeJOSE(ctx context.Context, token string) (auth.Claims, error) {
	if segments := strings.Count(token, "."); segments == 4 {
		decrypted, err := f.decrypt(token)
		if err != nil {
			return nil, err
		}
		token = strings.TrimSpace(string(decrypted))

		var claims auth.Claims
		if err := json.Unmarshal([]byte(token), &claims); err == nil && claims != nil {
			return claims, nil
		}
	}

	return f.verify(ctx, token)
}

func (f *Fetcher) decrypt(token string) ([]byte, error) {
	if f.decKey == nil {
		return nil, errors.New("encrypted userinfo response but no decryption key configured")
	}

	jwe, err := jose.ParseEncrypted(token, keyAlgorithms, contentAlgorithms)
	if err != nil {
		return nil, fmt.Errorf("parse encrypted userinfo: %w", err)
	}

	plaintext, err := jwe.Decrypt(f.decKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt userinfo: %w", err)
	}

	return plaintext, nil
}

func (f *Fetcher) verify(ctx context.Context, token string) (auth.Claims, error) {
	if f.jwksCache == nil {
		return nil, errors.New("signed userinfo response but no jwks url configured")
	}

	mapClaims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, mapClaims, func(t *jwt.Token) (any, error) {
		return f.signingKey(ctx, t)
	}, jwt.WithValidMethods(signingMethods))
	if err != nil {
		return nil, fmt.Errorf("verify signed userinfo: %w", err)
	}

	return auth.Claims(mapClaims), nil
}

// signingKey resolves the verification key from the provider's JWKS,
// selected by the token's kid header.
func (f *Fetcher) signingKey(ctx context.Context, token *jwt.Token) (any, error) {
	if err := f.ensureJWKSRegistered(ctx); err != nil {
		return nil, err
	}

	set, err := f.jwksCache.Lookup(ctx, f.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("lookup jwks: %w", err)
	}

	kid, _ := token.Header["kid"].(string)

	var key jwk.Key
	if kid != "" {
		k, found := set.LookupKeyID(kid)
		if !found {
			return nil, fmt.Errorf("key id %q not found in jwks", kid)
		}
		key = k
	} else if set.Len() == 1 {
		key, _ = set.Key(0)
	} else {
		return nil, errors.New("token header missing kid")
	}

	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("export jwk: %w", err)
	}

	return raw, nil
}

func (f *Fetcher) ensureJWKSRegistered(ctx context.Context) error {
	f.jwksMu.Lock()
	defer f.jwksMu.Unlock()

	if f.jwksRegistered {
		return nil
	}

	regCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := f.jwksCache.Register(regCtx, f.jwksURL); err != nil {
		// undo any partial registration so the next call can retry
		// after a transient provider outage
		_ = f.jwksCache.Unregister(regCtx, f.jwksURL)
		return fmt.Errorf("register jwks url: %w", err)
	}

	f.jwksRegistered = true
	return nil
}

func parseRSAPrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("not an RSA private key")
	}

	return key, nil
}

func snippet(body []byte) string {
	const max = 256
	if len(body) > max {
		body = body[:max]
	}
	return string(body)
}
