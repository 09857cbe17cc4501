package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8080"`

	DatabaseDSN   string `env:"DATABASE_DSN"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	OIDC OIDC `envPrefix:"OIDC_"`
}

// OIDC is the relying-party configuration. It is read once at startup
// and treated as immutable afterwards.
type OIDC struct {
	Issuer       string   `env:"ISSUER"`
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	RedirectURL  string   `env:"REDIRECT_URL"`
	Scopes       []string `env:"SCOPES" envSeparator:"," envDefault:"openid,email,profile"`

	// UserEndpoint overrides the userinfo endpoint published by discovery.
	UserEndpoint string `env:"OP_USER_ENDPOINT"`

	EssentialClaims []string `env:"ESSENTIAL_CLAIMS" envSeparator:"," envDefault:"sub"`
	FullNameClaims  []string `env:"FIELDS_TO_FULLNAME" envSeparator:"," envDefault:"given_name,family_name"`
	ShortNameClaim  string   `env:"FIELD_TO_SHORTNAME" envDefault:"given_name"`

	CreateUser        bool   `env:"CREATE_USER" envDefault:"true"`
	StoreAccessToken  bool   `env:"STORE_ACCESS_TOKEN" envDefault:"false"`
	StoreIDToken      bool   `env:"STORE_ID_TOKEN" envDefault:"false"`
	StoreRefreshToken bool   `env:"STORE_REFRESH_TOKEN" envDefault:"false"`
	RefreshTokenKey   string `env:"STORE_REFRESH_TOKEN_KEY"`

	// UserinfoDecryptionKey is a PEM-encoded RSA private key used to
	// decrypt JWE userinfo responses. Optional; only needed for
	// providers that encrypt the userinfo payload to the relying party.
	UserinfoDecryptionKey string `env:"USERINFO_DECRYPTION_KEY"`

	VerifySSL bool          `env:"VERIFY_SSL" envDefault:"true"`
	Timeout   time.Duration `env:"TIMEOUT" envDefault:"15s"`
	ProxyURL  string        `env:"PROXY"`
}

// Load parses configuration from the environment and validates the
// combinations that must fail at startup rather than mid-request.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.OIDC.StoreRefreshToken && cfg.OIDC.RefreshTokenKey == "" {
		return Config{}, errors.New("OIDC_STORE_REFRESH_TOKEN_KEY is required when OIDC_STORE_REFRESH_TOKEN is enabled")
	}

	return cfg, nil
}
