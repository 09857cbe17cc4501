package app

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/RussPalms/docs-dev-0a/internal/auth"
	"github.com/RussPalms/docs-dev-0a/internal/auth/cipher"
	"github.com/RussPalms/docs-dev-0a/internal/auth/handler"
	"github.com/RussPalms/docs-dev-0a/internal/auth/provider"
	"github.com/RussPalms/docs-dev-0a/internal/auth/resolver"
	"github.com/RussPalms/docs-dev-0a/internal/auth/userinfo"
	"github.com/RussPalms/docs-dev-0a/internal/config"
	"github.com/RussPalms/docs-dev-0a/internal/httpclient"
	"github.com/RussPalms/docs-dev-0a/internal/middleware"
	"github.com/RussPalms/docs-dev-0a/internal/session"
	"github.com/RussPalms/docs-dev-0a/internal/user"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	client, err := httpclient.New(httpclient.Options{
		VerifySSL: cfg.OIDC.VerifySSL,
		Timeout:   cfg.OIDC.Timeout,
		ProxyURL:  cfg.OIDC.ProxyURL,
	})
	if err != nil {
		return nil, nil, err
	}

	oidcProvider, err := provider.New(ctx, provider.Options{
		Issuer:       cfg.OIDC.Issuer,
		ClientID:     cfg.OIDC.ClientID,
		ClientSecret: cfg.OIDC.ClientSecret,
		RedirectURL:  cfg.OIDC.RedirectURL,
		Scopes:       cfg.OIDC.Scopes,
		HTTPClient:   client,
	})
	if err != nil {
		return nil, nil, err
	}

	userEndpoint := cfg.OIDC.UserEndpoint
	if userEndpoint == "" {
		userEndpoint = oidcProvider.UserInfoEndpoint()
	}

	fetcher, err := userinfo.New(ctx, userinfo.Config{
		Endpoint:         userEndpoint,
		JWKSURL:          oidcProvider.JWKSURL(),
		DecryptionKeyPEM: cfg.OIDC.UserinfoDecryptionKey,
		Client:           client,
	})
	if err != nil {
		return nil, nil, err
	}

	var tokenCipher *cipher.Cipher
	if cfg.OIDC.RefreshTokenKey != "" {
		tokenCipher, err = cipher.New(cfg.OIDC.RefreshTokenKey)
		if err != nil {
			return nil, nil, err
		}
	}

	tokenStore, err := session.NewTokenStore(
		tokenCipher,
		cfg.OIDC.StoreAccessToken,
		cfg.OIDC.StoreIDToken,
		cfg.OIDC.StoreRefreshToken,
	)
	if err != nil {
		return nil, nil, err
	}

	identityResolver := resolver.New(
		fetcher,
		auth.Verifier{Essential: cfg.OIDC.EssentialClaims},
		user.NewPGStore(infra.DB),
		resolver.Options{
			FullNameClaims: cfg.OIDC.FullNameClaims,
			ShortNameClaim: cfg.OIDC.ShortNameClaim,
			CreateUser:     cfg.OIDC.CreateUser,
		},
	)

	authenticator := auth.NewAuthenticator(oidcProvider, identityResolver, tokenStore)

	sessionStore := session.NewRedisStore(infra.Redis.Client)
	authHandler := handler.New(oidcProvider, authenticator, sessionStore)
	authMiddleware := middleware.NewAuthMiddleware(sessionStore)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())

	// ----------------------------
	// Public Routes
	// ----------------------------

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Protected API Routes
	// ----------------------------

	api := router.Group("/api")
	api.Use(middleware.GinRequireAuth(authMiddleware))

	api.GET("/me", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"user_id": c.GetString("userID"),
		})
	})

	return router, func() error {
		return infra.DB.Close()
	}, nil
}
