package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/veloracart/velora/internal/config"
	"github.com/veloracart/velora/internal/db"
)

var (
	ErrAuthUnavailable   = errors.New("auth service unavailable")
	ErrAuthInvalidCode   = errors.New("oauth code is required")
	ErrAuthCodeExchange  = errors.New("failed to exchange oauth code")
	ErrAuthMissingToken  = errors.New("identity provider returned no id_token")
	ErrAuthInvalidToken  = errors.New("invalid id_token")
	ErrAuthGenerateState = errors.New("failed to generate oauth state")
)

type authUserStore interface {
	Upsert(ctx context.Context, user *db.User) error
}

type StartLoginResult struct {
	State            string
	AuthorizationURL string
}

type identityClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// AuthService completes the authorization-code flow against the external
// identity provider and mirrors the resulting profile into the user store.
// The id_token is signed with the client secret (HS256).
type AuthService struct {
	userStore    authUserStore
	oauthConfig  *oauth2.Config
	clientSecret string
	adminEmails  map[string]bool
	logger       *slog.Logger
}

func NewAuthService(cfg *config.Config, userStore authUserStore, logger *slog.Logger) (*AuthService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("auth service config is required")
	}
	if userStore == nil {
		return nil, fmt.Errorf("auth service user store is required")
	}

	issuer := strings.TrimRight(strings.TrimSpace(cfg.AuthIssuerURL), "/")

	adminEmails := make(map[string]bool, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			adminEmails[email] = true
		}
	}

	return &AuthService{
		userStore: userStore,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.AuthClientID,
			ClientSecret: cfg.AuthClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  issuer + "/oauth/authorize",
				TokenURL: issuer + "/oauth/token",
			},
			Scopes:      []string{"openid", "email", "profile"},
			RedirectURL: oauthRedirectURL(cfg.BaseURL),
		},
		clientSecret: cfg.AuthClientSecret,
		adminEmails:  adminEmails,
		logger:       logger,
	}, nil
}

func oauthRedirectURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return ""
	}

	return strings.TrimRight(baseURL, "/") + "/auth/callback"
}

func (s *AuthService) StartLogin() (StartLoginResult, error) {
	result := StartLoginResult{}
	if s == nil || s.oauthConfig == nil {
		return result, ErrAuthUnavailable
	}

	state, err := generateOAuthState()
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrAuthGenerateState, err)
	}

	result.State = state
	result.AuthorizationURL = s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)

	return result, nil
}

// CompleteLogin exchanges the callback code, verifies the id_token, and
// upserts the mirrored profile. Admin standing comes from configuration, not
// from anything the provider asserts.
func (s *AuthService) CompleteLogin(ctx context.Context, code string) (*db.User, error) {
	if s == nil || s.oauthConfig == nil || s.userStore == nil {
		return nil, ErrAuthUnavailable
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrAuthInvalidCode
	}

	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthCodeExchange, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, ErrAuthMissingToken
	}

	claims, err := s.parseIDToken(rawIDToken)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(claims.Email))
	user := &db.User{
		ID:      claims.Subject,
		Email:   email,
		Name:    claims.Name,
		IsAdmin: s.adminEmails[email],
	}

	if err := s.userStore.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	s.logger.Info("user signed in", "user_id", user.ID, "is_admin", user.IsAdmin)
	return user, nil
}

func (s *AuthService) parseIDToken(rawIDToken string) (*identityClaims, error) {
	claims := &identityClaims{}
	parsed, err := jwt.ParseWithClaims(rawIDToken, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.clientSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(s.oauthConfig.ClientID),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthInvalidToken, err)
	}
	if !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrAuthInvalidToken
	}

	return claims, nil
}

func generateOAuthState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
