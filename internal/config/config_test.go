package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		DatabaseURL:           "postgres://localhost:5432/velora",
		StripeSecretKey:       "sk_test_123",
		StripeWebhookSecret:   "whsec_123",
		CacheProvider:         "memory",
		SessionStoreProvider:  "memory",
		RedisConnectionString: "redis://localhost:6379/0",
		EncryptionKey:         strings.Repeat("k", 32),
		EmailProvider:         "resend",
		LogFormat:             "text",
		Port:                  "8080",
	}
}

func TestValidateEncryptionKeyLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		encryptionKey string
		wantErr       bool
	}{
		{
			name:          "valid 32-byte key",
			encryptionKey: strings.Repeat("k", 32),
			wantErr:       false,
		},
		{
			name:          "invalid short key",
			encryptionKey: "short",
			wantErr:       true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			cfg.EncryptionKey = tt.encryptionKey

			err := cfg.validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateSessionStoreProvider(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.SessionStoreProvider = "invalid"

	err := cfg.validate()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "SessionStoreProvider") || !strings.Contains(err.Error(), "oneof") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateAuthCredentialsMustBePaired(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.AuthClientID = "client_id"
	cfg.AuthClientSecret = ""

	err := cfg.validate()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "AUTH_CLIENT_ID and AUTH_CLIENT_SECRET") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateIssuerRequiredWhenLoginEnabled(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.AuthClientID = "client_id"
	cfg.AuthClientSecret = "client_secret"
	cfg.AuthIssuerURL = ""
	cfg.BaseURL = "https://shop.example.com"

	err := cfg.validate()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "AUTH_ISSUER_URL") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateBaseURLRequiredForLogin(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.AuthClientID = "client_id"
	cfg.AuthClientSecret = "client_secret"
	cfg.AuthIssuerURL = "https://id.example.com"
	cfg.BaseURL = ""

	err := cfg.validate()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "BASE_URL is required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateBaseURLRequiresHTTPSOutsideLocalhost(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.BaseURL = "http://example.com"

	err := cfg.validate()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "https") {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.BaseURL = "http://localhost:8080"
	if err := cfg.validate(); err != nil {
		t.Fatalf("expected localhost http to validate, got %v", err)
	}
}
