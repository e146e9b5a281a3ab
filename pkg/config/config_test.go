package config

import "testing"

func TestAppConfigEnvHelpers(t *testing.T) {
	dev := AppConfig{Env: "dev"}
	if !dev.IsDev() || dev.IsProd() {
		t.Fatal("expected dev env detection")
	}

	prod := AppConfig{Env: "PROD"}
	if !prod.IsProd() || prod.IsDev() {
		t.Fatal("expected case-insensitive prod env detection")
	}
}

func TestLoadRequiresMandatoryVariables(t *testing.T) {
	t.Setenv("VENDLY_APP_ENV", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected load to fail without required variables")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("VENDLY_APP_ENV", "dev")
	t.Setenv("VENDLY_DB_DSN", "postgres://localhost/vendly")
	t.Setenv("VENDLY_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("VENDLY_JWT_SECRET", "secret")
	t.Setenv("VENDLY_JWT_ISSUER", "vendly")
	t.Setenv("VENDLY_MP_ACCESS_TOKEN", "TEST-token")
	t.Setenv("VENDLY_MP_WEBHOOK_SECRET", "whsec")
	t.Setenv("VENDLY_GCP_PROJECT_ID", "vendly-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.App.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.App.Port)
	}
	if cfg.MercadoPago.BaseURL != "https://api.mercadopago.com" {
		t.Fatalf("unexpected default base url %s", cfg.MercadoPago.BaseURL)
	}
	if cfg.Webhook.IdempotencyTTL.Hours() != 720 {
		t.Fatalf("unexpected idempotency ttl %s", cfg.Webhook.IdempotencyTTL)
	}
}
