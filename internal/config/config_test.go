//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("should apply defaults over a sparse file", func(t *testing.T) {
		path := writeConfig(t, `
database:
  url: postgres://localhost/payments
payments:
  rail: Crypto
`)
		cfg, err := LoadConfig(path, false)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Payments.Rail != "crypto" {
			t.Errorf("expected normalized rail, got %q", cfg.Payments.Rail)
		}
		if cfg.Subscriptions.Retry.MaxAttempts != 3 || cfg.Subscriptions.Retry.InitialBackoff != time.Second {
			t.Errorf("unexpected retry defaults: %+v", cfg.Subscriptions.Retry)
		}
		if cfg.Monero.MinConfirmations != 10 {
			t.Errorf("expected 10 confirmations, got %d", cfg.Monero.MinConfirmations)
		}
		if cfg.Payments.CheckoutTTL != 24*time.Hour {
			t.Errorf("expected 24h checkout ttl, got %v", cfg.Payments.CheckoutTTL)
		}
	})

	t.Run("should parse durations from yaml", func(t *testing.T) {
		path := writeConfig(t, `
subscriptions:
  retry:
    initial_backoff: 250ms
    max_attempts: 5
`)
		cfg, err := LoadConfig(path, false)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Subscriptions.Retry.InitialBackoff != 250*time.Millisecond {
			t.Errorf("expected 250ms, got %v", cfg.Subscriptions.Retry.InitialBackoff)
		}
		if cfg.Subscriptions.Retry.MaxAttempts != 5 {
			t.Errorf("expected 5 attempts, got %d", cfg.Subscriptions.Retry.MaxAttempts)
		}
	})

	t.Run("should let env override file values", func(t *testing.T) {
		path := writeConfig(t, `
internal:
  api_key: from-file
`)
		t.Setenv("INTERNAL_API_KEY", "from-env")
		cfg, err := LoadConfig(path, false)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Internal.APIKey != "from-env" {
			t.Errorf("expected env override, got %q", cfg.Internal.APIKey)
		}
	})

	t.Run("should fail on a missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), false); err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.Database.URL = "postgres://x"
		cfg.JWT.Secret = "s"
		cfg.Stripe.SecretKey = "sk_test"
		cfg.Internal.APIKey = "k"
		return cfg
	}

	t.Run("should accept a complete fiat config", func(t *testing.T) {
		if err := base().Validate(ServicePayments); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("should require wallet url for live crypto", func(t *testing.T) {
		cfg := base()
		cfg.Payments.Rail = "crypto"
		if err := cfg.Validate(ServicePayments); err == nil {
			t.Error("expected error without wallet url")
		}
		cfg.Payments.FakeMode = true
		if err := cfg.Validate(ServicePayments); err != nil {
			t.Errorf("fake mode should not need a wallet: %v", err)
		}
	})

	t.Run("should require internal key for both services", func(t *testing.T) {
		for _, svc := range []string{ServicePayments, ServiceSubscriptions} {
			cfg := base()
			cfg.Internal.APIKey = ""
			if err := cfg.Validate(svc); err == nil {
				t.Errorf("%s: expected error without internal key", svc)
			}
		}
	})

	t.Run("should reject keyless fake crypto payments", func(t *testing.T) {
		cfg := base()
		cfg.Database.Memory = true
		cfg.Payments.Rail = "crypto"
		cfg.Payments.FakeMode = true
		cfg.Internal.APIKey = ""
		if err := cfg.Validate(ServicePayments); err == nil {
			t.Error("expected error without internal key")
		}
	})
}
