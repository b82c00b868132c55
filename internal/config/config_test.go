package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.AppPort != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.AppPort)
	}
	if cfg.TokenExpires != 24*time.Hour {
		t.Errorf("expected 24h token ttl, got %v", cfg.TokenExpires)
	}
	if cfg.DefaultExpiryMonths != 24 {
		t.Errorf("expected 24 expiry months, got %d", cfg.DefaultExpiryMonths)
	}
	if cfg.ReferralTTL != 90*24*time.Hour {
		t.Errorf("expected 90 day referral ttl, got %v", cfg.ReferralTTL)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is missing")
	}
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := &Config{
		StoreDriver:         "mongo",
		JWTSecret:           "s",
		DefaultExpiryMonths: 24,
		EventQueueSize:      1,
		EventWorkers:        1,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown store driver")
	}
}

func TestValidateRejectsNonPositiveExpiry(t *testing.T) {
	cfg := &Config{
		StoreDriver:    StoreDriverMemory,
		JWTSecret:      "s",
		EventQueueSize: 1,
		EventWorkers:   1,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero expiry months")
	}
}

func TestIsAdminPhone(t *testing.T) {
	cfg := &Config{AdminPhones: []string{"+229 0100", " +2290200"}}
	if !cfg.IsAdminPhone("+2290200") {
		t.Error("expected trimmed phone to match")
	}
	if cfg.IsAdminPhone("+2290300") {
		t.Error("expected unknown phone not to match")
	}
	if cfg.IsAdminPhone("") {
		t.Error("expected empty phone not to match")
	}
}

func TestLoadProgramSeed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "program.yaml")
	content := `
name: Ben Rewards
points_per_dollar: "1.5"
points_for_registration: 100
points_for_review: 20
points_for_referral: 250
expiry_months: 12
tiers:
  - name: Bronze
    min_points: 0
  - name: Silver
    min_points: 500
    benefits: [free_shipping]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	seed, err := LoadProgramSeed(path)
	if err != nil {
		t.Fatalf("LoadProgramSeed() error: %v", err)
	}
	if seed.Name != "Ben Rewards" {
		t.Errorf("unexpected name %q", seed.Name)
	}
	if seed.PointsPerDollar != "1.5" {
		t.Errorf("unexpected rate %q", seed.PointsPerDollar)
	}
	if len(seed.Tiers) != 2 || seed.Tiers[1].Benefits[0] != "free_shipping" {
		t.Errorf("unexpected tiers: %+v", seed.Tiers)
	}
}

func TestLoadProgramSeedMissingFile(t *testing.T) {
	if _, err := LoadProgramSeed(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
