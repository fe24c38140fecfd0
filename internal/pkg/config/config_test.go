package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8080" || cfg.LogLevel != "info" || cfg.DefaultVendor != "mt01" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.VendorTimeout != 15*time.Second || cfg.AuditWorkers != 2 {
		t.Errorf("unexpected timeout/workers: %s %d", cfg.VendorTimeout, cfg.AuditWorkers)
	}
	if cfg.Mongo.URI != "" || cfg.Mongo.Database != "tag_position" {
		t.Errorf("unexpected mongo config: %+v", cfg.Mongo)
	}
	if cfg.Mt01.BaseURL == "" {
		t.Errorf("expected a default Findtag base URL")
	}
	if cfg.IsProduction() {
		t.Errorf("default env must not be production")
	}
}

func TestLoadWith_VendorCredentials(t *testing.T) {
	env := map[string]string{
		"ENV":                "production",
		"VENDOR_TIMEOUT":     "5s",
		"MT01_API_KEY":       "key",
		"MT01_API_SECRET":    "secret",
		"BRGPS_API_TOKEN":    "tok",
		"BRGPS_API_BASE_URL": "https://brgps.example",
		"WEBTAG_USERNAME":    "user",
		"WEBTAG_PASSWORD":    "pass",
		"WEBTAG_BASE_URL":    "https://webtag.example",
		"MONGO_URI":          "mongodb://db:27017",
	}
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(env))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg.IsProduction() || cfg.VendorTimeout != 5*time.Second {
		t.Errorf("unexpected general config: %+v", cfg)
	}
	if cfg.Mt01.APIKey != "key" || cfg.Mt01.APISecret != "secret" {
		t.Errorf("unexpected mt01 config: %+v", cfg.Mt01)
	}
	if cfg.Mt02.Token != "tok" || cfg.Mt02.BaseURL != "https://brgps.example" {
		t.Errorf("unexpected mt02 config: %+v", cfg.Mt02)
	}
	if cfg.WebTag.Username != "user" || cfg.WebTag.Password != "pass" || cfg.WebTag.BaseURL != "https://webtag.example" {
		t.Errorf("unexpected webtag config: %+v", cfg.WebTag)
	}
	if cfg.Mongo.URI != "mongodb://db:27017" {
		t.Errorf("unexpected mongo URI %q", cfg.Mongo.URI)
	}
}

func TestLoadWith_Invalid(t *testing.T) {
	cases := []map[string]string{
		{"VENDOR_TIMEOUT": "not-a-duration"},
		{"VENDOR_TIMEOUT": "0s"},
		{"AUDIT_WORKERS": "0"},
	}
	for _, env := range cases {
		if _, err := LoadWith(context.Background(), envconfig.MapLookuper(env)); err == nil {
			t.Errorf("expected error for %v", env)
		}
	}
}
