package vendors

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fasttag/tag-position-api/internal/core/domain"
	"github.com/fasttag/tag-position-api/internal/infrastructure/vendors/webtag"
	"github.com/fasttag/tag-position-api/internal/pkg/config"
)

func baseConfig() *config.Config {
	return &config.Config{VendorTimeout: 2 * time.Second}
}

func TestBuild_DisablesOnlyMisconfiguredVendors(t *testing.T) {
	cfg := baseConfig()
	cfg.Mt01 = config.FindtagConfig{APIKey: "k", APISecret: "s"}

	reg := Build(cfg, zerolog.Nop())

	statuses := reg.Statuses()
	if len(statuses) != 3 {
		t.Fatalf("expected 3 vendors, got %+v", statuses)
	}
	want := map[string]bool{"mt01": true, "mt02": false, "webtag": false}
	for _, st := range statuses {
		if st.Available != want[st.Vendor] {
			t.Errorf("vendor %s: available=%v, want %v", st.Vendor, st.Available, want[st.Vendor])
		}
		if !st.Available && st.Reason == "" {
			t.Errorf("vendor %s: disabled without a reason", st.Vendor)
		}
	}

	if _, err := reg.Resolve("mt01"); err != nil {
		t.Errorf("mt01 should resolve: %v", err)
	}
	if _, err := reg.Resolve("mt02"); !errors.Is(err, domain.ErrVendorUnavailable) {
		t.Errorf("expected mt02 unavailable, got %v", err)
	}
}

func TestBuild_AllVendors(t *testing.T) {
	cfg := baseConfig()
	cfg.Mt01 = config.FindtagConfig{APIKey: "k", APISecret: "s"}
	cfg.Mt02 = config.BRGPSConfig{Token: "t", BaseURL: "https://brgps.example"}
	cfg.WebTag = config.WebTagConfig{Username: "u", Password: "p", BaseURL: "https://webtag.example"}

	reg := Build(cfg, zerolog.Nop())

	adapters := reg.Adapters()
	if len(adapters) != 3 {
		t.Fatalf("expected 3 adapters, got %d", len(adapters))
	}
	if adapters[0].Vendor() != "mt01" || adapters[1].Vendor() != "mt02" || adapters[2].Vendor() != "webtag" {
		t.Errorf("unexpected adapter order")
	}
}

func TestAuthenticate_LogsInSessionVendors(t *testing.T) {
	var logins int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&logins, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"msg":"ok","data":{"token":"t1","userId":"7"}}`))
	}))
	defer srv.Close()

	cfg := baseConfig()
	cfg.Mt01 = config.FindtagConfig{APIKey: "k", APISecret: "s"}
	cfg.WebTag = config.WebTagConfig{Username: "u", Password: "p", BaseURL: srv.URL}
	reg := Build(cfg, zerolog.Nop())

	Authenticate(context.Background(), reg, time.Second, zerolog.Nop())

	if n := atomic.LoadInt32(&logins); n != 1 {
		t.Fatalf("expected one login, got %d", n)
	}
	adapter, err := reg.Resolve(webtag.Vendor)
	if err != nil {
		t.Fatalf("resolve webtag: %v", err)
	}
	if !adapter.(*webtag.Adapter).Authenticated() {
		t.Errorf("webtag adapter should hold a session")
	}
}

func TestAuthenticate_FailureIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := baseConfig()
	cfg.WebTag = config.WebTagConfig{Username: "u", Password: "p", BaseURL: srv.URL}
	reg := Build(cfg, zerolog.Nop())

	Authenticate(context.Background(), reg, time.Second, zerolog.Nop())

	if _, err := reg.Resolve(webtag.Vendor); err != nil {
		t.Errorf("webtag must stay registered after a failed startup login: %v", err)
	}
}
