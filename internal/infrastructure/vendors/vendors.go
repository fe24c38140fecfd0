// Package vendors wires the vendor adapters into a service.Registry.
package vendors

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fasttag/tag-position-api/internal/core/ports"
	"github.com/fasttag/tag-position-api/internal/core/service"
	"github.com/fasttag/tag-position-api/internal/infrastructure/vendors/brgps"
	"github.com/fasttag/tag-position-api/internal/infrastructure/vendors/findtag"
	"github.com/fasttag/tag-position-api/internal/infrastructure/vendors/webtag"
	"github.com/fasttag/tag-position-api/internal/pkg/config"
)

type factory struct {
	vendor string
	build  func() (ports.VendorAdapter, error)
}

// Build constructs every known adapter. A vendor whose settings are missing
// or invalid is disabled with its error; the others stay available.
func Build(cfg *config.Config, logger zerolog.Logger) *service.Registry {
	timeout := cfg.VendorTimeout
	factories := []factory{
		{findtag.Vendor, func() (ports.VendorAdapter, error) {
			return findtag.New(findtag.Config{
				APIKey:    cfg.Mt01.APIKey,
				APISecret: cfg.Mt01.APISecret,
				BaseURL:   cfg.Mt01.BaseURL,
				Timeout:   timeout,
			}, logger)
		}},
		{brgps.Vendor, func() (ports.VendorAdapter, error) {
			return brgps.New(brgps.Config{
				Token:   cfg.Mt02.Token,
				BaseURL: cfg.Mt02.BaseURL,
				Timeout: timeout,
			}, logger)
		}},
		{webtag.Vendor, func() (ports.VendorAdapter, error) {
			return webtag.New(webtag.Config{
				Username: cfg.WebTag.Username,
				Password: cfg.WebTag.Password,
				BaseURL:  cfg.WebTag.BaseURL,
				Timeout:  timeout,
			}, logger)
		}},
	}

	reg := service.NewRegistry()
	for _, f := range factories {
		adapter, err := f.build()
		if err != nil {
			reg.Disable(f.vendor, err)
			logger.Warn().Err(err).Str("vendor", f.vendor).Msg("vendor disabled")
			continue
		}
		reg.Register(adapter)
		logger.Info().Str("vendor", f.vendor).Msg("vendor registered")
	}
	return reg
}

// Authenticate logs in every adapter that needs a session. Failures are
// logged only; the adapter retries the login on its first lookup.
func Authenticate(ctx context.Context, reg *service.Registry, timeout time.Duration, logger zerolog.Logger) {
	for _, adapter := range reg.Adapters() {
		auth, ok := adapter.(ports.Authenticator)
		if !ok {
			continue
		}

		loginCtx, cancel := context.WithTimeout(ctx, timeout)
		err := auth.Authenticate(loginCtx)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Str("vendor", adapter.Vendor()).Msg("startup login failed")
			continue
		}
		logger.Info().Str("vendor", adapter.Vendor()).Msg("startup login succeeded")
	}
}
