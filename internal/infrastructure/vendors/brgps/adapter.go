// Package brgps implements the token-authenticated BRGPS tracking API
// (vendor tag "mt02").
package brgps

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fasttag/tag-position-api/internal/core/domain"
	"github.com/fasttag/tag-position-api/internal/core/ports"
	"github.com/fasttag/tag-position-api/internal/infrastructure/vendors/vendorhttp"
)

const (
	Vendor = "mt02"

	locationPath = "/device/location"
	listPath     = "/device/list"

	// maxPages bounds a bulk listing against a vendor that never returns an
	// empty page.
	maxPages = 1000
)

// Config holds the BRGPS credentials.
type Config struct {
	Token   string
	BaseURL string
	Timeout time.Duration
}

type Adapter struct {
	token   string
	baseURL string
	client  *vendorhttp.Client
	logger  zerolog.Logger
	now     func() time.Time
}

// New validates cfg and returns a ready adapter.
func New(cfg Config, logger zerolog.Logger) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, fmt.Errorf("%w: brgps API token is required", domain.ErrConfiguration)
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: brgps base URL is required", domain.ErrConfiguration)
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("%w: brgps base URL %q: %v", domain.ErrConfiguration, baseURL, err)
	}

	return &Adapter{
		token:   token,
		baseURL: baseURL,
		client:  vendorhttp.New(Vendor, cfg.Timeout),
		logger:  logger.With().Str("vendor", Vendor).Logger(),
		now:     time.Now,
	}, nil
}

func (a *Adapter) Vendor() string { return Vendor }

// Lookup fetches one device and returns its first usable record.
func (a *Adapter) Lookup(ctx context.Context, in ports.LookupInput) (*domain.TagRecord, error) {
	query := url.Values{"imei": {in.PublicKey}}
	resp, err := a.get(ctx, locationPath, query, "lookup")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusBadRequest {
		return nil, fmt.Errorf("%w: brgps rejected the request: invalid credentials or identifier %q", domain.ErrVendorRejection, in.PublicKey)
	}
	if !resp.OK() {
		return nil, a.client.StatusError("lookup", resp)
	}

	devices, err := decodeDevices(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: brgps lookup: %v: %s", domain.ErrProtocol, err, vendorhttp.Snippet(resp.Body))
	}
	for _, d := range devices {
		if d.usable() {
			rec := d.toRecord(a.now)
			return &rec, nil
		}
	}
	return nil, fmt.Errorf("%w: brgps has no usable record for device %q", domain.ErrNotFound, in.PublicKey)
}

// ListAll walks pages 1, 2, 3... until an empty page. A failing page ends
// the walk and the devices gathered so far are returned with Complete=false.
func (a *Adapter) ListAll(ctx context.Context) *domain.Listing {
	listing := &domain.Listing{Devices: []domain.ListedDevice{}}

	for page := 1; page <= maxPages; page++ {
		devices, err := a.fetchPage(ctx, page)
		if err != nil {
			listing.Err = fmt.Errorf("page %d: %w", page, err)
			return listing
		}
		if len(devices) == 0 {
			listing.Complete = true
			return listing
		}

		unpositioned := 0
		for _, d := range devices {
			if !d.usable() {
				unpositioned++
			}
			listing.Devices = append(listing.Devices, d.toListed(a.now))
		}
		if unpositioned > 0 {
			a.logger.Debug().Int("page", page).Int("unpositioned", unpositioned).Msg("devices listed without position")
		}
	}

	listing.Err = fmt.Errorf("listing stopped after %d pages", maxPages)
	return listing
}

func (a *Adapter) fetchPage(ctx context.Context, page int) ([]device, error) {
	resp, err := a.get(ctx, listPath, url.Values{"page": {strconv.Itoa(page)}}, "list_page")
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, a.client.StatusError("list_page", resp)
	}
	devices, err := decodeDevices(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: brgps list page: %v", domain.ErrProtocol, err)
	}
	return devices, nil
}

func (a *Adapter) get(ctx context.Context, path string, query url.Values, operation string) (*vendorhttp.Response, error) {
	req, err := http.NewRequest(http.MethodGet, a.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: brgps build request: %v", domain.ErrConfiguration, err)
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("timestamp", strconv.FormatInt(a.now().Unix(), 10))
	req.Header.Set("Accept", "application/json")
	return a.client.Do(ctx, req, operation)
}
