// Package findtag implements the signature-authenticated Findtag device
// data API (vendor tag "mt01").
package findtag

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fasttag/tag-position-api/internal/core/domain"
	"github.com/fasttag/tag-position-api/internal/core/ports"
	"github.com/fasttag/tag-position-api/internal/infrastructure/vendors/vendorhttp"
)

const (
	Vendor         = "mt01"
	DefaultBaseURL = "https://server.findtaq.top/fit/openapi/devicedata/v1"

	defaultTimePeriod = "0"
	nonceAlphabet     = "abcdefghijklmnopqrstuvwxyz0123456789"
	nonceLength       = 8
)

// Config holds the Findtag credentials.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Timeout   time.Duration
}

type Adapter struct {
	cfg    Config
	client *vendorhttp.Client
	logger zerolog.Logger
	now    func() time.Time
	nonce  func() (string, error)
}

// New validates cfg and returns a ready adapter.
func New(cfg Config, logger zerolog.Logger) (*Adapter, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.APISecret = strings.TrimSpace(cfg.APISecret)
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("%w: findtag API key and secret are required", domain.ErrConfiguration)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("%w: findtag base URL %q: %v", domain.ErrConfiguration, cfg.BaseURL, err)
	}

	return &Adapter{
		cfg:    cfg,
		client: vendorhttp.New(Vendor, cfg.Timeout),
		logger: logger.With().Str("vendor", Vendor).Logger(),
		now:    time.Now,
		nonce:  randomNonce,
	}, nil
}

func (a *Adapter) Vendor() string { return Vendor }

type deviceData struct {
	BatteryLevel   *int   `json:"batteryLevel"`
	CollectionTime int64  `json:"collectionTime"`
	Coordinate     string `json:"coordinate"`
	Status         string `json:"status"`
}

type apiResponse struct {
	Code    *int         `json:"code"`
	Message string       `json:"message"`
	Data    []deviceData `json:"data"`
}

// Lookup fetches the current data of one device.
func (a *Adapter) Lookup(ctx context.Context, in ports.LookupInput) (*domain.TagRecord, error) {
	timePeriod := in.TimePeriod
	if timePeriod == "" {
		timePeriod = defaultTimePeriod
	}

	nonce, err := a.nonce()
	if err != nil {
		return nil, fmt.Errorf("findtag nonce: %w", err)
	}
	params := map[string]string{
		"timestamp":  strconv.FormatInt(a.now().Unix(), 10),
		"nonce":      nonce,
		"publickey":  in.PublicKey,
		"timePeriod": timePeriod,
	}
	sign := Sign(a.cfg.APIKey, a.cfg.APISecret, params)

	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	query.Set("apikey", a.cfg.APIKey)
	query.Set("sign", sign)

	req, err := http.NewRequest(http.MethodGet, a.cfg.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: findtag build request: %v", domain.ErrConfiguration, err)
	}

	resp, err := a.client.Do(ctx, req, "lookup")
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, a.client.StatusError("lookup", resp)
	}

	var body apiResponse
	if err := a.client.DecodeJSON("lookup", resp.Body, &body); err != nil {
		return nil, err
	}
	if body.Code == nil {
		return nil, fmt.Errorf("%w: findtag response without code: %s", domain.ErrProtocol, vendorhttp.Snippet(resp.Body))
	}
	if *body.Code != 0 {
		return nil, fmt.Errorf("%w: findtag returned code %d: %s", domain.ErrVendorRejection, *body.Code, body.Message)
	}
	if len(body.Data) == 0 {
		return nil, fmt.Errorf("%w: findtag has no data for device %q", domain.ErrNotFound, in.PublicKey)
	}

	item := body.Data[0]
	record, err := domain.NewTagRecordFromCoordinate(item.BatteryLevel, item.CollectionTime, item.Coordinate, domain.ParseTagStatus(item.Status))
	if err != nil {
		return nil, fmt.Errorf("findtag device %q: %w", in.PublicKey, err)
	}

	a.logger.Debug().Str("public_key", in.PublicKey).Int64("collection_time", record.CollectionTime).Msg("device data fetched")
	return &record, nil
}

// Sign computes the request signature: the upper-case hex MD5 of
// "apikey=<key>&apisecret=<secret>&" followed by the parameters sorted by
// key and joined as k=v pairs with "&".
func Sign(apiKey, apiSecret string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}

	toSign := "apikey=" + apiKey + "&apisecret=" + apiSecret + "&" + strings.Join(pairs, "&")
	sum := md5.Sum([]byte(toSign))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func randomNonce() (string, error) {
	b := make([]byte, nonceLength)
	limit := big.NewInt(int64(len(nonceAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = nonceAlphabet[n.Int64()]
	}
	return string(b), nil
}
