// Package webtag implements the session-authenticated WebTag tracking API
// (vendor tag "webtag"). A login yields a session token and an account id
// that every trajectory query must carry.
package webtag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fasttag/tag-position-api/internal/api/metrics"
	"github.com/fasttag/tag-position-api/internal/core/domain"
	"github.com/fasttag/tag-position-api/internal/core/ports"
	"github.com/fasttag/tag-position-api/internal/infrastructure/vendors/vendorhttp"
)

const (
	Vendor = "webtag"

	loginPath      = "/login"
	trajectoryPath = "/device/trajectory"

	codeSessionExpired = 401
)

var errSessionRejected = fmt.Errorf("%w: webtag rejected the session token", domain.ErrVendorRejection)

// Config holds the WebTag account.
type Config struct {
	Username string
	Password string
	BaseURL  string
	Timeout  time.Duration
}

type session struct {
	token  string
	userID string
}

type Adapter struct {
	username string
	password string
	baseURL  string
	client   *vendorhttp.Client
	logger   zerolog.Logger

	// loginMu serializes logins; mu guards sess.
	loginMu sync.Mutex
	mu      sync.Mutex
	sess    *session
}

// New validates cfg and returns an unauthenticated adapter.
func New(cfg Config, logger zerolog.Logger) (*Adapter, error) {
	username := strings.TrimSpace(cfg.Username)
	if username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("%w: webtag username and password are required", domain.ErrConfiguration)
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: webtag base URL is required", domain.ErrConfiguration)
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("%w: webtag base URL %q: %v", domain.ErrConfiguration, baseURL, err)
	}

	return &Adapter{
		username: username,
		password: cfg.Password,
		baseURL:  baseURL,
		client:   vendorhttp.New(Vendor, cfg.Timeout),
		logger:   logger.With().Str("vendor", Vendor).Logger(),
	}, nil
}

func (a *Adapter) Vendor() string { return Vendor }

// Authenticated reports whether the adapter holds a session.
func (a *Adapter) Authenticated() bool {
	return a.current() != nil
}

// Authenticate logs in and replaces the current session. On failure the
// previous state is kept.
func (a *Adapter) Authenticate(ctx context.Context) error {
	a.loginMu.Lock()
	defer a.loginMu.Unlock()

	_, err := a.loginLocked(ctx)
	return err
}

// Lookup returns the most recent trajectory point of a device. A rejected
// session is renewed once and the query retried once.
func (a *Adapter) Lookup(ctx context.Context, in ports.LookupInput) (*domain.TagRecord, error) {
	sess, err := a.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	points, err := a.trajectory(ctx, sess, in.PublicKey)
	if errors.Is(err, errSessionRejected) {
		a.logger.Info().Str("public_key", in.PublicKey).Msg("session rejected, logging in again")
		if sess, err = a.renew(ctx, sess); err != nil {
			return nil, err
		}
		points, err = a.trajectory(ctx, sess, in.PublicKey)
	}
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: webtag has no trajectory for device %q", domain.ErrNotFound, in.PublicKey)
	}

	p := latestPoint(points)
	if p.Lat == nil || p.Lng == nil {
		return nil, fmt.Errorf("%w: webtag latest point of device %q has no position", domain.ErrProtocol, in.PublicKey)
	}
	battery := batteryLevel(p.Status)
	record := domain.NewTagRecord(&battery, p.Time, *p.Lng, *p.Lat, domain.StatusActive)
	return &record, nil
}

func (a *Adapter) current() *session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sess
}

func (a *Adapter) ensureSession(ctx context.Context) (*session, error) {
	if s := a.current(); s != nil {
		return s, nil
	}

	a.loginMu.Lock()
	defer a.loginMu.Unlock()
	if s := a.current(); s != nil {
		return s, nil
	}
	return a.loginLocked(ctx)
}

// renew drops stale and logs in again, unless a concurrent lookup already
// replaced it.
func (a *Adapter) renew(ctx context.Context, stale *session) (*session, error) {
	a.loginMu.Lock()
	defer a.loginMu.Unlock()

	a.mu.Lock()
	if a.sess != nil && a.sess != stale {
		s := a.sess
		a.mu.Unlock()
		return s, nil
	}
	a.sess = nil
	a.mu.Unlock()

	return a.loginLocked(ctx)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Code *int   `json:"code"`
	Msg  string `json:"msg"`
	Data *struct {
		Token  string     `json:"token"`
		UserID flexString `json:"userId"`
	} `json:"data"`
}

// loginLocked must be called with loginMu held.
func (a *Adapter) loginLocked(ctx context.Context) (*session, error) {
	s, err := a.login(ctx)
	if err != nil {
		metrics.SessionLoginsTotal.WithLabelValues(Vendor, "failure").Inc()
		a.logger.Warn().Err(err).Msg("login failed")
		return nil, err
	}
	metrics.SessionLoginsTotal.WithLabelValues(Vendor, "success").Inc()

	a.mu.Lock()
	a.sess = s
	a.mu.Unlock()

	a.logger.Info().Str("user_id", s.userID).Msg("logged in")
	return s, nil
}

func (a *Adapter) login(ctx context.Context) (*session, error) {
	resp, err := a.post(ctx, loginPath, loginRequest{Username: a.username, Password: a.password}, nil, "login")
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, a.client.StatusError("login", resp)
	}

	var body loginResponse
	if err := a.client.DecodeJSON("login", resp.Body, &body); err != nil {
		return nil, err
	}
	if body.Code == nil {
		return nil, fmt.Errorf("%w: webtag login response without code: %s", domain.ErrProtocol, vendorhttp.Snippet(resp.Body))
	}
	if *body.Code != 0 {
		return nil, fmt.Errorf("%w: webtag login failed with code %d: %s", domain.ErrVendorRejection, *body.Code, body.Msg)
	}
	if body.Data == nil || body.Data.Token == "" || body.Data.UserID == "" {
		return nil, fmt.Errorf("%w: webtag login reply lacks token or account id", domain.ErrVendorRejection)
	}
	return &session{token: body.Data.Token, userID: string(body.Data.UserID)}, nil
}

type trajectoryRequest struct {
	IMEI   string `json:"imei"`
	UserID string `json:"userId"`
}

type point struct {
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
	Time   int64    `json:"time"`
	Status int      `json:"status"`
}

type trajectoryResponse struct {
	Code *int    `json:"code"`
	Msg  string  `json:"msg"`
	Data []point `json:"data"`
}

func (a *Adapter) trajectory(ctx context.Context, sess *session, imei string) ([]point, error) {
	headers := http.Header{"token": {sess.token}}
	resp, err := a.post(ctx, trajectoryPath, trajectoryRequest{IMEI: imei, UserID: sess.userID}, headers, "lookup")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, errSessionRejected
	}
	if !resp.OK() {
		return nil, a.client.StatusError("lookup", resp)
	}

	var body trajectoryResponse
	if err := a.client.DecodeJSON("lookup", resp.Body, &body); err != nil {
		return nil, err
	}
	if body.Code == nil {
		return nil, fmt.Errorf("%w: webtag response without code: %s", domain.ErrProtocol, vendorhttp.Snippet(resp.Body))
	}
	switch *body.Code {
	case 0:
		return body.Data, nil
	case codeSessionExpired:
		return nil, errSessionRejected
	default:
		return nil, fmt.Errorf("%w: webtag returned code %d: %s", domain.ErrVendorRejection, *body.Code, body.Msg)
	}
}

func (a *Adapter) post(ctx context.Context, path string, payload any, headers http.Header, operation string) (*vendorhttp.Response, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: webtag encode %s request: %v", domain.ErrConfiguration, operation, err)
	}
	req, err := http.NewRequest(http.MethodPost, a.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: webtag build %s request: %v", domain.ErrConfiguration, operation, err)
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return a.client.Do(ctx, req, operation)
}

// latestPoint returns the point with the greatest time; the first of equal
// maxima wins. points must not be empty.
func latestPoint(points []point) point {
	latest := points[0]
	for _, p := range points[1:] {
		if p.Time > latest.Time {
			latest = p
		}
	}
	return latest
}

// batteryLevel buckets the vendor's raw status value into a 0-100 level.
func batteryLevel(status int) int {
	switch {
	case status <= 32:
		return 100
	case status <= 96:
		return 60
	case status <= 160:
		return 20
	default:
		return 10
	}
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
