package webtag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fasttag/tag-position-api/internal/core/domain"
	"github.com/fasttag/tag-position-api/internal/core/ports"
)

// fakeVendor is an in-memory WebTag server. Each successful login issues
// token "t<n>"; tokens listed in rejected get a session failure.
type fakeVendor struct {
	logins       int32
	lookups      int32
	loginReply   string
	trajectory   string
	rejected     map[string]bool
	rejectByCode bool
}

func (f *fakeVendor) counts() (logins, lookups int32) {
	return atomic.LoadInt32(&f.logins), atomic.LoadInt32(&f.lookups)
}

func (f *fakeVendor) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case loginPath:
			var req loginRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			n := atomic.AddInt32(&f.logins, 1)
			if f.loginReply != "" {
				_, _ = w.Write([]byte(f.loginReply))
				return
			}
			if req.Username != "user" || req.Password != "pass" {
				t.Errorf("unexpected credentials %+v", req)
			}
			fmt.Fprintf(w, `{"code":0,"msg":"ok","data":{"token":"t%d","userId":42}}`, n)
		case trajectoryPath:
			atomic.AddInt32(&f.lookups, 1)
			var req trajectoryRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.UserID != "42" || req.IMEI == "" {
				t.Errorf("unexpected trajectory request %+v", req)
			}
			if f.rejected[r.Header.Get("token")] {
				if f.rejectByCode {
					_, _ = w.Write([]byte(`{"code":401,"msg":"token expired"}`))
					return
				}
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(f.trajectory))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

const sampleTrajectory = `{"code":0,"msg":"ok","data":[
	{"lat":1,"lng":1,"time":100,"status":10},
	{"lat":-23.5,"lng":-46.6,"time":300,"status":50},
	{"lat":9,"lng":9,"time":200,"status":200}
]}`

func newTestAdapter(t *testing.T, f *fakeVendor) *Adapter {
	t.Helper()
	if f.trajectory == "" {
		f.trajectory = sampleTrajectory
	}
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	a, err := New(Config{Username: "user", Password: "pass", BaseURL: srv.URL, Timeout: 2 * time.Second}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

// ---------------------------------------------------------------------------
// Construction and login
// ---------------------------------------------------------------------------

func TestNew_Validation(t *testing.T) {
	cases := []Config{
		{Username: "", Password: "p", BaseURL: "http://x"},
		{Username: "u", Password: "", BaseURL: "http://x"},
		{Username: "u", Password: "p", BaseURL: ""},
	}
	for _, cfg := range cases {
		if _, err := New(cfg, zerolog.Nop()); !errors.Is(err, domain.ErrConfiguration) {
			t.Errorf("expected ErrConfiguration for %+v, got %v", cfg, err)
		}
	}
}

func TestAuthenticate_Success(t *testing.T) {
	a := newTestAdapter(t, &fakeVendor{})
	if a.Authenticated() {
		t.Fatal("new adapter must start unauthenticated")
	}

	if err := a.Authenticate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := a.current()
	if s == nil || s.token != "t1" || s.userID != "42" {
		t.Fatalf("unexpected session %+v", s)
	}
}

func TestAuthenticate_FailureKeepsState(t *testing.T) {
	cases := []struct {
		name    string
		reply   string
		wantErr error
	}{
		{"vendor code", `{"code":1001,"msg":"bad password"}`, domain.ErrVendorRejection},
		{"missing token", `{"code":0,"msg":"ok","data":{"userId":42}}`, domain.ErrVendorRejection},
		{"missing account", `{"code":0,"msg":"ok","data":{"token":"x"}}`, domain.ErrVendorRejection},
		{"missing code", `{"msg":"??"}`, domain.ErrProtocol},
		{"malformed", `<html>`, domain.ErrProtocol},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := newTestAdapter(t, &fakeVendor{loginReply: tc.reply})
			err := a.Authenticate(context.Background())
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if a.Authenticated() {
				t.Errorf("failed login must leave the adapter unauthenticated")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Lookup
// ---------------------------------------------------------------------------

func TestLookup_ImplicitLoginAndLatestPoint(t *testing.T) {
	f := &fakeVendor{}
	a := newTestAdapter(t, f)

	rec, err := a.Lookup(context.Background(), ports.LookupInput{PublicKey: "IMEI1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logins, _ := f.counts(); logins != 1 {
		t.Errorf("expected one implicit login, got %d", logins)
	}
	if rec.CollectionTime != 300 || rec.Latitude != -23.5 || rec.Longitude != -46.6 {
		t.Errorf("expected the time=300 point, got %+v", rec)
	}
	if rec.Coordinate != "-46.6,-23.5" {
		t.Errorf("unexpected coordinate %q", rec.Coordinate)
	}
	if rec.BatteryLevel == nil || *rec.BatteryLevel != 60 || rec.Status != domain.StatusActive {
		t.Errorf("unexpected battery/status: %+v", rec)
	}

	if _, err := a.Lookup(context.Background(), ports.LookupInput{PublicKey: "IMEI1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logins, _ := f.counts(); logins != 1 {
		t.Errorf("session must be reused, got %d logins", logins)
	}
}

func TestLookup_EmptyTrajectory(t *testing.T) {
	a := newTestAdapter(t, &fakeVendor{trajectory: `{"code":0,"msg":"ok","data":[]}`})

	_, err := a.Lookup(context.Background(), ports.LookupInput{PublicKey: "IMEI9"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), `"IMEI9"`) {
		t.Errorf("expected identifier in message, got %q", err.Error())
	}
}

func TestLookup_VendorErrorCode(t *testing.T) {
	a := newTestAdapter(t, &fakeVendor{trajectory: `{"code":500,"msg":"device unknown"}`})

	_, err := a.Lookup(context.Background(), ports.LookupInput{PublicKey: "IMEI1"})
	if !errors.Is(err, domain.ErrVendorRejection) || !strings.Contains(err.Error(), "device unknown") {
		t.Fatalf("expected vendor rejection, got %v", err)
	}
}

func TestLookup_RenewsRejectedSessionOnce(t *testing.T) {
	for _, byCode := range []bool{false, true} {
		t.Run(fmt.Sprintf("byCode=%v", byCode), func(t *testing.T) {
			f := &fakeVendor{rejected: map[string]bool{"t1": true}, rejectByCode: byCode}
			a := newTestAdapter(t, f)

			rec, err := a.Lookup(context.Background(), ports.LookupInput{PublicKey: "IMEI1"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.CollectionTime != 300 {
				t.Errorf("unexpected record %+v", rec)
			}
			if logins, lookups := f.counts(); logins != 2 || lookups != 2 {
				t.Errorf("expected 2 logins and 2 lookups, got %d and %d", logins, lookups)
			}
			if s := a.current(); s == nil || s.token != "t2" {
				t.Errorf("expected renewed session t2, got %+v", s)
			}
		})
	}
}

func TestLookup_RetriesOnlyOnce(t *testing.T) {
	f := &fakeVendor{rejected: map[string]bool{"t1": true, "t2": true, "t3": true}}
	a := newTestAdapter(t, f)

	_, err := a.Lookup(context.Background(), ports.LookupInput{PublicKey: "IMEI1"})
	if !errors.Is(err, domain.ErrVendorRejection) {
		t.Fatalf("expected vendor rejection, got %v", err)
	}
	if logins, lookups := f.counts(); logins != 2 || lookups != 2 {
		t.Errorf("expected exactly one retry, got %d logins and %d lookups", logins, lookups)
	}
}

func TestLookup_ConcurrentLookupsLoginOnce(t *testing.T) {
	f := &fakeVendor{}
	a := newTestAdapter(t, f)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.Lookup(context.Background(), ports.LookupInput{PublicKey: "IMEI1"}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
	if n, _ := f.counts(); n != 1 {
		t.Errorf("expected a single login, got %d", n)
	}
}

// ---------------------------------------------------------------------------
// Pure helpers
// ---------------------------------------------------------------------------

func TestBatteryLevel(t *testing.T) {
	cases := map[int]int{0: 100, 32: 100, 33: 60, 96: 60, 97: 20, 160: 20, 161: 10}
	for status, want := range cases {
		if got := batteryLevel(status); got != want {
			t.Errorf("batteryLevel(%d) = %d, want %d", status, got, want)
		}
	}
}

func TestLatestPoint_FirstMaximumWins(t *testing.T) {
	lat1, lat2 := 1.0, 2.0
	points := []point{
		{Lat: &lat1, Time: 10},
		{Lat: &lat1, Time: 50},
		{Lat: &lat2, Time: 50},
		{Lat: &lat2, Time: 20},
	}
	got := latestPoint(points)
	if got.Time != 50 || *got.Lat != 1.0 {
		t.Errorf("expected the first time=50 point, got %+v", got)
	}
}
