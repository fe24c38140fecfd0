package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" warn ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"info":    zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInit_JSONWithServiceAndComponent(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var buf bytes.Buffer
	Init(Options{Level: "debug", Service: "tag-position-api", Output: &buf})

	l := Component("vendors")
	l.Info().Str("vendor", "mt01").Msg("registered")

	var event map[string]any
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("expected one JSON event, got %q: %v", buf.String(), err)
	}
	if event["service"] != "tag-position-api" || event["component"] != "vendors" || event["vendor"] != "mt01" {
		t.Errorf("unexpected event fields: %v", event)
	}
	if event["message"] != "registered" || event["level"] != "info" {
		t.Errorf("unexpected event: %v", event)
	}
}

func TestInit_OnlyFirstCallApplies(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var first, second bytes.Buffer
	Init(Options{Level: "info", Output: &first})
	Init(Options{Level: "debug", Output: &second})

	l := Get()
	l.Info().Msg("hello")
	l.Debug().Msg("filtered")

	if first.Len() == 0 || second.Len() != 0 {
		t.Fatalf("expected output only on the first writer, got %q / %q", first.String(), second.String())
	}
	if bytes.Contains(first.Bytes(), []byte("filtered")) {
		t.Errorf("debug event must be filtered at info level")
	}
}

func TestGet_PanicsBeforeInit(t *testing.T) {
	Reset()
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic")
		}
	}()
	Get()
}
