package app

import (
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "unknown", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range cases {
		got := parseLogLevel(tc.in)
		if got != tc.want {
			t.Fatalf("parseLogLevel(%q)=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestNewLogger_Format(t *testing.T) {
	t.Parallel()

	var js, txt strings.Builder
	newLogger(&js, "info", "json").Info("auth.login.success", "user_id", "u1")
	newLogger(&txt, "info", "TEXT").Info("auth.login.success", "user_id", "u1")

	if !strings.Contains(js.String(), `"msg":"auth.login.success"`) {
		t.Fatalf("json output = %q", js.String())
	}
	if !strings.Contains(txt.String(), "msg=auth.login.success") {
		t.Fatalf("text output = %q", txt.String())
	}
}

func TestNewLogger_LevelFilters(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	log := newLogger(&b, "warn", "json")
	log.Info("dropped")
	log.Warn("kept")
	if strings.Contains(b.String(), "dropped") || !strings.Contains(b.String(), "kept") {
		t.Fatalf("output = %q", b.String())
	}
}
