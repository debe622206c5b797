package logging

import (
	"log/slog"
	"testing"
)

func TestEnableMany(t *testing.T) {
	EnableMany(" sched, ,timer")
	if !VerboseEnabled("sched") || !VerboseEnabled("timer") {
		t.Fatal("expected sched and timer tags enabled")
	}
	if VerboseEnabled("") {
		t.Fatal("empty tag enabled")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
