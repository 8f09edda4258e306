package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("expected silent logger when no level is configured")
	}
}

func TestInitializeRejectsUnknownLevel(t *testing.T) {
	if err := Initialize("loud"); err == nil {
		t.Error("Initialize(\"loud\") should fail")
	}
}

func TestLogCredentialEventNeverLogsSecret(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogCredentialEvent("portal", "HomeNet", len("secret123"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	for _, f := range entries[0].Context {
		if strings.Contains(f.String, "secret123") {
			t.Fatalf("secret leaked into field %s", f.Key)
		}
	}
	if got := entries[0].ContextMap()["secret"]; got != "<9 bytes>" {
		t.Errorf("secret field = %v, want <9 bytes>", got)
	}
}

func TestMaskSecret(t *testing.T) {
	if got := MaskSecret(0); got != "<empty>" {
		t.Errorf("MaskSecret(0) = %q", got)
	}
	if got := MaskSecret(12); got != "<12 bytes>" {
		t.Errorf("MaskSecret(12) = %q", got)
	}
}
