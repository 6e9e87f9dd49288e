package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/tangzhangming/gfront/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		cfg     config.LogConfig
		enabled zapcore.Level
		wantErr bool
	}{
		{config.LogConfig{Level: "debug", Format: "console"}, zapcore.DebugLevel, false},
		{config.LogConfig{Level: "warn", Format: "json"}, zapcore.WarnLevel, false},
		{config.LogConfig{Level: "loud", Format: "json"}, 0, true},
		{config.LogConfig{Level: "info", Format: "xml"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.cfg.Level+"/"+tt.cfg.Format, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !l.Core().Enabled(tt.enabled) {
				t.Errorf("level %s should be enabled", tt.enabled)
			}
			if tt.enabled > zapcore.DebugLevel && l.Core().Enabled(tt.enabled-1) {
				t.Errorf("level %s should be disabled", tt.enabled-1)
			}
		})
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	l := Nop()
	if OrNop(l) != l {
		t.Error("OrNop should keep a non-nil logger")
	}
}
