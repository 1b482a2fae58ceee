// ABOUTME: Tests for the zap logger setup.
// ABOUTME: Covers level parsing, component fields, and the pre-Init no-op logger.
package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/2389-research/futurefeed/internal/config"
)

func TestGetLoggerBeforeInit(t *testing.T) {
	Set(nil)
	if GetLogger() == nil {
		t.Fatal("expected a usable logger before Init")
	}
	// Must not panic.
	GetLogger().Info("dropped")
}

func TestInitAcceptsTextAndJSON(t *testing.T) {
	defer Set(nil)

	for _, format := range []string{"text", "json", ""} {
		if err := Init(config.LoggingConfig{Level: "debug", Format: format}); err != nil {
			t.Fatalf("Init(%q) error: %v", format, err)
		}
		if !GetLogger().Core().Enabled(zapcore.DebugLevel) {
			t.Errorf("format %q: expected debug level to be enabled", format)
		}
	}
}

func TestInitUnknownLevelFallsBackToWarn(t *testing.T) {
	defer Set(nil)

	if err := Init(config.LoggingConfig{Level: "chatty"}); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info to be disabled under the warn fallback")
	}
	if !GetLogger().Core().Enabled(zapcore.WarnLevel) {
		t.Error("expected warn to be enabled")
	}
}

func TestWithComponent(t *testing.T) {
	defer Set(nil)

	var buf bytes.Buffer
	Set(NewWriter(zapcore.AddSync(&buf), zapcore.InfoLevel))

	WithComponent("cache").Info("saved", zap.String("key", "feed:for-you:page:0"))

	var logObj map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logObj); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if logObj["component"] != "cache" {
		t.Errorf("expected component 'cache', got %v", logObj["component"])
	}
	if logObj["key"] != "feed:for-you:page:0" {
		t.Errorf("expected key field, got %v", logObj["key"])
	}
	if logObj["msg"] != "saved" {
		t.Errorf("expected msg 'saved', got %v", logObj["msg"])
	}
}
