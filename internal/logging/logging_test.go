package logging

import (
	"bytes"
	"strings"
	"testing"

	"FirepowerKit/internal/config"

	"github.com/sirupsen/logrus"
)

func TestConfigure_Level(t *testing.T) {
	logger := logrus.New()
	var buf bytes.Buffer
	if err := Configure(logger, config.LogConfig{Level: "warn"}, &buf); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Info message should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("Warn message missing from output: %q", out)
	}
}

func TestConfigure_BadLevel(t *testing.T) {
	if err := Configure(logrus.New(), config.LogConfig{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Fatal("Expected an error for an unknown level")
	}
}
