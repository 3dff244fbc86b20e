package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/logishift/viewrank/pkg/config"
)

func newScalyrLogger(buf *bytes.Buffer) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:       "timestamp",
		LevelKey:      "level",
		MessageKey:    "message",
		CallerKey:     "caller",
		StacktraceKey: "stacktrace",
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeLevel:   zapcore.LowercaseLevelEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}
	core := zapcore.NewCore(NewScalyrEncoder(encoderConfig), zapcore.AddSync(buf), zapcore.InfoLevel)
	return zap.New(core)
}

func TestScalyrEncoder(t *testing.T) {
	var buf bytes.Buffer
	logger := newScalyrLogger(&buf)

	logger.Info("view recorded",
		zap.String("key", "value"),
		zap.Int64("content_id", 10),
		zap.Duration("took", 1500*time.Millisecond),
	)

	var logObj map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logObj); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	if logObj["message"] != "view recorded" {
		t.Errorf("Expected message 'view recorded', got: %v", logObj["message"])
	}
	if logObj["key"] != "value" {
		t.Errorf("Expected field 'key'='value', got: %v", logObj["key"])
	}
	if logObj["content_id"] != float64(10) {
		t.Errorf("Expected field 'content_id'=10, got: %v", logObj["content_id"])
	}
	if logObj["took"] != "1.5s" {
		t.Errorf("Expected field 'took'='1.5s', got: %v", logObj["took"])
	}
	if _, ok := logObj["timestamp"]; !ok {
		t.Error("Expected 'timestamp' field in log output")
	}
}

func TestScalyrEncoder_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newScalyrLogger(&buf).With(zap.String("component", "views"), zap.Bool("cached", true))

	logger.Warn("rank failed")

	var logObj map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logObj); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}
	if logObj["component"] != "views" {
		t.Errorf("Expected context field 'component'='views', got: %v", logObj["component"])
	}
	if logObj["cached"] != true {
		t.Errorf("Expected context field 'cached'=true, got: %v", logObj["cached"])
	}
	if logObj["level"] != "warn" {
		t.Errorf("Expected level 'warn', got: %v", logObj["level"])
	}
}

func TestInitLogger_FileSink(t *testing.T) {
	oldLogger := Logger
	defer func() { Logger = oldLogger }()

	cfg := &config.LoggingConfig{
		Level:      "DEBUG",
		Format:     "json",
		File:       filepath.Join(t.TempDir(), "viewrank.log"),
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
	}
	if err := InitLogger(cfg); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	if !Logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("Expected debug level to be enabled")
	}
}
