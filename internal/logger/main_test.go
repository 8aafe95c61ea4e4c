package logger_test

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/domus-admin/domus-admin/internal/logger"
)

func TestLogger(t *testing.T) {
	type testCase struct {
		name             string
		cfg              logger.Log
		shouldHaveOutPut bool
		outPutIsJSON     bool
	}

	testCases := []testCase{
		{
			name: "no logger enabled log level not set",
			cfg: logger.Log{
				LogLevel:    "",
				ServiceName: "test",
				AppName:     "test",
			},
			shouldHaveOutPut: false,
		},
		{
			name: "console enabled log level info",
			cfg: logger.Log{
				LogLevel:    "info",
				ServiceName: "test",
				AppName:     "test",
				Console:     logger.Console{Enabled: true},
			},
			shouldHaveOutPut: true,
			outPutIsJSON:     true,
		},
		{
			name: "console enabled console writer enabled",
			cfg: logger.Log{
				LogLevel:    "info",
				ServiceName: "test",
				AppName:     "test",
				Console:     logger.Console{Enabled: true, UseConsoleWriter: true},
			},
			shouldHaveOutPut: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// capture stdout
			origStdout := os.Stdout

			r, w, err := os.Pipe()
			if err != nil {
				t.Fatalf("failed to create pipe: %v", err)
			}

			os.Stdout = w

			if err = logger.Init(tc.cfg); err != nil {
				os.Stdout = origStdout
				t.Fatalf("Init() error = %v", err)
			}

			log.Info().Msg("test message")

			_ = w.Close()
			os.Stdout = origStdout

			var buf bytes.Buffer
			_, _ = io.Copy(&buf, r)

			if tc.shouldHaveOutPut && buf.Len() == 0 {
				t.Error("expected log output, got none")
			}

			if !tc.shouldHaveOutPut && buf.Len() > 0 {
				t.Errorf("expected no log output, got %q", buf.String())
			}

			if tc.outPutIsJSON {
				var decoded map[string]any
				if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
					t.Errorf("expected JSON output, got %q: %v", buf.String(), err)
				}
			}
		})
	}
}

func TestLoggerInvalidConfig(t *testing.T) {
	testCases := []struct {
		name string
		cfg  logger.Log
	}{
		{name: "bad level", cfg: logger.Log{LogLevel: "shout", ServiceName: "test", AppName: "test"}},
		{name: "no service name", cfg: logger.Log{LogLevel: "info", AppName: "test"}},
		{name: "no app name", cfg: logger.Log{LogLevel: "info", ServiceName: "test"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := logger.Init(tc.cfg); err == nil {
				t.Error("Init() expected error, got nil")
			}
		})
	}
}
