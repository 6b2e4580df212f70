package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

const testToken = "bot8462697481:AAEJSXuTcb2F1Js2sWiK0TVWvxbHL9xX05Q"

func TestSecretMaskerHandler_Handle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "mask telegram token in message",
			input:    `Post "https://api.telegram.org/` + testToken + `/getUpdates": net/http: request canceled`,
			expected: `Post "https://api.telegram.org/bot***:***masked-token***/getUpdates": net/http: request canceled`,
		},
		{
			name:     "no secrets in message",
			input:    "This is a normal log message without tokens",
			expected: "This is a normal log message without tokens",
		},
		{
			name:     "mask api hash",
			input:    "resolver config api_hash=0123456789abcdef0123456789ABCDEF",
			expected: "resolver config api_hash=***masked-hash***",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			logger := NewMaskedLogger(slog.NewJSONHandler(&buf, nil))

			logger.Info(tt.input)

			output := buf.String()
			expectedEscaped := strings.ReplaceAll(tt.expected, "\"", "\\\"")
			if !strings.Contains(output, expectedEscaped) {
				t.Errorf("expected output to contain %q, got %q", expectedEscaped, output)
			}
		})
	}
}

func TestSecretMaskerHandler_Attrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewMaskedLogger(slog.NewJSONHandler(&buf, nil))

	logger.With(slog.String("token", testToken)).Info("message with token in attr",
		"error", errors.New("request to "+testToken+" failed"),
		slog.Group("bot", slog.String("url", "https://api.telegram.org/"+testToken)),
	)

	output := buf.String()
	if strings.Contains(output, testToken) {
		t.Errorf("expected output to not contain original token, got %q", output)
	}
	if strings.Count(output, "***masked-token***") != 3 {
		t.Errorf("expected three masked tokens, got %q", output)
	}
}

func TestMaskSecrets(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "No token here", expected: "No token here"},
		{input: "bot123456789:AAABCdEfGhIjKlMnOpQrStUvWxYz1234567", expected: "bot***:***masked-token***"},
		{input: `{"api_hash": "0123456789abcdef0123456789abcdef"}`, expected: `{"api_hash": "***masked-hash***"}`},
		{input: "APIHash: 0123456789abcdef", expected: "APIHash: 0123456789abcdef"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := maskSecrets(tt.input); result != tt.expected {
				t.Errorf("maskSecrets(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
