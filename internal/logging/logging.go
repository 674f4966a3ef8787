// Package logging builds the process logger and scrubs secrets from text
// that is about to be logged or returned to a client.
package logging

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RedactedText replaces sensitive substrings.
const RedactedText = "[REDACTED]"

var (
	bearerPattern      = regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-_\.=]+`)
	integrationPattern = regexp.MustCompile(`\b(secret_|ntn_)[A-Za-z0-9]{16,}`)
	apiKeyPattern      = regexp.MustCompile(`(?i)(api[_-]?key|token)=[A-Za-z0-9\-_]{12,}`)
)

// New builds a zap logger. environment "production" selects JSON output;
// anything else the console encoder.
func New(level, environment string) (*zap.Logger, error) {
	var cfg zap.Config
	if strings.EqualFold(environment, "production") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// Sanitize removes bearer tokens, integration secrets and key parameters.
func Sanitize(s string) string {
	s = bearerPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	s = integrationPattern.ReplaceAllString(s, "${1}"+RedactedText)
	s = apiKeyPattern.ReplaceAllString(s, "${1}="+RedactedText)
	return s
}

// SanitizeError is Sanitize applied to err's message. A nil error yields "".
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return Sanitize(err.Error())
}
