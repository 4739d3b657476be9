// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package system

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. Production config emits JSON to
// stderr; debug switches to the console encoder at debug level.
func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	// Disable automatic stacktraces for non-fatal levels to avoid noisy traces in WARN/INFO logs
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339))
	}
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return logger, nil
}

// SendFields returns key/value pairs identifying one send, suitable for
// SugaredLogger.With. The subject is left out unless verbose is set since it
// may carry personal data.
func SendFields(id, host string, port int, recipient, subject string, verbose bool) []interface{} {
	fields := []interface{}{"sendID", id, "host", host, "port", port, "recipient", recipient}
	if verbose {
		fields = append(fields, "subject", subject)
	}
	return fields
}
