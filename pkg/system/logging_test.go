package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	for _, debug := range []bool{false, true} {
		logger, err := NewLogger(debug)
		require.NoError(t, err)
		require.NotNil(t, logger)
		assert.Equal(t, debug, logger.Core().Enabled(zap.DebugLevel), "debug level enabled only in debug mode")
		logger.Sugar().Infow("logger smoke test", "debug", debug)
	}
}

func TestSendFields(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	logger := zap.New(core).Sugar()

	logger.With(SendFields("id-1", "smtp.example.com", 465, "bob@example.com", "Hi", false)...).Info("quiet")
	logger.With(SendFields("id-2", "smtp.example.com", 465, "bob@example.com", "Hi", true)...).Info("verbose")

	entries := recorded.All()
	require.Len(t, entries, 2)

	quiet := entries[0].ContextMap()
	assert.Equal(t, "id-1", quiet["sendID"])
	assert.Equal(t, "smtp.example.com", quiet["host"])
	assert.EqualValues(t, 465, quiet["port"])
	assert.Equal(t, "bob@example.com", quiet["recipient"])
	assert.NotContains(t, quiet, "subject")

	verbose := entries[1].ContextMap()
	assert.Equal(t, "Hi", verbose["subject"])
}
