package logger

import (
	"testing"

	"github.com/deppfellow/stockroom/internal/config"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPgxTraceLogLevel(t *testing.T) {
	cases := map[zerolog.Level]tracelog.LogLevel{
		zerolog.DebugLevel: tracelog.LogLevelDebug,
		zerolog.InfoLevel:  tracelog.LogLevelInfo,
		zerolog.WarnLevel:  tracelog.LogLevelWarn,
		zerolog.ErrorLevel: tracelog.LogLevelError,
		zerolog.Disabled:   tracelog.LogLevelNone,
	}
	for in, want := range cases {
		assert.Equal(t, want, GetPgxTraceLogLevel(in), in.String())
	}
}

func TestNewLoggerService(t *testing.T) {
	t.Run("Should stay disabled without a license key", func(t *testing.T) {
		service, err := NewLoggerService(config.DefaultObservabilityConfig())
		require.NoError(t, err)
		assert.Nil(t, service.GetApplication())
		service.Shutdown()
	})

	t.Run("Should tolerate a nil service", func(t *testing.T) {
		var service *LoggerService
		assert.Nil(t, service.GetApplication())
	})
}

func TestNewLoggerWithService(t *testing.T) {
	t.Run("Should apply the configured level", func(t *testing.T) {
		cfg := config.DefaultObservabilityConfig()
		cfg.Logging.Level = "warn"

		log := NewLoggerWithService(cfg, nil)
		assert.Equal(t, zerolog.WarnLevel, log.GetLevel())
	})

	t.Run("Should fall back to info on an unparsable level", func(t *testing.T) {
		cfg := config.DefaultObservabilityConfig()
		cfg.Logging.Level = "loud"

		log := NewLogger(cfg)
		assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
	})
}
