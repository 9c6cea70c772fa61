package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ledger")
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("CRON_SECRET", "cron")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 1830, cfg.MaxSeriesDays)
	assert.Equal(t, 4, cfg.SchedulerWorkers)
	assert.Equal(t, 5*time.Minute, cfg.SchedulerTimeout())
	assert.Equal(t, time.Minute, cfg.RateCacheTTL())
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "ledger.obligations.generated", cfg.KafkaObligationsTopic)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Argentina/Buenos_Aires", loc.String())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("LEDGER_TIMEZONE", "UTC")
	t.Setenv("RATE_CACHE_TTL_S", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Zero(t, cfg.RateCacheTTL())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "missing cron secret", key: "CRON_SECRET", value: ""},
		{name: "unknown zone", key: "LEDGER_TIMEZONE", value: "Mars/Olympus"},
		{name: "non positive series bound", key: "MAX_SERIES_DAYS", value: "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			require.Error(t, err)
		})
	}
}
