package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	JWTSecret   string `env:"JWT_SECRET,required,notEmpty"`
	CronSecret  string `env:"CRON_SECRET,required,notEmpty"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	LedgerTimezone string `env:"LEDGER_TIMEZONE" envDefault:"America/Argentina/Buenos_Aires"`
	RateCacheTTLS  int    `env:"RATE_CACHE_TTL_S" envDefault:"60"`
	MaxSeriesDays  int    `env:"MAX_SERIES_DAYS" envDefault:"1830"`

	SchedulerCron     string `env:"SCHEDULER_CRON"`
	SchedulerTimeoutS int    `env:"SCHEDULER_TIMEOUT_S" envDefault:"300"`
	SchedulerWorkers  int    `env:"SCHEDULER_WORKERS" envDefault:"4"`

	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"migrations"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"false"`

	KafkaBrokers          []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaObligationsTopic string   `env:"KAFKA_OBLIGATIONS_TOPIC" envDefault:"ledger.obligations.generated"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if cfg.MaxSeriesDays <= 0 {
		return nil, fmt.Errorf("config.Load: MAX_SERIES_DAYS must be positive, got %d", cfg.MaxSeriesDays)
	}
	return &cfg, nil
}

// Location is the zone that defines calendar days and months for the ledger.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.LedgerTimezone)
	if err != nil {
		return nil, fmt.Errorf("LEDGER_TIMEZONE %q: %w", c.LedgerTimezone, err)
	}
	return loc, nil
}

func (c *Config) RateCacheTTL() time.Duration {
	return time.Duration(c.RateCacheTTLS) * time.Second
}

func (c *Config) SchedulerTimeout() time.Duration {
	return time.Duration(c.SchedulerTimeoutS) * time.Second
}
