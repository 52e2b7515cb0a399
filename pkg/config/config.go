package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Processors   ProcessorsConfig
	Stream       StreamConfig
	Consumer     ConsumerConfig
	Health       HealthConfig
	Router       RouterConfig
	Producer     ProducerConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if c.Consumer.Count < 1 {
		return fmt.Errorf("%s must be at least 1", EnvConsumerCount)
	}
	if c.Consumer.BatchSize < 1 {
		return fmt.Errorf("%s must be at least 1", EnvConsumerBatchSize)
	}
	if c.Consumer.Concurrency < 1 {
		return fmt.Errorf("%s must be at least 1", EnvConsumerConcurrency)
	}
	if c.Consumer.TickInterval <= 0 {
		return fmt.Errorf("%s must be positive", EnvConsumerTickInterval)
	}
	if c.Consumer.BlockTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvConsumerBlockTimeout)
	}
	if c.Consumer.ReclaimEnabled() {
		if floor := c.MinReclaimIdle(); c.Consumer.ReclaimIdle < floor {
			return fmt.Errorf("%s must be at least %s (processor timeout x ticks needed to drain one read per consumer)", EnvConsumerReclaimIdle, floor)
		}
	}
	if c.Health.TTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvHealthTTL)
	}
	if c.Producer.BufferSize < c.Producer.BatchSize {
		return errors.New("producer buffer size must be at least the producer batch size")
	}
	if strings.TrimSpace(c.Stream.Name) == "" || strings.TrimSpace(c.Stream.Group) == "" {
		return errors.New("stream name and consumer group are required")
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"PAYROUTER_APP_ENV" required:"true"`
	Port         string `envconfig:"PAYROUTER_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PAYROUTER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PAYROUTER_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"PAYROUTER_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind        string `envconfig:"PAYROUTER_SERVICE_KIND" default:"api"`
	MetricsPort string `envconfig:"PAYROUTER_METRICS_PORT"`
}

type DBConfig struct {
	DSN    string `envconfig:"PAYROUTER_DB_DSN"`
	Driver string `envconfig:"PAYROUTER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PAYROUTER_DB_HOST"`
	LegacyPort     int    `envconfig:"PAYROUTER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PAYROUTER_DB_USER"`
	LegacyPassword string `envconfig:"PAYROUTER_DB_PASSWORD"`
	LegacyName     string `envconfig:"PAYROUTER_DB_NAME"`
	LegacySSLMode  string `envconfig:"PAYROUTER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PAYROUTER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAYROUTER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAYROUTER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAYROUTER_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"PAYROUTER_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAYROUTER_REDIS_URL"`
	Address      string        `envconfig:"PAYROUTER_REDIS_ADDR"`
	Password     string        `envconfig:"PAYROUTER_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAYROUTER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAYROUTER_REDIS_POOL_SIZE" default:"50"`
	MinIdleConns int           `envconfig:"PAYROUTER_REDIS_MIN_IDLE_CONNS" default:"5"`
	DialTimeout  time.Duration `envconfig:"PAYROUTER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAYROUTER_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"PAYROUTER_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type ProcessorsConfig struct {
	DefaultURL  string        `envconfig:"PAYROUTER_PROCESSOR_DEFAULT_URL" default:"http://payment-processor-default:8080"`
	FallbackURL string        `envconfig:"PAYROUTER_PROCESSOR_FALLBACK_URL" default:"http://payment-processor-fallback:8080"`
	Timeout     time.Duration `envconfig:"PAYROUTER_PROCESSOR_TIMEOUT" default:"5s"`
}

type StreamConfig struct {
	Name  string `envconfig:"PAYROUTER_STREAM_NAME" default:"payments:stream"`
	Group string `envconfig:"PAYROUTER_STREAM_GROUP" default:"payment-processors"`
}

type ConsumerConfig struct {
	Count        int           `envconfig:"PAYROUTER_CONSUMER_COUNT" default:"10"`
	NamePrefix   string        `envconfig:"PAYROUTER_CONSUMER_NAME_PREFIX" default:"processor"`
	BatchSize    int           `envconfig:"PAYROUTER_CONSUMER_BATCH_SIZE" default:"30"`
	BlockTimeout time.Duration `envconfig:"PAYROUTER_CONSUMER_BLOCK_TIMEOUT" default:"10ms"`
	TickInterval time.Duration `envconfig:"PAYROUTER_CONSUMER_TICK_INTERVAL" default:"1s"`
	Concurrency  int           `envconfig:"PAYROUTER_CONSUMER_CONCURRENCY" default:"25"`
	ReclaimIdle  time.Duration `envconfig:"PAYROUTER_CONSUMER_RECLAIM_IDLE" default:"90s"`
}

// MinReclaimIdle is the longest an entry may legitimately sit pending while the
// shared in-flight window drains every consumer's batch.
func (c *Config) MinReclaimIdle() time.Duration {
	if c.Consumer.Concurrency < 1 {
		return 0
	}
	inFlight := c.Consumer.Count * c.Consumer.BatchSize
	waves := (inFlight + c.Consumer.Concurrency - 1) / c.Consumer.Concurrency
	return c.Processors.Timeout * time.Duration(waves)
}

// ReclaimEnabled reports whether abandoned pending entries should be claimed by live consumers.
func (c ConsumerConfig) ReclaimEnabled() bool {
	return c.ReclaimIdle > 0
}

type HealthConfig struct {
	TTL     time.Duration `envconfig:"PAYROUTER_HEALTH_TTL" default:"5s"`
	Timeout time.Duration `envconfig:"PAYROUTER_HEALTH_TIMEOUT" default:"2s"`
}

type RouterConfig struct {
	MaxResponseTimeMs int `envconfig:"PAYROUTER_ROUTER_MAX_RESPONSE_TIME_MS" default:"250"`
}

type ProducerConfig struct {
	BufferSize    int           `envconfig:"PAYROUTER_PRODUCER_BUFFER_SIZE" default:"10000"`
	BatchSize     int           `envconfig:"PAYROUTER_PRODUCER_BATCH_SIZE" default:"100"`
	FlushInterval time.Duration `envconfig:"PAYROUTER_PRODUCER_FLUSH_INTERVAL" default:"20ms"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PAYROUTER_AUTO_MIGRATE" default:"false"`
	AllowPurge  bool `envconfig:"PAYROUTER_ALLOW_PURGE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
