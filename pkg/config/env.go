package config

const (
	EnvPrefix = "PAYROUTER"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "PAYROUTER_APP_ENV"
	EnvPort     = "PAYROUTER_APP_PORT"
	EnvLogLevel = "PAYROUTER_LOG_LEVEL"

	EnvDBDSN  = "PAYROUTER_DB_DSN"
	EnvDBHost = "PAYROUTER_DB_HOST"
	EnvDBUser = "PAYROUTER_DB_USER"
	EnvDBName = "PAYROUTER_DB_NAME"

	EnvRedisURL  = "PAYROUTER_REDIS_URL"
	EnvRedisAddr = "PAYROUTER_REDIS_ADDR"

	EnvProcessorDefaultURL  = "PAYROUTER_PROCESSOR_DEFAULT_URL"
	EnvProcessorFallbackURL = "PAYROUTER_PROCESSOR_FALLBACK_URL"

	EnvConsumerCount        = "PAYROUTER_CONSUMER_COUNT"
	EnvConsumerBatchSize    = "PAYROUTER_CONSUMER_BATCH_SIZE"
	EnvConsumerBlockTimeout = "PAYROUTER_CONSUMER_BLOCK_TIMEOUT"
	EnvConsumerTickInterval = "PAYROUTER_CONSUMER_TICK_INTERVAL"
	EnvConsumerConcurrency  = "PAYROUTER_CONSUMER_CONCURRENCY"
	EnvConsumerReclaimIdle  = "PAYROUTER_CONSUMER_RECLAIM_IDLE"

	EnvHealthTTL = "PAYROUTER_HEALTH_TTL"

	EnvProducerBufferSize = "PAYROUTER_PRODUCER_BUFFER_SIZE"
	EnvProducerBatchSize  = "PAYROUTER_PRODUCER_BATCH_SIZE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
