package config

const (
	EnvRegistryBaseURL = "REGISTRY_BASE_URL"
	EnvRegistryTimeout = "REGISTRY_TIMEOUT"

	EnvOperatorID = "OPERATOR_ID"
	EnvTimezone   = "DESK_TIMEZONE"
	EnvTicketKey  = "TICKET_KEY"

	EnvSessionTimeout    = "SESSION_TIMEOUT"
	EnvWarningLead       = "SESSION_WARNING_LEAD"
	EnvHeartbeatInterval = "SESSION_HEARTBEAT_INTERVAL"
	EnvExpiryGrace       = "SESSION_EXPIRY_GRACE"
	EnvRolloverInterval  = "DATE_ROLLOVER_INTERVAL"

	EnvPrefsBackend      = "PREFS_BACKEND"
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"
	EnvRedisURL          = "REDIS_URL"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
