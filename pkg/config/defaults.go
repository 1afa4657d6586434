package config

import "time"

const (
	PrefsMemory = "memory"
	PrefsMongo  = "mongo"
	PrefsRedis  = "redis"
)

const (
	DefaultRegistryBaseURL = "http://localhost:5000/api"
	DefaultRegistryTimeout = 10 * time.Second

	DefaultOperatorID = "desk-1"
	DefaultTimezone   = "Asia/Jakarta"

	DefaultSessionTimeout    = 120 * time.Second
	DefaultWarningLead       = 10 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultExpiryGrace       = 5 * time.Second
	DefaultRolloverInterval  = 1 * time.Minute

	DefaultPrefsBackend      = PrefsMemory
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "sicakap"
	DefaultMongoConnTimeout  = 10 * time.Second
	DefaultRedisURL          = "redis://localhost:6379/0"

	DefaultPort = "8080"

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 10 * time.Minute
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 35 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
)
