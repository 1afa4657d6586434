package config

import (
	"fmt"
	"os"
	"regexp"
	"sicakap/pkg/client"
	"sicakap/pkg/logger"
	"strconv"
	"time"
)

type Config struct {
	RegistryBaseURL string
	RegistryTimeout time.Duration

	OperatorID string
	Timezone   string
	TicketKey  string

	SessionTimeout    time.Duration
	WarningLead       time.Duration
	HeartbeatInterval time.Duration
	ExpiryGrace       time.Duration
	RolloverInterval  time.Duration

	PrefsBackend      string
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration
	RedisURL          string

	Port string

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	operator := getEnvStr(EnvOperatorID, DefaultOperatorID)
	cfg := &Config{
		RegistryBaseURL: getEnvStr(EnvRegistryBaseURL, DefaultRegistryBaseURL),
		RegistryTimeout: getEnvDuration(EnvRegistryTimeout, DefaultRegistryTimeout),

		OperatorID: operator,
		Timezone:   getEnvStr(EnvTimezone, DefaultTimezone),
		TicketKey:  getEnvStr(EnvTicketKey, ""),

		SessionTimeout:    getEnvDuration(EnvSessionTimeout, DefaultSessionTimeout),
		WarningLead:       getEnvDuration(EnvWarningLead, DefaultWarningLead),
		HeartbeatInterval: getEnvDuration(EnvHeartbeatInterval, DefaultHeartbeatInterval),
		ExpiryGrace:       getEnvDuration(EnvExpiryGrace, DefaultExpiryGrace),
		RolloverInterval:  getEnvDuration(EnvRolloverInterval, DefaultRolloverInterval),

		PrefsBackend:      getEnvStr(EnvPrefsBackend, DefaultPrefsBackend),
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),
		RedisURL:          getEnvStr(EnvRedisURL, DefaultRedisURL),

		Port: getEnvStr(EnvPort, DefaultPort),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, logger.INFO),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
			Operator:  operator,
		}),
		Client: client.NewClient(),
	}

	err := cfg.Validate()
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// SetPreferenceBackend connects the store selected by PREFS_BACKEND. Memory needs no connection.
func (cfg *Config) SetPreferenceBackend() {
	switch cfg.PrefsBackend {
	case PrefsMongo:
		cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
	case PrefsRedis:
		cfg.Client.SetRedis(cfg.Log, cfg.RedisURL)
	}
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if !regexp.MustCompile(`^https?://`).MatchString(cfg.RegistryBaseURL) {
		errors = append(errors, fmt.Sprintf("RegistryBaseURL must start with 'http://' or 'https://', got: %s", cfg.RegistryBaseURL))
	}
	if cfg.OperatorID == "" {
		errors = append(errors, "OperatorID cannot be empty")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("Timezone must be a valid IANA zone, got: %s", cfg.Timezone))
	}
	if cfg.TicketKey != "" && len(cfg.TicketKey) != 32 {
		errors = append(errors, fmt.Sprintf("TicketKey must be exactly 32 bytes, got %d", len(cfg.TicketKey)))
	}

	if cfg.SessionTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("SessionTimeout must be positive, got: %s", cfg.SessionTimeout))
	}
	if cfg.WarningLead <= 0 || cfg.WarningLead >= cfg.SessionTimeout {
		errors = append(errors, fmt.Sprintf("WarningLead (%s) must be positive and shorter than SessionTimeout (%s)", cfg.WarningLead, cfg.SessionTimeout))
	}
	if cfg.HeartbeatInterval <= 0 {
		errors = append(errors, fmt.Sprintf("HeartbeatInterval must be positive, got: %s", cfg.HeartbeatInterval))
	}
	if cfg.ExpiryGrace <= 0 {
		errors = append(errors, fmt.Sprintf("ExpiryGrace must be positive, got: %s", cfg.ExpiryGrace))
	}
	if cfg.RolloverInterval <= 0 {
		errors = append(errors, fmt.Sprintf("RolloverInterval must be positive, got: %s", cfg.RolloverInterval))
	}

	switch cfg.PrefsBackend {
	case PrefsMemory:
	case PrefsMongo:
		if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
		if cfg.MongoConnTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	case PrefsRedis:
		if !regexp.MustCompile(`^rediss?://`).MatchString(cfg.RedisURL) {
			errors = append(errors, fmt.Sprintf("RedisURL must start with 'redis://' or 'rediss://', got: %s", cfg.RedisURL))
		}
	default:
		errors = append(errors, fmt.Sprintf("PrefsBackend must be one of memory, mongo, redis, got: %s", cfg.PrefsBackend))
	}

	if cfg.RegistryTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RegistryTimeout must be positive, got: %s", cfg.RegistryTimeout))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"registry_base_url", cfg.RegistryBaseURL,
		"registry_timeout", cfg.RegistryTimeout,
		"operator_id", cfg.OperatorID,
		"timezone", cfg.Timezone,
		"ticket_key_set", cfg.TicketKey != "",
		"session_timeout", cfg.SessionTimeout,
		"warning_lead", cfg.WarningLead,
		"heartbeat_interval", cfg.HeartbeatInterval,
		"expiry_grace", cfg.ExpiryGrace,
		"rollover_interval", cfg.RolloverInterval,
		"prefs_backend", cfg.PrefsBackend,
		"mongo_uri", redactURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"redis_url", redactURI(cfg.RedisURL),
		"port", cfg.Port,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func redactURI(uri string) string {
	credentialRegex := regexp.MustCompile(`([a-z+]+://)[^:/@]*:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}
