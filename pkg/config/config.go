package config

import (
	"fmt"
	"medibook/pkg/client"
	"medibook/pkg/logger"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	StorageDriver     string
	LockDriver        string
	LockTTL           time.Duration
	LockWait          time.Duration
	IdempotencyDriver string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	OTPTTL           time.Duration
	OTPCodeLength    int
	OTPExposeCode    bool
	OTPHashCost      int
	OTPSweepInterval time.Duration
	OTPSweepGrace    time.Duration

	NotificationDriver  string
	NotificationTimeout time.Duration
	SMSGatewayURL       string
	SMSGatewayAPIKey    string
	SMSSenderID         string

	DirectoryURL     string
	DirectoryFixture string
	PhoneRegions     []string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		StorageDriver:     strings.ToLower(getEnvStr(EnvStorageDriver, DefaultStorageDriver)),
		LockDriver:        strings.ToLower(getEnvStr(EnvLockDriver, DefaultLockDriver)),
		LockTTL:           getEnvDuration(EnvLockTTL, DefaultLockTTL),
		LockWait:          getEnvDuration(EnvLockWait, DefaultLockWait),
		IdempotencyDriver: strings.ToLower(getEnvStr(EnvIdempotencyDriver, DefaultIdempotencyDriver)),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		OTPTTL:           getEnvDuration(EnvOTPTTL, DefaultOTPTTL),
		OTPCodeLength:    getEnvNum(EnvOTPCodeLength, DefaultOTPCodeLength),
		OTPExposeCode:    getEnvBool(EnvOTPExposeCode, false),
		OTPHashCost:      getEnvNum(EnvOTPHashCost, DefaultOTPHashCost),
		OTPSweepInterval: getEnvDuration(EnvOTPSweepInterval, DefaultOTPSweepInterval),
		OTPSweepGrace:    getEnvDuration(EnvOTPSweepGrace, DefaultOTPSweepGrace),

		NotificationDriver:  strings.ToLower(getEnvStr(EnvNotificationDriver, DefaultNotificationDriver)),
		NotificationTimeout: getEnvDuration(EnvNotificationTimeout, DefaultNotificationTimeout),
		SMSGatewayURL:       getEnvStr(EnvSMSGatewayURL, ""),
		SMSGatewayAPIKey:    getEnvStr(EnvSMSGatewayAPIKey, ""),
		SMSSenderID:         getEnvStr(EnvSMSSenderID, DefaultSMSSenderID),

		DirectoryURL:     getEnvStr(EnvDirectoryURL, ""),
		DirectoryFixture: getEnvStr(EnvDirectoryFixture, ""),
		PhoneRegions:     getEnvList(EnvPhoneRegions, DefaultPhoneRegions),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
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

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

// UsesMongo reports whether any configured driver needs a Mongo connection.
func (cfg *Config) UsesMongo() bool {
	return cfg.StorageDriver == DriverMongo || cfg.LockDriver == DriverMongo
}

// UsesRedis reports whether any configured driver needs a Redis connection.
func (cfg *Config) UsesRedis() bool {
	return cfg.LockDriver == DriverRedis || cfg.IdempotencyDriver == DriverRedis
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if !oneOf(cfg.StorageDriver, DriverMongo, DriverMemory) {
		errors = append(errors, fmt.Sprintf("StorageDriver must be one of mongo|memory, got: %s", cfg.StorageDriver))
	}
	if !oneOf(cfg.LockDriver, DriverMongo, DriverMemory, DriverRedis) {
		errors = append(errors, fmt.Sprintf("LockDriver must be one of mongo|memory|redis, got: %s", cfg.LockDriver))
	}
	if !oneOf(cfg.IdempotencyDriver, DriverMemory, DriverRedis) {
		errors = append(errors, fmt.Sprintf("IdempotencyDriver must be one of memory|redis, got: %s", cfg.IdempotencyDriver))
	}
	if !oneOf(cfg.NotificationDriver, DriverKafka, DriverGateway, DriverLog) {
		errors = append(errors, fmt.Sprintf("NotificationDriver must be one of kafka|gateway|log, got: %s", cfg.NotificationDriver))
	}

	if cfg.UsesMongo() {
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
	}
	if cfg.StorageDriver == DriverMemory && cfg.LockDriver != DriverMemory {
		errors = append(errors, "LockDriver must be memory when StorageDriver is memory")
	}

	if cfg.UsesRedis() && cfg.RedisAddr == "" {
		errors = append(errors, "RedisAddr cannot be empty when a redis driver is selected")
	}
	if cfg.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
	}

	if cfg.NotificationDriver == DriverGateway && cfg.SMSGatewayURL == "" {
		errors = append(errors, "SMSGatewayURL cannot be empty when NotificationDriver is gateway")
	}

	if cfg.OTPCodeLength < 4 || cfg.OTPCodeLength > 10 {
		errors = append(errors, fmt.Sprintf("OTPCodeLength must be between 4 and 10, got: %d", cfg.OTPCodeLength))
	}
	if cfg.OTPHashCost < 4 || cfg.OTPHashCost > 31 {
		errors = append(errors, fmt.Sprintf("OTPHashCost must be between 4 and 31, got: %d", cfg.OTPHashCost))
	}
	if len(cfg.PhoneRegions) == 0 {
		errors = append(errors, "PhoneRegions cannot be empty")
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"LockTTL", cfg.LockTTL},
		{"LockWait", cfg.LockWait},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"OTPTTL", cfg.OTPTTL},
		{"OTPSweepInterval", cfg.OTPSweepInterval},
		{"NotificationTimeout", cfg.NotificationTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}
	if cfg.OTPSweepGrace < 0 {
		errors = append(errors, fmt.Sprintf("OTPSweepGrace cannot be negative, got: %s", cfg.OTPSweepGrace))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
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
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"storage_driver", cfg.StorageDriver,
		"lock_driver", cfg.LockDriver,
		"lock_ttl", cfg.LockTTL,
		"lock_wait", cfg.LockWait,
		"idempotency_driver", cfg.IdempotencyDriver,
		"redis_addr", cfg.RedisAddr,
		"redis_password_set", cfg.RedisPassword != "",
		"redis_db", cfg.RedisDB,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"otp_ttl", cfg.OTPTTL,
		"otp_code_length", cfg.OTPCodeLength,
		"otp_expose_code", cfg.OTPExposeCode,
		"otp_hash_cost", cfg.OTPHashCost,
		"otp_sweep_interval", cfg.OTPSweepInterval,
		"otp_sweep_grace", cfg.OTPSweepGrace,
		"notification_driver", cfg.NotificationDriver,
		"notification_timeout", cfg.NotificationTimeout,
		"sms_gateway_url", cfg.SMSGatewayURL,
		"sms_gateway_key_set", cfg.SMSGatewayAPIKey != "",
		"sms_sender_id", cfg.SMSSenderID,
		"directory_url", cfg.DirectoryURL,
		"directory_fixture", cfg.DirectoryFixture,
		"phone_regions", cfg.PhoneRegions,
	)
	if cfg.OTPExposeCode {
		cfg.Log.Warn("OTP codes are returned in API responses; do not enable outside test environments")
	}
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
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

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.ToUpper(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
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

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
