package config

import "time"

const (
	DriverMongo   = "mongo"
	DriverMemory  = "memory"
	DriverRedis   = "redis"
	DriverKafka   = "kafka"
	DriverGateway = "gateway"
	DriverLog     = "log"
)

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "medibook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultStorageDriver     = DriverMongo
	DefaultLockDriver        = DriverMongo
	DefaultLockTTL           = 30 * time.Second
	DefaultLockWait          = 5 * time.Second
	DefaultIdempotencyDriver = DriverMemory

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultOTPTTL           = 5 * time.Minute
	DefaultOTPCodeLength    = 5
	DefaultOTPHashCost      = 10
	DefaultOTPSweepInterval = 5 * time.Minute
	DefaultOTPSweepGrace    = 1 * time.Minute

	DefaultNotificationDriver  = DriverKafka
	DefaultNotificationTimeout = 5 * time.Second
	DefaultSMSSenderID         = "MEDIBOOK"

	DefaultPaginationLimit = 100
)

// DefaultPhoneRegions are tried in order when a patient number has no
// international prefix.
var DefaultPhoneRegions = []string{"KE"}
