package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvStorageDriver     = "STORAGE_DRIVER"
	EnvLockDriver        = "LOCK_DRIVER"
	EnvLockTTL           = "LOCK_TTL"
	EnvLockWait          = "LOCK_WAIT"
	EnvIdempotencyDriver = "IDEMPOTENCY_DRIVER"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvOTPTTL           = "OTP_TTL"
	EnvOTPCodeLength    = "OTP_CODE_LENGTH"
	EnvOTPExposeCode    = "OTP_EXPOSE_CODE"
	EnvOTPHashCost      = "OTP_HASH_COST"
	EnvOTPSweepInterval = "OTP_SWEEP_INTERVAL"
	EnvOTPSweepGrace    = "OTP_SWEEP_GRACE"

	EnvNotificationDriver  = "NOTIFICATION_DRIVER"
	EnvNotificationTimeout = "NOTIFICATION_TIMEOUT"
	EnvSMSGatewayURL       = "SMS_GATEWAY_URL"
	EnvSMSGatewayAPIKey    = "SMS_GATEWAY_API_KEY"
	EnvSMSSenderID         = "SMS_SENDER_ID"

	EnvDirectoryURL     = "DIRECTORY_URL"
	EnvDirectoryFixture = "DIRECTORY_FIXTURE"
	EnvPhoneRegions     = "PHONE_REGIONS"
)
