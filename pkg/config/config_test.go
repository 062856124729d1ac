package config

import (
	"strings"
	"testing"
	"time"

	"medibook/pkg/logger"
)

func validConfig() *Config {
	return &Config{
		MongoURI:            DefaultMongoURI,
		MongoDatabaseName:   DefaultMongoDatabaseName,
		MongoConnTimeout:    DefaultMongoConnTimeout,
		StorageDriver:       DriverMongo,
		LockDriver:          DriverMongo,
		LockTTL:             DefaultLockTTL,
		LockWait:            DefaultLockWait,
		IdempotencyDriver:   DriverMemory,
		RedisAddr:           DefaultRedisAddr,
		Port:                DefaultPort,
		RateLimitRequests:   DefaultRateLimitRequests,
		RateLimitWindow:     DefaultRateLimitWindow,
		RequestTimeout:      DefaultRequestTimeout,
		IdempotencyTTL:      DefaultIdempotencyTTL,
		MaxRequestSize:      DefaultMaxRequestSize,
		ReadTimeout:         DefaultReadTimeout,
		WriteTimeout:        DefaultWriteTimeout,
		IdleTimeout:         DefaultIdleTimeout,
		ShutdownTimeout:     DefaultShutdownTimeout,
		OTPTTL:              DefaultOTPTTL,
		OTPCodeLength:       DefaultOTPCodeLength,
		OTPHashCost:         DefaultOTPHashCost,
		OTPSweepInterval:    DefaultOTPSweepInterval,
		OTPSweepGrace:       DefaultOTPSweepGrace,
		NotificationDriver:  DriverKafka,
		NotificationTimeout: DefaultNotificationTimeout,
		PhoneRegions:        DefaultPhoneRegions,
		Log:                 logger.Discard(),
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Port = "99999" },
			wantErr: "Port must be between",
		},
		{
			name:    "unknown storage driver",
			mutate:  func(c *Config) { c.StorageDriver = "postgres" },
			wantErr: "StorageDriver must be one of",
		},
		{
			name:    "mongo uri scheme",
			mutate:  func(c *Config) { c.MongoURI = "http://localhost:27017" },
			wantErr: "MongoURI must start with",
		},
		{
			name: "memory storage ignores mongo uri",
			mutate: func(c *Config) {
				c.StorageDriver = DriverMemory
				c.LockDriver = DriverMemory
				c.MongoURI = ""
			},
		},
		{
			name: "memory storage needs memory lock",
			mutate: func(c *Config) {
				c.StorageDriver = DriverMemory
				c.LockDriver = DriverRedis
			},
			wantErr: "LockDriver must be memory",
		},
		{
			name: "gateway needs url",
			mutate: func(c *Config) {
				c.NotificationDriver = DriverGateway
				c.SMSGatewayURL = ""
			},
			wantErr: "SMSGatewayURL cannot be empty",
		},
		{
			name:    "code length bounds",
			mutate:  func(c *Config) { c.OTPCodeLength = 2 },
			wantErr: "OTPCodeLength must be between",
		},
		{
			name:    "non positive otp ttl",
			mutate:  func(c *Config) { c.OTPTTL = 0 },
			wantErr: "OTPTTL must be positive",
		},
		{
			name:    "negative sweep grace",
			mutate:  func(c *Config) { c.OTPSweepGrace = -time.Second },
			wantErr: "OTPSweepGrace cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "abc"
	cfg.OTPHashCost = 1
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "1. ") || !strings.Contains(err.Error(), "2. ") {
		t.Errorf("expected numbered list of errors, got %q", err.Error())
	}
}

func TestRedactMongoURI(t *testing.T) {
	got := redactMongoURI("mongodb://admin:secret@db:27017/medibook")
	if strings.Contains(got, "secret") {
		t.Errorf("password leaked: %s", got)
	}
	if got != "mongodb://***:***@db:27017/medibook" {
		t.Errorf("unexpected redaction: %s", got)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("MEDIBOOK_TEST_BOOL", "true")
	t.Setenv("MEDIBOOK_TEST_DURATION", "90s")
	t.Setenv("MEDIBOOK_TEST_LIST", " ke, tz ,,ug")
	t.Setenv("MEDIBOOK_TEST_NUM", "not-a-number")

	if !getEnvBool("MEDIBOOK_TEST_BOOL", false) {
		t.Error("getEnvBool should parse true")
	}
	if d := getEnvDuration("MEDIBOOK_TEST_DURATION", time.Second); d != 90*time.Second {
		t.Errorf("getEnvDuration = %s, want 90s", d)
	}
	if n := getEnvNum("MEDIBOOK_TEST_NUM", 7); n != 7 {
		t.Errorf("getEnvNum should fall back on parse failure, got %d", n)
	}
	got := getEnvList("MEDIBOOK_TEST_LIST", nil)
	want := []string{"KE", "TZ", "UG"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("getEnvList = %v, want %v", got, want)
	}
	if fallback := getEnvList("MEDIBOOK_TEST_UNSET", []string{"KE"}); len(fallback) != 1 || fallback[0] != "KE" {
		t.Errorf("getEnvList fallback = %v", fallback)
	}
}

func TestNormalizePaginationLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 10},
		{-5, 10},
		{25, 25},
		{500, DefaultPaginationLimit},
	}
	for _, tt := range tests {
		if got := NormalizePaginationLimit(tt.in); got != tt.want {
			t.Errorf("NormalizePaginationLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
