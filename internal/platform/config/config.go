package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates process configuration so main stays lean. Values come from
// environment variables with development defaults; production deployments are
// expected to set every HIMKOSH_* value explicitly.
type Config struct {
	Server   Server
	Database Database
	Redis    Redis
	Kafka    Kafka
	Gateway  Gateway
	Auth     Auth
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	PortalBaseURL   string
	ShutdownTimeout time.Duration
}

// Database holds the relational store connection settings. An empty URL selects
// the in-memory stores (dev and test only).
type Database struct {
	URL string
}

// Redis holds the initiation-lock backend settings. An empty URL selects the
// in-process lock.
type Redis struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka holds the audit publisher settings. Empty brokers disable publishing;
// audit events are still persisted to the audit store.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Gateway holds everything the HimKosh integration needs. SecretFile points at
// the 16-byte shared secret provisioned by the treasury; its absence is a fatal
// configuration error at first use, never a silent fallback.
type Gateway struct {
	PaymentURL   string
	VerifyURL    string
	MerchantCode string
	DeptID       string
	ServiceCode  string
	DefaultDDO   string
	TenderBy     string
	SecretFile   string
	// TestMode substitutes a nominal amount for the real fee when talking to
	// the gateway. Operator toggle, deliberately independent of environment.
	TestMode       bool
	TestModeAmount int64
}

// Auth carries the JWT settings used to gate officer transitions.
type Auth struct {
	JWTSigningKey string
	Issuer        string
}

// FromEnv builds the full configuration from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envOr("HIMSTAY_ADDR", ":8080"),
			PortalBaseURL:   envOr("HIMSTAY_PORTAL_BASE_URL", "http://localhost:8080"),
			ShutdownTimeout: envDuration("HIMSTAY_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: Database{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_AUDIT_TOPIC", "himstay.audit"),
		},
		Gateway: Gateway{
			PaymentURL:     envOr("HIMKOSH_PAYMENT_URL", "https://himkosh.hp.nic.in/echallan/SDF/Deptt_EntryForm.asp"),
			VerifyURL:      envOr("HIMKOSH_VERIFY_URL", "https://himkosh.hp.nic.in/echallan/SDF/DoubleVerification.asp"),
			MerchantCode:   envOr("HIMKOSH_MERCHANT_CODE", "HIMSTAY_DEV"),
			DeptID:         envOr("HIMKOSH_DEPT_ID", "TSM"),
			ServiceCode:    envOr("HIMKOSH_SERVICE_CODE", "HOMESTAY_REG"),
			DefaultDDO:     envOr("HIMKOSH_DEFAULT_DDO", "SML00-001"),
			TenderBy:       envOr("HIMKOSH_TENDER_BY", "Department of Tourism"),
			SecretFile:     envOr("HIMKOSH_SECRET_FILE", "secrets/himkosh.key"),
			TestMode:       os.Getenv("HIMKOSH_TEST_MODE") == "true",
			TestModeAmount: envInt64("HIMKOSH_TEST_MODE_AMOUNT", 1),
		},
		Auth: Auth{
			JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:        envOr("JWT_ISSUER", "himstay"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
