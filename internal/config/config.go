package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDynamo   = "dynamo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Notification channels accepted by NOTIFY_CHANNEL.
const (
	NotifySMTP = "smtp"
	NotifySNS  = "sns"
	NotifyLog  = "log"
)

// Config holds all runtime configuration loaded from environment variables.
// It is loaded once at startup and treated as read-only afterwards.
type Config struct {
	AppPort   string
	AppEnv    string
	APIPrefix string
	LogLevel  string
	LogFormat string

	StoreDriver    string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	DatabaseURL    string
	DBMaxConns     int32

	JWTSecret         string
	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	TokenPepper string
	BcryptCost  int
	OTPTTL      time.Duration
	ResetTTL    time.Duration

	NotifyChannel string
	SMTPHost      string
	SMTPPort      string
	SMTPFrom      string
	SMTPUsername  string
	SMTPPassword  string
	SNSRegion     string
	SNSTopicARN   string

	IOTimeout        time.Duration
	OrphanSweepEvery time.Duration
	AllowedOrigins   []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Accounts      string
	AccountEmails string
	OTPRecords    string
	Tasks         string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	jwtSecret := getEnv("JWT_SECRET", "")
	return &Config{
		AppPort:   getEnv("APP_PORT", "5000"),
		AppEnv:    getEnv("APP_ENV", "development"),
		APIPrefix: getEnv("API_PREFIX", "/api"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", StoreDynamo)),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Accounts:      getEnv("DYNAMO_TABLE_ACCOUNTS", "accounts"),
			AccountEmails: getEnv("DYNAMO_TABLE_ACCOUNT_EMAILS", "account_emails"),
			OTPRecords:    getEnv("DYNAMO_TABLE_OTP_RECORDS", "otp_records"),
			Tasks:         getEnv("DYNAMO_TABLE_TASKS", "tasks"),
		},
		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBMaxConns:  int32(getEnvInt("DB_MAX_CONNS", 10)),

		JWTSecret:         jwtSecret,
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", ""),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", ""),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,

		TokenPepper: getEnv("TOKEN_PEPPER", jwtSecret),
		BcryptCost:  getEnvInt("BCRYPT_COST", 10),
		OTPTTL:      time.Duration(getEnvInt("OTP_TTL_MINUTES", 10)) * time.Minute,
		ResetTTL:    time.Duration(getEnvInt("RESET_TTL_MINUTES", 60)) * time.Minute,

		NotifyChannel: strings.ToLower(getEnv("NOTIFY_CHANNEL", NotifySMTP)),
		SMTPHost:      getEnv("SMTP_HOST", "localhost"),
		SMTPPort:      getEnv("SMTP_PORT", "1025"),
		SMTPFrom:      getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SNSRegion:     getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN:   getEnv("SNS_TOPIC_ARN", ""),

		IOTimeout:        time.Duration(getEnvInt("IO_TIMEOUT_SECONDS", 5)) * time.Second,
		OrphanSweepEvery: time.Duration(getEnvInt("ORPHAN_SWEEP_MINUTES", 15)) * time.Minute,
		AllowedOrigins:   strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// Validate reports configuration that would leave the service unable to run.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" && (c.JWTPrivateKeyPath == "" || c.JWTPublicKeyPath == "") {
		errs = append(errs, errors.New("JWT_SECRET or JWT_PRIVATE_KEY_PATH+JWT_PUBLIC_KEY_PATH is required"))
	}
	if c.TokenPepper == "" {
		errs = append(errs, errors.New("TOKEN_PEPPER is required when JWT_SECRET is not set"))
	}
	switch c.StoreDriver {
	case StoreDynamo, StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for STORE_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	switch c.NotifyChannel {
	case NotifySMTP, NotifyLog:
	case NotifySNS:
		if c.SNSTopicARN == "" {
			errs = append(errs, errors.New("SNS_TOPIC_ARN is required for NOTIFY_CHANNEL=sns"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFY_CHANNEL %q", c.NotifyChannel))
	}
	if !strings.HasPrefix(c.APIPrefix, "/") {
		errs = append(errs, fmt.Errorf("API_PREFIX %q must start with /", c.APIPrefix))
	}
	if c.JWTExpiry <= 0 || c.OTPTTL <= 0 || c.ResetTTL <= 0 || c.IOTimeout <= 0 {
		errs = append(errs, errors.New("expiry and timeout settings must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
