package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"mailverify/verifier"
)

var AppConfig Config

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

type SMTPConfig struct {
	Port           int           `json:"port"`
	HeloName       string        `json:"helo_name"`
	MailFrom       string        `json:"mail_from"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	TotalTimeout   time.Duration `json:"total_timeout"`
	ProxyURL       string        `json:"-"`
}

type Config struct {
	Environment string `json:"environment"`
	ServerPort  string `json:"server_port"`
	JWTSecret   string `json:"-"`
	SentryDSN   string `json:"-"`

	DisposableDomains     []string `json:"disposable_domains"`
	DisposableDomainsFile string   `json:"disposable_domains_file"`

	DNSServer  string        `json:"dns_server"`
	DNSTimeout time.Duration `json:"dns_timeout"`
	SMTP       SMTPConfig    `json:"smtp"`

	RequestTimeout      time.Duration `json:"request_timeout"`
	DeepVerifyRateLimit int           `json:"deep_verify_rate_limit"`
	BulkMaxEmails       int           `json:"bulk_max_emails"`
	BulkWorkers         int           `json:"bulk_workers"`
	WhoisEnabled        bool          `json:"whois_enabled"`
	WhoisTimeout        time.Duration `json:"whois_timeout"`

	Redis              RedisConfig `json:"redis"`
	CORSAllowedOrigins []string    `json:"cors_allowed_origins"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
}

func LoadConfig() error {
	cfg := Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  getEnv("SERVER_PORT", "5000"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		SentryDSN:   getEnv("SENTRY_DSN", ""),

		DisposableDomains:     getEnvAsList("DISPOSABLE_DOMAINS", nil),
		DisposableDomainsFile: getEnv("DISPOSABLE_DOMAINS_FILE", ""),

		DNSServer:  getEnv("DNS_SERVER", ""),
		DNSTimeout: getEnvAsDuration("DNS_TIMEOUT", 3*time.Second),
		SMTP: SMTPConfig{
			Port:           getEnvAsInt("SMTP_PORT", 25),
			HeloName:       getEnv("SMTP_HELO_NAME", "localhost"),
			MailFrom:       getEnv("SMTP_MAIL_FROM", "verify@localhost"),
			ConnectTimeout: getEnvAsDuration("SMTP_CONNECT_TIMEOUT", 5*time.Second),
			ReadTimeout:    getEnvAsDuration("SMTP_READ_TIMEOUT", 5*time.Second),
			TotalTimeout:   getEnvAsDuration("SMTP_TOTAL_TIMEOUT", 10*time.Second),
			ProxyURL:       getEnv("SMTP_PROXY_URL", ""),
		},

		RequestTimeout:      getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		DeepVerifyRateLimit: getEnvAsInt("DEEP_VERIFY_RATE_LIMIT", 10),
		BulkMaxEmails:       getEnvAsInt("BULK_MAX_EMAILS", 1000),
		BulkWorkers:         getEnvAsInt("BULK_WORKERS", 10),
		WhoisEnabled:        getEnvAsBool("WHOIS_ENABLED", false),
		WhoisTimeout:        getEnvAsDuration("WHOIS_TIMEOUT", 5*time.Second),

		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	if err := cfg.validate(); err != nil {
		return err
	}

	AppConfig = cfg
	logConfig()
	return nil
}

func (c Config) validate() error {
	if c.Environment == "production" && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		return fmt.Errorf("SMTP_PORT must be between 1 and 65535, got %d", c.SMTP.Port)
	}
	if c.SMTP.TotalTimeout < c.SMTP.ReadTimeout {
		return fmt.Errorf("SMTP_TOTAL_TIMEOUT (%s) must not be shorter than SMTP_READ_TIMEOUT (%s)",
			c.SMTP.TotalTimeout, c.SMTP.ReadTimeout)
	}
	if c.RequestTimeout < c.DNSTimeout {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must not be shorter than DNS_TIMEOUT (%s)",
			c.RequestTimeout, c.DNSTimeout)
	}
	if c.BulkWorkers <= 0 {
		return fmt.Errorf("BULK_WORKERS must be positive")
	}
	if c.BulkMaxEmails <= 0 {
		return fmt.Errorf("BULK_MAX_EMAILS must be positive")
	}
	if c.DeepVerifyRateLimit <= 0 {
		return fmt.Errorf("DEEP_VERIFY_RATE_LIMIT must be positive")
	}
	return nil
}

// VerifierConfig builds the engine configuration. The disposable domain file,
// when set, is read here so a missing file fails startup.
func (c Config) VerifierConfig(log logrus.FieldLogger) (verifier.Config, error) {
	domains := append([]string(nil), c.DisposableDomains...)
	if c.DisposableDomainsFile != "" {
		f, err := os.Open(c.DisposableDomainsFile)
		if err != nil {
			return verifier.Config{}, fmt.Errorf("open disposable domains file: %w", err)
		}
		defer f.Close()
		extra, err := verifier.ReadDomainList(f)
		if err != nil {
			return verifier.Config{}, fmt.Errorf("read disposable domains file: %w", err)
		}
		domains = append(domains, extra...)
	}

	return verifier.Config{
		DisposableDomains: domains,
		DNSServer:         c.DNSServer,
		DNSTimeout:        c.DNSTimeout,
		SMTP: verifier.ProbeConfig{
			Port:           c.SMTP.Port,
			HeloName:       c.SMTP.HeloName,
			MailFrom:       c.SMTP.MailFrom,
			ConnectTimeout: c.SMTP.ConnectTimeout,
			ReadTimeout:    c.SMTP.ReadTimeout,
			TotalTimeout:   c.SMTP.TotalTimeout,
			ProxyURL:       c.SMTP.ProxyURL,
		},
		Logger: log,
	}, nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		logrus.Warnf("Invalid integer for %s=%q, using %d", key, valueStr, fallback)
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
	if err != nil {
		return fallback
	}
	return value
}

// getEnvAsDuration accepts Go durations ("750ms", "3s") or plain seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return fallback
	}
	if d, err := time.ParseDuration(valueStr); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	logrus.Warnf("Invalid duration for %s=%q, using %s", key, valueStr, fallback)
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if strings.TrimSpace(valueStr) == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func logConfig() {
	logrus.WithFields(logrus.Fields{
		"environment":      AppConfig.Environment,
		"server_port":      AppConfig.ServerPort,
		"dns_server":       AppConfig.DNSServer,
		"dns_timeout":      AppConfig.DNSTimeout.String(),
		"request_timeout":  AppConfig.RequestTimeout.String(),
		"smtp_port":        AppConfig.SMTP.Port,
		"smtp_helo":        AppConfig.SMTP.HeloName,
		"smtp_proxy":       AppConfig.SMTP.ProxyURL != "",
		"extra_disposable": len(AppConfig.DisposableDomains),
		"bulk_workers":     AppConfig.BulkWorkers,
		"whois":            AppConfig.WhoisEnabled,
		"redis":            AppConfig.Redis.Enabled,
	}).Info("Loaded configuration")
}
