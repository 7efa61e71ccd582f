package config

import (
	"fmt"
	"net"
	"net/mail"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	plog "portfel/internal/log"
)

type Config struct {
	// HTTP Server
	Port          string
	BaseURL       string
	SecureCookies bool

	// Database
	SQLiteDBPath string

	// Accounts
	SecretKey  string
	SessionTTL time.Duration

	// AMQP, optional. Without it mail is sent and sheets are exported in process.
	AMQPURL         string
	AMQPExchange    string
	AMQPMailQueue   string
	AMQPExportQueue string

	// Outgoing mail, optional. Without SMTP_ADDR messages are only logged.
	SMTPAddr     string
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	// Google Sheets ledger export, optional
	GoogleSpreadsheetID          string
	GoogleServiceAccountJSON     string
	GoogleServiceAccountFile     string
	GoogleApplicationCredentials string

	// Household defaults; empty uses the embedded file
	DefaultsFile string

	// Login, registration and password-reset posts allowed per client per minute
	AuthRequestsPerMinute int

	// Worker
	CatchUpOnStart bool
	ExportInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:          getEnv("PORT", "8081"),
		BaseURL:       getEnv("BASE_URL", "http://localhost:8081"),
		SecureCookies: getEnvBool("SECURE_COOKIES", false),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/portfel.db"),

		SecretKey:  getEnv("SECRET_KEY", ""),
		SessionTTL: getEnvDuration("SESSION_TTL", 30*24*time.Hour),

		AuthRequestsPerMinute: getEnvInt("AUTH_REQUESTS_PER_MINUTE", 10),

		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "portfel"),
		AMQPMailQueue:   getEnv("AMQP_MAIL_QUEUE", "portfel.mail"),
		AMQPExportQueue: getEnv("AMQP_EXPORT_QUEUE", "portfel.export"),

		SMTPAddr:     getEnv("SMTP_ADDR", ""),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", ""),

		GoogleSpreadsheetID:          getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON:     getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile:     getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleApplicationCredentials: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		DefaultsFile: getEnv("DEFAULTS_FILE", ""),

		CatchUpOnStart: getEnvBool("CATCHUP_ON_START", true),
		ExportInterval: getEnvDuration("EXPORT_INTERVAL", 30*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// AMQPEnabled reports whether background work goes through the broker.
func (c *Config) AMQPEnabled() bool { return c.AMQPURL != "" }

// SheetsEnabled reports whether household ledgers are mirrored to a spreadsheet.
func (c *Config) SheetsEnabled() bool { return c.GoogleSpreadsheetID != "" }

// SMTPEnabled reports whether mail is delivered rather than logged.
func (c *Config) SMTPEnabled() bool { return c.SMTPAddr != "" }

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid base URL '%s': must be an absolute http or https URL", c.BaseURL))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		// Check if directory exists or can be created
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.SecretKey == "" {
		errors = append(errors, "SECRET_KEY is required")
	} else if len(c.SecretKey) < 16 {
		errors = append(errors, "SECRET_KEY must be at least 16 characters")
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPMailQueue == "" || c.AMQPExportQueue == "" {
			errors = append(errors, "AMQP mail and export queue names cannot be empty when AMQP URL is provided")
		} else if c.AMQPMailQueue == c.AMQPExportQueue {
			errors = append(errors, "AMQP mail and export queues must differ")
		}
	}

	if c.SMTPAddr != "" {
		if _, _, err := net.SplitHostPort(c.SMTPAddr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid SMTP address '%s': must be host:port", c.SMTPAddr))
		}
		if _, err := mail.ParseAddress(c.MailFrom); err != nil {
			errors = append(errors, fmt.Sprintf("invalid MAIL_FROM '%s': required when SMTP is configured", c.MailFrom))
		}
	}

	if c.GoogleSpreadsheetID != "" {
		hasJSON := c.GoogleServiceAccountJSON != ""
		hasFile := c.GoogleServiceAccountFile != "" || c.GoogleApplicationCredentials != ""
		if !hasJSON && !hasFile {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheet export")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.DefaultsFile != "" {
		if _, err := os.Stat(c.DefaultsFile); err != nil {
			errors = append(errors, fmt.Sprintf("defaults file is not readable: %s", c.DefaultsFile))
		}
	}

	if c.AuthRequestsPerMinute < 1 || c.AuthRequestsPerMinute > 1000 {
		errors = append(errors, fmt.Sprintf("invalid auth rate limit %d: must be between 1 and 1000 requests per minute", c.AuthRequestsPerMinute))
	}

	if c.ExportInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at least 1 second", c.ExportInterval))
	} else if c.ExportInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at most 24 hours", c.ExportInterval))
	}

	if _, err := plog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
