package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Sink backends.
const (
	SinkNotion   = "notion"
	SinkAMQP     = "amqp"
	SinkBigQuery = "bigquery"
	SinkNone     = "none"
)

// Delivery modes.
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// Config holds everything the binaries read from the environment.
// The parsing core takes no configuration.
type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Basic auth for /api
	BasicAuthUser string
	BasicAuthPass string

	// Delivery
	SinkBackend string
	SinkMode    string

	// Notion
	NotionAPIKey     string
	NotionDatabaseID string

	// AMQP
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
	AMQPQueue      string

	// Backend the relay worker drains the AMQP queue into
	WorkerSinkBackend string

	// BigQuery
	BigQueryProjectID string
	BigQueryDataset   string
	BigQueryTable     string

	// Request log; empty disables it
	DBFilename string

	// Async queue
	QueueBuffer     int
	QueueWorkers    int
	QueueMaxRetries int

	ShutdownTimeout time.Duration
}

// Load reads the configuration from the environment, applying defaults.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "3000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BasicAuthUser: os.Getenv("BASIC_AUTH_USER"),
		BasicAuthPass: os.Getenv("BASIC_AUTH_PASS"),

		SinkBackend: strings.ToLower(getEnv("SINK_BACKEND", SinkNotion)),
		SinkMode:    strings.ToLower(getEnv("SINK_MODE", ModeSync)),

		NotionAPIKey:     os.Getenv("NOTION_API_KEY"),
		NotionDatabaseID: os.Getenv("NOTION_DATABASE_ID"),

		AMQPURL:        os.Getenv("AMQP_URL"),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "bank-notifier"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "transactions"),
		AMQPQueue:      getEnv("AMQP_QUEUE", "bank-notifier.transactions"),

		WorkerSinkBackend: strings.ToLower(getEnv("WORKER_SINK_BACKEND", SinkNotion)),

		BigQueryProjectID: os.Getenv("BIGQUERY_PROJECT_ID"),
		BigQueryDataset:   getEnv("BIGQUERY_DATASET", "finance"),
		BigQueryTable:     getEnv("BIGQUERY_TABLE", "notification_transactions"),

		DBFilename: getEnvAllowEmpty("DB_FILENAME", "requests.db"),

		QueueBuffer:     getEnvInt("QUEUE_BUFFER", 100),
		QueueWorkers:    getEnvInt("QUEUE_WORKERS", 2),
		QueueMaxRetries: getEnvInt("QUEUE_MAX_RETRIES", 3),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.BasicAuthUser == "" || c.BasicAuthPass == "" {
		errors = append(errors, "BASIC_AUTH_USER and BASIC_AUTH_PASS are required")
	}

	validBackends := []string{SinkNotion, SinkAMQP, SinkBigQuery, SinkNone}
	if !slices.Contains(validBackends, c.SinkBackend) {
		errors = append(errors, fmt.Sprintf("invalid sink backend '%s': must be one of %v", c.SinkBackend, validBackends))
	}

	if c.SinkMode != ModeSync && c.SinkMode != ModeAsync {
		errors = append(errors, fmt.Sprintf("invalid sink mode '%s': must be '%s' or '%s'", c.SinkMode, ModeSync, ModeAsync))
	}

	errors = append(errors, c.backendProblems(c.SinkBackend)...)

	if c.SinkMode == ModeAsync {
		if c.QueueBuffer < 1 {
			errors = append(errors, fmt.Sprintf("invalid queue buffer %d: must be at least 1", c.QueueBuffer))
		}
		if c.QueueWorkers < 1 || c.QueueWorkers > 64 {
			errors = append(errors, fmt.Sprintf("invalid queue workers %d: must be between 1 and 64", c.QueueWorkers))
		}
		if c.QueueMaxRetries < 0 {
			errors = append(errors, fmt.Sprintf("invalid queue max retries %d: must not be negative", c.QueueMaxRetries))
		}
	}

	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateWorker checks the settings the relay worker needs: an AMQP source
// and a downstream backend other than AMQP itself.
func (c *Config) ValidateWorker() error {
	var errors []string

	errors = append(errors, c.backendProblems(SinkAMQP)...)
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name cannot be empty")
	}

	validBackends := []string{SinkNotion, SinkBigQuery, SinkNone}
	if !slices.Contains(validBackends, c.WorkerSinkBackend) {
		errors = append(errors, fmt.Sprintf("invalid worker sink backend '%s': must be one of %v", c.WorkerSinkBackend, validBackends))
	} else {
		errors = append(errors, c.backendProblems(c.WorkerSinkBackend)...)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ForWorker returns a copy of c whose SinkBackend is the worker's downstream backend.
func (c *Config) ForWorker() *Config {
	wc := *c
	wc.SinkBackend = c.WorkerSinkBackend
	return &wc
}

func (c *Config) backendProblems(backend string) []string {
	var errors []string

	switch backend {
	case SinkNotion:
		if c.NotionAPIKey == "" {
			errors = append(errors, "NOTION_API_KEY is required for the notion sink")
		}
		if c.NotionDatabaseID == "" {
			errors = append(errors, "NOTION_DATABASE_ID is required for the notion sink")
		}
	case SinkAMQP:
		if c.AMQPURL == "" {
			errors = append(errors, "AMQP_URL is required for the amqp sink")
		} else if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty")
		}
	case SinkBigQuery:
		if c.BigQueryProjectID == "" {
			errors = append(errors, "BIGQUERY_PROJECT_ID is required for the bigquery sink")
		}
		if c.BigQueryDataset == "" || c.BigQueryTable == "" {
			errors = append(errors, "BIGQUERY_DATASET and BIGQUERY_TABLE cannot be empty")
		}
	}

	return errors
}

// RequestLogEnabled reports whether requests are journaled to SQLite.
func (c *Config) RequestLogEnabled() bool {
	return c.DBFilename != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty returns defaultValue only when key is unset, so an
// explicit empty value can switch a feature off.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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
