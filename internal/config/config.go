package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/disaster-correlation-etl/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	// KafkaRejectTopic receives rejected records. Empty disables rejection
	// publishing; rejected records are then only logged and counted.
	KafkaRejectTopic string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// TaxonomyPath overrides the embedded hazard taxonomy dataset.
	TaxonomyPath         string
	CorrelationSourceTag string
	AllowPartialRecords  bool
	SchemaValidation     bool
	EngineWorkers        int
	// DefaultSource names the adapter used for messages without a source
	// header. Empty rejects such messages.
	DefaultSource string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	allowPartial, err := parseBool("ALLOW_PARTIAL_RECORDS", false)
	if err != nil {
		return nil, err
	}
	schemaValidation, err := parseBool("SCHEMA_VALIDATION", true)
	if err != nil {
		return nil, err
	}
	workers, err := parseEngineWorkers()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-disaster-records"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "correlated-disaster-records"),
		KafkaRejectTopic:   envOrDefaultAllowEmpty("KAFKA_REJECT_TOPIC", "rejected-disaster-records"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "disaster-correlation-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		TaxonomyPath:         os.Getenv("TAXONOMY_PATH"),
		CorrelationSourceTag: sharedcfg.EnvOrDefault("CORRELATION_SOURCE_TAG", domain.DefaultSourceTag),
		AllowPartialRecords:  allowPartial,
		SchemaValidation:     schemaValidation,
		EngineWorkers:        workers,
		DefaultSource:        strings.ToLower(strings.TrimSpace(os.Getenv("DEFAULT_SOURCE"))),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.KafkaRejectTopic == cfg.KafkaSinkTopic {
		return nil, errors.New("KAFKA_REJECT_TOPIC must differ from KAFKA_SINK_TOPIC")
	}
	if !domain.ValidSourceTag(cfg.CorrelationSourceTag) {
		return nil, fmt.Errorf("invalid CORRELATION_SOURCE_TAG %q: letters, digits and underscores only", cfg.CorrelationSourceTag)
	}

	return cfg, nil
}

// envOrDefaultAllowEmpty is EnvOrDefault for variables where an explicitly
// empty value means "disabled".
func envOrDefaultAllowEmpty(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return fallback
}

func parseBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: must be a boolean", key)
	}
	return b, nil
}

// parseEngineWorkers reads ENGINE_WORKERS. Default: 4. Range: 1-64.
func parseEngineWorkers() (int, error) {
	s := os.Getenv("ENGINE_WORKERS")
	if s == "" {
		return 4, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 64 {
		return 0, errors.New("invalid ENGINE_WORKERS: must be 1-64")
	}
	return n, nil
}
