package kafka_config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Brokers []string

	ProducerMaxAttempts  int
	ProducerBatchTimeout time.Duration
	ProducerRequireAcks  int    // -1 = all, 0 = none, 1 = leader only
	ProducerCompression  string // "none", "gzip", "snappy", "lz4", "zstd"

	ConsumerStartOffset    int64 // -1 = newest, -2 = oldest
	ConsumerMaxBytes       int
	ConsumerMaxWait        time.Duration
	ConsumerCommitInterval time.Duration
	ConsumerSessionTimeout time.Duration
	ConsumerMaxRetries     int

	EnableMiddleware bool
}

// Load reads the Kafka settings from the environment (and .env when present).
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	for key, value := range map[string]any{
		EnvKafkaBrokers:                DefaultKafkaBrokers,
		EnvKafkaProducerMaxAttempts:    DefaultProducerMaxAttempts,
		EnvKafkaProducerBatchTimeout:   DefaultProducerBatchTimeout,
		EnvKafkaProducerRequireAcks:    DefaultProducerRequireAcks,
		EnvKafkaProducerCompression:    DefaultProducerCompression,
		EnvKafkaConsumerStartOffset:    DefaultConsumerStartOffset,
		EnvKafkaConsumerMaxBytes:       DefaultConsumerMaxBytes,
		EnvKafkaConsumerMaxWait:        DefaultConsumerMaxWait,
		EnvKafkaConsumerCommitInterval: DefaultConsumerCommitInterval,
		EnvKafkaConsumerSessionTimeout: DefaultConsumerSessionTimeout,
		EnvKafkaConsumerMaxRetries:     DefaultConsumerMaxRetries,
		EnvKafkaEnableMiddleware:       DefaultEnableMiddleware,
	} {
		v.SetDefault(key, value)
	}
	_ = v.ReadInConfig()

	var brokers []string
	for _, broker := range strings.Split(v.GetString(EnvKafkaBrokers), ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}

	cfg := &Config{
		Brokers: brokers,

		ProducerMaxAttempts:  v.GetInt(EnvKafkaProducerMaxAttempts),
		ProducerBatchTimeout: v.GetDuration(EnvKafkaProducerBatchTimeout),
		ProducerRequireAcks:  v.GetInt(EnvKafkaProducerRequireAcks),
		ProducerCompression:  strings.ToLower(v.GetString(EnvKafkaProducerCompression)),

		ConsumerStartOffset:    v.GetInt64(EnvKafkaConsumerStartOffset),
		ConsumerMaxBytes:       v.GetInt(EnvKafkaConsumerMaxBytes),
		ConsumerMaxWait:        v.GetDuration(EnvKafkaConsumerMaxWait),
		ConsumerCommitInterval: v.GetDuration(EnvKafkaConsumerCommitInterval),
		ConsumerSessionTimeout: v.GetDuration(EnvKafkaConsumerSessionTimeout),
		ConsumerMaxRetries:     v.GetInt(EnvKafkaConsumerMaxRetries),

		EnableMiddleware: v.GetBool(EnvKafkaEnableMiddleware),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka configuration: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	var errors []string

	if len(cfg.Brokers) == 0 {
		errors = append(errors, "At least one Kafka broker is required")
	}
	if cfg.ProducerMaxAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("ProducerMaxAttempts must be positive, got: %d", cfg.ProducerMaxAttempts))
	}
	if cfg.ProducerBatchTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ProducerBatchTimeout must be positive, got: %s", cfg.ProducerBatchTimeout))
	}

	switch cfg.ProducerCompression {
	case "none", "gzip", "snappy", "lz4", "zstd":
	default:
		errors = append(errors, fmt.Sprintf("ProducerCompression must be one of [none, gzip, snappy, lz4, zstd], got: %s", cfg.ProducerCompression))
	}

	if cfg.ProducerRequireAcks < -1 || cfg.ProducerRequireAcks > 1 {
		errors = append(errors, fmt.Sprintf("ProducerRequireAcks must be -1, 0, or 1, got: %d", cfg.ProducerRequireAcks))
	}
	if cfg.ConsumerStartOffset != -1 && cfg.ConsumerStartOffset != -2 {
		errors = append(errors, fmt.Sprintf("ConsumerStartOffset must be -1 (newest) or -2 (oldest), got: %d", cfg.ConsumerStartOffset))
	}
	if cfg.ConsumerMaxBytes <= 0 {
		errors = append(errors, fmt.Sprintf("ConsumerMaxBytes must be positive, got: %d", cfg.ConsumerMaxBytes))
	}

	for name, d := range map[string]time.Duration{
		"ConsumerMaxWait":        cfg.ConsumerMaxWait,
		"ConsumerCommitInterval": cfg.ConsumerCommitInterval,
		"ConsumerSessionTimeout": cfg.ConsumerSessionTimeout,
	} {
		if d <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", name, d))
		}
	}

	if cfg.ConsumerMaxRetries < 0 {
		errors = append(errors, fmt.Sprintf("ConsumerMaxRetries cannot be negative, got: %d", cfg.ConsumerMaxRetries))
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

func (cfg *Config) LogConfiguration(logFunc func(msg string, keysAndValues ...any)) {
	if logFunc == nil {
		return
	}

	logFunc("Kafka configuration loaded successfully",
		"brokers", cfg.Brokers,
		"producer_max_attempts", cfg.ProducerMaxAttempts,
		"producer_require_acks", cfg.ProducerRequireAcks,
		"producer_compression", cfg.ProducerCompression,
		"consumer_start_offset", cfg.ConsumerStartOffset,
		"consumer_max_retries", cfg.ConsumerMaxRetries,
		"enable_middleware", cfg.EnableMiddleware,
	)
}
