package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"ambulance/pkg/client"
	"ambulance/pkg/logger"

	"github.com/spf13/viper"
)

type Config struct {
	ServiceName string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisURL string

	Port      string
	LogLevel  string
	LogFormat string

	KafkaEnabled         bool
	NotificationTopic    string
	NotificationDLQTopic string
	RelayGroupID         string

	MidtransWebhookSecret string
	XenditWebhookSecret   string
	GoPayWebhookSecret    string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	BasePriceEmergency int64
	BasePriceScheduled int64
	PricePerKm         int64
	BookingTimezone    string
	BookingLocation    *time.Location
	DefaultETA         time.Duration

	NotifierBufferSize      int
	NotifierWorkers         int
	NotifierDeliveryTimeout time.Duration

	PaymentExpiryWindow     time.Duration
	AutoCancelAfter         time.Duration
	PaymentReminderLead     time.Duration
	MaintenanceWindowDays   int
	ClaimTTL                time.Duration
	SweepBatchSize          int
	DriverRatingInterval    time.Duration
	MaintenanceInterval     time.Duration
	ExpiredPaymentInterval  time.Duration
	AutoCancelInterval      time.Duration
	PaymentReminderInterval time.Duration

	Log    *logger.Logger
	Client *client.Client
}

// Load reads, validates and logs the configuration. Invalid configuration is fatal.
func Load(serviceName string) *Config {
	cfg, err := Parse(serviceName)
	if cfg == nil || cfg.Log == nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// Parse builds the configuration from the environment (and an optional .env file)
// and returns it together with any validation error.
func Parse(serviceName string) (*Config, error) {
	v := newViper()

	cfg := &Config{
		ServiceName: serviceName,

		MongoURI:          v.GetString(EnvMongoURI),
		MongoDatabaseName: v.GetString(EnvMongoDatabaseName),
		MongoConnTimeout:  v.GetDuration(EnvMongoConnTimeout),

		RedisURL: v.GetString(EnvRedisURL),

		Port:      v.GetString(EnvPort),
		LogLevel:  v.GetString(EnvLogLevel),
		LogFormat: v.GetString(EnvLogFormat),

		KafkaEnabled:         v.GetBool(EnvKafkaEnabled),
		NotificationTopic:    v.GetString(EnvNotificationTopic),
		NotificationDLQTopic: v.GetString(EnvNotificationDLQTopic),
		RelayGroupID:         v.GetString(EnvRelayGroupID),

		MidtransWebhookSecret: v.GetString(EnvMidtransWebhookSecret),
		XenditWebhookSecret:   v.GetString(EnvXenditWebhookSecret),
		GoPayWebhookSecret:    v.GetString(EnvGoPayWebhookSecret),

		RateLimitRequests: v.GetInt(EnvRateLimitRequests),
		RateLimitWindow:   v.GetDuration(EnvRateLimitWindow),

		RequestTimeout: v.GetDuration(EnvRequestTimeout),
		IdempotencyTTL: v.GetDuration(EnvIdempotencyTTL),
		MaxRequestSize: v.GetInt(EnvMaxRequestSize),

		ReadTimeout:     v.GetDuration(EnvReadTimeout),
		WriteTimeout:    v.GetDuration(EnvWriteTimeout),
		IdleTimeout:     v.GetDuration(EnvIdleTimeout),
		ShutdownTimeout: v.GetDuration(EnvShutdownTimeout),

		BasePriceEmergency: v.GetInt64(EnvBasePriceEmergency),
		BasePriceScheduled: v.GetInt64(EnvBasePriceScheduled),
		PricePerKm:         v.GetInt64(EnvPricePerKm),
		BookingTimezone:    v.GetString(EnvBookingTimezone),
		DefaultETA:         v.GetDuration(EnvDefaultETA),

		NotifierBufferSize:      v.GetInt(EnvNotifierBufferSize),
		NotifierWorkers:         v.GetInt(EnvNotifierWorkers),
		NotifierDeliveryTimeout: v.GetDuration(EnvNotifierDeliveryTimeout),

		PaymentExpiryWindow:     v.GetDuration(EnvPaymentExpiryWindow),
		AutoCancelAfter:         v.GetDuration(EnvAutoCancelAfter),
		PaymentReminderLead:     v.GetDuration(EnvPaymentReminderLead),
		MaintenanceWindowDays:   v.GetInt(EnvMaintenanceWindowDays),
		ClaimTTL:                v.GetDuration(EnvClaimTTL),
		SweepBatchSize:          v.GetInt(EnvSweepBatchSize),
		DriverRatingInterval:    v.GetDuration(EnvDriverRatingInterval),
		MaintenanceInterval:     v.GetDuration(EnvMaintenanceInterval),
		ExpiredPaymentInterval:  v.GetDuration(EnvExpiredPaymentInterval),
		AutoCancelInterval:      v.GetDuration(EnvAutoCancelInterval),
		PaymentReminderInterval: v.GetDuration(EnvPaymentReminderInterval),

		Client: client.NewClient(),
	}

	format := logger.JSON
	if cfg.LogFormat == logger.TEXT {
		format = logger.TEXT
	}
	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    format,
		AddSource: true,
		Service:   serviceName,
	})

	if cfg.RelayGroupID == "" {
		host, _ := os.Hostname()
		cfg.RelayGroupID = fmt.Sprintf("%s-relay-%s", serviceName, host)
	}

	return cfg, cfg.Validate()
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	defaults := map[string]any{
		EnvMongoURI:          DefaultMongoURI,
		EnvMongoDatabaseName: DefaultMongoDatabaseName,
		EnvMongoConnTimeout:  DefaultMongoConnTimeout,

		EnvPort:      DefaultPort,
		EnvLogLevel:  DefaultLogLevel,
		EnvLogFormat: DefaultLogFormat,

		EnvKafkaEnabled:         false,
		EnvNotificationTopic:    DefaultNotificationTopic,
		EnvNotificationDLQTopic: DefaultNotificationDLQTopic,

		EnvRateLimitRequests: DefaultRateLimitRequests,
		EnvRateLimitWindow:   DefaultRateLimitWindow,

		EnvRequestTimeout: DefaultRequestTimeout,
		EnvIdempotencyTTL: DefaultIdempotencyTTL,
		EnvMaxRequestSize: DefaultMaxRequestSize,

		EnvReadTimeout:     DefaultReadTimeout,
		EnvWriteTimeout:    DefaultWriteTimeout,
		EnvIdleTimeout:     DefaultIdleTimeout,
		EnvShutdownTimeout: DefaultShutdownTimeout,

		EnvBasePriceEmergency: DefaultBasePriceEmergency,
		EnvBasePriceScheduled: DefaultBasePriceScheduled,
		EnvPricePerKm:         DefaultPricePerKm,
		EnvBookingTimezone:    DefaultBookingTimezone,
		EnvDefaultETA:         DefaultETA,

		EnvNotifierBufferSize:      DefaultNotifierBufferSize,
		EnvNotifierWorkers:         DefaultNotifierWorkers,
		EnvNotifierDeliveryTimeout: DefaultNotifierDeliveryTimeout,

		EnvPaymentExpiryWindow:     DefaultPaymentExpiryWindow,
		EnvAutoCancelAfter:         DefaultAutoCancelAfter,
		EnvPaymentReminderLead:     DefaultPaymentReminderLead,
		EnvMaintenanceWindowDays:   DefaultMaintenanceWindowDays,
		EnvClaimTTL:                DefaultClaimTTL,
		EnvSweepBatchSize:          DefaultSweepBatchSize,
		EnvDriverRatingInterval:    DefaultDriverRatingInterval,
		EnvMaintenanceInterval:     DefaultMaintenanceInterval,
		EnvExpiredPaymentInterval:  DefaultExpiredPaymentInterval,
		EnvAutoCancelInterval:      DefaultAutoCancelInterval,
		EnvPaymentReminderInterval: DefaultPaymentReminderInterval,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Keys without a default still need binding so AutomaticEnv picks them up.
	for _, key := range []string{EnvRedisURL, EnvRelayGroupID, EnvMidtransWebhookSecret, EnvXenditWebhookSecret, EnvGoPayWebhookSecret} {
		_ = v.BindEnv(key)
	}

	// .env is optional
	_ = v.ReadInConfig()
	return v
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// SetRedis connects to Redis when REDIS_URL is configured.
func (cfg *Config) SetRedis() {
	if cfg.RedisURL == "" {
		cfg.Log.Info("REDIS_URL not set, sweep claims fall back to MongoDB")
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisURL, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}
	if cfg.RedisURL != "" && !regexp.MustCompile(`^rediss?://`).MatchString(cfg.RedisURL) {
		errors = append(errors, "RedisURL must start with 'redis://' or 'rediss://'")
	}

	if cfg.KafkaEnabled && cfg.NotificationTopic == "" {
		errors = append(errors, "NotificationTopic cannot be empty when Kafka is enabled")
	}

	positiveDurations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"DefaultETA", cfg.DefaultETA},
		{"NotifierDeliveryTimeout", cfg.NotifierDeliveryTimeout},
		{"PaymentExpiryWindow", cfg.PaymentExpiryWindow},
		{"AutoCancelAfter", cfg.AutoCancelAfter},
		{"PaymentReminderLead", cfg.PaymentReminderLead},
		{"ClaimTTL", cfg.ClaimTTL},
		{"DriverRatingInterval", cfg.DriverRatingInterval},
		{"MaintenanceInterval", cfg.MaintenanceInterval},
		{"ExpiredPaymentInterval", cfg.ExpiredPaymentInterval},
		{"AutoCancelInterval", cfg.AutoCancelInterval},
		{"PaymentReminderInterval", cfg.PaymentReminderInterval},
	}
	for _, d := range positiveDurations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.PaymentReminderLead >= cfg.PaymentExpiryWindow {
		errors = append(errors, fmt.Sprintf("PaymentReminderLead (%s) must be shorter than PaymentExpiryWindow (%s)", cfg.PaymentReminderLead, cfg.PaymentExpiryWindow))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.BasePriceEmergency < 0 || cfg.BasePriceScheduled < 0 || cfg.PricePerKm < 0 {
		errors = append(errors, "Prices cannot be negative")
	}
	if cfg.NotifierBufferSize <= 0 {
		errors = append(errors, fmt.Sprintf("NotifierBufferSize must be positive, got: %d", cfg.NotifierBufferSize))
	}
	if cfg.NotifierWorkers <= 0 {
		errors = append(errors, fmt.Sprintf("NotifierWorkers must be positive, got: %d", cfg.NotifierWorkers))
	}
	if cfg.MaintenanceWindowDays <= 0 {
		errors = append(errors, fmt.Sprintf("MaintenanceWindowDays must be positive, got: %d", cfg.MaintenanceWindowDays))
	}
	if cfg.SweepBatchSize <= 0 {
		errors = append(errors, fmt.Sprintf("SweepBatchSize must be positive, got: %d", cfg.SweepBatchSize))
	}

	loc, err := time.LoadLocation(cfg.BookingTimezone)
	if err != nil {
		errors = append(errors, fmt.Sprintf("BookingTimezone is not a valid IANA zone: %s", cfg.BookingTimezone))
	} else {
		cfg.BookingLocation = loc
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

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_enabled", cfg.RedisURL != "",
		"port", cfg.Port,
		"kafka_enabled", cfg.KafkaEnabled,
		"notification_topic", cfg.NotificationTopic,
		"midtrans_secret_set", cfg.MidtransWebhookSecret != "",
		"xendit_secret_set", cfg.XenditWebhookSecret != "",
		"gopay_secret_set", cfg.GoPayWebhookSecret != "",
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"booking_timezone", cfg.BookingTimezone,
		"payment_expiry_window", cfg.PaymentExpiryWindow,
		"auto_cancel_after", cfg.AutoCancelAfter,
		"payment_reminder_lead", cfg.PaymentReminderLead,
		"maintenance_window_days", cfg.MaintenanceWindowDays,
		"sweep_claim_ttl", cfg.ClaimTTL,
	)
}

// WebhookSecrets returns the configured signing secret per gateway. Gateways without
// a secret are absent from the map.
func (cfg *Config) WebhookSecrets() map[string]string {
	secrets := map[string]string{}
	if cfg.MidtransWebhookSecret != "" {
		secrets["midtrans"] = cfg.MidtransWebhookSecret
	}
	if cfg.XenditWebhookSecret != "" {
		secrets["xendit"] = cfg.XenditWebhookSecret
	}
	if cfg.GoPayWebhookSecret != "" {
		secrets["gopay"] = cfg.GoPayWebhookSecret
	}
	return secrets
}

func redactURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(\w+(\+srv)?://)[^:/]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = DefaultPageSize
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
