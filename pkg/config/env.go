package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisURL = "REDIS_URL"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvKafkaEnabled         = "KAFKA_ENABLED"
	EnvNotificationTopic    = "NOTIFICATION_TOPIC"
	EnvNotificationDLQTopic = "NOTIFICATION_DLQ_TOPIC"
	EnvRelayGroupID         = "REALTIME_RELAY_GROUP_ID"

	EnvMidtransWebhookSecret = "MIDTRANS_WEBHOOK_SECRET"
	EnvXenditWebhookSecret   = "XENDIT_WEBHOOK_SECRET"
	EnvGoPayWebhookSecret    = "GOPAY_WEBHOOK_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvBasePriceEmergency = "BASE_PRICE_EMERGENCY"
	EnvBasePriceScheduled = "BASE_PRICE_SCHEDULED"
	EnvPricePerKm         = "PRICE_PER_KM"
	EnvBookingTimezone    = "BOOKING_TIMEZONE"
	EnvDefaultETA         = "DEFAULT_ETA"

	EnvNotifierBufferSize      = "NOTIFIER_BUFFER_SIZE"
	EnvNotifierWorkers         = "NOTIFIER_WORKERS"
	EnvNotifierDeliveryTimeout = "NOTIFIER_DELIVERY_TIMEOUT"

	EnvPaymentExpiryWindow     = "PAYMENT_EXPIRY_WINDOW"
	EnvAutoCancelAfter         = "AUTO_CANCEL_AFTER"
	EnvPaymentReminderLead     = "PAYMENT_REMINDER_LEAD"
	EnvMaintenanceWindowDays   = "MAINTENANCE_WINDOW_DAYS"
	EnvClaimTTL                = "SWEEP_CLAIM_TTL"
	EnvSweepBatchSize          = "SWEEP_BATCH_SIZE"
	EnvDriverRatingInterval    = "SWEEP_DRIVER_RATING_INTERVAL"
	EnvMaintenanceInterval     = "SWEEP_MAINTENANCE_INTERVAL"
	EnvExpiredPaymentInterval  = "SWEEP_EXPIRED_PAYMENT_INTERVAL"
	EnvAutoCancelInterval      = "SWEEP_AUTO_CANCEL_INTERVAL"
	EnvPaymentReminderInterval = "SWEEP_PAYMENT_REMINDER_INTERVAL"
)
