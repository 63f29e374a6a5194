package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "ambulance"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultNotificationTopic    = "ambulance.notifications"
	DefaultNotificationDLQTopic = "ambulance.notifications.dlq"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 10 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Rupiah
	DefaultBasePriceEmergency int64 = 500000
	DefaultBasePriceScheduled int64 = 300000
	DefaultPricePerKm         int64 = 10000
	DefaultBookingTimezone          = "Asia/Jakarta"
	DefaultETA                      = 15 * time.Minute

	DefaultNotifierBufferSize      = 256
	DefaultNotifierWorkers         = 2
	DefaultNotifierDeliveryTimeout = 5 * time.Second

	DefaultPaymentExpiryWindow     = 24 * time.Hour
	DefaultAutoCancelAfter         = 48 * time.Hour
	DefaultPaymentReminderLead     = 2 * time.Hour
	DefaultMaintenanceWindowDays   = 7
	DefaultClaimTTL                = 2 * time.Minute
	DefaultSweepBatchSize          = 200
	DefaultDriverRatingInterval    = 24 * time.Hour
	DefaultMaintenanceInterval     = 24 * time.Hour
	DefaultExpiredPaymentInterval  = 1 * time.Hour
	DefaultAutoCancelInterval      = 1 * time.Hour
	DefaultPaymentReminderInterval = 10 * time.Minute

	DefaultPageSize        = 10
	DefaultPaginationLimit = 100
)
