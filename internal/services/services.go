// Package services assembles the repositories and domain services shared by the
// dispatch API and the sweeper.
package services

import (
	"fmt"

	bookingsrepo "ambulance/internal/bookings/repository"
	bookingsservice "ambulance/internal/bookings/service"
	bookingsvalidator "ambulance/internal/bookings/validator"
	contactsrepo "ambulance/internal/contacts/repository"
	contactsservice "ambulance/internal/contacts/service"
	contactsvalidator "ambulance/internal/contacts/validator"
	fleetrepo "ambulance/internal/fleet/repository"
	fleetservice "ambulance/internal/fleet/service"
	fleetvalidator "ambulance/internal/fleet/validator"
	"ambulance/internal/notifier"
	paymentsrepo "ambulance/internal/payments/repository"
	paymentsservice "ambulance/internal/payments/service"
	paymentsvalidator "ambulance/internal/payments/validator"
	ratingsrepo "ambulance/internal/ratings/repository"
	ratingsservice "ambulance/internal/ratings/service"
	ratingsvalidator "ambulance/internal/ratings/validator"
	"ambulance/pkg/config"
	dbmongo "ambulance/pkg/db/mongo"
	"ambulance/pkg/kafka"
	kafka_config "ambulance/pkg/kafka/config"
	kafka_middleware "ambulance/pkg/kafka/middleware"
	"ambulance/pkg/lock"
)

type Set struct {
	BookingRepo bookingsrepo.BookingRepository
	PaymentRepo paymentsrepo.PaymentRepository

	Bookings bookingsservice.BookingService
	Payments paymentsservice.PaymentService
	Fleet    fleetservice.FleetService
	Ratings  ratingsservice.RatingService
	Contacts contactsservice.ContactService
}

// New wires every domain service against Mongo. cfg.Client.Mongo must be connected.
func New(cfg *config.Config, emitter notifier.Emitter) *Set {
	fleetService := fleetservice.NewFleetService(
		fleetrepo.NewMongoFleetRepository(cfg),
		fleetvalidator.NewFleetValidator(cfg.Log),
		cfg,
	)

	bookingRepo := bookingsrepo.NewMongoBookingRepository(cfg)
	bookingService := bookingsservice.NewBookingService(
		bookingRepo,
		bookingsvalidator.NewBookingValidator(cfg.Log),
		fleetService,
		emitter,
		cfg,
	)

	paymentRepo := paymentsrepo.NewMongoPaymentRepository(cfg)
	paymentService := paymentsservice.NewPaymentService(
		paymentRepo,
		paymentsvalidator.NewPaymentValidator(cfg.Log),
		bookingService,
		emitter,
		cfg,
	)

	ratingService := ratingsservice.NewRatingService(
		ratingsrepo.NewMongoRatingRepository(cfg),
		ratingsvalidator.NewRatingValidator(cfg.Log),
		bookingService,
		cfg,
	)

	contactService := contactsservice.NewContactService(
		contactsrepo.NewMongoContactRepository(cfg),
		contactsvalidator.NewContactValidator(cfg.Log),
		dbmongo.NewTransactionManager(cfg.Client.Mongo, cfg.WriteTimeout),
		cfg,
	)

	cfg.Log.Info("Domain services initialized", "database", cfg.MongoDatabaseName)
	return &Set{
		BookingRepo: bookingRepo,
		PaymentRepo: paymentRepo,
		Bookings:    bookingService,
		Payments:    paymentService,
		Fleet:       fleetService,
		Ratings:     ratingService,
		Contacts:    contactService,
	}
}

// NewLocker prefers Redis when it is configured and falls back to the Mongo locks collection.
func NewLocker(cfg *config.Config) lock.Locker {
	if cfg.Client.Redis != nil {
		cfg.Log.Info("Using Redis claim locker")
		return lock.NewRedisLocker(cfg.Client.Redis)
	}
	cfg.Log.Info("Using Mongo claim locker")
	return lock.NewMongoLocker(cfg.Client.Mongo.Database(cfg.MongoDatabaseName))
}

// NewNotificationProducer returns nil when Kafka is disabled.
func NewNotificationProducer(cfg *config.Config) (*kafka.Producer, *kafka_config.Config, error) {
	if !cfg.KafkaEnabled {
		return nil, nil, nil
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load kafka config: %w", err)
	}
	if err := kafkaCfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid kafka config: %w", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.NotificationTopic, cfg.NotificationDLQTopic, cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create notification producer: %w", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}
	return producer, kafkaCfg, nil
}

func NewDispatcher(cfg *config.Config, sinks ...notifier.Sink) *notifier.Dispatcher {
	return notifier.NewDispatcher(notifier.Config{
		BufferSize:      cfg.NotifierBufferSize,
		Workers:         cfg.NotifierWorkers,
		DeliveryTimeout: cfg.NotifierDeliveryTimeout,
	}, cfg.Log.Component("notifier"), sinks...)
}
