package main

import (
	"context"
	"errors"

	bookingshandler "ambulance/internal/bookings/handler"
	contactshandler "ambulance/internal/contacts/handler"
	fleethandler "ambulance/internal/fleet/handler"
	"ambulance/internal/notifier"
	paymentshandler "ambulance/internal/payments/handler"
	ratingshandler "ambulance/internal/ratings/handler"
	"ambulance/internal/realtime"
	"ambulance/internal/services"
	"ambulance/pkg/app"
	"ambulance/pkg/config"
	"ambulance/pkg/contracts"
	"ambulance/pkg/middleware"
)

const ServiceName = "dispatch"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Dispatch service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := realtime.NewHub(cfg.Log.Component("realtime"))
	go hub.Run(ctx)

	sinks := []notifier.Sink{notifier.NewHubSink(hub)}
	producer, kafkaCfg, err := services.NewNotificationProducer(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize Kafka", "error", err)
	}

	var relay *realtime.Relay
	if producer != nil {
		// With Kafka on, every instance learns about events through the relay, so the
		// local hub is fed from the topic instead of directly.
		sinks = []notifier.Sink{notifier.NewKafkaSink(producer, ServiceName)}
		relay, err = realtime.NewRelay(hub, kafkaCfg, cfg.NotificationTopic, cfg.RelayGroupID, cfg.Log.Component("relay"))
		if err != nil {
			cfg.Log.Fatal("Failed to initialize realtime relay", "error", err)
		}
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				cfg.Log.Error("Realtime relay stopped", "error", err)
			}
		}()
	}

	dispatcher := services.NewDispatcher(cfg, sinks...)
	dispatcher.Start()

	svc := services.New(cfg, dispatcher)

	serverApp := app.NewApplication(cfg)
	serverApp.Mount("/ws", middleware.ActorContext()(realtime.ServeWS(hub, cfg.Log.Component("websocket"))))
	serverApp.SetApp(contracts.Group{
		bookingshandler.NewBookingHandler(svc.Bookings, cfg.Log),
		paymentshandler.NewPaymentHandler(svc.Payments, cfg.Log),
		fleethandler.NewFleetHandler(svc.Fleet, cfg.Log),
		ratingshandler.NewRatingHandler(svc.Ratings, cfg.Log),
		contactshandler.NewContactHandler(svc.Contacts, cfg.Log),
	})

	serverApp.OnShutdown(dispatcher.Stop)
	serverApp.OnShutdown(func(context.Context) {
		cancel()
		if relay != nil {
			if err := relay.Close(); err != nil {
				cfg.Log.Error("Failed to close realtime relay", "error", err)
			}
		}
		if producer != nil {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close notification producer", "error", err)
			}
		}
	})

	serverApp.Run()
}
