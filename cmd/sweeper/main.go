package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ambulance/internal/notifier"
	"ambulance/internal/services"
	"ambulance/internal/sweeps"
	"ambulance/pkg/config"

	"github.com/spf13/cobra"
)

const ServiceName = "sweeper"

func main() {
	rootCmd := &cobra.Command{
		Use:   "sweeper",
		Short: "Scheduled reconciliation jobs for the dispatch service",
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(onceCmd())
	rootCmd.AddCommand(listCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every job on its schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			rt.scheduler.Run(ctx)
			return nil
		},
	}
}

func onceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once <job>",
		Short: "Run a single pass of one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			report, err := rt.scheduler.RunOnce(ctx, args[0])
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available jobs",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range []string{
				sweeps.JobDriverRatings,
				sweeps.JobMaintenanceReminders,
				sweeps.JobExpiredPayments,
				sweeps.JobAutoCancel,
				sweeps.JobPaymentReminders,
			} {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}

type runtime struct {
	cfg        *config.Config
	scheduler  *sweeps.Scheduler
	dispatcher *notifier.Dispatcher
	closers    []func() error
}

func newRuntime() (*runtime, error) {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	rt := &runtime{cfg: cfg}

	var sinks []notifier.Sink
	producer, _, err := services.NewNotificationProducer(cfg)
	if err != nil {
		cfg.GracefulShutdown()
		return nil, err
	}
	if producer != nil {
		sinks = append(sinks, notifier.NewKafkaSink(producer, ServiceName))
		rt.closers = append(rt.closers, producer.Close)
	} else {
		cfg.Log.Warn("Kafka disabled, sweep notifications will not leave this process")
	}

	rt.dispatcher = services.NewDispatcher(cfg, sinks...)
	rt.dispatcher.Start()

	svc := services.New(cfg, rt.dispatcher)
	locker := services.NewLocker(cfg)

	rt.scheduler = sweeps.NewScheduler(cfg.Log.Component("scheduler"),
		sweeps.NewDriverRatingsJob(svc.Ratings, svc.Fleet, rt.dispatcher, locker, cfg),
		sweeps.NewMaintenanceRemindersJob(svc.Fleet, rt.dispatcher, locker, cfg),
		sweeps.NewExpiredPaymentsJob(svc.PaymentRepo, svc.Payments, locker, cfg),
		sweeps.NewAutoCancelJob(svc.BookingRepo, svc.PaymentRepo, svc.Bookings, locker, cfg),
		sweeps.NewPaymentRemindersJob(svc.PaymentRepo, svc.BookingRepo, rt.dispatcher, locker, cfg),
	)
	return rt, nil
}

func (rt *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), rt.cfg.ShutdownTimeout)
	defer cancel()

	rt.dispatcher.Stop(ctx)
	for _, closeFn := range rt.closers {
		if err := closeFn(); err != nil {
			rt.cfg.Log.Error("Failed to close resource", "error", err)
		}
	}
	rt.cfg.GracefulShutdown()
}
