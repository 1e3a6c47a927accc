package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"example.com/backstage/services/events/config"
	"example.com/backstage/services/events/internal/database"
	"example.com/backstage/services/events/internal/fees"
	"example.com/backstage/services/events/internal/messaging"
	"example.com/backstage/services/events/internal/repository"
	"example.com/backstage/services/events/internal/service"
	"example.com/backstage/services/events/internal/tracing"
)

// reconcileBatchSize bounds how many registrations one run confirms
const reconcileBatchSize = 500

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that reconciles pending registrations and watches poll deadlines`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
	}

	bus, err := messaging.NewServiceBusClient(cfg.Azure)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Service Bus client, continuing without notifications")
	}

	eventRepo := repository.NewEventRepository(db)
	regRepo := repository.NewRegistrationRepository(db)
	registrationService := service.NewRegistrationService(eventRepo, regRepo, fees.NewResolver(nil), bus, tracer)

	// Registration reconciliation, a fallback for confirmations that
	// failed inline during schedule confirmation
	g.Go(func() error {
		log.Info().Msg("Starting registration reconciliation job")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Worker.ReconcileInterval),
			gocron.NewTask(func() {
				confirmed, err := registrationService.ReconcilePending(ctx, reconcileBatchSize)
				if err != nil {
					log.Error().Err(err).Msg("Failed to reconcile pending registrations")
					return
				}
				if confirmed > 0 {
					log.Info().Int("confirmed", confirmed).Msg("Reconciled pending registrations")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()
		<-ctx.Done()
		return scheduler.Shutdown()
	})

	// Poll deadline watcher. Deadlines are advisory, so this only
	// surfaces overdue polls to the organizers' attention via logs.
	g.Go(func() error {
		log.Info().Msg("Starting poll deadline watcher")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Worker.DeadlineInterval),
			gocron.NewTask(func() {
				overdue, err := eventRepo.FindPollsPastDeadline(ctx, time.Now())
				if err != nil {
					log.Error().Err(err).Msg("Failed to find overdue polls")
					return
				}
				for _, event := range overdue {
					log.Warn().
						Str("event_id", event.ID.String()).
						Time("deadline", *event.ScheduleDeadline).
						Msg("Schedule poll past its deadline")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()
		<-ctx.Done()
		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
