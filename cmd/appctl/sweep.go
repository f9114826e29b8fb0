package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/iliyamo/study-abroad-marketplace/internal/config"
	"github.com/iliyamo/study-abroad-marketplace/internal/payment"
	"github.com/iliyamo/study-abroad-marketplace/internal/queue"
	"github.com/iliyamo/study-abroad-marketplace/internal/service"
)

func sweepCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Reconcile pending payments older than PAYMENT_PENDING_TTL with the provider",
		Long: `Pending payments whose checkout was abandoned are asked for their
session state: paid sessions are completed, open ones are left for the
provider to expire, everything else is marked failed and its application
becomes payable again.

Without --once the sweep runs on SWEEP_SCHEDULE (cron with seconds).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			payCfg := config.LoadPaymentConfig()
			db, err := connect()
			if err != nil {
				return err
			}
			events := queue.NewPublisher(config.LoadEventsConfig())
			defer events.Close()

			provider := payment.NewStripe(payCfg.SecretKey, payCfg.WebhookSecret, payCfg.ProviderTimeout)
			svc := service.NewPaymentService(db, provider, events, newLogger(), service.PaymentOptions{
				Currency: payCfg.Currency,
			})

			run := func() {
				log.Println("[CRON] Starting stale payment sweep...")
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				defer cancel()
				rep, err := svc.SweepStale(ctx, payCfg.PendingTTL, payCfg.SweepBatch)
				if err != nil {
					log.Printf("[CRON] Error sweeping stale payments: %v", err)
					return
				}
				log.Printf("[CRON] Sweep finished: checked=%d completed=%d failed=%d skipped=%d errors=%d",
					rep.Checked, rep.Completed, rep.Failed, rep.Skipped, rep.Errors)
			}
			if once {
				run()
				return nil
			}

			scheduler, err := newSweepScheduler(payCfg.SweepSchedule, run)
			if err != nil {
				return err
			}
			scheduler.Start()
			log.Printf("[CRON] sweep scheduled: %s", payCfg.SweepSchedule)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Println("[CRON] Shutting down...")
			<-scheduler.Stop().Done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single sweep and exit")
	return cmd
}

// newSweepScheduler schedules run on spec (with seconds). A run that is
// still going when the next tick fires makes that tick a no-op.
func newSweepScheduler(spec string, run func()) (*cron.Cron, error) {
	logger := cron.PrintfLogger(log.New(os.Stdout, "[CRON] ", log.LstdFlags))
	scheduler := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := scheduler.AddFunc(spec, run); err != nil {
		return nil, fmt.Errorf("sweep schedule %q: %w", spec, err)
	}
	return scheduler, nil
}
