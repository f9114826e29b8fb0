package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/study-abroad-marketplace/internal/config"
	"github.com/iliyamo/study-abroad-marketplace/internal/queue"
)

func notifyCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Consume domain events and append them to the notifications log",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := config.LoadEventsConfig()
			log.Printf("notify: consuming %s events into %s", cfg.Broker, dir)
			err := queue.Consume(ctx, cfg, queue.NewNotificationLog(dir))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "logs", "directory of notifications.log")
	return cmd
}
