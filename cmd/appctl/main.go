// Command appctl runs operator tasks against the marketplace database:
// migrations, seeding, the stale payment sweep and the notification consumer.
package main

import (
	"fmt"
	"os"

	klog "github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
	"gorm.io/gorm"

	"github.com/iliyamo/study-abroad-marketplace/internal/config"
	"github.com/iliyamo/study-abroad-marketplace/internal/database"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "appctl",
		Short:         "Operator tasks for the study abroad marketplace",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(notifyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// connect opens the database from DB_* variables only.
func connect() (*gorm.DB, error) {
	return database.Connect(config.LoadDBConfig())
}

func newLogger() klog.Logger {
	return klog.With(klog.NewStdLogger(os.Stdout), "ts", klog.DefaultTimestamp)
}
