package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/study-abroad-marketplace/internal/database"
	"github.com/iliyamo/study-abroad-marketplace/internal/seed"
)

func seedCmd() *cobra.Command {
	var (
		file       string
		bcryptCost int
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the development catalogue (admin, student, institutions, programs)",
		Long: `Load a seed catalogue into the database. Without --file the embedded
catalogue is used. Existing users (by email) and institutions (by name)
are left untouched, so the command can be re-run safely.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := seed.Default()
			if file != "" {
				raw, rerr := os.ReadFile(file)
				if rerr != nil {
					return rerr
				}
				cat, err = seed.Parse(raw)
			}
			if err != nil {
				return err
			}

			db, err := connect()
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			rep, err := seed.Load(cmd.Context(), db, cat, bcryptCost)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted users=%d institutions=%d programs=%d, skipped=%d\n",
				rep.Users, rep.Institutions, rep.Programs, rep.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed YAML file instead of the embedded catalogue")
	cmd.Flags().IntVar(&bcryptCost, "bcrypt-cost", 12, "bcrypt cost for seeded passwords")
	return cmd
}
