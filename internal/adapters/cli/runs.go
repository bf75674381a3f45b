package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/lastmile-go/internal/adapters/persistence"
	"github.com/andrescamacho/lastmile-go/internal/infrastructure/config"
	"github.com/andrescamacho/lastmile-go/internal/infrastructure/database"
)

// NewRunsCommand creates the runs command
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored simulation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			db, err := database.NewConnection(&cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.Close(db)
			if err := database.AutoMigrate(db); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			runs, err := persistence.NewGormSimulationRunRepository(db).List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No runs stored yet")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTARTED\tFINAL TIME\tTICKS\tMESSAGES")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%d\t%d\n",
					r.ID, r.Name, r.StartedAt.Format("2006-01-02 15:04:05"),
					r.FinalTime, r.Ticks, r.Messages)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of runs to list")
	return cmd
}
