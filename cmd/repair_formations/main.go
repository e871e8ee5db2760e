package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"choreo-backend/internal/config"
	"choreo-backend/internal/database"
	"choreo-backend/internal/service"
)

func main() {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "repair_formations",
		Short: "Fit every stored formation to its dance's dancer count",
		Long: `Drops positions of dancers beyond the dance's dancer count and adds missing
dancers on the back line, for every dance in the store.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only list the dances that need repair")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, dryRun bool) error {
	cfg, err := config.LoadStore()
	if err != nil {
		return err
	}

	store, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to store: %w", err)
	}
	defer store.Close()

	log.Info("Store connected. Scanning dances...", "driver", store.Driver, "dryRun", dryRun)

	dances := service.NewDanceService(store.Dances, true)
	ids, err := dances.RepairAll(ctx, dryRun)
	if err != nil {
		return fmt.Errorf("repair failed: %w", err)
	}

	for _, id := range ids {
		log.Info("Needs repair", "dance", id)
	}
	if dryRun {
		log.Info("Dry run finished", "dances", len(ids))
		return nil
	}
	log.Info("Formations repaired", "dances", len(ids))
	return nil
}
