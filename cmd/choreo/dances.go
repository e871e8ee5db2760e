package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"choreo-backend/internal/model"
)

var dancesCmd = &cobra.Command{
	Use:     "dances",
	Aliases: []string{"dance"},
	Short:   "Manage your dances",
}

var dancesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your dances",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := authed()
		if err != nil {
			return err
		}
		dances, err := c.ListDances(cmd.Context())
		if err != nil {
			return err
		}
		if len(dances) == 0 {
			fmt.Println("No dances yet. Create one with `choreo dances create <name> <dancers>`.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tDANCERS\tFORMATIONS\tUPDATED")
		for _, d := range dances {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", d.ID, d.Name, d.NumberOfDancers, len(d.Formations), humanize.Time(d.UpdatedAt))
		}
		return w.Flush()
	},
}

var dancesShowCmd = &cobra.Command{
	Use:   "show <dance-id>",
	Short: "Show every formation of a dance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authed()
		if err != nil {
			return err
		}
		d, err := c.GetDance(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s (%d dancers, created %s)\n", d.Name, d.NumberOfDancers, humanize.Time(d.CreatedAt))
		for i, f := range d.Formations {
			fmt.Printf("  Formation %d  %s\n", i+1, f.ID)
			for _, p := range f.Positions {
				fmt.Printf("    dancer %-2d  x=%5.1f  y=%5.1f\n", p.DancerIndex, p.X, p.Y)
			}
		}
		return nil
	},
}

var dancesCreateCmd = &cobra.Command{
	Use:   "create <name> <dancers>",
	Short: "Create a dance with one evenly spread formation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := parseDancers(args[1])
		if err != nil {
			return err
		}
		c, err := authed()
		if err != nil {
			return err
		}
		d, err := c.CreateDance(cmd.Context(), args[0], n)
		if err != nil {
			return err
		}
		fmt.Println(d.ID)
		return nil
	},
}

var dancesRenameCmd = &cobra.Command{
	Use:   "rename <dance-id> <name>",
	Short: "Rename a dance",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authed()
		if err != nil {
			return err
		}
		name := args[1]
		return c.UpdateDance(cmd.Context(), args[0], model.DanceUpdate{Name: &name})
	},
}

var dancesResizeCmd = &cobra.Command{
	Use:   "resize <dance-id> <dancers>",
	Short: "Change the number of dancers",
	Long: `Changes the dancer count. Formations are fitted to the new count: extra
dancers are dropped and new dancers are placed on the back line.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := parseDancers(args[1])
		if err != nil {
			return err
		}
		c, err := authed()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if err := c.UpdateDance(ctx, args[0], model.DanceUpdate{NumberOfDancers: &n}); err != nil {
			return err
		}

		// A lenient server leaves formations alone; fit them here.
		d, err := c.GetDance(ctx, args[0])
		if err != nil {
			return err
		}
		for _, f := range d.Formations {
			if model.ValidatePositions(f.Positions, d.NumberOfDancers) == nil {
				continue
			}
			repaired := model.RepairPositions(f.Positions, d.NumberOfDancers)
			if err := c.UpdateFormation(ctx, d.ID, f.ID, repaired); err != nil {
				return err
			}
		}
		return nil
	},
}

var dancesDeleteCmd = &cobra.Command{
	Use:     "delete <dance-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a dance",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authed()
		if err != nil {
			return err
		}
		return c.DeleteDance(cmd.Context(), args[0])
	},
}

func init() {
	dancesCmd.AddCommand(dancesListCmd, dancesShowCmd, dancesCreateCmd, dancesRenameCmd, dancesResizeCmd, dancesDeleteCmd)
	rootCmd.AddCommand(dancesCmd)
}

func parseDancers(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("dancers must be a number: %w", err)
	}
	return n, model.ValidateDancerCount(n)
}
