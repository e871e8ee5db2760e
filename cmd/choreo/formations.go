package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"choreo-backend/internal/client"
	"choreo-backend/internal/model"
)

var formationsCmd = &cobra.Command{
	Use:     "formations",
	Aliases: []string{"formation", "f"},
	Short:   "Manage the formations of a dance",
	Long:    "Formations are addressed by their 1-based position in the dance.",
}

var formationsAddCmd = &cobra.Command{
	Use:   "add <dance-id>",
	Short: "Append a copy of the last formation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authed()
		if err != nil {
			return err
		}
		f, err := c.AddFormation(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(f.ID)
		return nil
	},
}

var formationsDeleteCmd = &cobra.Command{
	Use:     "delete <dance-id> <formation>",
	Aliases: []string{"rm"},
	Short:   "Delete a formation",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authed()
		if err != nil {
			return err
		}
		d, f, err := lookupFormation(cmd, c, args[0], args[1])
		if err != nil {
			return err
		}
		return c.DeleteFormation(cmd.Context(), d.ID, f.ID)
	},
}

var formationsMoveCmd = &cobra.Command{
	Use:   "move <dance-id> <formation> <dancer> <x> <y>",
	Short: "Place one dancer, x and y in percent of the stage",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		dancer, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("dancer must be a number: %w", err)
		}
		x, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return fmt.Errorf("x must be a number: %w", err)
		}
		y, err := strconv.ParseFloat(args[4], 64)
		if err != nil {
			return fmt.Errorf("y must be a number: %w", err)
		}

		c, err := authed()
		if err != nil {
			return err
		}
		d, f, err := lookupFormation(cmd, c, args[0], args[1])
		if err != nil {
			return err
		}

		positions := model.ClonePositions(f.Positions)
		moved := false
		for i := range positions {
			if positions[i].DancerIndex == dancer {
				positions[i].X, positions[i].Y = model.ClampPercent(x), model.ClampPercent(y)
				moved = true
			}
		}
		if !moved {
			return fmt.Errorf("dancer %d is not in formation %s", dancer, args[1])
		}
		return c.UpdateFormation(cmd.Context(), d.ID, f.ID, positions)
	},
}

func init() {
	formationsCmd.AddCommand(formationsAddCmd, formationsDeleteCmd, formationsMoveCmd)
	rootCmd.AddCommand(formationsCmd)
}

// lookupFormation resolves a 1-based formation number.
func lookupFormation(cmd *cobra.Command, c *client.Client, danceID, ref string) (*model.Dance, *model.Formation, error) {
	n, err := strconv.Atoi(ref)
	if err != nil {
		return nil, nil, fmt.Errorf("formation must be a number: %w", err)
	}
	d, err := c.GetDance(cmd.Context(), danceID)
	if err != nil {
		return nil, nil, err
	}
	if n < 1 || n > len(d.Formations) {
		return nil, nil, fmt.Errorf("formation %d out of range (dance has %d)", n, len(d.Formations))
	}
	return d, &d.Formations[n-1], nil
}
