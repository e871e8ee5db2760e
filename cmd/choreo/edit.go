package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"choreo-backend/internal/client"
	"choreo-backend/internal/editor"
	"choreo-backend/internal/tui"
)

var editFlags struct {
	Debounce time.Duration
}

var editCmd = &cobra.Command{
	Use:   "edit <dance-id>",
	Short: "Open the formation editor",
	Long: `Opens a full-screen stage grid. Select a dancer with tab and move it with
the arrow keys, or drag it with the mouse. Edits are saved automatically once
you stop moving dancers for a moment.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authed()
		if err != nil {
			return err
		}

		ed := editor.New(c, args[0], editor.WithDebounce(editFlags.Debounce))
		if err := ed.Load(cmd.Context()); err != nil {
			return err
		}

		p := tea.NewProgram(tui.New(ed), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(cmd.Context()))
		_, runErr := p.Run()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := ed.Close(ctx); err != nil {
			log.Error("Unsaved changes could not be saved", "err", err)
			return err
		}
		return runErr
	},
}

func init() {
	editCmd.Flags().DurationVar(&editFlags.Debounce, "autosave-delay", editor.DefaultDebounce, "Quiet period before edits are saved")
	rootCmd.AddCommand(editCmd)
}

func authed() (*client.Client, error) {
	s, err := currentSession()
	if err != nil {
		return nil, err
	}
	return s.authedClient()
}
