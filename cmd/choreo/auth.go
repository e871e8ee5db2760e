package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"choreo-backend/internal/client"
)

var authFlags struct {
	Password string
}

var registerCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Create an account and log in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return authenticate(cmd.Context(), args[0], (*client.Client).Register)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in and remember the token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return authenticate(cmd.Context(), args[0], (*client.Client).Login)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := currentSession()
		if err != nil {
			return err
		}
		return s.clear()
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user and server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := currentSession()
		if err != nil {
			return err
		}
		if s.token() == "" {
			return errNotLoggedIn
		}
		fmt.Printf("%s @ %s\n", s.username(), s.server())
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{registerCmd, loginCmd} {
		cmd.Flags().StringVarP(&authFlags.Password, "password", "p", "", "Password (default: $CHOREO_PASSWORD)")
	}
	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd)
}

type authFunc func(c *client.Client, ctx context.Context, username, password string) (string, error)

func authenticate(ctx context.Context, username string, fn authFunc) error {
	password := authFlags.Password
	if password == "" {
		password = os.Getenv("CHOREO_PASSWORD")
	}
	if password == "" {
		return fmt.Errorf("password required: pass --password or set CHOREO_PASSWORD")
	}

	s, err := currentSession()
	if err != nil {
		return err
	}
	token, err := fn(s.client(), ctx, username, password)
	if err != nil {
		return err
	}
	if err := s.save(username, token); err != nil {
		return err
	}
	fmt.Printf("Logged in as %s\n", username)
	return nil
}
