package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Open an admin session and print its token",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("LISTINGS_PASSWORD")
		}
		if password == "" {
			return fmt.Errorf("password is required (--password or LISTINGS_PASSWORD)")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		resp, err := newClient().Login(ctx, username, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "logged in as %s until %s\n", resp.Username, resp.ExpiresAt.Format("2006-01-02 15:04 MST"))
		fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the session given by --token",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		if err := newClient().Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "logged out")
		return nil
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show whether --token is a live admin session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		status, err := newClient().Session(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, status)
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the server can reach MongoDB",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		if err := newClient().Ping(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}
