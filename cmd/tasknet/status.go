package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and who is logged in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "API:       %s\n", a.Config.APIBase())
			fmt.Fprintf(out, "Store:     %s\n", a.Config.Store)
			if a.Config.GoogleClientID != "" {
				fmt.Fprintf(out, "Google ID: %s\n", a.Config.GoogleClientID)
			}

			if !a.Session.LoggedIn() {
				fmt.Fprintln(out, "Status:    logged out")
				return authRequired(ErrNotLoggedIn)
			}

			username, err := a.Session.Username(cmd.Context())
			if err != nil {
				fmt.Fprintln(out, "Status:    credentials rejected")
				return authRequired(err)
			}
			fmt.Fprintf(out, "Status:    logged in as %s\n", username)
			return nil
		},
	}
}
