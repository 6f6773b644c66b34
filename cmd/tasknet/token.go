package main

import (
	"fmt"

	"git.sr.ht/~jakintosh/tasknet/pkg/credentials"
	"github.com/spf13/cobra"
)

func newTokenCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage stored credentials directly",
	}
	cmd.AddCommand(newTokenSetCmd(c))
	return cmd
}

func newTokenSetCmd(c *cli) *cobra.Command {
	var pair credentials.Pair

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store an access and refresh credential obtained elsewhere",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			if err := credentials.Save(a.Store, pair); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Credentials stored")
			return nil
		},
	}

	cmd.Flags().StringVar(&pair.Access, "access", "", "access credential")
	cmd.Flags().StringVar(&pair.Refresh, "refresh", "", "refresh credential (omit to remove the stored one)")
	_ = cmd.MarkFlagRequired("access")
	return cmd
}
