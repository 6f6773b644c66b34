package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newGetCmd(c *cli) *cobra.Command {
	var parallel int

	cmd := &cobra.Command{
		Use:   "get PATH",
		Short: "GET an API path and print the response body",
		Long: `GET a path under the API base (for example "tasks/") with the stored
credentials and print the response body.

With --parallel N the same request is sent N times concurrently through one
transport; if the access credential has expired they share a single refresh.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if parallel < 1 {
				return fmt.Errorf("--parallel must be at least 1")
			}
			a, err := c.open()
			if err != nil {
				return err
			}
			if !a.Session.LoggedIn() {
				return authRequired(ErrNotLoggedIn)
			}

			bodies := make([][]byte, parallel)
			g, ctx := errgroup.WithContext(cmd.Context())
			for i := range parallel {
				g.Go(func() error {
					body, err := a.API.Get(ctx, args[0])
					if err != nil {
						return err
					}
					bodies[i] = body
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				if exitCode(err) == ExitCodeAuthRequired {
					return authRequired(err)
				}
				return err
			}

			out := cmd.OutOrStdout()
			for _, body := range bodies {
				out.Write(bytes.TrimRight(body, "\n"))
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&parallel, "parallel", "n", 1, "number of concurrent requests")
	return cmd
}
