package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var catalogOpts struct {
	pageSize int
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List repositories known to the registry",
	Args:  cobra.NoArgs,
	RunE:  runCatalog,
}

func init() {
	catalogCmd.Flags().IntVar(&catalogOpts.pageSize, "page-size", 0, "Requested page size (0 = server default)")
}

func runCatalog(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	user, pass := resolveCredentials(rootOpts.registry)
	c := newClient(user, pass)

	if err := c.Authenticate(ctx, ""); err != nil {
		return err
	}

	repos, err := c.GetCatalog(ctx, catalogOpts.pageSize)
	if err != nil {
		return err
	}
	for _, r := range repos {
		fmt.Println(r)
	}
	return nil
}
