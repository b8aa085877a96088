package main

import (
	"context"
	"fmt"

	"github.com/dkreg/regclient/regclient"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var tagsOpts struct {
	pageSize int
}

var tagsCmd = &cobra.Command{
	Use:   "tags <repository>",
	Short: "List tags for a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runTags,
}

func init() {
	tagsCmd.Flags().IntVar(&tagsOpts.pageSize, "page-size", 0, "Requested page size (0 = server default)")
}

func runTags(cmd *cobra.Command, args []string) error {
	name := args[0]
	ctx := context.Background()

	user, pass := resolveCredentials(rootOpts.registry)
	c := newClient(user, pass)

	scope := "repository:" + name + ":pull"
	if err := c.Authenticate(ctx, scope); err != nil {
		log.WithFields(logrus.Fields{"repository": name, "error": err}).Error("authentication failed")
		return err
	}

	stream := c.GetTags(name, tagsOpts.pageSize)
	for {
		tag, ok := stream.Next(ctx)
		if !ok {
			break
		}
		fmt.Println(tag)
	}
	return stream.Err()
}

func newClient(user, pass string) *regclient.Client {
	opts := []regclient.Opt{regclient.WithLog(log)}
	if rootOpts.insecure {
		opts = append(opts, regclient.WithInsecure())
	}
	if user != "" || pass != "" {
		opts = append(opts, regclient.WithCredentials(user, pass))
	}
	return regclient.New(rootOpts.registry, opts...)
}
