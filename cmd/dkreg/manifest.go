package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest <repository> <tag-or-digest>",
	Short: "Fetch and print a manifest's layers and kind",
	Args:  cobra.ExactArgs(2),
	RunE:  runManifest,
}

func runManifest(cmd *cobra.Command, args []string) error {
	name, ref := args[0], args[1]
	ctx := context.Background()

	user, pass := resolveCredentials(rootOpts.registry)
	c := newClient(user, pass)

	scope := "repository:" + name + ":pull"
	if err := c.Authenticate(ctx, scope); err != nil {
		log.WithFields(logrus.Fields{"repository": name, "error": err}).Error("authentication failed")
		return err
	}

	m, err := c.GetManifest(ctx, name, ref)
	if err != nil {
		return err
	}

	fmt.Printf("content-type: %s\n", m.ContentType())
	layers, err := m.GetLayers()
	if err != nil {
		fmt.Println(err)
		return nil
	}
	for _, l := range layers {
		fmt.Println(l)
	}

	if labels, ok := m.GetLabels(0); ok {
		fmt.Printf("labels: %v\n", labels)
	}
	if digest, ok := m.GetConfigDigest(); ok {
		fmt.Printf("config digest (caller must fetch+decode for labels): %s\n", digest)
	}
	return nil
}
