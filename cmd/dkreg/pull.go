package main

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/dkreg/regclient/internal/rwfs"
	"github.com/dkreg/regclient/regclient"
	"github.com/docker/docker/pkg/archive"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"
)

var pullOpts struct {
	dest     string
	parallel int64
}

var pullCmd = &cobra.Command{
	Use:   "pull <repository> <tag-or-digest>",
	Short: "Resolve a manifest and download+unpack its layers",
	Long: `Resolves the manifest for a repository:ref, downloads each layer
blob (digest-verified), and unpacks it as a tar stream into a
per-layer directory under --dest. Layer downloads are bounded by
--parallel concurrent fetches.`,
	Args: cobra.ExactArgs(2),
	RunE: runPull,
}

func init() {
	pullCmd.Flags().StringVar(&pullOpts.dest, "dest", "./layers", "Destination directory for extracted layers")
	pullCmd.Flags().Int64Var(&pullOpts.parallel, "parallel", 4, "Maximum concurrent layer downloads")
}

func runPull(cmd *cobra.Command, args []string) error {
	name, ref := args[0], args[1]
	ctx := context.Background()

	user, pass := resolveCredentials(rootOpts.registry)
	c := newClient(user, pass)

	scope := "repository:" + name + ":pull"
	if err := c.Authenticate(ctx, scope); err != nil {
		return err
	}

	m, err := c.GetManifest(ctx, name, ref)
	if err != nil {
		return err
	}
	layers, err := m.GetLayers()
	if err != nil {
		return fmt.Errorf("manifest %s:%s has no resolvable layer list: %w", name, ref, err)
	}

	if err := os.MkdirAll(pullOpts.dest, 0o755); err != nil {
		return err
	}
	destFS := rwfs.NewOSFS(pullOpts.dest)

	sem := semaphore.NewWeighted(pullOpts.parallel)
	var wg sync.WaitGroup
	errs := make([]error, len(layers))

	for i, digest := range layers {
		i, digest := i, digest
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			errs[i] = fetchAndUnpackLayer(ctx, c, name, digest, destFS)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			log.WithFields(logrus.Fields{
				"repository": name,
				"layer":      layers[i],
				"error":      err,
			}).Error("failed to fetch layer")
			return err
		}
	}

	log.WithFields(logrus.Fields{
		"repository": name,
		"ref":        ref,
		"layers":     len(layers),
		"dest":       pullOpts.dest,
	}).Info("pull complete")
	return nil
}

// fetchAndUnpackLayer downloads one digest-verified layer blob and unpacks
// its decompressed tar stream into a directory named after the digest's
// hex.
func fetchAndUnpackLayer(ctx context.Context, c *regclient.Client, name, digest string, destFS *rwfs.OSFS) error {
	blob, err := c.GetBlob(ctx, name, digest)
	if err != nil {
		return err
	}

	layerDir := digestToDirName(digest)
	if err := rwfs.MkdirAll(destFS, layerDir, fs.FileMode(0o755)); err != nil {
		return err
	}

	decompressed, err := archive.DecompressStream(bytes.NewReader(blob))
	if err != nil {
		return err
	}
	defer decompressed.Close()

	if err := archive.Untar(decompressed, filepath.Join(pullOpts.dest, layerDir), &archive.TarOptions{}); err != nil {
		return err
	}

	return rwfs.WriteFile(destFS, layerDir+"/.digest", []byte(digest), 0o644)
}

func digestToDirName(digest string) string {
	for i := 0; i < len(digest); i++ {
		if digest[i] == ':' {
			return digest[i+1:]
		}
	}
	return digest
}
