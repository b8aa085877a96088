// Command dkreg is a thin example CLI over the regclient package: list
// tags, fetch manifests, list the catalog, and pull an image's
// layers to disk.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootOpts struct {
	registry string
	insecure bool
	verbosity string
}

var log *logrus.Logger

var rootCmd = &cobra.Command{
	Use:   "dkreg <cmd>",
	Short: "Inspect docker registry v2 repositories",
	Long:  `Utility for listing tags, fetching manifests, and pulling image layers from a docker registry v2 endpoint.`,
}

func init() {
	log = &logrus.Logger{
		Out:       os.Stderr,
		Formatter: &logrus.TextFormatter{FullTimestamp: true},
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.InfoLevel,
	}

	rootCmd.PersistentFlags().StringVarP(&rootOpts.registry, "registry", "r", "registry-1.docker.io", "Registry host")
	rootCmd.PersistentFlags().BoolVar(&rootOpts.insecure, "insecure", false, "Use plain http:// and skip TLS verification")
	rootCmd.PersistentFlags().StringVarP(&rootOpts.verbosity, "verbosity", "v", logrus.InfoLevel.String(), "Log level (trace, debug, info, warn, error)")

	viper.SetEnvPrefix("dkreg")
	viper.AutomaticEnv()
	_ = viper.BindEnv("user", "DKREG_USER")
	_ = viper.BindEnv("passwd", "DKREG_PASSWD")

	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(manifestCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.PersistentPreRunE = rootPreRun
}

func rootPreRun(cmd *cobra.Command, args []string) error {
	lvl, err := logrus.ParseLevel(rootOpts.verbosity)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}
