package main

import (
	"os"

	dockercfg "github.com/docker/cli/cli/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// resolveCredentials looks up a username/password for registry, preferring
// ~/.docker/config.json and falling back to the DKREG_USER/DKREG_PASSWD
// environment variables. The client library itself never reads either
// source — credential loading is CLI glue, layered on top of it here.
func resolveCredentials(registry string) (user, pass string) {
	conffile := dockercfg.LoadDefaultConfigFile(os.Stderr)
	creds, err := conffile.GetAllCredentials()
	if err == nil {
		serverAddress := registry
		if registry == "registry-1.docker.io" {
			serverAddress = "https://index.docker.io/v1/"
		}
		for addr, cred := range creds {
			if addr == serverAddress && cred.Username != "" && cred.Password != "" {
				return cred.Username, cred.Password
			}
		}
	} else {
		log.WithFields(logrus.Fields{"error": err}).Debug("no docker config credentials found")
	}

	return viper.GetString("user"), viper.GetString("passwd")
}
