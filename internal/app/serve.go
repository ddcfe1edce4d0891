package app

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/readeck/instafilter/configs"
	"github.com/readeck/instafilter/internal/server"
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.PersistentFlags().StringVarP(
		&configs.Config.Server.Host, "host", "H",
		configs.Config.Server.Host, "server host")
	serveCmd.PersistentFlags().IntVarP(
		&configs.Config.Server.Port, "port", "p",
		configs.Config.Server.Port, "server port")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	s := server.New(nil)
	onCleanup(s.Close)
	defer s.Close()

	log.WithFields(log.Fields{
		"url": fmt.Sprintf("http://%s:%d/api/",
			configs.Config.Server.Host, configs.Config.Server.Port),
		"filter":    configs.Config.Filters.Default,
		"intensity": configs.Config.Filters.Intensity,
	}).Info("Starting server")

	return s.ListenAndServe()
}
