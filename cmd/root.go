// Package cmd is the command line of the wiki frontend.
package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/wikifront/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	v       = viper.New()
	cfg     config.Configuration

	rootCmd = &cobra.Command{
		Use:           "wikifront",
		Short:         "Frontend of a collaborative, version-controlled wiki",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
			if cfg, err = config.Load(v, cfgFile); err != nil {
				return err
			}
			setupLogging(cfg.Debug)
			return nil
		},
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./wikifront.yaml)")
	flags.Bool("debug", false, "log at debug level, including every request sent to the API")
	flags.String("api-url", "", "base URL of the wiki API, e.g. http://localhost:8000/api/v1")
	flags.String("storage", "", `where the access token is kept: "sqlite", "file" or "memory"`)
	_ = v.BindPFlag("debug", flags.Lookup("debug"))
	_ = v.BindPFlag("api_url", flags.Lookup("api-url"))
	_ = v.BindPFlag("storage_backend", flags.Lookup("storage"))

	rootCmd.AddCommand(serveCmd, loginCmd, logoutCmd, whoamiCmd)
}

func setupLogging(debug bool) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("wikifront failed")
		os.Exit(1)
	}
}
