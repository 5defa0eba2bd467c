/*
   Command line interface of webrank.
*/
package cmd

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/xerrors"
)

// envPrefix prefixes the environment variables overriding flags.
const envPrefix = "WEBRANK"

// NewRootCommand returns the webrank command tree. Every command logs
// through logger.
func NewRootCommand(logger *logrus.Entry, stdout, stderr io.Writer) *cobra.Command {
	var logLevel string
	rc := &cobra.Command{
		Use:   "webrank",
		Short: "webrank imports a web graph and ranks its pages.",
		Long: `webrank imports a web graph and ranks its pages.

Vertices (pages with optional trust and porn seeds) and edges (links) are
read from a database table or dump files, partitioned into shards on disk
and ranked with page rank, trust rank and porn rank propagation.
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setAllConfig(viper.New(), cmd.Flags()); err != nil {
				return err
			}
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return xerrors.Errorf("invalid --log-level: %w", err)
			}
			logger.Logger.SetLevel(level)
			return nil
		},
	}
	rc.PersistentFlags().StringP("config", "c", "", "Configuration file to read from.")
	rc.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Logging level (debug, info, warn, error).")

	rc.AddCommand(newRankCommand(logger, stdout))
	rc.AddCommand(newExtractLinksCommand(logger))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// setAllConfig takes a FlagSet to be the definition of all configuration
// options, as well as their defaults. It then reads from the command line, the
// environment, and a config file (if specified), and applies the configuration
// in that priority order.
//
// Environment variables are capitalized versions of the flag names with
// dashes replaced by underscores, prefixed with WEBRANK_.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	validTags := make(map[string]bool)
	flags.VisitAll(func(f *pflag.Flag) {
		validTags[f.Name] = true
	})

	if c := v.GetString("config"); c != "" {
		v.SetConfigFile(c)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return xerrors.Errorf("error reading configuration file '%s': %w", c, err)
		}
		for _, key := range v.AllKeys() {
			if _, ok := validTags[key]; !ok {
				return xerrors.Errorf("invalid option in configuration file: %v", key)
			}
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		// Flags set on the command line have the highest priority.
		if flagErr != nil || f.Changed {
			return
		}
		flagErr = f.Value.Set(v.GetString(f.Name))
	})
	return flagErr
}
