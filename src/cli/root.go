package cli

import (
	"git.handmade.network/hmn/sassproc/src/config"
	"git.handmade.network/hmn/sassproc/src/logging"
	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool
)

// RootCommand is the sassproc binary. Feature packages add their subcommands to it
// from init() and are blank-imported by main.
var RootCommand = &cobra.Command{
	Use:          "sassproc",
	Short:        "Build the stylesheets referenced from your templates",
	SilenceUsage: true,
}

func init() {
	RootCommand.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./sassproc.yaml)")
	RootCommand.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// LoadConfig reads the config selected on the command line and applies its log level.
func LoadConfig() (config.SassprocConfig, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return cfg, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	if err := logging.SetLevel(level); err != nil {
		return cfg, err
	}

	logging.Debug().Str("file", configFile).Strs("templateDirs", cfg.TemplateDirs).Msg("Loaded config")
	return cfg, nil
}
