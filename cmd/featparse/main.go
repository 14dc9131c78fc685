// Package main provides the featparse command-line tool.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var logger *zap.Logger

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:     "featparse",
		Short:   "Parse genomic annotation files into a uniform feature tree",
		Version: fmt.Sprintf("%s (%s) built %s", version, commit, date),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initConfig()
			var err error
			if verbose {
				logger, err = zap.NewDevelopment()
			} else {
				cfg := zap.NewProductionConfig()
				cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
				logger, err = cfg.Build()
			}
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newTasteCmd())
	root.AddCommand(newViewCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newConfigCmd())

	return root
}

// initConfig loads ~/.featparse.yaml when present; missing config is not
// an error.
func initConfig() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	viper.SetConfigFile(filepath.Join(home, ".featparse.yaml"))
	viper.SetConfigType("yaml")
	_ = viper.ReadInConfig()
}
