package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configKeys are the defaults ~/.featparse.yaml may carry. They mirror
// the session flags of view and stats, and all take a boolean.
var configKeys = map[string]string{
	"parse.gene":  "assemble gene-level parents",
	"parse.exon":  "emit exon children",
	"parse.cds":   "emit CDS children",
	"parse.utr":   "emit UTR children",
	"parse.codon": "emit start/stop codon children",
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage featparse defaults",
		Long:  "Show, get, or set the parse.* defaults stored in ~/.featparse.yaml.",
		Example: `  featparse config                      # show current defaults
  featparse config set parse.exon true  # emit exon children by default
  featparse config get parse.exon`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <true|false>",
		Short: "Set a default parse switch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a default parse switch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(args[0])
		},
	}
}

func sortedConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runConfigShow() error {
	settings := viper.AllSettings()
	if len(settings) == 0 {
		fmt.Println("# No defaults set. Available keys:")
		for _, k := range sortedConfigKeys() {
			fmt.Printf("#   %s\t%s\n", k, configKeys[k])
		}
		return nil
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

func runConfigSet(key, value string) error {
	if _, known := configKeys[key]; !known {
		return fmt.Errorf("unknown key %q (known keys: %v)", key, sortedConfigKeys())
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s takes true or false, got %q", key, value)
	}
	viper.Set(key, v)

	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".featparse.yaml")
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Set %s = %v in %s\n", key, v, cfgFile)
	return nil
}

func runConfigGet(key string) error {
	if !viper.IsSet(key) {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Println(viper.Get(key))
	return nil
}
