package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xrsl/wfsync/pkg/config"
	"github.com/xrsl/wfsync/pkg/style"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage wfsync configuration",
	Long: `Read and write .wfsync.yaml.

Environment variables WFSYNC_<KEY> override the file; the token is also read
from GITHUB_TOKEN.

  wfsync config list
  wfsync config get <key>
  wfsync config set <key> <value>`,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Long: `Set a config value.

Examples:
  wfsync config set repo myorg/workflow-templates
  wfsync config set ref v2
  wfsync config set source git
  wfsync config set params.python-version 3.12`,
	Args: cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return config.Keys(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.Set(key, value); err != nil {
			return err
		}
		if key == "token" {
			value = "****"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a config value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := config.Get(args[0])
		if err != nil {
			return err
		}
		if value == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "(not set)")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), value)
		}
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all config values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		all := config.All()

		fmt.Fprintf(w, "\n%s\n", style.Title("wfsync config"))
		fmt.Fprintf(w, "%s\n\n", style.C(style.Gray, config.Path()))
		for _, key := range append(config.Keys(), "params") {
			printConfigRow(cmd, key, all[key])
		}
		fmt.Fprintln(w)
		return nil
	},
}

func printConfigRow(cmd *cobra.Command, key, value string) {
	if value == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-13s %s\n", key, style.C(style.Gray, "(not set)"))
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  %-13s %s\n", key, style.C(style.Green, value))
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}
