// Package cmd provides the CLI commands for the mcphook proxy.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcphook/proxy/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mcphook",
	Short: "mcphook - MCP hook-chain proxy",
	Long: `mcphook sits between an MCP client and a single upstream MCP server,
running every tools/list and tools/call through a configurable ordered
chain of hooks before forwarding it on. Every other JSON-RPC method passes
through untouched.

Quick start:
  1. Create a config file: mcphook.yaml
  2. Run: mcphook start

Configuration:
  Config is loaded from mcphook.yaml in the current directory,
  $HOME/.mcphook/, or /etc/mcphook/.

  Environment variables can override config values with the MCPHOOK_
  prefix. Example: MCPHOOK_PORT=9090

Commands:
  start       Start the proxy
  stop        Stop the running proxy
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./mcphook.yaml)")
}

func initConfig() {
	file := cfgFile
	if file == "" {
		file = os.Getenv("CONFIG_FILE")
	}
	_ = config.InitViper(file)
}
