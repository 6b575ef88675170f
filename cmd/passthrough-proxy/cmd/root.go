// Package cmd provides the CLI commands for passthrough-proxy.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/passline/mcp-gate/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "passthrough-proxy",
	Short: "passthrough-proxy - MCP hook-chain passthrough proxy",
	Long: `passthrough-proxy sits between an MCP client and an MCP server, running
every JSON-RPC message that crosses it through a chain of hooks before
forwarding it onward.

Quick start:
  1. Create a config file: mcp-gate.yaml
  2. Run: passthrough-proxy serve

Configuration:
  Config is loaded from mcp-gate.yaml in the current directory,
  $HOME/.mcp-gate/, or /etc/mcp-gate/.

  Environment variables can override config values with the MCP_GATE_ prefix.
  Example: MCP_GATE_SERVER_METRICS_ADDR=:9090

Commands:
  serve       Start the proxy
  config      Print the effective configuration as YAML
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
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./mcp-gate.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
