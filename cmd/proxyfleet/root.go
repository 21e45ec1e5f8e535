package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "proxyfleet",
	Short: "Proxy fleet test orchestrator",
	Long: `proxyfleet tests a fleet of candidate proxy configurations (VMess,
VLESS, Trojan, Shadowsocks, TUIC, Hysteria2) pulled from subscription
sources, and reports which ones actually work from the machine it runs
on.

It ingests and deduplicates candidate URIs, validates them against a
blacklist, runs each through a disposable engine process measuring
latency, throughput, and DPI-bypass/connectivity, and emits the working
subset as a subscription file alongside a blacklist and run metrics.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose (debug-level) logging")

	rootCmd.CompletionOptions.DisableDefaultCmd = false
}
