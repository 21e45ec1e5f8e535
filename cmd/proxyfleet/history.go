package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/proxyfleet/orchestrator/pkg/cli"
	"github.com/proxyfleet/orchestrator/pkg/config"
	"github.com/proxyfleet/orchestrator/pkg/history"
)

var historyFlags struct {
	protocol    string
	countryCode string
	limit       int
	offset      int
	format      string
	output      string
	olderThan   time.Duration
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query or prune the run-history database",
	Long: `Query and prune the SQLite database of previously tested
descriptor URIs.

Subcommands:
  query  - List recorded results with filters
  prune  - Delete records older than a retention window

Examples:
  # List the last 20 working VLESS results
  proxyfleet history query --protocol vless --limit 20

  # Export all results as JSON
  proxyfleet history query --format json --output history.json

  # Drop anything older than 30 days
  proxyfleet history prune --older-than 720h`,
}

var historyQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query recorded results",
	Long: `Query recorded results with protocol and country filters.

Examples:
  proxyfleet history query --protocol trojan --country-code DE --limit 50`,
	RunE: queryHistory,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete records older than a retention window",
	Long:  `Delete recorded results older than --older-than from the history database.`,
	RunE:  pruneHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyQueryCmd, historyPruneCmd)

	historyQueryCmd.Flags().StringVar(&historyFlags.protocol, "protocol", "", "filter by protocol (vmess, vless, trojan, shadowsocks, tuic, hysteria2)")
	historyQueryCmd.Flags().StringVar(&historyFlags.countryCode, "country-code", "", "filter by ISO country code")
	historyQueryCmd.Flags().IntVar(&historyFlags.limit, "limit", 100, "max results")
	historyQueryCmd.Flags().IntVar(&historyFlags.offset, "offset", 0, "pagination offset")
	historyQueryCmd.Flags().StringVar(&historyFlags.format, "format", "text", "output format: text, json")
	historyQueryCmd.Flags().StringVarP(&historyFlags.output, "output", "o", "", "output file (default: stdout)")

	historyPruneCmd.Flags().DurationVar(&historyFlags.olderThan, "older-than", 30*24*time.Hour, "retention window; records recorded before now minus this are deleted")
}

func openHistoryStore() (*history.Store, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()
	if cfg.History.Path == "" {
		return nil, fmt.Errorf("history store is disabled (history.path is empty in config)")
	}
	return history.Open(history.Config{Path: cfg.History.Path})
}

func queryHistory(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStore()
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	defer store.Close()

	filter := history.Filter{
		Protocol:    historyFlags.protocol,
		CountryCode: historyFlags.countryCode,
		Limit:       historyFlags.limit,
		Offset:      historyFlags.offset,
	}

	records, err := store.Query(context.Background(), filter)
	if err != nil {
		return cli.NewCommandError("history", fmt.Errorf("query failed: %w", err))
	}

	var out *os.File
	if historyFlags.output != "" {
		out, err = os.Create(historyFlags.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer out.Close()
	} else {
		out = os.Stdout
	}

	if historyFlags.format == "json" {
		return writeHistoryJSON(out, records)
	}
	return writeHistoryText(out, records)
}

func writeHistoryText(out *os.File, records []history.Record) error {
	fmt.Fprintf(out, "Total records: %d\n", len(records))
	fmt.Fprintln(out)

	if len(records) == 0 {
		fmt.Fprintln(out, "No records found.")
		return nil
	}

	for i, r := range records {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "URI: %s\n", r.URI)
		fmt.Fprintf(out, "Protocol: %s\n", r.Protocol)
		fmt.Fprintf(out, "Address: %s\n", r.Address)
		fmt.Fprintf(out, "Ping: %.0fms  Jitter: %.0fms\n", r.PingMs, r.JitterMs)
		fmt.Fprintf(out, "Throughput: %.2f Mbps down / %.2f Mbps up\n", r.DownloadMbps, r.UploadMbps)
		fmt.Fprintf(out, "Bypass OK: %t\n", r.BypassOK)
		if r.CountryCode != "" {
			fmt.Fprintf(out, "Location: %s, %s (%s)\n", r.City, r.Country, r.CountryCode)
		}
		if r.ISP != "" {
			fmt.Fprintf(out, "ISP: %s\n", r.ISP)
		}
		fmt.Fprintf(out, "Recorded: %s\n", r.RecordedAt.Format(time.RFC3339))
	}

	return nil
}

func writeHistoryJSON(out *os.File, records []history.Record) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]any{
		"total_records": len(records),
		"records":       records,
	})
}

func pruneHistory(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStore()
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	defer store.Close()

	deleted, err := store.Prune(context.Background(), historyFlags.olderThan)
	if err != nil {
		return cli.NewCommandError("history", fmt.Errorf("prune failed: %w", err))
	}

	fmt.Printf("pruned %d record(s) older than %s\n", deleted, historyFlags.olderThan)
	return nil
}
