// Command proxyfleet is a proxy fleet test orchestrator: it ingests
// candidate proxy URIs from subscription sources, validates and
// deduplicates them, tests each through a disposable engine process with
// DPI-bypass fallbacks, and emits the working subset plus a blacklist
// and run metrics.
//
// Usage:
//
//	# Run the full pipeline with default configuration
//	proxyfleet run
//
//	# Run headless (no TTY progress bar), capped at 50 working configs
//	proxyfleet run --cli --max-configs 50
//
//	# Run with custom configuration file and verbose logging
//	proxyfleet run --config /etc/proxyfleet/config.yaml --debug
//
//	# Show version information
//	proxyfleet version
//
//	# Query the run-history database
//	proxyfleet history query --protocol vless --limit 20
package main

func main() {
	Execute()
}
