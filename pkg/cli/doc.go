/*
Package cli provides command-line interface utilities for the proxy fleet
test orchestrator.

The cli package includes output formatters, progress reporters, signal
handling, and typed command errors shared by the proxyfleet command.

Output Formatting:

The cli package supports text and JSON output formats for displaying
command results. The CSV formatter writes only the header row and then
returns an error; it does not render data rows:

	formatter := cli.NewFormatter(cli.FormatJSON)
	data := MyCommandResult{...}
	if err := formatter.FormatTo(os.Stdout, data); err != nil {
		return err
	}

Progress Reporting:

For a run's progress-reporter task, printing counters periodically:

	progress := cli.NewProgressReporter(os.Stdout)
	progress.Start(totalCandidates)
	for tested := range testedCh {
		progress.Update(tested)
	}
	progress.Finish()

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	// Use ctx for operations that should be cancelled on shutdown
*/
package cli
