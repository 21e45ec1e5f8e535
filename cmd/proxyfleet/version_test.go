package main

import (
	"runtime"
	"testing"
)

func TestVersionVariablesAreSettable(t *testing.T) {
	origVersion := Version
	origGitCommit := GitCommit
	origBuildDate := BuildDate

	Version = "0.1.0-test"
	GitCommit = "abc123"
	BuildDate = "2026-01-01"

	if Version != "0.1.0-test" {
		t.Errorf("Version = %q, want %q", Version, "0.1.0-test")
	}
	if GitCommit != "abc123" {
		t.Errorf("GitCommit = %q, want %q", GitCommit, "abc123")
	}
	if BuildDate != "2026-01-01" {
		t.Errorf("BuildDate = %q, want %q", BuildDate, "2026-01-01")
	}

	Version = origVersion
	GitCommit = origGitCommit
	BuildDate = origBuildDate
}

func TestVersionCommandExists(t *testing.T) {
	if versionCmd == nil {
		t.Fatal("versionCmd is nil")
	}
	if versionCmd.Use != "version" {
		t.Errorf("versionCmd.Use = %q, want %q", versionCmd.Use, "version")
	}
	if versionCmd.Short == "" {
		t.Error("versionCmd.Short should not be empty")
	}
	if versionCmd.Run == nil {
		t.Error("versionCmd.Run should not be nil")
	}
}

func TestRuntimeInfo(t *testing.T) {
	if runtime.Version() == "" {
		t.Error("runtime.Version() should not be empty")
	}
	if runtime.GOOS == "" {
		t.Error("runtime.GOOS should not be empty")
	}
	if runtime.GOARCH == "" {
		t.Error("runtime.GOARCH should not be empty")
	}
}

func TestRunCommandFlags(t *testing.T) {
	if runCmd == nil {
		t.Fatal("runCmd is nil")
	}
	for _, name := range []string{"cli", "max-configs", "dry-run"} {
		if runCmd.Flags().Lookup(name) == nil {
			t.Errorf("run command missing flag %q", name)
		}
	}
}

func TestHistoryCommandStructure(t *testing.T) {
	if historyCmd == nil {
		t.Fatal("historyCmd is nil")
	}
	names := map[string]bool{}
	for _, c := range historyCmd.Commands() {
		names[c.Name()] = true
	}
	if !names["query"] {
		t.Error("history command missing query subcommand")
	}
	if !names["prune"] {
		t.Error("history command missing prune subcommand")
	}
}
