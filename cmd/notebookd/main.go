package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"notebook/internal/config"
	"notebook/internal/daemon"
)

const version = "dev"

func main() {
	fs := flag.NewFlagSet("notebookd", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	background := fs.Bool("background", false, "log to file instead of stderr")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	out := io.Writer(os.Stderr)
	if *background {
		if file := openLogFile(); file != nil {
			defer file.Close()
			out = file
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := daemon.Bootstrap(ctx, buildVersion(), out); err != nil {
		fmt.Fprintf(os.Stderr, "notebookd error: %v\n", err)
		os.Exit(1)
	}
}

func openLogFile() *os.File {
	logPath, err := config.LogPath()
	if err != nil {
		return nil
	}
	if err := os.MkdirAll(mustDataDir(), 0o700); err != nil {
		return nil
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil
	}
	return file
}

func mustDataDir() string {
	dataDir, err := config.DataDir()
	if err != nil {
		return "."
	}
	return dataDir
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		var revision string
		var modified string
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				revision = setting.Value
			case "vcs.modified":
				modified = setting.Value
			}
		}
		if revision != "" {
			if modified == "true" {
				return revision + "-dirty"
			}
			return revision
		}
	}
	return version
}
