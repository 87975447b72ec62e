package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"notebook/internal/app"
	notebookclient "notebook/internal/client"
	"notebook/internal/config"
	"notebook/internal/daemon"
	"notebook/internal/types"
)

const usageText = `notebook synchronizes notebook documents between a daemon and terminal viewers.

Usage:
  notebook <command> [flags]

Commands:
  daemon     run the daemon
  open       open a notebook document
  ls         list open notebooks
  cells      show a notebook's cells
  order      show or set the user mimetype display order
  renderers  list registered renderers
  ui         run the terminal viewer
  help       show help

Flags:
  -h, --help   show help

Daemon flags:
  --background    run in background (logs to file)
  --force         stop any running daemon before starting
  --kill          stop any running daemon and exit

Examples:
  notebook open --view-type scratch scratch:demo
  notebook cells scratch:demo
  notebook order 'application/json' 'text/*'
  notebook ui
`

const version = "dev"

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	case "daemon":
		exitOnErr("daemon", runDaemonCommand(args[1:]))
	case "open":
		exitOnErr("open", runOpen(args[1:]))
	case "ls":
		exitOnErr("ls", runLS(args[1:]))
	case "cells":
		exitOnErr("cells", runCells(args[1:]))
	case "order":
		exitOnErr("order", runOrder(args[1:]))
	case "renderers":
		exitOnErr("renderers", runRenderers(args[1:]))
	case "ui":
		exitOnErr("ui", runUI(args[1:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func newClient() (*notebookclient.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return notebookclient.NewWithBaseURL(cfg.DaemonBaseURL()), nil
}

func runDaemonCommand(args []string) error {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	background := fs.Bool("background", false, "run in background (logs to file)")
	kill := fs.Bool("kill", false, "stop any running daemon and exit")
	force := fs.Bool("force", false, "stop any running daemon before starting")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *kill {
		return killDaemon()
	}
	if *force {
		if err := killDaemon(); err != nil {
			return err
		}
	}
	return runDaemon(*background)
}

func runDaemon(background bool) error {
	out := io.Writer(os.Stderr)
	if background {
		if file := openLogFile(); file != nil {
			defer file.Close()
			out = file
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return daemon.Bootstrap(ctx, buildVersion(), out)
}

func openLogFile() *os.File {
	dataDir, err := config.DataDir()
	if err != nil {
		return nil
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil
	}
	logPath, err := config.LogPath()
	if err != nil {
		return nil
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil
	}
	return file
}

func killDaemon() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := newClient()
	if err != nil {
		return err
	}
	if err := client.ShutdownDaemon(ctx); err == nil {
		return nil
	} else if isDaemonUnavailable(err) {
		return nil
	}
	resp, err := client.Health(ctx)
	if err != nil {
		if isDaemonUnavailable(err) {
			return nil
		}
		return err
	}
	if resp == nil || resp.PID <= 0 {
		return nil
	}
	return terminatePID(resp.PID)
}

func terminatePID(pid int) error {
	if pid <= 0 {
		return errors.New("invalid pid")
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGTERM)
}

func isDaemonUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "connection refused")
}

func runOpen(args []string) error {
	fs := flag.NewFlagSet("open", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	viewType := fs.String("view-type", "scratch", "notebook view type")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("open requires a notebook uri")
	}
	uri := fs.Arg(0)

	client, err := newClient()
	if err != nil {
		return err
	}
	handle, err := client.ResolveNotebook(context.Background(), *viewType, uri)
	if err != nil {
		return err
	}
	if handle < 0 {
		return fmt.Errorf("no provider registered for view type %q", *viewType)
	}
	fmt.Fprintln(os.Stdout, handle)
	return nil
}

func runLS(args []string) error {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	notebooks, err := client.ListNotebooks(context.Background())
	if err != nil {
		return err
	}
	printNotebooks(notebooks)
	return nil
}

func runCells(args []string) error {
	fs := flag.NewFlagSet("cells", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("cells requires a notebook uri")
	}
	uri := fs.Arg(0)

	client, err := newClient()
	if err != nil {
		return err
	}
	cells, err := client.ListCells(context.Background(), uri)
	if err != nil {
		return err
	}
	printCells(cells)
	return nil
}

func runOrder(args []string) error {
	fs := flag.NewFlagSet("order", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	client := notebookclient.NewWithBaseURL(cfg.DaemonBaseURL())
	ctx := context.Background()

	if fs.NArg() > 0 {
		if err := client.SetDisplayOrder(ctx, cfg.DefaultDisplayOrder(), fs.Args()); err != nil {
			return err
		}
	}
	userOrder, err := client.UserDisplayOrder(ctx)
	if err != nil {
		return err
	}
	for _, pattern := range userOrder {
		fmt.Fprintln(os.Stdout, pattern)
	}
	if len(userOrder) == 0 {
		for _, pattern := range cfg.DefaultDisplayOrder() {
			fmt.Fprintln(os.Stdout, pattern)
		}
	}
	return nil
}

func runRenderers(args []string) error {
	fs := flag.NewFlagSet("renderers", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	renderers, err := client.ListRenderers(context.Background())
	if err != nil {
		return err
	}
	printRenderers(renderers)
	return nil
}

func runUI(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	if _, err := client.Health(context.Background()); err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	return app.Run(client)
}

func printNotebooks(notebooks []*types.NotebookInfo) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "HANDLE\tVIEW TYPE\tURI\tLANGUAGES")
	for _, info := range notebooks {
		fmt.Fprintf(writer, "%d\t%s\t%s\t%s\n", info.Handle, info.ViewType, info.URI, strings.Join(info.Languages, ","))
	}
	_ = writer.Flush()
}

func printCells(cells []*types.CellRecord) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "HANDLE\tKIND\tLANG\tDIRTY\tOUTPUTS\tSOURCE")
	for _, cell := range cells {
		dirty := "-"
		if cell.Dirty {
			dirty = "*"
		}
		source := ""
		if len(cell.Source) > 0 {
			source = cell.Source[0]
		}
		fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%d\t%s\n", cell.Handle, cell.Kind, cell.Language, dirty, len(cell.Outputs), source)
	}
	_ = writer.Flush()
}

func printRenderers(renderers []*types.RendererInfo) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "HANDLE\tTYPE\tNAME\tMIMETYPES")
	for _, info := range renderers {
		fmt.Fprintf(writer, "%d\t%s\t%s\t%s\n", info.Handle, info.Type, info.DisplayName, strings.Join(info.MimeTypes, ","))
	}
	_ = writer.Flush()
}

func exitOnErr(label string, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s error: %v\n", label, err)
	os.Exit(1)
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
