package daemon

import (
	"context"
	"io"

	"notebook/internal/config"
	"notebook/internal/display"
	"notebook/internal/logging"
	"notebook/internal/notebook"
	"notebook/internal/store"
)

// Bootstrap wires a daemon from the on-disk config and runs it until ctx is
// cancelled: prefs store, display resolver seeded with the configured default
// order, document manager with the scratch provider registered, HTTP API and
// websocket hub. Log output goes to out.
func Bootstrap(ctx context.Context, version string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(out, logging.ParseLevel(cfg.LogLevel()))

	storePath, err := cfg.StorePath()
	if err != nil {
		return err
	}
	prefs, err := store.Open(storePath)
	if err != nil {
		return err
	}
	defer prefs.Close()

	resolver := display.NewResolver(
		display.NewOrder(cfg.DefaultDisplayOrder()),
		display.NewRegistry(),
		logger,
	)
	resolver.SetRenderWidth(cfg.RenderWidth())
	manager := notebook.NewManager(notebook.ManagerOptions{
		Logger:   logger,
		Resolver: resolver,
		Prefs:    prefs,
	})
	if err := manager.RegisterProvider(notebook.ScratchViewType, notebook.NewScratchProvider(manager)); err != nil {
		return err
	}

	return New(cfg.DaemonAddress(), version, manager, prefs, logger).Run(ctx)
}
