package daemon

import (
	"context"
	"errors"
	"net/http"
	"time"

	"notebook/internal/logging"
	"notebook/internal/notebook"
	"notebook/internal/remote"
)

type Daemon struct {
	addr    string
	version string
	logger  logging.Logger
	server  *http.Server
	manager *notebook.Manager
	prefs   ViewerStateStore
	hub     *remote.Hub
}

func New(addr, version string, manager *notebook.Manager, prefs ViewerStateStore, logger logging.Logger) *Daemon {
	if logger == nil {
		logger = logging.Nop()
	}
	hub := remote.NewHub(logger, manager.Snapshot)
	manager.SetPeer(hub)
	return &Daemon{
		addr:    addr,
		version: version,
		logger:  logger,
		manager: manager,
		prefs:   prefs,
		hub:     hub,
	}
}

func (d *Daemon) Manager() *notebook.Manager {
	return d.manager
}

func (d *Daemon) Run(ctx context.Context) error {
	api := &API{
		Version: d.version,
		Manager: d.manager,
		Hub:     d.hub,
		Prefs:   d.prefs,
		Logger:  d.logger,
	}

	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	d.server = &http.Server{
		Addr:    d.addr,
		Handler: mux,
	}
	api.Shutdown = d.server.Shutdown

	errCh := make(chan error, 1)
	go func() {
		d.logger.Info("daemon_listening", logging.F("addr", d.addr))
		errCh <- d.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		d.hub.Close()
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		d.hub.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
