package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rflorenc/vm-migration-console/internal/api"
	"github.com/rflorenc/vm-migration-console/internal/inventory"
	"github.com/rflorenc/vm-migration-console/internal/models"
	"github.com/rflorenc/vm-migration-console/internal/wizard"
)

const viteDevServer = "http://localhost:5173"

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the console HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := a.cfg
	server := &api.Server{
		Inventory: a.inventory,
		Kube:      a.kube,
		Sessions:  models.NewSessionStore(),
		Jobs:      models.NewJobStore(),
		Prefiller: &wizard.Prefiller{Source: a.inventory, Metrics: a.metrics, Log: a.log},
		Poller: api.NewPoller(a.kube, api.PollerConfig{
			Interval:     cfg.Polling.Interval,
			FastInterval: cfg.Polling.FastInterval,
			FastWindow:   cfg.Polling.FastWindow,
		}, a.log),
		Metrics: a.metrics,
		Log:     a.log,
	}
	checkBackends(ctx, a)
	go server.Poller.Run(ctx)
	go expireSessions(ctx, server.Sessions, cfg.SessionTTL, a.log)

	var handler http.Handler
	switch {
	case cfg.Dev:
		handler = devRouter(server)
	case cfg.WebDir != "":
		handler = api.NewRouter(server, os.DirFS(cfg.WebDir))
	default:
		handler = api.NewRouter(server, nil)
	}

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	log := a.log.WithFields(logrus.Fields{"version": version, "listen": cfg.Listen})
	log.Info("VM migration console starting")
	if cfg.Dev {
		log.Infof("Dev mode: proxying frontend to %s", viteDevServer)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// checkBackends verifies early that the inventory and the cluster answer.
// Failures are logged; the server still starts so the UI can report them.
func checkBackends(ctx context.Context, a *app) {
	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if providers, err := a.inventory.Providers(checkCtx); err != nil {
		a.log.WithError(err).Warn("inventory check failed")
	} else {
		a.log.WithFields(logrus.Fields{
			"vsphere":   len(providers[inventory.ProviderVSphere]),
			"openshift": len(providers[inventory.ProviderOpenShift]),
		}).Info("inventory reachable")
	}

	if plans, err := a.kube.ListPlans(checkCtx); err != nil {
		a.log.WithError(err).Warn("cluster check failed")
	} else {
		a.log.WithField("plans", len(plans)).Info("cluster reachable")
	}
}

func expireSessions(ctx context.Context, sessions *models.SessionStore, ttl time.Duration, log logrus.FieldLogger) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := sessions.Expire(now, ttl); n > 0 {
				log.WithField("count", n).Debug("expired wizard sessions")
			}
		}
	}
}

// devRouter serves API routes directly and proxies everything else to the
// Vite dev server.
func devRouter(server *api.Server) http.Handler {
	apiRouter := api.NewRouter(server, emptyFS{})

	viteURL, _ := url.Parse(viteDevServer)
	proxy := httputil.NewSingleHostReverseProxy(viteURL)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if strings.HasPrefix(p, "/api") || strings.HasPrefix(p, "/ws") || p == "/healthz" || p == "/metrics" {
			apiRouter.ServeHTTP(w, r)
			return
		}
		proxy.ServeHTTP(w, r)
	})
}

// emptyFS is a minimal fs.FS that always returns not-found.
type emptyFS struct{}

func (emptyFS) Open(string) (fs.File, error) {
	return nil, os.ErrNotExist
}
