// Command geoserve evaluates a geometry description and serves it to
// browser clients over websocket. With -watch the clients reload whenever
// the file changes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chazu/geoview/pkg/config"
	"github.com/chazu/geoview/pkg/engine"
	"github.com/chazu/geoview/pkg/geom"
	"github.com/chazu/geoview/pkg/viewer"
	"github.com/chazu/geoview/pkg/webwindow"
)

func main() {
	var (
		cfgPath  = flag.String("config", "", "config file (.toml, .yaml)")
		geometry = flag.String("geometry", "", "geometry file, overrides the config")
		addr     = flag.String("addr", "", "listen address, overrides the config")
		watch    = flag.Bool("watch", false, "reload clients when the geometry file changes")
		assets   = flag.String("assets", "", "directory with the client page")
	)
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *geometry != "" {
		cfg.Geometry = *geometry
	}
	if flag.NArg() > 0 {
		cfg.Geometry = flag.Arg(0)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *watch {
		cfg.Watch = true
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	if err := run(cfg, *assets, log); err != nil {
		log.Error("geoserve failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, assets string, log *slog.Logger) error {
	if cfg.Geometry == "" {
		return errors.New("no geometry file given")
	}

	eng := engine.NewEngine(engine.WithTimeout(cfg.Timeout()), engine.WithLogger(log))
	source := fileSource(eng, cfg.Geometry)

	opts := []webwindow.Option{
		webwindow.WithLogger(log),
		webwindow.WithMaxConnections(cfg.MaxConnections),
	}
	if assets != "" {
		opts = append(opts, webwindow.WithAssets(os.DirFS(assets)))
	}
	win := webwindow.New(opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v := viewer.New(win,
		viewer.WithLogger(log),
		viewer.WithSource(source),
		viewer.WithLimitFunc(cfg.Limits),
		viewer.WithSegments(cfg.SegmentCount),
		viewer.WithDrawOptions(cfg.DrawOptions),
		// Runs on the window's worker, which Shutdown waits for.
		viewer.WithQuit(stop),
	)
	if err := v.Reload(); err != nil {
		return err
	}
	win.SetHandler(v)

	if cfg.Watch {
		w, err := watchFile(cfg.Geometry, log, func() {
			if err := win.Broadcast(viewer.ReqReload); err != nil {
				log.Warn("broadcast reload", "err", err)
			}
		})
		if err != nil {
			return err
		}
		defer w.Close()
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("serving", "addr", cfg.Addr, "geometry", cfg.Geometry)
		errc <- win.ListenAndServe(cfg.Addr)
	}()

	select {
	case err := <-errc:
		win.Close()
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return win.Shutdown(shutdownCtx)
}

// fileSource evaluates path on every call.
func fileSource(eng *engine.Engine, path string) viewer.Source {
	return func() (*geom.Manager, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		mgr, evalErrs, err := eng.Evaluate(string(data))
		if err != nil {
			return nil, err
		}
		if len(evalErrs) > 0 {
			errs := make([]error, len(evalErrs))
			for i := range evalErrs {
				errs[i] = evalErrs[i]
			}
			return nil, fmt.Errorf("%s: %w", path, errors.Join(errs...))
		}
		return mgr, nil
	}
}
