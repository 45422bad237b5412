// Command xproto-ping is a smoke-test client for the xproto driver core:
// it loads a YAML config, connects (with failover across the configured
// endpoints), runs one SQL statement, prints the result set, and closes.
// Structure mirrors the teacher's cmd/dbbouncer entrypoint (flag parsing,
// signal-driven graceful shutdown, optional hot-reload watcher), reworked
// from a long-lived proxy server into a one-shot client with an optional
// long-lived inspect/metrics HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mysqlxp/xproto"
	"github.com/mysqlxp/xproto/internal/api"
	"github.com/mysqlxp/xproto/internal/config"
	"github.com/mysqlxp/xproto/internal/health"
	"github.com/mysqlxp/xproto/internal/metrics"
)

func main() {
	configPath := flag.String("config", "configs/xproto-ping.yaml", "path to configuration file")
	statement := flag.String("statement", "SELECT 1", "SQL statement to execute after connecting")
	flag.Parse()

	slog.Info("xproto-ping starting")

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("configuration loaded", "path", *configPath, "endpoints", len(cfg.Endpoints))

	m := metrics.New()

	sessionProps := cfg.SessionProperties()
	sessionProps.Metrics = m

	endpoints := sessionProps.Endpoints
	hc := health.NewChecker(endpoints, m, health.Config{
		Interval:          30 * time.Second,
		FailureThreshold:  3,
		ConnectionTimeout: cfg.ConnectTimeout,
	})
	hc.Start()

	holder := &sessionHolder{}

	var apiServer *api.Server
	if cfg.InspectHTTP != "" {
		apiServer = api.NewServer(holder, hc, m)
		if err := apiServer.Start(cfg.InspectHTTP); err != nil {
			slog.Error("failed to start inspect server", "err", err)
			os.Exit(1)
		}
		slog.Info("inspect server listening", "addr", cfg.InspectHTTP)
	}

	var configWatcher *config.Watcher
	configWatcher, err = config.NewWatcher(*configPath, func(newCfg *config.Config) {
		slog.Info("configuration reloaded", "path", *configPath)
	})
	if err != nil {
		slog.Warn("config hot-reload not available", "err", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	start := time.Now()
	sess, err := xproto.Connect(ctx, sessionProps)
	m.ConnectCompleted(time.Since(start), err == nil)
	if err != nil {
		slog.Error("connect failed", "err", err)
		shutdown(configWatcher, apiServer, hc)
		os.Exit(1)
	}
	holder.set(sess)
	slog.Info("session ready", "host", sess.Inspect().Host, "port", sess.Inspect().Port)

	if err := runStatement(sess, *statement, m); err != nil {
		slog.Error("statement failed", "err", err)
		sess.Close()
		shutdown(configWatcher, apiServer, hc)
		os.Exit(1)
	}

	if cfg.InspectHTTP == "" {
		sess.Close()
		shutdown(configWatcher, apiServer, hc)
		slog.Info("xproto-ping done")
		return
	}

	// With an inspect server running, stay up as a long-lived daemon until
	// a shutdown signal arrives.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	sess.Close()
	shutdown(configWatcher, apiServer, hc)
	slog.Info("xproto-ping stopped")
}

func runStatement(sess *xproto.Session, statement string, m *metrics.Collector) error {
	start := time.Now()
	stream, err := sess.Submit(xproto.TypeSQLStmtExecute, []byte(statement))
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	var rows int
	err = stream.ForEach(
		func(msg xproto.Message) {
			rows++
			m.StreamRow()
			fmt.Printf("row: %x\n", msg.Payload)
		},
		func(msg xproto.Message) {
			fmt.Printf("meta: %s\n", xproto.MessageName(msg.Direction, msg.Type))
		},
		func(msg xproto.Message) {
			fmt.Printf("notice: %s\n", xproto.MessageName(msg.Direction, msg.Type))
		},
	)
	m.StreamCompleted(time.Since(start), err == nil)
	if err != nil {
		return fmt.Errorf("stream: %w", err)
	}

	fmt.Printf("statement completed, %d rows\n", rows)
	return nil
}

func shutdown(cw *config.Watcher, apiServer *api.Server, hc *health.Checker) {
	if cw != nil {
		cw.Stop()
	}
	if apiServer != nil {
		apiServer.Stop()
	}
	hc.Stop()
}

// sessionHolder adapts a *xproto.Session to api.SessionSource, guarding
// against the session not yet existing (or having been replaced) with a
// mutex rather than exposing mutation directly to the api package.
type sessionHolder struct {
	mu   sync.Mutex
	sess *xproto.Session
}

func (h *sessionHolder) set(s *xproto.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sess = s
}

func (h *sessionHolder) Inspect() (xproto.Inspection, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sess == nil || h.sess.IsClosed() {
		return xproto.Inspection{}, false
	}
	return h.sess.Inspect(), true
}
