package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/tabhost/internal/api"
	"github.com/dgnsrekt/tabhost/internal/config"
	"github.com/dgnsrekt/tabhost/internal/engine/cdpweb"
	"github.com/dgnsrekt/tabhost/internal/host"
	"github.com/dgnsrekt/tabhost/internal/inspector"
	"github.com/dgnsrekt/tabhost/internal/ipc"
	"github.com/dgnsrekt/tabhost/internal/netutil"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}
	logger := slog.Default()

	slog.Info("tab host config loaded",
		"socket_path", cfg.SocketPath,
		"web_enabled", cfg.WebEnabled(),
		"cdp_url", cfg.GetCDPURL(),
		"debug_api", cfg.DebugAPI,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	h := host.New(host.Options{
		Panel:            ipc.PanelState{Enabled: cfg.PanelEnabled, Width: cfg.PanelWidth},
		ClosedTabHistory: cfg.ClosedTabHistory,
		EngineTimeout:    time.Duration(cfg.EngineTimeoutMS) * time.Millisecond,
		Logger:           logger,
	})

	if cfg.WebEnabled() {
		sender := fmt.Sprintf("PID:%d", os.Getpid())
		web := cdpweb.New(cfg.GetCDPURL(), cfg.GetCDPURL(), sender, h, logger)
		if err := web.Connect(context.Background()); err != nil {
			slog.Error("failed to connect web engine", "cdp_url", cfg.GetCDPURL(), "error", err)
			os.Exit(1)
		}
		defer func() { _ = web.Close() }()

		mux := inspector.NewMux(web.Bridge(), cfg.InspectorQueueCap, logger)
		h.AttachWeb(web, web, mux)
	}

	srv, err := ipc.NewServer(cfg.SocketPath, h, logger)
	if err != nil {
		slog.Error("failed to bind socket", "path", cfg.SocketPath, "error", err)
		os.Exit(1)
	}

	closeCh := make(chan struct{}, 1)
	srv.OnCloseHost = func() {
		select {
		case closeCh <- struct{}{}:
		default:
		}
	}

	go func() {
		slog.Info("host listening", "socket", srv.Path())
		if err := srv.Serve(); err != nil {
			slog.Error("socket server failed", "error", err)
			os.Exit(1)
		}
	}()

	var debugSrv *http.Server
	if cfg.DebugAPI {
		bindAddr, err := netutil.SelectBindAddr(cfg.DebugAPIBind, cfg.DebugAPICandidates, cfg.DebugAPIFallback)
		if err != nil {
			slog.Error("failed to select debug API bind address", "preferred", cfg.DebugAPIBind, "error", err)
			os.Exit(1)
		}
		debugSrv = &http.Server{Addr: bindAddr, Handler: api.NewServer(h, logger)}
		go func() {
			slog.Info("debug API listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
			if err := debugSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("debug API server failed", "error", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info("shutting down on signal", "signal", sig.String())
	case <-closeCh:
		slog.Info("shutting down, last tab closed")
	}

	if err := srv.Close(); err != nil {
		slog.Warn("socket close failed", "error", err)
	}
	if debugSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := debugSrv.Shutdown(ctx); err != nil {
			slog.Error("debug API shutdown failed", "error", err)
		}
	}
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
