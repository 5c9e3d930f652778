package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/betbot/typedsig/internal/server"
	"github.com/betbot/typedsig/pkg/config"
	"github.com/betbot/typedsig/pkg/keysource"
	"github.com/betbot/typedsig/pkg/logger"
	"github.com/betbot/typedsig/pkg/shutdown"
)

func main() {
	// Load .env (best-effort). If missing, fall back to real env vars.
	if err := config.LoadEnv(); err != nil {
		fatal(err)
	}

	var (
		listenAddr = flag.String("listen", getenv("TYPEDSIG_LISTEN", ":8080"), "HTTP listen address")
		keySource  = flag.String("key-source", getenv("TYPEDSIG_KEY_SOURCE", "auto"), "key source for /sign: auto, none, hex, secretstore, mnemonic, mnemonic-file")
		logLevel   = flag.String("log-level", getenv("TYPEDSIG_LOG_LEVEL", "info"), "log level")
		logFile    = flag.String("log-file", getenv("TYPEDSIG_LOG_FILE", ""), "log file (rotated)")
		logJSON    = flag.Bool("log-json", false, "JSON log format")
	)
	flag.Parse()

	if err := logger.Init(logger.Config{
		Level:      *logLevel,
		OutputFile: *logFile,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
		Compress:   true,
		JSON:       *logJSON,
	}); err != nil {
		fatal(err)
	}
	if f := logger.GetCurrentLogFile(); f != "" {
		logger.Infof("log file: %s", f)
	}

	cfg := server.Config{}
	if !strings.EqualFold(*keySource, "none") {
		if err := keysource.DisableCoreDumps(); err != nil {
			logger.Warnf("disable core dumps: %v", err)
		}
		kind, err := keysource.ParseKind(*keySource)
		if err != nil {
			fatal(err)
		}
		spec := keysource.FromEnv(kind)
		key, err := keysource.Resolve(context.Background(), spec)
		switch {
		case err == nil:
			cfg.Signer = key
		case kind == keysource.KindAuto:
			// 自动模式下没有配置私钥时只提供 hash/verify
			logger.Warnf("no signing key configured, /sign disabled: %v", err)
		default:
			fatal(err)
		}
	}

	srv, err := server.New(cfg)
	if err != nil {
		fatal(err)
	}
	if addr, ok := srv.SignerAddress(); ok {
		logger.Infof("signer %s", addr.Hex())
	}

	httpSrv := &http.Server{
		Addr:              *listenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdowns := shutdown.NewManager()
	shutdowns.OnShutdown("http", httpSrv.Shutdown)

	go func() {
		logger.Infof("typedsig server listening on %s", *listenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("http server error: %v", err)
			os.Exit(1)
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	<-stopCh

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	shutdowns.Shutdown(ctx)

	logger.Infof("server stopped")
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
