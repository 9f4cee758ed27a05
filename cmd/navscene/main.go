// Package main is the headless navscene editor host. It reads JSON commands
// from stdin, one per line, and writes JSON notifications to stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/navscene/internal/bridge"
	"github.com/Faultbox/navscene/internal/config"
	"github.com/Faultbox/navscene/internal/editor"
	"github.com/Faultbox/navscene/internal/importer"
	"github.com/Faultbox/navscene/internal/logger"
	"github.com/Faultbox/navscene/internal/scene"
)

var flagTick = flag.Duration("tick", 16*time.Millisecond, "Editor tick interval")

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Console logs go to stderr, stdout is reserved for notifications
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== navscene ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	importCfg, err := importer.ConfigFrom(cfg.Import)
	if err != nil {
		logger.Error("invalid import settings", zap.Error(err))
		os.Exit(1)
	}

	notifier := bridge.NewNotifier(os.Stdout)
	opts := editor.OptionsFrom(cfg)
	opts.OnEvent = notifier.Notify

	ed := editor.New(scene.New(), importer.New(importCfg), opts)
	dispatcher := bridge.NewDispatcher(ed)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = bridge.Serve(ctx, os.Stdin, dispatcher, notifier, ed, *flagTick)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("host loop stopped", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("host closed normally", zap.Int("objects", ed.Scene().Len()))
}
