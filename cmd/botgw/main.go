package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattjoyce/botgw/internal/config"
	"github.com/mattjoyce/botgw/internal/doctor"
	"github.com/mattjoyce/botgw/internal/listen"
	"github.com/mattjoyce/botgw/internal/lock"
	"github.com/mattjoyce/botgw/internal/log"
	"github.com/mattjoyce/botgw/internal/plugin"
	"github.com/mattjoyce/botgw/internal/plugins/bullshit"
	"github.com/mattjoyce/botgw/internal/plugins/chat"
	"github.com/mattjoyce/botgw/internal/plugins/fortune"
	"github.com/mattjoyce/botgw/internal/plugins/hello"
	"github.com/mattjoyce/botgw/internal/plugins/restart"
	"github.com/mattjoyce/botgw/internal/plugins/share"
	"github.com/mattjoyce/botgw/internal/queue"
	"github.com/mattjoyce/botgw/internal/router"
	"github.com/mattjoyce/botgw/internal/send"
	"github.com/mattjoyce/botgw/internal/storage"
	"github.com/mattjoyce/botgw/internal/worker"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "start":
		os.Exit(runStart(args))
	case "config":
		os.Exit(runConfigNoun(args))
	case "version":
		fmt.Printf("botgw version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`botgw - HTTP command gateway for an OneBot-compatible chat platform

Usage:
  botgw <command> [flags]

Commands:
  start         Start the gateway in the foreground
  config check  Validate the configuration file
  version       Show version information
  help          Show this help message

Flags:
  --config path   Configuration file (default ./config.yaml)
  --json          Emit the config check report as JSON
`)
}

func runConfigNoun(args []string) int {
	if len(args) < 1 || args[0] != "check" {
		fmt.Fprintln(os.Stderr, "Usage: botgw config check [--config path]")
		return 1
	}

	fs := flag.NewFlagSet("config check", flag.ExitOnError)
	configPath := fs.String("config", "./config.yaml", "path to config file")
	jsonOut := fs.Bool("json", false, "emit the report as JSON")
	_ = fs.Parse(args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config check failed: %v\n", err)
		return 1
	}

	result := doctor.New(cfg).Validate()
	if *jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config check failed: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	return 0
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "./config.yaml", "path to config file")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to start: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")

	if cfg.Service.LockPath != "" {
		pidLock, err := lock.Acquire(cfg.Service.LockPath)
		if err != nil {
			logger.Error("unable to start", "error", err)
			return 1
		}
		defer func() { _ = pidLock.Release() }()
		logger.Info("instance lock acquired", "path", pidLock.Path())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, cleanup, err := buildRegistry(ctx, cfg)
	if err != nil {
		logger.Error("unable to build plugin registry", "error", err)
		cleanup()
		return 1
	}
	defer cleanup()
	logger.Info("plugins registered", "order", registry.Names())

	q := queue.New()
	rtr := router.New(cfg, registry, send.New(cfg))
	pool := worker.New(q, rtr, cfg.Workers)
	// The pool deliberately does not share the signal context: workers run
	// until the queue closes, so events the listener accepts during its
	// shutdown window still drain before the process exits.
	pool.Start(context.Background())
	logger.Info("worker pool started", "workers", cfg.Workers)

	listener := listen.New(cfg.ListenAddr(), q, cfg.Workers)
	if err := listener.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("listener failed", "error", err)
		pool.Stop()
		return 1
	}

	// Graceful: stop accepting, drain what is queued, then exit.
	pool.Stop()
	logger.Info("shutdown complete")
	return 0
}

// buildRegistry assembles the ordered handler list. Order is fixed here and
// identical on every run; disabling a plugin removes it without disturbing
// the order of the rest.
func buildRegistry(ctx context.Context, cfg *config.Config) (*plugin.Registry, func(), error) {
	var handlers []plugin.Handler
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if cfg.Plugins.Hello.Enabled {
		handlers = append(handlers, hello.New())
	}

	if cfg.Plugins.Fortune.Enabled {
		db, err := storage.OpenSQLite(ctx, cfg.Plugins.Fortune.StatePath)
		if err != nil {
			return nil, cleanup, fmt.Errorf("open fortune state: %w", err)
		}
		cleanups = append(cleanups, func() { _ = db.Close() })

		f, err := fortune.New(ctx, db)
		if err != nil {
			return nil, cleanup, fmt.Errorf("init fortune plugin: %w", err)
		}
		handlers = append(handlers, f)
	}

	if cfg.Plugins.Restart.Enabled {
		db, err := storage.OpenSQLite(ctx, cfg.Plugins.Restart.StatePath)
		if err != nil {
			return nil, cleanup, fmt.Errorf("open restart state: %w", err)
		}
		cleanups = append(cleanups, func() { _ = db.Close() })

		r, err := restart.New(ctx, db)
		if err != nil {
			return nil, cleanup, fmt.Errorf("init restart plugin: %w", err)
		}
		handlers = append(handlers, r)
	}

	if cfg.Plugins.Bullshit.Enabled {
		handlers = append(handlers, bullshit.New(cfg.Plugins.Bullshit))
	}
	if cfg.Plugins.Chat.Enabled {
		handlers = append(handlers, chat.New(cfg.Plugins.Chat))
	}
	if cfg.Plugins.Share.Enabled {
		handlers = append(handlers, share.New(cfg.Plugins.Share))
	}

	return plugin.NewRegistry(handlers...), cleanup, nil
}
