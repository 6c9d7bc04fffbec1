// Command houdinimcpd runs the bridge's command server against an in-memory
// scene. It exists for developing and exercising the relay without a running
// Houdini session; inside Houdini the embedded plugin drives bridge.Server
// from the UI timer instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nemurigi/houdini-mcp/bridge"
	"github.com/nemurigi/houdini-mcp/config"
	"github.com/nemurigi/houdini-mcp/logger"
	"github.com/nemurigi/houdini-mcp/scene"
)

func main() {
	host := flag.String("host", "", "listen host (overrides config)")
	port := flag.Int("port", 0, "listen port (overrides config)")
	debug := flag.Bool("debug", false, "enable debug logging")
	assetLib := flag.Bool("assetlib", false, "enable asset library commands")
	flag.Parse()

	if err := run(*host, *port, *debug, *assetLib); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(host string, port int, debug, assetLib bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if host != "" {
		cfg.Host = host
	}
	if port != 0 {
		cfg.Port = port
	}
	if debug {
		cfg.Debug = true
	}
	if assetLib {
		cfg.AssetLibrary = true
	}

	sess := bridge.NewSession(cfg.AssetLibrary)

	logPath := cfg.LogPath
	if logPath == "" {
		logPath, err = logger.ServerLogPath(sess.ID)
		if err != nil {
			return err
		}
	}
	if err := logger.Init(logPath); err != nil {
		return err
	}
	defer logger.Close()
	logger.SetDebug(cfg.Debug)

	logger.WithSession(sess.ID).Info("dev server starting",
		"addr", cfg.Addr(), "assetLibrary", cfg.AssetLibrary)
	fmt.Printf("houdinimcpd listening on %s (logs: %s)\n", cfg.Addr(), logPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return bridge.NewServer(cfg, scene.NewMemScene(), sess).Run(ctx)
}
