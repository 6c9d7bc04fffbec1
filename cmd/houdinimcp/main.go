// Command houdinimcp is the stdio MCP front end for the Houdini bridge. An
// MCP client launches it and speaks JSON-RPC over stdin/stdout; tool calls
// are relayed over TCP to the command server running inside Houdini.
package main

import (
	"fmt"
	"os"

	"github.com/nemurigi/houdini-mcp/bridge"
	"github.com/nemurigi/houdini-mcp/config"
	"github.com/nemurigi/houdini-mcp/logger"
	"github.com/nemurigi/houdini-mcp/mcp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logPath := cfg.LogPath
	if logPath == "" {
		logPath, err = logger.DefaultLogPath()
		if err != nil {
			return err
		}
	}
	if err := logger.Init(logPath); err != nil {
		return err
	}
	defer logger.Close()
	logger.SetDebug(cfg.Debug)

	log := logger.WithComponent("main")

	conn := bridge.NewConnection(cfg)
	defer conn.Disconnect()

	// A cold back end is a warning, not a failure; the relay redials on the
	// first tool call
	if conn.Connect() {
		log.Info("connected to Houdini on startup", "addr", cfg.Addr())
	} else {
		log.Warn("could not connect to Houdini; is the plugin running?", "addr", cfg.Addr())
	}

	return mcp.NewServer(os.Stdin, os.Stdout, conn).Run()
}
