package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ironsheep/blob-tracker-mcp/internal/config"
	"github.com/ironsheep/blob-tracker-mcp/internal/logger"
	"github.com/ironsheep/blob-tracker-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := defaultConfigPath()

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version", "-v", "version":
			fmt.Printf("blob-tracker-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printUsage()
			return
		case "--config", "-c":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--config requires a path")
				os.Exit(2)
			}
			i++
			configPath = args[i]
		default:
			fmt.Fprintf(os.Stderr, "unknown option %q\n\n", args[i])
			printUsage()
			os.Exit(2)
		}
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if lvl := os.Getenv("BLOB_MCP_LOG_LEVEL"); lvl != "" {
		cfg.Log.Level = lvl
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol, logs go to stderr
	var log logger.Logger
	if cfg.Log.Format == "console" {
		log = logger.NewConsoleLogger(level)
	} else {
		log = logger.NewZerolog(os.Stderr, level)
	}

	log.Info("main", "starting", map[string]interface{}{
		"version": Version,
		"built":   BuildTime,
		"commit":  GitCommit,
		"config":  configPath,
	})

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Error("main", err, map[string]interface{}{"op": "server setup"})
		os.Exit(1)
	}
	if err := srv.Run(); err != nil {
		log.Error("main", err, map[string]interface{}{"op": "serve"})
		os.Exit(1)
	}
}

// defaultConfigPath is config.yaml in the user's config directory, or in
// the working directory when that cannot be determined.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "blob-tracker-mcp", "config.yaml")
}

func printUsage() {
	fmt.Println("blob-tracker-mcp - MCP server for blob detection and tracking")
	fmt.Println()
	fmt.Println("Usage: blob-tracker-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config, -c PATH    Configuration file (default " + defaultConfigPath() + ")")
	fmt.Println("  --version, -v        Print version information")
	fmt.Println("  --help, -h           Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  BLOB_MCP_LOG_LEVEL=debug    Override log.level (debug, info, warning, error, off)")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}
