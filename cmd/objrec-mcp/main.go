package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/object-recognition-mcp/internal/config"
	"github.com/ironsheep/object-recognition-mcp/internal/fsutil"
	"github.com/ironsheep/object-recognition-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("%s %s\n", server.ServerName, Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("objrec-mcp - MCP server for single-object recognition")
			fmt.Println()
			fmt.Println("Usage: objrec-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  OBJREC_LOG_LEVEL=debug         Log level (debug, info, warn, error)")
			fmt.Println("  OBJREC_CONFIG=/path/tune.json  Detection and matching tuning file")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			return
		}
	}

	log := initLogger(os.Getenv("OBJREC_LOG_LEVEL"))

	cfg, err := config.LoadFromEnv(fsutil.OSFileSystem{})
	if err != nil {
		log.WithError(err).Fatal("failed to load tuning config")
	}

	log.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"commit":     GitCommit,
		"feature_db": cfg.GetFeatureDB(),
	}).Debug("starting server")

	srv := server.New(cfg, server.WithLogger(log))
	if err := srv.Run(); err != nil {
		log.WithError(err).Fatal("server error")
	}
}

// initLogger writes to stderr; stdout carries the protocol.
func initLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}
