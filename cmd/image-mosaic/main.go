package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/ironsheep/image-mosaic/internal/config"
	"github.com/ironsheep/image-mosaic/internal/mosaic"
	"github.com/ironsheep/image-mosaic/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("image-mosaic - build photo mosaics from a pool of tile images")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  image-mosaic [options] <source>   Compose a mosaic of <source>")
	fmt.Println("  image-mosaic index [options]      Build or load the tile index")
	fmt.Println("  image-mosaic serve [options]      Run the MCP server on stdin/stdout")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  version, --version    Print version information")
	fmt.Println("  help, --help, -h      Print this help message")
	fmt.Println()
	fmt.Println("Run 'image-mosaic <command> -h' to list the options.")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Printf("  %s            Source image\n", config.EnvSource)
	fmt.Printf("  %s          Tile pool directory (default %s)\n", config.EnvPoolDir, config.DefaultPoolDir)
	fmt.Printf("  %s        Tile index cache (default %s)\n", config.EnvCachePath, config.DefaultCachePath)
	fmt.Printf("  %s        Output directory (default %s)\n", config.EnvOutputDir, config.DefaultOutputDir)
	fmt.Printf("  %s         debug, info, warn or error\n", config.EnvLogLevel)
}

func main() {
	command, args := "compose", os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-version", "version":
			fmt.Printf("image-mosaic %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			usage()
			return
		case "compose", "index", "serve":
			command, args = args[0], args[1:]
		}
	}

	cfg, err := config.Load("image-mosaic "+command, args, os.Getenv, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Logs go to stderr; stdout carries the MCP protocol when serving.
	if err := config.SetupLogging(os.Stderr, cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log.WithFields(log.Fields{
		"version": Version,
		"built":   BuildTime,
		"commit":  GitCommit,
	}).Debug("image-mosaic starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "serve":
		server.Version = Version
		if err := server.New(cfg).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("Server error: %v", err)
		}

	case "index":
		idx, res, err := mosaic.EnsureIndex(ctx, cfg)
		if err != nil {
			log.Fatalf("Index error: %v", err)
		}
		fmt.Printf("%s: %d tiles in %d colors (%s)\n", cfg.CachePath, idx.NumTiles(), idx.Len(), res.Reason)

	default:
		res, err := mosaic.Run(ctx, cfg)
		if errors.Is(err, mosaic.ErrPartialResult) {
			log.WithError(err).Warnf("Wrote partial mosaic %s", res.OutputPath)
			os.Exit(1)
		}
		if err != nil {
			log.Fatalf("Mosaic error: %v", err)
		}
		fmt.Println(res.OutputPath)
	}
}
