// Package main is the entry point of the gostatic server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Tyrowin/gostatic/internal/server"
)

// Exit codes.
const (
	exitOK = iota
	exitConfig
	exitBind
	exitServe
)

type options struct {
	configFile string
	host       string
	port       int
	backlog    int
	debug      bool
	images     string
	scripts    string
	styles     string
	index      string
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	var opts options
	flags := flag.NewFlagSet("gostatic", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&opts.configFile, "config", "", "path to a YAML configuration file")
	flags.StringVar(&opts.host, "host", "localhost", "address to bind")
	flags.IntVar(&opts.port, "port", 8080, "port to listen on")
	flags.IntVar(&opts.backlog, "backlog", 5, "maximum connections handled at once")
	flags.BoolVar(&opts.debug, "debug", true, "enable debug logging")
	flags.StringVar(&opts.images, "images", "", "directory of images to serve (default ./images)")
	flags.StringVar(&opts.scripts, "scripts", "", "directory of scripts to serve (default ./scripts)")
	flags.StringVar(&opts.styles, "styles", "", "directory of stylesheets to serve (default ./styles)")
	flags.StringVar(&opts.index, "index", "", "landing page served at / (default ./index.html)")
	if err := flags.Parse(args); err != nil {
		return exitConfig
	}

	cfg, err := server.Load(opts.configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return exitConfig
	}

	// Command-line flags take precedence, but only when given explicitly.
	flags.Visit(func(f *flag.Flag) {
		opts.apply(cfg, f.Name)
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Invalid configuration: %v\n", err)
		return exitConfig
	}

	logger := server.NewLogger(cfg.DebugLogging, stderr)
	logger.Info().Msgf("Starting server on %s", cfg.Address())
	logger.Debug().Msg("debug mode is on")

	registry := server.SetupRoutes(cfg.Site, logger)
	srv := server.New(cfg, registry, logger)

	if err := srv.Start(ctx); err != nil {
		var bindErr *server.BindError
		if errors.As(err, &bindErr) {
			logger.Error().Err(bindErr.Err).Str("address", bindErr.Address).
				Msg("could not open listening socket, is another process using the port?")
			return exitBind
		}
		logger.Error().Err(err).Msg("server stopped")
		return exitServe
	}
	return exitOK
}

func (o *options) apply(cfg *server.Config, name string) {
	switch name {
	case "host":
		cfg.Host = o.host
	case "port":
		cfg.Port = o.port
	case "backlog":
		cfg.ListenBacklog = o.backlog
	case "debug":
		cfg.DebugLogging = o.debug
	case "images":
		cfg.Site.ImagesDir = o.images
	case "scripts":
		cfg.Site.ScriptsDir = o.scripts
	case "styles":
		cfg.Site.StylesDir = o.styles
	case "index":
		cfg.Site.IndexFile = o.index
	}
}
