// Package commands implements the hxsite command line.
//
// Sites embed it in their own binary so the template engine holding their
// compiled pages is available to the build:
//
//	func main() {
//	    eng := templengine.New()
//	    pages.Register(eng)
//	    os.Exit(commands.Execute(eng, os.Args[1:]))
//	}
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pthm/hxsite/lib/engine"
	"github.com/pthm/hxsite/lib/metrics"
	"github.com/pthm/hxsite/lib/site"
)

// Version is set at build time.
var Version = "0.1.0"

// Global carries what subcommands share.
type Global struct {
	Engine   engine.Engine
	Logger   *slog.Logger
	Registry *prometheus.Registry
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"hxsite.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Render every page"`
	Rebuild RebuildCmd `cmd:"" help:"Render only the pages affected by changed files"`
	State   StateCmd   `cmd:"" help:"Inspect the saved dependency graph"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	g.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(g.Logger)
	return nil
}

// Execute parses args and runs the selected command with eng. It returns
// the process exit code.
func Execute(eng engine.Engine, args []string) int {
	var cli CLI
	g := &Global{Engine: eng, Registry: prometheus.NewRegistry()}

	parser, err := kong.New(&cli,
		kong.Name("hxsite"),
		kong.Description("Build static sites from templ components with bundled CSS and JS."),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
		kong.Bind(g),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		parser.FatalIfErrorf(err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	kctx.BindTo(ctx, (*context.Context)(nil))

	if err := kctx.Run(&cli); err != nil {
		slog.Error("Command failed", "error", err)
		return 1
	}
	return 0
}

func (g *Global) open(root *CLI) (*site.Site, error) {
	cfg, err := site.LoadConfig(root.Config)
	if err != nil {
		return nil, err
	}
	return site.New(*cfg, g.Engine,
		site.WithLogger(g.Logger),
		site.WithRecorder(metrics.NewPrometheusRecorder(g.Registry)),
	)
}
