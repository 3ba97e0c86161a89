package commands

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Metrics string `help:"Write build metrics to this file in Prometheus text format"`
}

func (b *BuildCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	s, err := g.open(root)
	if err != nil {
		return err
	}
	res, err := s.Build(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Rendered %d pages to %s in %s\n", len(res.Pages), s.Config().Output, res.Duration)

	if b.Metrics != "" {
		if err := prometheus.WriteToTextfile(b.Metrics, g.Registry); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

// RebuildCmd implements the 'rebuild' command.
type RebuildCmd struct {
	Changed []string `arg:"" help:"Changed files, relative to the input directory"`
}

func (r *RebuildCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	s, err := g.open(root)
	if err != nil {
		return err
	}
	res, err := s.Rebuild(ctx, r.Changed...)
	if err != nil {
		return err
	}
	for _, p := range res.Pages {
		fmt.Printf("%s -> %s\n", p.InputPath, p.URL)
	}
	return nil
}
