package commands

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm/hxsite/lib/encoding"
	"github.com/pthm/hxsite/lib/incremental"
	"github.com/pthm/hxsite/lib/site"
)

// StateCmd groups the state subcommands.
type StateCmd struct {
	Show  StateShowCmd  `cmd:"" help:"Print the dependency graph as yaml"`
	Match StateMatchCmd `cmd:"" help:"List the pages a change would rebuild"`
}

// StateShowCmd implements 'state show'.
type StateShowCmd struct{}

func (s *StateShowCmd) Run(root *CLI) error {
	tracker, err := loadTracker(root)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(tracker.Snapshot()); err != nil {
		return err
	}
	return enc.Close()
}

// StateMatchCmd implements 'state match'.
type StateMatchCmd struct {
	Changed []string `arg:"" help:"Changed files, relative to the input directory"`
}

func (s *StateMatchCmd) Run(root *CLI) error {
	tracker, err := loadTracker(root)
	if err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, c := range s.Changed {
		for _, p := range tracker.Dependents(c) {
			if !seen[p] {
				seen[p] = true
				fmt.Println(p)
			}
		}
	}
	return nil
}

func loadTracker(root *CLI) (*incremental.Tracker, error) {
	cfg, err := site.LoadConfig(root.Config)
	if err != nil {
		return nil, err
	}
	file := cfg.StatePath()
	if file == "" {
		return nil, fmt.Errorf("state is disabled in %s", root.Config)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	tracker := incremental.New(nil)
	if err := tracker.UnmarshalState(encoding.NewEncoder([]byte(cfg.StateKey)), data); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", file, err)
	}
	return tracker, nil
}
