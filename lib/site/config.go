package site

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/pthm/hxsite"
)

// Config defaults.
const (
	DefaultInput     = "."
	DefaultOutput    = "_site"
	DefaultStateFile = ".hxsite/state"
	DefaultStateKey  = "hxsite"
)

// Config is the site configuration, usually loaded from hxsite.yaml:
//
//	input: src
//	output: _site
//	components:
//	  - _components/**/*.templ
//	layouts:
//	  _layouts/base.templ: [index.templ, about.templ]
//	data:
//	  title: My site
type Config struct {
	// Input is the directory pages and components are discovered in.
	Input string `yaml:"input"`

	// Output is the directory rendered pages are written to.
	Output string `yaml:"output"`

	// Format is the template format of pages. Defaults to "templ".
	Format string `yaml:"format"`

	// Components are input-relative globs of components available to
	// every page.
	Components []string `yaml:"components"`

	// Filters names the bundled-code filters.
	Filters *hxsite.Filters `yaml:"filters"`

	// Ignore lists input-relative globs never rendered as pages. Paths
	// with a segment starting with "_" or "." are always ignored.
	Ignore []string `yaml:"ignore"`

	// Layouts maps layout files to the pages using them.
	Layouts map[string][]string `yaml:"layouts"`

	// Data is passed to every page, under the page data.
	Data map[string]any `yaml:"data"`

	// Concurrency bounds the pages rendered at once. Defaults to the
	// number of CPUs.
	Concurrency int `yaml:"concurrency"`

	// StateFile stores the dependency graph between runs, relative to
	// Input. Set to "-" to disable.
	StateFile string `yaml:"state_file"`

	// StateKey keys the state checksum.
	StateKey string `yaml:"state_key"`
}

// LoadConfig reads a yaml config file and applies defaults.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	cfg, err := ParseConfig(f)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes a yaml config and applies defaults. Unknown fields
// are rejected.
func ParseConfig(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Input == "" {
		c.Input = DefaultInput
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.Format == "" {
		c.Format = hxsite.DefaultFormat
	}
	if c.Filters == nil {
		c.Filters = &hxsite.Filters{
			CSS: hxsite.DefaultCSSFilter,
			JS:  hxsite.DefaultJSFilter,
		}
	}
	if c.Concurrency <= 0 {
		c.Concurrency = runtime.NumCPU()
	}
	if c.StateFile == "" {
		c.StateFile = DefaultStateFile
	}
	if c.StateKey == "" {
		c.StateKey = DefaultStateKey
	}
}

// Validate checks the config for values the build cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if filepath.Clean(c.Input) == filepath.Clean(c.Output) {
		errs = append(errs, fmt.Errorf("%w: input and output are the same directory", ErrInvalidConfig))
	}
	if c.Format == "md" || c.Format == "html" {
		errs = append(errs, fmt.Errorf("%w: format %q is reserved for nested content", ErrInvalidConfig, c.Format))
	}
	return errors.Join(errs...)
}

// StatePath returns the state file location, or "" when state is
// disabled.
func (c *Config) StatePath() string {
	if c.StateFile == "-" {
		return ""
	}
	if filepath.IsAbs(c.StateFile) {
		return c.StateFile
	}
	return filepath.Join(c.Input, c.StateFile)
}
