package hxsite

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/pthm/hxsite/lib/bundle"
	"github.com/pthm/hxsite/lib/components"
	"github.com/pthm/hxsite/lib/engine"
	"github.com/pthm/hxsite/lib/incremental"
	"github.com/pthm/hxsite/lib/logfields"
	"github.com/pthm/hxsite/lib/metrics"
)

// Defaults for Options.
const (
	DefaultFormat    = "templ"
	DefaultCSSFilter = "bundledCss"
	DefaultJSFilter  = "bundledJs"

	// TransformHost is the page transform that renders embedded content
	// through the host in another syntax.
	TransformHost = "host"
)

// Filters names the filters exposing bundled code to other template
// languages. An empty name skips that filter.
type Filters struct {
	CSS string `yaml:"css"`
	JS  string `yaml:"js"`
}

// Options configures a Plugin.
type Options struct {
	// Engine compiles templates. Required.
	Engine engine.Engine

	// Format is the template format (file extension) registered with the
	// host. Defaults to DefaultFormat.
	Format string

	// Root is the project root component globs resolve against.
	// Defaults to ".".
	Root string

	// Components are project-root relative globs of components available to
	// every page.
	Components []string

	// Filters names the CSS and JS filters.
	Filters Filters

	// Before runs for every page render before setup.
	Before func(ctx context.Context, page engine.Page) error

	Logger   *slog.Logger
	Recorder metrics.Recorder
}

// DefaultOptions returns options with the default format and filter names.
func DefaultOptions(eng engine.Engine) Options {
	return Options{
		Engine: eng,
		Format: DefaultFormat,
		Root:   ".",
		Filters: Filters{
			CSS: DefaultCSSFilter,
			JS:  DefaultJSFilter,
		},
	}
}

// Plugin integrates a component engine with a Host.
//
// A Plugin holds one Session for the whole process; every build resets it
// through BeforeBuild before any page compiles.
type Plugin struct {
	opts     Options
	session  *Session
	tracker  *incremental.Tracker
	resolver *components.Resolver
	logger   *slog.Logger
	recorder metrics.Recorder

	mu            sync.RWMutex
	host          Host
	componentsMap engine.ComponentsMap
	componentsKey string
	helpers       engine.Helpers
}

// New creates a Plugin.
func New(opts Options) (*Plugin, error) {
	if opts.Engine == nil {
		return nil, ErrNoEngine
	}
	if opts.Format == "" {
		opts.Format = DefaultFormat
	}
	if opts.Root == "" {
		opts.Root = "."
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}

	return &Plugin{
		opts:     opts,
		session:  NewSession(),
		tracker:  incremental.New(opts.Engine),
		resolver: components.NewResolver(opts.Root),
		logger:   opts.Logger.With(logfields.Format(opts.Format)),
		recorder: opts.Recorder,
		helpers:  NewRegistry().Helpers(),
	}, nil
}

// Session returns the plugin's build session.
func (p *Plugin) Session() *Session {
	return p.session
}

// Tracker returns the plugin's incremental tracker.
func (p *Plugin) Tracker() *incremental.Tracker {
	return p.tracker
}

// Format returns the registered template format.
func (p *Plugin) Format() string {
	return p.opts.Format
}

// Register wires the plugin into host.
func (p *Plugin) Register(host Host) {
	p.mu.Lock()
	p.host = host
	p.mu.Unlock()

	host.OnBeforeBuild(p.BeforeBuild)
	host.OnLayouts(p.LayoutsResolved)
	host.AddTemplateFormat(p.opts.Format, p.Extension())

	if p.opts.Filters.CSS != "" {
		host.AddFilter(p.opts.Filters.CSS, p.CSS)
	}
	if p.opts.Filters.JS != "" {
		host.AddFilter(p.opts.Filters.JS, p.JS)
	}
}

// BeforeBuild resets the session and reloads the components map and the
// helpers. It must complete before any page of the build compiles.
func (p *Plugin) BeforeBuild(ctx context.Context) error {
	p.session.Reset()

	var (
		cm  engine.ComponentsMap
		err error
	)
	if len(p.opts.Components) > 0 {
		cm, err = p.resolver.Map(p.opts.Components...)
		if err != nil {
			return err
		}
	}

	p.mu.RLock()
	host := p.host
	p.mu.RUnlock()

	reg := NewRegistry()
	if host != nil {
		fns := make(map[string]any)
		for name, fn := range host.Functions() {
			if isBuiltinHelper(name) {
				p.logger.WarnContext(ctx, "Host function shadows built-in helper; keeping built-in", logfields.Helper(name))
				continue
			}
			fns[name] = fn
		}
		reg.Add(fns)
	}

	p.mu.Lock()
	p.componentsMap = cm
	p.componentsKey = components.Key(cm)
	p.helpers = reg.Helpers()
	p.mu.Unlock()

	p.logger.DebugContext(ctx, "Build session reset",
		logfields.Count(len(cm)),
		slog.Int("helpers", len(reg.Names())))
	return nil
}

func isBuiltinHelper(name string) bool {
	switch name {
	case HelperGetCss, HelperGetCSS, HelperGetJs, HelperGetJS:
		return true
	}
	return false
}

// LayoutsResolved records layout usage for incremental matching.
func (p *Plugin) LayoutsResolved(layouts map[string][]string) {
	p.tracker.SetLayouts(layouts)
}

// CSS is the CSS filter: the bundled CSS of a page for bucket.
func (p *Plugin) CSS(pageURL string, bucket ...string) string {
	return p.session.CSS(pageURL, bucket...)
}

// JS is the JS filter: the bundled JS of a page for bucket.
func (p *Plugin) JS(pageURL string, bucket ...string) string {
	return p.session.JS(pageURL, bucket...)
}

// Extension returns the host-facing description of the template format.
func (p *Plugin) Extension() Extension {
	return Extension{
		OutputFileExtension: "html",
		IsIncrementalMatch:  p.IsIncrementalMatch,
		CacheKey:            p.CacheKey,
		Permalink:           p.Permalink,
		Compile:             p.Compile,
	}
}

// IsIncrementalMatch reports whether a change to changedPath requires the
// template at inputPath to rebuild, through layout or component usage.
func (p *Plugin) IsIncrementalMatch(inputPath, changedPath string) bool {
	return p.tracker.IsIncrementalMatch(inputPath, changedPath)
}

// CacheKey hashes the template contents, its path and the global
// components map, so a change to the components map recompiles everything.
func (p *Plugin) CacheKey(contents, inputPath string) string {
	p.mu.RLock()
	key := p.componentsKey
	p.mu.RUnlock()

	h := blake3.New()
	for _, part := range []string{contents, inputPath, key} {
		fmt.Fprintf(h, "%d:", len(part))
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Permalink returns the engine's permalink function for a template, or nil
// when the engine does not compute permalinks.
func (p *Plugin) Permalink(contents, inputPath string) PermalinkFunc {
	pl, ok := p.opts.Engine.(engine.Permalinker)
	if !ok {
		return nil
	}
	return func(ctx context.Context, data engine.Data) (string, error) {
		return pl.Permalink(ctx, contents, inputPath, data)
	}
}

// Compile creates the engine page for a template and returns its render
// function. Each render compiles the page fully, stores its fragments and
// only then substitutes asset markers.
func (p *Plugin) Compile(_ context.Context, contents, inputPath string) (RenderFunc, error) {
	page, err := p.tracker.Add(contents, inputPath)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", inputPath, err)
	}

	p.mu.RLock()
	cm, helpers := p.componentsMap, p.helpers
	p.mu.RUnlock()

	if len(cm) > 0 {
		page.DefineComponents(cm)
	}
	page.SetHelpers(helpers)
	page.SetTransform(TransformHost, p.hostTransform)

	return func(ctx context.Context, data engine.Data) (string, error) {
		start := time.Now()
		html, err := p.render(ctx, page, inputPath, data)
		p.recorder.ObserveRender(p.opts.Format, time.Since(start), metrics.Result(err))
		return html, err
	}, nil
}

func (p *Plugin) render(ctx context.Context, page engine.Page, inputPath string, data engine.Data) (string, error) {
	rd, err := decodeRenderData(data)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", inputPath, err)
	}
	log := p.logger.With(logfields.PageURL(rd.Page.URL), logfields.InputPath(inputPath))

	opts := engine.SetupOptions{Data: data}
	if len(rd.Settings.Components) > 0 {
		base := rd.Page.InputPath
		if base == "" {
			base = inputPath
		}
		globs := make([]string, 0, len(rd.Settings.Components))
		for _, g := range rd.Settings.Components {
			glob, err := components.RelativeGlob(base, g)
			if err != nil {
				return "", fmt.Errorf("render %s: %w", inputPath, err)
			}
			globs = append(globs, glob)
		}
		opts.Components, err = p.resolver.Map(globs...)
		if err != nil {
			return "", fmt.Errorf("render %s: %w", inputPath, err)
		}
	}

	if p.opts.Before != nil {
		if err := p.opts.Before(ctx, page); err != nil {
			return "", err
		}
	}

	setup, err := page.Setup(ctx, opts)
	if err != nil {
		return "", err
	}
	art, err := setup.Serializer.Compile(ctx, setup.AST)
	if err != nil {
		log.DebugContext(ctx, "Compile failed", logfields.Error(err))
		return "", err
	}
	p.tracker.AddSetup(inputPath, setup)

	// Every fragment of the page is stored before any marker is replaced.
	compiled, err := p.session.Commit(rd.Page.URL, art)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", inputPath, err)
	}
	p.recorder.AddFragments(bundle.KindCSS, compiled.counts[0])
	p.recorder.AddFragments(bundle.KindJS, compiled.counts[1])

	html, err := p.session.Bundle(compiled)
	if err != nil {
		return "", err
	}
	log.DebugContext(ctx, "Rendered page",
		slog.Int("css_fragments", compiled.counts[0]),
		slog.Int("js_fragments", compiled.counts[1]))
	return html, nil
}

// hostTransform renders embedded content through the host.
func (p *Plugin) hostTransform(ctx context.Context, content, syntax string, data engine.Data) (string, error) {
	if syntax == "" {
		return content, nil
	}

	p.mu.RLock()
	host := p.host
	p.mu.RUnlock()

	r, ok := host.(StringRenderer)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoRenderer, syntax)
	}
	return r.RenderString(ctx, content, syntax, data)
}
