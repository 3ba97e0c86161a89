// Package site is a small static-site host for hxsite.
//
// A Site discovers pages in its input directory, compiles them through the
// registered template formats and writes the bundled HTML to its output
// directory using pretty URLs:
//
//	eng := templengine.New()
//	eng.Register("index.templ", indexPage)
//
//	s, err := site.New(cfg, eng)
//	res, err := s.Build(ctx)
//
// Every build runs the before-build handlers to completion before any page
// compiles, so fragments of a previous build never leak into the next one.
package site

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/sync/errgroup"

	"github.com/pthm/hxsite"
	"github.com/pthm/hxsite/lib/encoding"
	"github.com/pthm/hxsite/lib/engine"
	"github.com/pthm/hxsite/lib/logfields"
	"github.com/pthm/hxsite/lib/metrics"
)

// Sentinel errors.
var (
	ErrInvalidConfig = errors.New("site: invalid config")
	ErrDuplicateURL  = errors.New("site: two pages render to the same url")
	ErrUnknownSyntax = errors.New("site: no renderer for syntax")
	ErrUnsafeURL     = errors.New("site: page url escapes the output directory")
)

// Option configures a Site.
type Option func(*Site)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Site) {
		s.logger = l
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Site) {
		s.recorder = r
	}
}

// WithFunctions adds template functions exposed to pages as helpers.
func WithFunctions(fns map[string]any) Option {
	return func(s *Site) {
		maps.Copy(s.funcs, fns)
	}
}

// WithBefore sets a hook run for every page before it renders.
func WithBefore(fn func(ctx context.Context, page engine.Page) error) Option {
	return func(s *Site) {
		s.before = fn
	}
}

// Page describes one rendered page.
type Page struct {
	InputPath  string `json:"input_path"`
	URL        string `json:"url"`
	OutputPath string `json:"output_path"`
}

// Result summarizes a build.
type Result struct {
	Pages    []Page
	Duration time.Duration
}

// Site is the build host. It implements hxsite.Host and
// hxsite.StringRenderer.
type Site struct {
	cfg      Config
	logger   *slog.Logger
	recorder metrics.Recorder
	funcs    map[string]any
	before   func(ctx context.Context, page engine.Page) error
	md       goldmark.Markdown
	plugin   *hxsite.Plugin
	encoder  *encoding.Encoder

	mu          sync.RWMutex
	formats     map[string]hxsite.Extension
	filters     map[string]hxsite.Filter
	beforeBuild []func(ctx context.Context) error
	layouts     []func(map[string][]string)
	compiled    map[string]hxsite.RenderFunc // map[cacheKey]render

	buildMu sync.Mutex
}

var (
	_ hxsite.Host           = (*Site)(nil)
	_ hxsite.StringRenderer = (*Site)(nil)
)

// New creates a Site rendering templates with eng and loads the saved
// dependency graph, if any.
func New(cfg Config, eng engine.Engine, opts ...Option) (*Site, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Site{
		cfg:      cfg,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		funcs:    make(map[string]any),
		md:       goldmark.New(goldmark.WithExtensions(extension.GFM)),
		encoder:  encoding.NewEncoder([]byte(cfg.StateKey)),
		formats:  make(map[string]hxsite.Extension),
		filters:  make(map[string]hxsite.Filter),
		compiled: make(map[string]hxsite.RenderFunc),
	}
	for _, opt := range opts {
		opt(s)
	}

	p, err := hxsite.New(hxsite.Options{
		Engine:     eng,
		Format:     cfg.Format,
		Root:       cfg.Input,
		Components: cfg.Components,
		Filters:    *cfg.Filters,
		Before:     s.before,
		Logger:     s.logger,
		Recorder:   s.recorder,
	})
	if err != nil {
		return nil, err
	}
	p.Register(s)
	s.plugin = p

	s.loadState()
	return s, nil
}

// Plugin returns the plugin registered with the site.
func (s *Site) Plugin() *hxsite.Plugin {
	return s.plugin
}

// Config returns the effective configuration.
func (s *Site) Config() Config {
	return s.cfg
}

func (s *Site) AddTemplateFormat(name string, ext hxsite.Extension) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.formats[name] = ext
}

func (s *Site) AddFilter(name string, fn hxsite.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters[name] = fn
}

func (s *Site) OnBeforeBuild(fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beforeBuild = append(s.beforeBuild, fn)
}

func (s *Site) OnLayouts(fn func(map[string][]string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layouts = append(s.layouts, fn)
}

func (s *Site) Functions() map[string]any {
	out := make(map[string]any, len(s.funcs)+len(s.filters))
	s.mu.RLock()
	for name, fn := range s.filters {
		out[name] = fn
	}
	s.mu.RUnlock()
	maps.Copy(out, s.funcs)
	return out
}

// Filter returns the filter registered as name.
func (s *Site) Filter(name string) (hxsite.Filter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn, ok := s.filters[name]
	return fn, ok
}

// RenderString renders Markdown with goldmark. HTML passes through.
func (s *Site) RenderString(_ context.Context, content, syntax string, _ engine.Data) (string, error) {
	switch syntax {
	case "", "html":
		return content, nil
	case "md", "markdown":
		var buf bytes.Buffer
		if err := s.md.Convert([]byte(content), &buf); err != nil {
			return "", fmt.Errorf("render markdown: %w", err)
		}
		return buf.String(), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSyntax, syntax)
	}
}

// Build renders every page.
func (s *Site) Build(ctx context.Context) (*Result, error) {
	return s.run(ctx, nil)
}

// Rebuild renders only the pages affected by the changed files: the
// changed pages themselves and every page using a changed layout or
// component.
func (s *Site) Rebuild(ctx context.Context, changed ...string) (*Result, error) {
	set := make(map[string]struct{}, len(changed))
	for _, c := range changed {
		set[cleanPath(c)] = struct{}{}
	}
	return s.run(ctx, set)
}

func (s *Site) run(ctx context.Context, changed map[string]struct{}) (*Result, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	start := time.Now()
	res, err := s.build(ctx, changed)
	d := time.Since(start)

	pages := 0
	if res != nil {
		res.Duration = d
		pages = len(res.Pages)
	}
	s.recorder.ObserveBuild(d, pages, metrics.Result(err))

	if err != nil {
		s.logger.ErrorContext(ctx, "Build failed", logfields.Duration(d), logfields.Error(err))
		return nil, err
	}
	s.logger.InfoContext(ctx, "Build complete",
		logfields.Count(pages),
		logfields.Duration(d),
		logfields.OutputPath(s.cfg.Output))
	return res, nil
}

func (s *Site) build(ctx context.Context, changed map[string]struct{}) (*Result, error) {
	// Every handler finishes before any page compiles.
	s.mu.RLock()
	hooks := slices.Clone(s.beforeBuild)
	layoutFns := slices.Clone(s.layouts)
	s.mu.RUnlock()

	for _, fn := range hooks {
		if err := fn(ctx); err != nil {
			return nil, fmt.Errorf("before build: %w", err)
		}
	}
	for _, fn := range layoutFns {
		fn(s.cfg.Layouts)
	}

	inputs, err := s.discover()
	if err != nil {
		return nil, err
	}

	jobs := make([]*job, 0, len(inputs))
	for _, in := range inputs {
		if changed != nil && !s.affected(in, changed) {
			continue
		}
		jobs = append(jobs, in)
	}
	s.logger.DebugContext(ctx, "Pages selected",
		slog.Int("discovered", len(inputs)),
		logfields.Count(len(jobs)))

	if err := s.compile(ctx, jobs); err != nil {
		return nil, err
	}
	if err := checkURLs(jobs); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, j := range jobs {
		g.Go(func() error {
			return s.renderPage(gctx, j)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.saveState(ctx)

	res := &Result{Pages: make([]Page, 0, len(jobs))}
	for _, j := range jobs {
		res.Pages = append(res.Pages, j.page)
	}
	return res, nil
}

// job is one page moving through the build.
type job struct {
	format string
	ext    hxsite.Extension
	page   Page
	render hxsite.RenderFunc
	data   engine.Data
}

func (s *Site) discover() ([]*job, error) {
	s.mu.RLock()
	formats := make(map[string]hxsite.Extension, len(s.formats))
	maps.Copy(formats, s.formats)
	s.mu.RUnlock()

	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)

	fsys := os.DirFS(s.cfg.Input)
	var jobs []*job
	for _, name := range names {
		matches, err := doublestar.Glob(fsys, "**/*."+name, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("discover %s pages: %w", name, err)
		}
		for _, m := range matches {
			if s.ignored(m) {
				continue
			}
			jobs = append(jobs, &job{
				format: name,
				ext:    formats[name],
				page:   Page{InputPath: m},
			})
		}
	}
	return jobs, nil
}

func (s *Site) ignored(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, "_") || strings.HasPrefix(seg, ".") {
			return true
		}
	}
	for _, pattern := range s.cfg.Ignore {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

func (s *Site) affected(j *job, changed map[string]struct{}) bool {
	if _, ok := changed[j.page.InputPath]; ok {
		return true
	}
	if j.ext.IsIncrementalMatch == nil {
		return false
	}
	for c := range changed {
		if j.ext.IsIncrementalMatch(j.page.InputPath, c) {
			return true
		}
	}
	return false
}

// compile reads, compiles and resolves the URL of every job. Compiled
// templates are reused while their cache key is unchanged.
func (s *Site) compile(ctx context.Context, jobs []*job) error {
	for _, j := range jobs {
		raw, err := os.ReadFile(filepath.Join(s.cfg.Input, filepath.FromSlash(j.page.InputPath)))
		if err != nil {
			return fmt.Errorf("read %s: %w", j.page.InputPath, err)
		}
		contents := string(raw)

		key := ""
		if j.ext.CacheKey != nil {
			key = j.format + ":" + j.ext.CacheKey(contents, j.page.InputPath)
		}

		s.mu.RLock()
		render, ok := s.compiled[key]
		s.mu.RUnlock()
		if !ok || key == "" {
			render, err = j.ext.Compile(ctx, contents, j.page.InputPath)
			if err != nil {
				return err
			}
			if key != "" {
				s.mu.Lock()
				s.compiled[key] = render
				s.mu.Unlock()
			}
		}
		j.render = render

		url := DefaultURL(j.page.InputPath)
		j.data = s.pageData(j.page.InputPath, url, "")
		if j.ext.Permalink != nil {
			if fn := j.ext.Permalink(contents, j.page.InputPath); fn != nil {
				link, err := fn(ctx, j.data)
				if err != nil {
					return fmt.Errorf("permalink %s: %w", j.page.InputPath, err)
				}
				if link != "" {
					url = link
				}
			}
		}

		out, err := OutputPath(url)
		if err != nil {
			return fmt.Errorf("%s: %w", j.page.InputPath, err)
		}
		j.page.URL = url
		j.page.OutputPath = filepath.Join(s.cfg.Output, out)
		j.data = s.pageData(j.page.InputPath, url, j.page.OutputPath)
	}
	return nil
}

func (s *Site) pageData(inputPath, url, outputPath string) engine.Data {
	data := make(engine.Data, len(s.cfg.Data)+1)
	maps.Copy(data, s.cfg.Data)
	data["page"] = map[string]any{
		"url":        url,
		"inputPath":  inputPath,
		"outputPath": outputPath,
	}
	return data
}

func checkURLs(jobs []*job) error {
	seen := make(map[string]string, len(jobs))
	for _, j := range jobs {
		if prev, ok := seen[j.page.URL]; ok {
			return fmt.Errorf("%w: %s and %s render to %s", ErrDuplicateURL, prev, j.page.InputPath, j.page.URL)
		}
		seen[j.page.URL] = j.page.InputPath
	}
	return nil
}

func (s *Site) renderPage(ctx context.Context, j *job) error {
	html, err := j.render(ctx, j.data)
	if err != nil {
		return fmt.Errorf("render %s: %w", j.page.InputPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(j.page.OutputPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(j.page.OutputPath, []byte(html), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", j.page.OutputPath, err)
	}

	s.logger.DebugContext(ctx, "Wrote page",
		logfields.InputPath(j.page.InputPath),
		logfields.PageURL(j.page.URL),
		logfields.OutputPath(j.page.OutputPath))
	return nil
}

// DefaultURL derives a pretty URL from an input path:
// "index.templ" is "/", "blog/post.templ" is "/blog/post/".
func DefaultURL(inputPath string) string {
	p := strings.TrimSuffix(inputPath, path.Ext(inputPath))
	if path.Base(p) == "index" {
		p = path.Dir(p)
	}
	if p == "." || p == "" {
		return "/"
	}
	return "/" + strings.Trim(p, "/") + "/"
}

// OutputPath maps a URL to a file path relative to the output directory.
// URLs ending in "/" are written as index.html.
func OutputPath(url string) (string, error) {
	clean := path.Clean("/" + url)
	if strings.Contains(url, "..") {
		return "", fmt.Errorf("%w: %q", ErrUnsafeURL, url)
	}
	if strings.HasSuffix(url, "/") || clean == "/" {
		clean = path.Join(clean, "index.html")
	}
	return filepath.FromSlash(strings.TrimPrefix(clean, "/")), nil
}

func cleanPath(p string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(p)), "./")
}
