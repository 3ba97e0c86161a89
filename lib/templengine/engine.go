// Package templengine implements the hxsite engine contract with templ
// components.
//
// templ compiles templates to Go ahead of time, so pages and components
// are registered by source path rather than parsed at build time:
//
//	eng := templengine.New()
//	eng.Register("pages/index.templ", func(data engine.Data) templ.Component {
//	    return indexPage(data)
//	})
//	eng.Register("components/card.templ", func(data engine.Data) templ.Component {
//	    return card(data)
//	})
//
// Inside templates, the helpers in this package talk to the page being
// rendered through the context:
//
//	@templengine.Style("critical", ".hero{color:red}")  // push CSS
//	@templengine.CSS("critical")                        // bundled <style> here
//	@templengine.Use("card", engine.Data{"title": t})   // render a component
//
// Fragments and component usage are collected per render, so the same page
// can render concurrently for different data.
package templengine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/a-h/templ"

	"github.com/pthm/hxsite/lib/engine"
)

// Sentinel errors.
var (
	ErrUnknownSource    = errors.New("templengine: no component registered for source")
	ErrUnknownComponent = errors.New("templengine: component not defined for page")
	ErrUnknownTransform = errors.New("templengine: transform not defined for page")
	ErrNoRenderState    = errors.New("templengine: not rendering an hxsite page")
	ErrInvalidAST       = errors.New("templengine: syntax tree was not produced by this engine")
)

// Func builds the templ component for a source given render data.
type Func func(data engine.Data) templ.Component

// PermalinkFunc computes a page URL from render data.
type PermalinkFunc func(data engine.Data) (string, error)

// Option configures a registered source.
type Option func(*source)

// WithPermalink sets the permalink function for a page.
func WithPermalink(fn PermalinkFunc) Option {
	return func(s *source) {
		s.permalink = fn
	}
}

// WithDependencies declares files the source depends on that are not
// discovered through Use (for example, imported Go templ packages).
func WithDependencies(paths ...string) Option {
	return func(s *source) {
		s.deps = append(s.deps, paths...)
	}
}

type source struct {
	path      string
	fn        Func
	permalink PermalinkFunc
	deps      []string
}

// Engine holds the registered sources.
type Engine struct {
	mu      sync.RWMutex
	sources map[string]*source
}

// New creates an empty Engine.
func New() *Engine {
	return &Engine{
		sources: make(map[string]*source),
	}
}

// Register associates a source path with its component function.
// Panics if the path is already registered.
func (e *Engine) Register(path string, fn Func, opts ...Option) {
	key := normalize(path)
	s := &source{path: key, fn: fn}
	for _, opt := range opts {
		opt(s)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.sources[key]; exists {
		panic(fmt.Sprintf("templengine: source %q registered twice", key))
	}
	e.sources[key] = s
}

// Sources returns the registered source paths.
func (e *Engine) Sources() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.sources))
	for k := range e.sources {
		out = append(out, k)
	}
	return out
}

func (e *Engine) lookup(path string) (*source, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sources[normalize(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, path)
	}
	return s, nil
}

// NewPage returns the page registered for inputPath. The content is not
// parsed; it only matters to the host's cache key.
func (e *Engine) NewPage(_ string, inputPath string) (engine.Page, error) {
	src, err := e.lookup(inputPath)
	if err != nil {
		return nil, err
	}
	return &Page{
		engine:     e,
		src:        src,
		transforms: make(map[string]engine.TransformFunc),
	}, nil
}

// Permalink implements engine.Permalinker. It returns "" when the page has
// no permalink function.
func (e *Engine) Permalink(_ context.Context, _, inputPath string, data engine.Data) (string, error) {
	src, err := e.lookup(inputPath)
	if err != nil {
		return "", err
	}
	if src.permalink == nil {
		return "", nil
	}
	return src.permalink(data)
}

func normalize(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}
