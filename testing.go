package hxsite

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/pthm/hxsite/lib/engine"
)

// TestHost is an in-memory Host for tests.
//
// It records everything the plugin registers and lets tests drive the
// build lifecycle by hand:
//
//	host := hxsite.NewTestHost()
//	plugin.Register(host)
//	_ = host.RunBeforeBuild(ctx)
//	result, err := hxsite.TestRender(ctx, host.Formats["templ"], "index.templ", "", data)
type TestHost struct {
	mu sync.Mutex

	Formats   map[string]Extension
	Filters   map[string]Filter
	Funcs     map[string]any
	Renderers map[string]func(content string) (string, error)

	beforeBuild []func(ctx context.Context) error
	layouts     []func(map[string][]string)
}

// NewTestHost creates an empty TestHost.
func NewTestHost() *TestHost {
	return &TestHost{
		Formats:   make(map[string]Extension),
		Filters:   make(map[string]Filter),
		Funcs:     make(map[string]any),
		Renderers: make(map[string]func(string) (string, error)),
	}
}

func (h *TestHost) AddTemplateFormat(name string, ext Extension) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Formats[name] = ext
}

func (h *TestHost) AddFilter(name string, fn Filter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Filters[name] = fn
}

func (h *TestHost) OnBeforeBuild(fn func(ctx context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.beforeBuild = append(h.beforeBuild, fn)
}

func (h *TestHost) OnLayouts(fn func(map[string][]string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.layouts = append(h.layouts, fn)
}

func (h *TestHost) Functions() map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]any, len(h.Funcs))
	for k, v := range h.Funcs {
		out[k] = v
	}
	return out
}

// RenderString renders content with the renderer registered for syntax.
func (h *TestHost) RenderString(_ context.Context, content, syntax string, _ engine.Data) (string, error) {
	h.mu.Lock()
	fn, ok := h.Renderers[syntax]
	h.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("test host: no renderer for %q", syntax)
	}
	return fn(content)
}

// RunBeforeBuild runs the registered before-build handlers in order.
func (h *TestHost) RunBeforeBuild(ctx context.Context) error {
	h.mu.Lock()
	fns := slices.Clone(h.beforeBuild)
	h.mu.Unlock()

	for _, fn := range fns {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ResolveLayouts delivers layouts to the registered layout handlers.
func (h *TestHost) ResolveLayouts(layouts map[string][]string) {
	h.mu.Lock()
	fns := slices.Clone(h.layouts)
	h.mu.Unlock()

	for _, fn := range fns {
		fn(layouts)
	}
}

// TestResult holds the output of rendering a page for testing.
type TestResult struct {
	HTML    string
	PageURL string
}

// PageData builds minimal render data for a page.
func PageData(pageURL, inputPath string) engine.Data {
	return engine.Data{
		"page": map[string]any{
			"url":       pageURL,
			"inputPath": inputPath,
		},
	}
}

// TestRender compiles and renders one template through ext.
//
// Use this to test templates end to end, including asset bundling:
//
//	result, err := hxsite.TestRender(ctx, ext, "index.templ", "", hxsite.PageData("/", "index.templ"))
//	if !result.HTMLContains("<style>") {
//	    t.Fatal("missing bundled CSS")
//	}
func TestRender(ctx context.Context, ext Extension, inputPath, contents string, data engine.Data) (*TestResult, error) {
	if ext.Compile == nil {
		return nil, errors.New("test render: extension has no compile function")
	}
	render, err := ext.Compile(ctx, contents, inputPath)
	if err != nil {
		return nil, err
	}
	html, err := render(ctx, data)
	if err != nil {
		return nil, err
	}

	var pageURL string
	if page, ok := data["page"].(map[string]any); ok {
		pageURL, _ = page["url"].(string)
	}
	return &TestResult{HTML: html, PageURL: pageURL}, nil
}

// HTMLContains checks if the HTML contains a substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HTMLContainsAll checks if the HTML contains all the given substrings.
func (r *TestResult) HTMLContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.HTML, s) {
			return false
		}
	}
	return true
}

// HTMLContainsAny checks if the HTML contains any of the given substrings.
func (r *TestResult) HTMLContainsAny(substrs ...string) bool {
	for _, s := range substrs {
		if strings.Contains(r.HTML, s) {
			return true
		}
	}
	return false
}

// HasMarkers reports whether any asset marker survived bundling.
func (r *TestResult) HasMarkers() bool {
	return strings.Contains(r.HTML, "@hxsite:asset:")
}
