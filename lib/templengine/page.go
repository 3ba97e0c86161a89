package templengine

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/a-h/templ"

	"github.com/pthm/hxsite/lib/engine"
)

// Page is a registered source prepared for compilation.
type Page struct {
	engine *Engine
	src    *source

	mu         sync.RWMutex
	components engine.ComponentsMap
	helpers    engine.Helpers
	transforms map[string]engine.TransformFunc
}

// InputPath returns the page's source path.
func (p *Page) InputPath() string {
	return p.src.path
}

// DefineComponents sets the components available to Use.
func (p *Page) DefineComponents(components engine.ComponentsMap) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.components = components
}

// SetHelpers installs the helpers readable through Helper.
func (p *Page) SetHelpers(helpers engine.Helpers) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.helpers = helpers
}

// SetTransform registers a transform callable through Transform.
func (p *Page) SetTransform(name string, fn engine.TransformFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transforms[name] = fn
}

// Components returns the declared dependencies of the page plus every
// component source rendered with the given setup.
func (p *Page) Components(setup *engine.Setup) []string {
	seen := make(map[string]struct{})
	for _, d := range p.src.deps {
		seen[normalize(d)] = struct{}{}
	}
	if setup != nil {
		if t, ok := setup.AST.(*Tree); ok {
			for _, u := range t.state.usedComponents() {
				seen[u] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Setup binds the page to render data.
func (p *Page) Setup(_ context.Context, opts engine.SetupOptions) (*engine.Setup, error) {
	p.mu.RLock()
	components := make(engine.ComponentsMap, len(p.components)+len(opts.Components))
	for k, v := range p.components {
		components[k] = v
	}
	transforms := make(map[string]engine.TransformFunc, len(p.transforms))
	for k, v := range p.transforms {
		transforms[k] = v
	}
	helpers := p.helpers
	p.mu.RUnlock()

	for k, v := range opts.Components {
		components[k] = v
	}

	st := &renderState{
		engine:     p.engine,
		data:       opts.Data,
		components: components,
		helpers:    helpers,
		transforms: transforms,
		css:        newFragments(),
		js:         newFragments(),
	}
	tree := &Tree{
		Root:  p.src.fn(opts.Data),
		state: st,
	}
	return &engine.Setup{AST: tree, Serializer: serializer{}}, nil
}

// Tree is the syntax tree produced by Setup: the page's root component and
// its render state.
type Tree struct {
	Root  templ.Component
	state *renderState
}

type serializer struct{}

// Compile renders the tree and returns the HTML with the fragments the
// render collected.
func (serializer) Compile(ctx context.Context, ast any) (*engine.Artifact, error) {
	tree, ok := ast.(*Tree)
	if !ok || tree == nil || tree.Root == nil {
		return nil, ErrInvalidAST
	}

	var buf bytes.Buffer
	if err := tree.Root.Render(withState(ctx, tree.state), &buf); err != nil {
		return nil, err
	}

	css, cssBuckets := tree.state.css.split()
	js, jsBuckets := tree.state.js.split()
	return &engine.Artifact{
		HTML: buf.String(),
		CSS:  css,
		JS:   js,
		Buckets: engine.Buckets{
			CSS: cssBuckets,
			JS:  jsBuckets,
		},
	}, nil
}

// fragments collects code per bucket. Identical fragments are kept once
// per bucket, so a component's styles appear once however often it is used.
type fragments struct {
	mu      sync.Mutex
	buckets map[string][]string
	seen    map[string]map[string]struct{}
}

func newFragments() *fragments {
	return &fragments{
		buckets: make(map[string][]string),
		seen:    make(map[string]map[string]struct{}),
	}
}

func (f *fragments) add(bucket, code string) {
	if code == "" {
		return
	}
	if bucket == "" {
		bucket = defaultBucket
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[bucket] == nil {
		f.seen[bucket] = make(map[string]struct{})
	}
	if _, dup := f.seen[bucket][code]; dup {
		return
	}
	f.seen[bucket][code] = struct{}{}
	f.buckets[bucket] = append(f.buckets[bucket], code)
}

// split returns the default bucket and the named buckets, each joined with
// newlines.
func (f *fragments) split() (string, map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var def string
	named := make(map[string]string)
	for bucket, codes := range f.buckets {
		joined := strings.Join(codes, "\n")
		if bucket == defaultBucket {
			def = joined
			continue
		}
		named[bucket] = joined
	}
	return def, named
}
