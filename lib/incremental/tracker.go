// Package incremental records which files each template depends on so the
// host can decide which templates to rebuild when a file changes.
//
// Two kinds of dependency are tracked:
//   - Layouts, delivered by the host as a map from layout file to the
//     templates using it. Layouts do not appear in the component graph.
//   - Components, discovered from each page after setup.
package incremental

import (
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"github.com/pthm/hxsite/lib/encoding"
	"github.com/pthm/hxsite/lib/engine"
)

// SnapshotVersion is bumped when the Snapshot layout changes.
const SnapshotVersion = 1

// Tracker holds the pages, setups and layout usage of the current build.
// It is safe for concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	engine  engine.Engine
	pages   map[string]engine.Page
	deps    map[string][]string // map[inputPath]component files
	layouts map[string][]string // map[layoutPath]template paths
}

// New creates a Tracker that builds pages with eng.
func New(eng engine.Engine) *Tracker {
	return &Tracker{
		engine:  eng,
		pages:   make(map[string]engine.Page),
		deps:    make(map[string][]string),
		layouts: make(map[string][]string),
	}
}

// SetEngine replaces the engine used by Add.
func (t *Tracker) SetEngine(eng engine.Engine) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.engine = eng
}

// Add creates a page for content and records it under inputPath.
func (t *Tracker) Add(content, inputPath string) (engine.Page, error) {
	t.mu.RLock()
	eng := t.engine
	t.mu.RUnlock()

	if eng == nil {
		return nil, fmt.Errorf("incremental: no engine set for %s", inputPath)
	}

	page, err := eng.NewPage(content, inputPath)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.pages[normalize(inputPath)] = page
	t.mu.Unlock()
	return page, nil
}

// AddSetup records the components used by the page at inputPath after
// setup. The page must have been added first.
func (t *Tracker) AddSetup(inputPath string, setup *engine.Setup) {
	key := normalize(inputPath)

	t.mu.RLock()
	page, ok := t.pages[key]
	t.mu.RUnlock()
	if !ok || setup == nil {
		return
	}

	components := normalizeAll(page.Components(setup))

	t.mu.Lock()
	t.deps[key] = components
	t.mu.Unlock()
}

// Page returns the page recorded for inputPath.
func (t *Tracker) Page(inputPath string) (engine.Page, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.pages[normalize(inputPath)]
	return p, ok
}

// Components returns the component files recorded for inputPath.
func (t *Tracker) Components(inputPath string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.deps[normalize(inputPath)])
}

// SetLayouts replaces the layout usage map.
func (t *Tracker) SetLayouts(layouts map[string][]string) {
	next := make(map[string][]string, len(layouts))
	for layout, templates := range layouts {
		next[normalize(layout)] = normalizeAll(templates)
	}

	t.mu.Lock()
	t.layouts = next
	t.mu.Unlock()
}

// IsFileUsingLayout reports whether templatePath uses layoutPath.
func (t *Tracker) IsFileUsingLayout(templatePath, layoutPath string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Contains(t.layouts[normalize(layoutPath)], normalize(templatePath))
}

// IsIncrementalMatch reports whether a change to changedPath requires the
// template at inputPath to be rebuilt.
func (t *Tracker) IsIncrementalMatch(inputPath, changedPath string) bool {
	if t.IsFileUsingLayout(inputPath, changedPath) {
		return true
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Contains(t.deps[normalize(inputPath)], normalize(changedPath))
}

// Dependents returns every tracked template affected by changedPath, sorted.
func (t *Tracker) Dependents(changedPath string) []string {
	changed := normalize(changedPath)

	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[string]struct{})
	for input, deps := range t.deps {
		if slices.Contains(deps, changed) {
			seen[input] = struct{}{}
		}
	}
	for _, tmpl := range t.layouts[changed] {
		seen[tmpl] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Snapshot is the persisted form of the dependency graph.
type Snapshot struct {
	Version      int                 `msgpack:"version" yaml:"version"`
	Dependencies map[string][]string `msgpack:"dependencies" yaml:"dependencies"`
	Layouts      map[string][]string `msgpack:"layouts" yaml:"layouts"`
}

// Snapshot copies the current dependency graph.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Snapshot{
		Version:      SnapshotVersion,
		Dependencies: make(map[string][]string, len(t.deps)),
		Layouts:      make(map[string][]string, len(t.layouts)),
	}
	for k, v := range t.deps {
		s.Dependencies[k] = slices.Clone(v)
	}
	for k, v := range t.layouts {
		s.Layouts[k] = slices.Clone(v)
	}
	return s
}

// Restore replaces the dependency graph with s. Pages are not restored;
// they are recreated by Add on the next compile.
func (t *Tracker) Restore(s Snapshot) error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("incremental: unsupported snapshot version %d", s.Version)
	}

	deps := make(map[string][]string, len(s.Dependencies))
	for k, v := range s.Dependencies {
		deps[k] = slices.Clone(v)
	}
	layouts := make(map[string][]string, len(s.Layouts))
	for k, v := range s.Layouts {
		layouts[k] = slices.Clone(v)
	}

	t.mu.Lock()
	t.deps = deps
	t.layouts = layouts
	t.mu.Unlock()
	return nil
}

// MarshalState encodes the snapshot with enc.
func (t *Tracker) MarshalState(enc *encoding.Encoder) ([]byte, error) {
	return enc.Encode(t.Snapshot())
}

// UnmarshalState decodes data with enc and restores it.
func (t *Tracker) UnmarshalState(enc *encoding.Encoder, data []byte) error {
	var s Snapshot
	if err := enc.Decode(data, &s); err != nil {
		return err
	}
	return t.Restore(s)
}

func normalize(p string) string {
	if p == "" {
		return p
	}
	return filepath.ToSlash(filepath.Clean(p))
}

func normalizeAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, normalize(p))
	}
	return out
}
