package hxsite

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pthm/hxsite/lib/bundle"
	"github.com/pthm/hxsite/lib/engine"
)

// Built-in helper names. Both casings are kept so existing templates keep
// working.
const (
	HelperGetCss = "getCss"
	HelperGetCSS = "getCSS"
	HelperGetJs  = "getJs"
	HelperGetJS  = "getJS"
)

// AssetHelper returns the asset marker for a bucket. The page URL argument
// is accepted for call-site compatibility; markers are resolved against
// the page being rendered when it is bundled.
type AssetHelper func(pageURL string, bucket ...string) string

// Registry collects the helpers pages can call.
//
// Helpers are registered once when a build starts and frozen into an
// engine.Helpers map; pages never receive helpers added ad hoc.
type Registry struct {
	mu      sync.RWMutex
	helpers map[string]any
}

// NewRegistry creates a registry holding the built-in asset helpers.
func NewRegistry() *Registry {
	reg := &Registry{helpers: make(map[string]any)}
	reg.addBuiltins()
	return reg
}

func (reg *Registry) addBuiltins() {
	css := assetHelper(bundle.KindCSS)
	js := assetHelper(bundle.KindJS)
	reg.helpers[HelperGetCss] = css
	reg.helpers[HelperGetCSS] = css
	reg.helpers[HelperGetJs] = js
	reg.helpers[HelperGetJS] = js
}

func assetHelper(kind string) AssetHelper {
	return func(_ string, bucket ...string) string {
		return bundle.Key(kind, firstBucket(bucket))
	}
}

// Add registers helpers. Panics if a name is already taken, including by a
// built-in helper.
func (reg *Registry) Add(helpers map[string]any) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for name, fn := range helpers {
		if _, exists := reg.helpers[name]; exists {
			panic(fmt.Sprintf("hxsite: helper %q registered twice", name))
		}
		if fn == nil {
			panic(fmt.Sprintf("hxsite: helper %q is nil", name))
		}
		reg.helpers[name] = fn
	}
}

// Names returns the registered helper names, sorted.
func (reg *Registry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	names := make([]string, 0, len(reg.helpers))
	for name := range reg.helpers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Helpers returns an immutable snapshot of the registered helpers.
func (reg *Registry) Helpers() engine.Helpers {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	out := make(engine.Helpers, len(reg.helpers))
	for k, v := range reg.helpers {
		out[k] = v
	}
	return out
}
