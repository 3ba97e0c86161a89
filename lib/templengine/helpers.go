package templengine

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/a-h/templ"

	"github.com/pthm/hxsite/lib/bundle"
	"github.com/pthm/hxsite/lib/engine"
)

const defaultBucket = "default"

type stateKey struct{}

// renderState is the per-render context shared by every component of one
// page render.
type renderState struct {
	engine     *Engine
	data       engine.Data
	components engine.ComponentsMap
	helpers    engine.Helpers
	transforms map[string]engine.TransformFunc

	css *fragments
	js  *fragments

	mu   sync.Mutex
	used map[string]struct{}
}

func (s *renderState) markUsed(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.used == nil {
		s.used = make(map[string]struct{})
	}
	s.used[path] = struct{}{}
}

func (s *renderState) usedComponents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.used))
	for k := range s.used {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func withState(ctx context.Context, st *renderState) context.Context {
	return context.WithValue(ctx, stateKey{}, st)
}

func stateFrom(ctx context.Context) (*renderState, error) {
	st, ok := ctx.Value(stateKey{}).(*renderState)
	if !ok || st == nil {
		return nil, ErrNoRenderState
	}
	return st, nil
}

// Style adds a CSS fragment to bucket ("" means default). It renders
// nothing.
func Style(bucket, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, _ io.Writer) error {
		st, err := stateFrom(ctx)
		if err != nil {
			return err
		}
		st.css.add(bucket, code)
		return nil
	})
}

// Script adds a JS fragment to bucket ("" means default). It renders
// nothing.
func Script(bucket, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, _ io.Writer) error {
		st, err := stateFrom(ctx)
		if err != nil {
			return err
		}
		st.js.add(bucket, code)
		return nil
	})
}

// CSS marks where the page's bundled CSS for bucket goes. The marker is
// replaced with a <style> element once the whole page has compiled, so
// fragments added after this point are included.
func CSS(bucket string) templ.Component {
	return marker(bundle.WrappedKey(bundle.KindCSS, bucket))
}

// JS marks where the page's bundled JS for bucket goes, as a <script>
// element.
func JS(bucket string) templ.Component {
	return marker(bundle.WrappedKey(bundle.KindJS, bucket))
}

func marker(key string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, key)
		return err
	})
}

// Use renders the component defined under name with data. The component's
// source is recorded as a dependency of the page.
func Use(name string, data engine.Data) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		st, err := stateFrom(ctx)
		if err != nil {
			return err
		}
		path, ok := st.components[name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownComponent, name)
		}
		src, err := st.engine.lookup(path)
		if err != nil {
			return err
		}
		st.markUsed(src.path)
		return src.fn(data).Render(ctx, w)
	})
}

// Transform renders content through the page transform registered as name
// and writes the result unescaped.
func Transform(name, syntax, content string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		st, err := stateFrom(ctx)
		if err != nil {
			return err
		}
		fn, ok := st.transforms[name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownTransform, name)
		}
		out, err := fn(ctx, content, syntax, st.data)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	})
}

// Data returns the render data of the page being rendered.
func Data(ctx context.Context) engine.Data {
	st, err := stateFrom(ctx)
	if err != nil {
		return nil
	}
	return st.data
}

// Helper returns the helper registered as name.
func Helper(ctx context.Context, name string) (any, bool) {
	st, err := stateFrom(ctx)
	if err != nil {
		return nil, false
	}
	fn, ok := st.helpers[name]
	return fn, ok
}

// HelperAs returns the helper registered as name when it has type T.
//
//	getCSS, ok := templengine.HelperAs[func(string, ...string) string](ctx, "getCss")
func HelperAs[T any](ctx context.Context, name string) (T, bool) {
	var zero T
	fn, ok := Helper(ctx, name)
	if !ok {
		return zero, false
	}
	typed, ok := fn.(T)
	return typed, ok
}
