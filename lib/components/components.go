// Package components resolves component globs into a components map.
//
// A component's name is its file name without extension, so
// "components/site-header.templ" is available as "site-header". When two
// files share a name the one matched last wins.
package components

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/pthm/hxsite/lib/engine"
)

// RootPrefix marks a glob as relative to the project root rather than to
// the template that declares it.
const RootPrefix = "~/"

// ErrEscapesRoot is returned for a glob that points outside the project root.
var ErrEscapesRoot = errors.New("components: glob escapes project root")

// Resolver expands globs against a project root.
type Resolver struct {
	fsys fs.FS
}

// NewResolver creates a resolver rooted at dir.
func NewResolver(dir string) *Resolver {
	return &Resolver{fsys: os.DirFS(dir)}
}

// NewResolverFS creates a resolver over fsys.
func NewResolverFS(fsys fs.FS) *Resolver {
	return &Resolver{fsys: fsys}
}

// Map expands every pattern and returns the combined components map.
// Patterns are project-root relative; a leading "~/" or "./" is accepted.
func (r *Resolver) Map(patterns ...string) (engine.ComponentsMap, error) {
	m := make(engine.ComponentsMap)
	for _, pattern := range patterns {
		clean := cleanPattern(pattern)
		if escapesRoot(clean) {
			return nil, fmt.Errorf("%w: %q", ErrEscapesRoot, pattern)
		}
		if !doublestar.ValidatePattern(clean) {
			return nil, fmt.Errorf("components: invalid glob %q", pattern)
		}

		matches, err := doublestar.Glob(r.fsys, clean, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("components: glob %q: %w", pattern, err)
		}
		for _, match := range matches {
			m[Name(match)] = match
		}
	}
	return m, nil
}

// Name returns the component name for a file path.
func Name(file string) string {
	base := path.Base(filepath.ToSlash(file))
	return strings.TrimSuffix(base, path.Ext(base))
}

// RelativeGlob resolves a glob declared by the template at inputPath.
// Globs starting with "~/" are project-root relative; anything else is
// relative to the template's directory. The result always uses forward
// slashes. A glob that climbs above the project root is rejected with
// ErrEscapesRoot.
func RelativeGlob(inputPath, glob string) (string, error) {
	var out string
	if strings.HasPrefix(glob, RootPrefix) {
		out = "." + glob[1:]
	} else {
		out = path.Join(path.Dir(filepath.ToSlash(inputPath)), filepath.ToSlash(glob))
	}
	if escapesRoot(out) {
		return "", fmt.Errorf("%w: %q from %s", ErrEscapesRoot, glob, inputPath)
	}
	return out, nil
}

// Key returns a deterministic string identifying m, suitable for cache keys.
func Key(m engine.ComponentsMap) string {
	if len(m) == 0 {
		return ""
	}
	// encoding/json sorts map keys.
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}

// Merge returns a new map holding base overlaid with extra.
func Merge(base, extra engine.ComponentsMap) engine.ComponentsMap {
	out := make(engine.ComponentsMap, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func escapesRoot(p string) bool {
	c := path.Clean(p)
	return c == ".." || strings.HasPrefix(c, "../") || strings.HasPrefix(c, "/")
}

func cleanPattern(pattern string) string {
	p := filepath.ToSlash(pattern)
	p = strings.TrimPrefix(p, RootPrefix)
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return p
}
