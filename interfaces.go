package hxsite

import (
	"context"

	"github.com/pthm/hxsite/lib/engine"
)

// Host is the static-site generator hxsite plugs into.
//
// The host owns discovery, scheduling, output writing and rebuild
// decisions. hxsite only needs these registration points:
//
//	host.OnBeforeBuild(plugin.BeforeBuild)
//	host.OnLayouts(plugin.LayoutsResolved)
//	host.AddTemplateFormat("templ", plugin.Extension())
//	host.AddFilter("bundledCss", plugin.CSS)
//
// Plugin.Register performs all of them.
type Host interface {
	// AddTemplateFormat registers a template format handled by ext.
	AddTemplateFormat(name string, ext Extension)

	// AddFilter exposes fn to every template language under name.
	AddFilter(name string, fn Filter)

	// OnBeforeBuild registers fn to run at the start of every build,
	// including rebuilds, before any template compiles.
	OnBeforeBuild(fn func(ctx context.Context) error)

	// OnLayouts registers fn to receive the layout usage map once layouts
	// are resolved. The map goes from layout file to the templates using it.
	OnLayouts(fn func(layouts map[string][]string))

	// Functions returns the host's user-defined template functions. They
	// are made available to pages as helpers.
	Functions() map[string]any
}

// StringRenderer is implemented by hosts that can render a string written
// in another template syntax, such as Markdown.
type StringRenderer interface {
	RenderString(ctx context.Context, content, syntax string, data engine.Data) (string, error)
}

// Extension describes how the host handles the plugin's template format.
type Extension struct {
	// OutputFileExtension is the extension of rendered files.
	OutputFileExtension string

	// IsIncrementalMatch reports whether a change to changedPath requires
	// the template at inputPath to rebuild.
	IsIncrementalMatch func(inputPath, changedPath string) bool

	// CacheKey returns the key the host caches compiled templates under.
	CacheKey func(contents, inputPath string) string

	// Permalink returns a function computing the page URL, or nil when the
	// engine cannot compute permalinks.
	Permalink func(contents, inputPath string) PermalinkFunc

	// Compile compiles a template and returns its render function.
	Compile func(ctx context.Context, contents, inputPath string) (RenderFunc, error)
}

// RenderFunc renders a compiled template with data and returns the final
// HTML with assets bundled.
type RenderFunc func(ctx context.Context, data engine.Data) (string, error)

// PermalinkFunc computes a page URL from render data.
type PermalinkFunc func(ctx context.Context, data engine.Data) (string, error)

// Filter returns the bundled code of a page for bucket (default when
// omitted).
type Filter func(pageURL string, bucket ...string) string
