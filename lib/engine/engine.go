// Package engine defines the narrow contract between hxsite and a component
// templating engine.
//
// An Engine turns source text into a Page. A Page is set up with render data
// to produce a syntax tree and a Serializer, and the Serializer compiles the
// tree into HTML plus the CSS and JS fragments it generated:
//
//	page, _ := eng.NewPage(content, inputPath)
//	setup, _ := page.Setup(ctx, engine.SetupOptions{Data: data})
//	art, _ := setup.Serializer.Compile(ctx, setup.AST)
//	// art.HTML, art.CSS, art.JS, art.Buckets
package engine

import "context"

// Data is the render data handed to a page.
type Data = map[string]any

// ComponentsMap maps component names to their source file paths.
type ComponentsMap map[string]string

// Helpers is the fixed set of named functions a page may call while
// rendering. It is built once per build and never mutated afterwards.
type Helpers map[string]any

// TransformFunc renders content embedded in a page using another syntax
// (for example Markdown) and returns the resulting HTML.
type TransformFunc func(ctx context.Context, content, syntax string, data Data) (string, error)

// Engine creates pages from source text.
type Engine interface {
	NewPage(content, inputPath string) (Page, error)
}

// Permalinker is implemented by engines that can compute a page's output
// URL from its source.
type Permalinker interface {
	Permalink(ctx context.Context, content, inputPath string, data Data) (string, error)
}

// Page is one compilable template.
type Page interface {
	// InputPath returns the source path the page was created from.
	InputPath() string

	// DefineComponents makes the given components available to the page.
	DefineComponents(components ComponentsMap)

	// SetHelpers installs the helper functions callable from the page.
	SetHelpers(helpers Helpers)

	// SetTransform registers a named transform callable from the page.
	SetTransform(name string, fn TransformFunc)

	// Components returns the component source files the page depends on
	// after the given setup.
	Components(setup *Setup) []string

	// Setup prepares the page for rendering with the given options.
	Setup(ctx context.Context, opts SetupOptions) (*Setup, error)
}

// SetupOptions carries render-time input to Page.Setup.
type SetupOptions struct {
	Data Data

	// Components are page-local components added on top of the ones given
	// to DefineComponents.
	Components ComponentsMap
}

// Setup is the result of Page.Setup.
type Setup struct {
	AST        any
	Serializer Serializer
}

// Serializer compiles a syntax tree into an Artifact.
type Serializer interface {
	Compile(ctx context.Context, ast any) (*Artifact, error)
}

// Artifact is the output of one compile.
//
// CSS and JS hold the default bucket. Buckets holds the named buckets per
// asset kind.
type Artifact struct {
	HTML    string
	CSS     string
	JS      string
	Buckets Buckets
}

// Buckets maps bucket names to code for each asset kind.
type Buckets struct {
	CSS map[string]string
	JS  map[string]string
}
