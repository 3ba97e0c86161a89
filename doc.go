// Package hxsite integrates a component templating engine (templ) into a
// static-site build, bundling the CSS and JS each page's components emit.
//
// hxsite registers a template format with a host generator. When the host
// renders a page, the engine compiles the page and every component it uses
// into HTML plus CSS and JS fragments. Those fragments are collected per
// page URL and substituted into the page where the page placed asset
// markers.
//
// # Core Concepts
//
// A Plugin is created once per process and registered with the host:
//
//	eng := templengine.New()
//	eng.Register("index.templ", indexPage)
//
//	p, err := hxsite.New(hxsite.DefaultOptions(eng))
//	p.Register(host)
//
// Register wires the template format, the before-build reset, the layouts
// event and the bundledCss and bundledJs filters.
//
// # Buckets
//
// Fragments go into named buckets. Code without a bucket goes to "default".
// Each page can place each bucket separately:
//
//	@templengine.CSS("critical")  // in <head>
//	@templengine.CSS("")          // default bucket, at the end of <body>
//
// Templates that write their own <style> element use the getCss helper,
// which returns a raw marker:
//
//	<style>{ getCss(pageURL, "critical") }</style>
//
// getCSS, getJs and getJS are aliases with the same behavior.
//
// # Two-Phase Rendering
//
// A page's markers are replaced only after the whole page has compiled, so
// components rendered after a marker still contribute to it. The Session
// enforces the order in its types:
//
//	compiled, err := session.Commit(pageURL, artifact)
//	html, err := session.Bundle(compiled)
//
// A page whose compilation fails never reaches Commit and stores nothing.
//
// # Components
//
// Options.Components lists project-root globs of components available to
// every page. A page may add its own through its render data:
//
//	data["hxsite"] = map[string]any{"components": "_partials/*.templ"}
//
// Page-local globs are relative to the page; a "~/" prefix makes them
// project-root relative. Component names are file names without extension.
//
// # Incremental Builds
//
// The plugin records the layouts and components every page used. The host
// asks Extension.IsIncrementalMatch whether a changed file affects a page.
// The cache key of a page includes the components map, so changing the set
// of global components recompiles every page.
//
// # Errors
//
// Errors fall into two groups. Configuration errors (ErrNoEngine,
// ErrNoAssetManager, ErrNoRenderer) are wiring mistakes and are reported by
// IsConfigurationError. Everything else comes from a page: missing page
// URL, a failing component, or a before hook that refuses the page.
//
// # Testing
//
// TestHost and TestRender drive the plugin without a real host:
//
//	host := hxsite.NewTestHost()
//	p.Register(host)
//	_ = host.RunBeforeBuild(ctx)
//	res, err := hxsite.TestRender(ctx, host.Formats["templ"], "index.templ", "",
//	    hxsite.PageData("/", "index.templ"))
package hxsite
