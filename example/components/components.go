// Package components holds the example site's pages and components.
//
// The .templ files under src/ are the sources; the functions here are
// written the way `templ generate` output reads, so the example builds
// without the templ tool.
package components

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/pthm/hxsite/lib/engine"
	"github.com/pthm/hxsite/lib/templengine"
)

// Register adds every source of the example site to eng.
func Register(eng *templengine.Engine) {
	eng.Register("_components/card.templ", func(data engine.Data) templ.Component {
		return card(str(data, "title"), str(data, "body"))
	})
	eng.Register("_components/nav.templ", func(engine.Data) templ.Component {
		return nav()
	})
	eng.Register("index.templ", func(data engine.Data) templ.Component {
		return index(data)
	}, templengine.WithDependencies("_layouts/base.templ"))
	eng.Register("about.templ", func(data engine.Data) templ.Component {
		return about(data)
	}, templengine.WithDependencies("_layouts/base.templ"))
	eng.Register("posts/hello.templ", func(data engine.Data) templ.Component {
		return hello(data)
	}, templengine.WithDependencies("_layouts/base.templ"),
		templengine.WithPermalink(func(engine.Data) (string, error) {
			return "/blog/hello/", nil
		}))
}

func base(title string, body ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<!DOCTYPE html><html><head><title>"+templ.EscapeString(title)+"</title>"); err != nil {
			return err
		}
		if err := templengine.CSS("critical").Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "</head><body>"); err != nil {
			return err
		}
		for _, c := range body {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		if err := templengine.CSS("").Render(ctx, w); err != nil {
			return err
		}
		if err := templengine.JS("").Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</body></html>")
		return err
	})
}

func card(title, body string) templ.Component {
	return templ.Join(
		templengine.Style("", ".card{border:1px solid #ccc;padding:1rem}"),
		templ.Raw(`<article class="card"><h2>`+templ.EscapeString(title)+`</h2><p>`+templ.EscapeString(body)+`</p></article>`),
	)
}

func nav() templ.Component {
	return templ.Join(
		templengine.Style("critical", "nav{display:flex;gap:1rem}"),
		templengine.Script("", "document.querySelector('nav').dataset.ready = '1'"),
		templ.Raw(`<nav><a href="/">Home</a><a href="/about/">About</a></nav>`),
	)
}

func index(data engine.Data) templ.Component {
	return base(title(data),
		templengine.Use("nav", nil),
		templengine.Use("card", engine.Data{"title": "Welcome", "body": "Rendered at build time."}),
		templengine.Use("card", engine.Data{"title": "Bundled", "body": "Card styles appear once."}),
	)
}

func about(data engine.Data) templ.Component {
	return base(title(data),
		templengine.Use("nav", nil),
		templengine.Transform("host", "md", "# About\n\nThis page embeds *Markdown*."),
	)
}

func hello(engine.Data) templ.Component {
	return base("Hello",
		templengine.Use("nav", nil),
		templ.Raw("<p>First post.</p>"),
		templengine.Script("", "console.log('hello')"),
	)
}

func title(data engine.Data) string {
	return str(data, "title")
}

func str(data engine.Data, key string) string {
	s, _ := data[key].(string)
	return s
}
