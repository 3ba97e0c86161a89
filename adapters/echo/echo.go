// Package hxsiteecho serves an hxsite build with Echo for local preview.
//
// Mount the site onto an Echo instance or group:
//
//	e := echo.New()
//	hxsiteecho.Mount(e, s)
//
// The output directory is served as static files. Two endpoints sit under
// the control path (default "/_hxsite/"):
//   - POST rebuild: body {"changed": ["_components/card.templ"]} rebuilds
//     the affected pages, or every page when the list is empty.
//   - GET assets/:kind?page=/about/&bucket=critical: the bundled CSS or JS
//     of a page. Only pages rendered by the most recent run are known, so
//     after a partial rebuild the untouched pages answer 404.
package hxsiteecho

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/pthm/hxsite/lib/bundle"
	"github.com/pthm/hxsite/lib/site"
)

// Option configures the Mount and MountGroup functions.
type Option func(*options)

type options struct {
	path string
}

// WithPath sets the URL path prefix for the control endpoints.
// Defaults to "/_hxsite/".
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// Mount serves s on an Echo instance.
//
//	e := echo.New()
//	hxsiteecho.Mount(e, s, hxsiteecho.WithPath("/_dev/"))
func Mount(e *echo.Echo, s *site.Site, opts ...Option) {
	o := newOptions(opts)
	h := &handler{site: s}
	e.POST(o.path+"rebuild", h.rebuild)
	e.GET(o.path+"assets/:kind", h.assets)
	e.StaticFS("/", os.DirFS(s.Config().Output))
}

// MountGroup serves s on an Echo group.
// This allows the preview to share middleware with the group (auth, logging, etc.).
func MountGroup(g *echo.Group, s *site.Site, opts ...Option) {
	o := newOptions(opts)
	h := &handler{site: s}
	g.POST(o.path+"rebuild", h.rebuild)
	g.GET(o.path+"assets/:kind", h.assets)
	g.StaticFS("/", os.DirFS(s.Config().Output))
}

func newOptions(opts []Option) *options {
	o := &options{path: "/_hxsite/"}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type handler struct {
	site *site.Site
}

type rebuildRequest struct {
	Changed []string `json:"changed"`
}

type rebuildResponse struct {
	Pages      []site.Page `json:"pages"`
	DurationMS int64       `json:"duration_ms"`
}

func (h *handler) rebuild(c echo.Context) error {
	var req rebuildRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	var (
		res *site.Result
		err error
	)
	if len(req.Changed) == 0 {
		res, err = h.site.Build(ctx)
	} else {
		res, err = h.site.Rebuild(ctx, req.Changed...)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rebuildResponse{
		Pages:      res.Pages,
		DurationMS: res.Duration.Milliseconds(),
	})
}

func (h *handler) assets(c echo.Context) error {
	page := c.QueryParam("page")
	if page == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "page is required")
	}
	bucket := c.QueryParam("bucket")

	session := h.site.Plugin().Session()
	switch c.Param("kind") {
	case bundle.KindCSS:
		if len(session.CSSManager().Buckets(page)) == 0 {
			return errNotRendered
		}
		return c.Blob(http.StatusOK, "text/css; charset=utf-8", []byte(session.CSS(page, bucket)))
	case bundle.KindJS:
		if len(session.JSManager().Buckets(page)) == 0 {
			return errNotRendered
		}
		return c.Blob(http.StatusOK, "text/javascript; charset=utf-8", []byte(session.JS(page, bucket)))
	default:
		return echo.NewHTTPError(http.StatusNotFound, "unknown asset kind")
	}
}

var errNotRendered = echo.NewHTTPError(http.StatusNotFound, "page has no assets from the last run")
