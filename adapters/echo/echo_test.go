package hxsiteecho

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/pthm/hxsite/lib/engine"
	"github.com/pthm/hxsite/lib/site"
	"github.com/pthm/hxsite/lib/templengine"
)

func newSite(t *testing.T) *site.Site {
	t.Helper()
	root := t.TempDir()
	input := filepath.Join(root, "src")
	if err := os.MkdirAll(input, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(input, "index.templ"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	eng := templengine.New()
	eng.Register("index.templ", func(engine.Data) templ.Component {
		return templ.Join(
			templengine.CSS(""),
			templ.Raw("<h1>home</h1>"),
			templengine.Style("", "h1{}"),
			templengine.Script("late", "go()"),
		)
	})
	eng.Register("about.templ", func(engine.Data) templ.Component {
		return templ.Join(
			templengine.CSS(""),
			templengine.Style("", "p{}"),
		)
	})

	s, err := site.New(site.Config{
		Input:     input,
		Output:    filepath.Join(root, "out"),
		StateFile: "-",
	}, eng)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMount(t *testing.T) {
	e := echo.New()
	Mount(e, newSite(t))

	rec := serve(e, http.MethodPost, "/_hxsite/rebuild", `{"changed":[]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("rebuild: status %d: %s", rec.Code, rec.Body.String())
	}
	var res rebuildResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Pages) != 1 || res.Pages[0].URL != "/" {
		t.Errorf("pages = %+v", res.Pages)
	}

	rec = serve(e, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("index: status %d", rec.Code)
	}
	if got := rec.Body.String(); got != "<style>h1{}</style><h1>home</h1>" {
		t.Errorf("index = %q", got)
	}
}

func TestAssets(t *testing.T) {
	e := echo.New()
	Mount(e, newSite(t), WithPath("/_dev/"))
	if rec := serve(e, http.MethodPost, "/_dev/rebuild", `{}`); rec.Code != http.StatusOK {
		t.Fatalf("rebuild: status %d", rec.Code)
	}

	tests := []struct {
		target string
		code   int
		body   string
	}{
		{"/_dev/assets/css?page=/", http.StatusOK, "h1{}"},
		{"/_dev/assets/js?page=/&bucket=late", http.StatusOK, "go()"},
		{"/_dev/assets/js?page=/", http.StatusOK, ""},
		{"/_dev/assets/wasm?page=/", http.StatusNotFound, ""},
		{"/_dev/assets/css", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		rec := serve(e, http.MethodGet, tt.target, "")
		if rec.Code != tt.code {
			t.Errorf("%s: status %d, want %d", tt.target, rec.Code, tt.code)
			continue
		}
		if tt.code == http.StatusOK && rec.Body.String() != tt.body {
			t.Errorf("%s: body %q, want %q", tt.target, rec.Body.String(), tt.body)
		}
	}
}

func TestMountGroup(t *testing.T) {
	e := echo.New()
	MountGroup(e.Group("/preview"), newSite(t))

	rec := serve(e, http.MethodPost, "/preview/_hxsite/rebuild", `{"changed":["index.templ"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("rebuild: status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRebuildError(t *testing.T) {
	e := echo.New()
	s := newSite(t)
	Mount(e, s)
	if err := os.WriteFile(filepath.Join(s.Config().Input, "broken.templ"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	rec := serve(e, http.MethodPost, "/_hxsite/rebuild", `{}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status %d, want 500", rec.Code)
	}
}

func TestAssetsAfterPartialRebuild(t *testing.T) {
	e := echo.New()
	s := newSite(t)
	Mount(e, s)
	if err := os.WriteFile(filepath.Join(s.Config().Input, "about.templ"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if rec := serve(e, http.MethodPost, "/_hxsite/rebuild", `{}`); rec.Code != http.StatusOK {
		t.Fatalf("rebuild: status %d: %s", rec.Code, rec.Body.String())
	}
	rec := serve(e, http.MethodGet, "/_hxsite/assets/css?page=/about/", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "p{}" {
		t.Fatalf("about css after full build: %d %q", rec.Code, rec.Body.String())
	}

	if rec := serve(e, http.MethodPost, "/_hxsite/rebuild", `{"changed":["index.templ"]}`); rec.Code != http.StatusOK {
		t.Fatalf("partial rebuild: status %d: %s", rec.Code, rec.Body.String())
	}
	if rec := serve(e, http.MethodGet, "/_hxsite/assets/css?page=/about/", ""); rec.Code != http.StatusNotFound {
		t.Errorf("about css after partial rebuild: status %d, want 404", rec.Code)
	}
	if rec := serve(e, http.MethodGet, "/_hxsite/assets/css?page=/", ""); rec.Code != http.StatusOK {
		t.Errorf("index css after partial rebuild: status %d", rec.Code)
	}
}
