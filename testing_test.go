package hxsite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pthm/hxsite/lib/engine"
)

func TestTestResultMatchers(t *testing.T) {
	r := &TestResult{HTML: "<style>.a{}</style><h1>Title</h1>"}

	tests := []struct {
		name   string
		check  bool
		expect bool
	}{
		{"contains", r.HTMLContains("<h1>"), true},
		{"not contains", r.HTMLContains("<h2>"), false},
		{"contains all", r.HTMLContainsAll("<style>", "Title"), true},
		{"contains all missing", r.HTMLContainsAll("<style>", "<script>"), false},
		{"contains any", r.HTMLContainsAny("<script>", "Title"), true},
		{"contains any none", r.HTMLContainsAny("<script>", "<h2>"), false},
		{"no markers", r.HasMarkers(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.check != tt.expect {
				t.Errorf("got %v, want %v", tt.check, tt.expect)
			}
		})
	}

	marked := &TestResult{HTML: "<style>/*@hxsite:asset:css:default*/</style>"}
	if !marked.HasMarkers() {
		t.Error("HasMarkers should report a surviving marker")
	}
}

func TestTestHostLifecycle(t *testing.T) {
	host := NewTestHost()
	var order []string

	host.OnBeforeBuild(func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	host.OnBeforeBuild(func(context.Context) error {
		order = append(order, "second")
		return nil
	})
	if err := host.RunBeforeBuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	if strings.Join(order, ",") != "first,second" {
		t.Errorf("order = %v", order)
	}

	var got map[string][]string
	host.OnLayouts(func(l map[string][]string) { got = l })
	host.ResolveLayouts(map[string][]string{"base.templ": {"a.templ"}})
	if len(got["base.templ"]) != 1 {
		t.Errorf("layouts = %v", got)
	}
}

func TestTestHostLayoutsSnapshot(t *testing.T) {
	host := NewTestHost()
	calls := 0
	host.OnLayouts(func(map[string][]string) {
		calls++
		host.OnLayouts(func(map[string][]string) { calls += 10 })
	})

	host.ResolveLayouts(nil)
	if calls != 1 {
		t.Errorf("calls after first resolve = %d, want 1", calls)
	}
	host.ResolveLayouts(nil)
	if calls != 12 {
		t.Errorf("calls after second resolve = %d, want 12", calls)
	}
}

func TestTestHostBeforeBuildError(t *testing.T) {
	host := NewTestHost()
	boom := errors.New("boom")
	ran := false
	host.OnBeforeBuild(func(context.Context) error { return boom })
	host.OnBeforeBuild(func(context.Context) error {
		ran = true
		return nil
	})

	if err := host.RunBeforeBuild(context.Background()); !errors.Is(err, boom) {
		t.Errorf("RunBeforeBuild = %v, want boom", err)
	}
	if ran {
		t.Error("handlers after a failure should not run")
	}
}

func TestTestHostRenderString(t *testing.T) {
	host := NewTestHost()
	host.Renderers["upper"] = func(s string) (string, error) { return strings.ToUpper(s), nil }

	out, err := host.RenderString(context.Background(), "hi", "upper", nil)
	if err != nil || out != "HI" {
		t.Errorf("RenderString = %q, %v", out, err)
	}
	if _, err := host.RenderString(context.Background(), "hi", "md", nil); err == nil {
		t.Error("expected error for unknown syntax")
	}
}

func TestTestRenderWithoutCompile(t *testing.T) {
	_, err := TestRender(context.Background(), Extension{}, "a.templ", "", engine.Data{})
	if err == nil {
		t.Error("expected error for extension without compile")
	}
}

func TestPageData(t *testing.T) {
	data := PageData("/x/", "x.templ")
	rd, err := decodeRenderData(data)
	if err != nil {
		t.Fatal(err)
	}
	if rd.Page.URL != "/x/" || rd.Page.InputPath != "x.templ" {
		t.Errorf("decoded %+v", rd.Page)
	}
}
