package hxsite

import (
	"errors"
	"testing"

	"github.com/pthm/hxsite/lib/bundle"
	"github.com/pthm/hxsite/lib/engine"
)

func TestSessionCommitAndBundle(t *testing.T) {
	s := NewSession()
	s.Reset()

	art := &engine.Artifact{
		HTML: "<style>" + bundle.Key("css", "default") + "</style><style>" + bundle.Key("css", "critical") + "</style>",
		CSS:  ".x{color:red}",
		Buckets: engine.Buckets{
			CSS: map[string]string{"critical": ".y{color:blue}"},
		},
	}

	compiled, err := s.Commit("/index/", art)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if compiled.PageKey() != "/index/" {
		t.Errorf("PageKey = %q", compiled.PageKey())
	}

	html, err := s.Bundle(compiled)
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	want := "<style>.x{color:red}</style><style>.y{color:blue}</style>"
	if html != want {
		t.Errorf("Bundle = %q, want %q", html, want)
	}
}

func TestSessionResetThenJS(t *testing.T) {
	s := NewSession()
	s.JSManager().AddToPage("/a/", "stale()", "default")

	s.Reset()
	if _, err := s.Commit("/a/", &engine.Artifact{JS: "console.log(1)"}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if got := s.JS("/a/"); got != "console.log(1)" {
		t.Errorf("JS(/a/) = %q", got)
	}
	if got := s.JS("/a/", "default"); got != "console.log(1)" {
		t.Errorf("JS(/a/, default) = %q", got)
	}
	if got := s.JS("/a/", "other"); got != "" {
		t.Errorf("JS(/a/, other) = %q, want empty", got)
	}
}

func TestSessionDefaultBeforeNamedBuckets(t *testing.T) {
	s := NewSession()
	_, err := s.Commit("/p/", &engine.Artifact{
		CSS: "first",
		Buckets: engine.Buckets{CSS: map[string]string{
			"default": "second",
			"z":       "z1",
			"a":       "",
		}},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got := s.CSS("/p/"); got != "first\nsecond" {
		t.Errorf("CSS(/p/) = %q", got)
	}
	if buckets := s.CSSManager().Buckets("/p/"); len(buckets) != 2 {
		t.Errorf("Buckets = %v, empty bucket should be skipped", buckets)
	}
}

func TestSessionCommitErrors(t *testing.T) {
	s := NewSession()
	if _, err := s.Commit("", &engine.Artifact{}); !errors.Is(err, ErrNoPageURL) {
		t.Errorf("Commit without page = %v, want ErrNoPageURL", err)
	}
	if _, err := s.Commit("/p/", nil); !errors.Is(err, ErrNilArtifact) {
		t.Errorf("Commit nil artifact = %v, want ErrNilArtifact", err)
	}
}

func TestSessionBundleRequiresCommit(t *testing.T) {
	s := NewSession()
	other := NewSession()

	if _, err := s.Bundle(nil); !IsNotCompiled(err) {
		t.Errorf("Bundle(nil) = %v, want ErrNotCompiled", err)
	}
	if _, err := s.Bundle(&Compiled{pageKey: "/p/"}); !IsNotCompiled(err) {
		t.Errorf("Bundle(unsealed) = %v, want ErrNotCompiled", err)
	}

	c, err := other.Commit("/p/", &engine.Artifact{HTML: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Bundle(c); !IsNotCompiled(err) {
		t.Errorf("Bundle(foreign) = %v, want ErrNotCompiled", err)
	}
}

func TestSessionBundleUnknownKind(t *testing.T) {
	s := NewSession()
	c, err := s.Commit("/p/", &engine.Artifact{HTML: bundle.WrappedKey("wasm", "default")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Bundle(c); !errors.Is(err, ErrNoAssetManager) {
		t.Errorf("Bundle = %v, want ErrNoAssetManager", err)
	}
}

func TestSessionPageIsolation(t *testing.T) {
	s := NewSession()
	if _, err := s.Commit("/p1/", &engine.Artifact{CSS: "p1"}); err != nil {
		t.Fatal(err)
	}
	c2, err := s.Commit("/p2/", &engine.Artifact{HTML: bundle.WrappedKey("css", "")})
	if err != nil {
		t.Fatal(err)
	}
	html, err := s.Bundle(c2)
	if err != nil {
		t.Fatal(err)
	}
	if html != "" {
		t.Errorf("page /p2/ received %q", html)
	}
}

func TestSessionBundleSpacedBucket(t *testing.T) {
	s := NewSession()
	c, err := s.Commit("/p/", &engine.Artifact{
		HTML:    bundle.WrappedKey("css", "critical css"),
		Buckets: engine.Buckets{CSS: map[string]string{"critical css": "h1{}"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	html, err := s.Bundle(c)
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	if html != "<style>h1{}</style>" {
		t.Errorf("Bundle = %q", html)
	}
}
