package incremental

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/hxsite/lib/encoding"
	"github.com/pthm/hxsite/lib/engine"
)

type fakePage struct {
	inputPath  string
	components []string
}

func (p *fakePage) InputPath() string { return p.inputPath }
func (p *fakePage) DefineComponents(engine.ComponentsMap) {}
func (p *fakePage) SetHelpers(engine.Helpers) {}
func (p *fakePage) SetTransform(string, engine.TransformFunc) {}
func (p *fakePage) Components(*engine.Setup) []string { return p.components }
func (p *fakePage) Setup(context.Context, engine.SetupOptions) (*engine.Setup, error) {
	return &engine.Setup{}, nil
}

type fakeEngine struct {
	components map[string][]string
	fail       bool
}

func (e *fakeEngine) NewPage(_ string, inputPath string) (engine.Page, error) {
	if e.fail {
		return nil, errors.New("boom")
	}
	return &fakePage{inputPath: inputPath, components: e.components[inputPath]}, nil
}

func TestAddAndSetup(t *testing.T) {
	eng := &fakeEngine{components: map[string][]string{
		"pages/index.templ": {"./components/card.templ", "components/nav.templ"},
	}}
	tr := New(eng)

	page, err := tr.Add("<p>hi</p>", "pages/index.templ")
	require.NoError(t, err)
	assert.Equal(t, "pages/index.templ", page.InputPath())

	got, ok := tr.Page("./pages/index.templ")
	require.True(t, ok)
	assert.Same(t, page, got)

	tr.AddSetup("pages/index.templ", &engine.Setup{})
	assert.Equal(t, []string{"components/card.templ", "components/nav.templ"}, tr.Components("pages/index.templ"))

	assert.True(t, tr.IsIncrementalMatch("pages/index.templ", "components/card.templ"))
	assert.False(t, tr.IsIncrementalMatch("pages/index.templ", "components/footer.templ"))
}

func TestAddEngineError(t *testing.T) {
	tr := New(&fakeEngine{fail: true})
	_, err := tr.Add("", "x.templ")
	require.Error(t, err)

	_, ok := tr.Page("x.templ")
	assert.False(t, ok)
}

func TestAddWithoutEngine(t *testing.T) {
	tr := New(nil)
	_, err := tr.Add("", "x.templ")
	require.Error(t, err)
}

func TestSetupWithoutPageIgnored(t *testing.T) {
	tr := New(&fakeEngine{})
	tr.AddSetup("never-added.templ", &engine.Setup{})
	assert.Empty(t, tr.Components("never-added.templ"))
}

func TestLayouts(t *testing.T) {
	tr := New(&fakeEngine{})
	tr.SetLayouts(map[string][]string{
		"_layouts/base.html": {"pages/index.templ", "pages/about.templ"},
	})

	assert.True(t, tr.IsFileUsingLayout("pages/index.templ", "_layouts/base.html"))
	assert.True(t, tr.IsIncrementalMatch("pages/about.templ", "_layouts/base.html"))
	assert.False(t, tr.IsFileUsingLayout("pages/other.templ", "_layouts/base.html"))
	assert.False(t, tr.IsFileUsingLayout("pages/index.templ", "_layouts/missing.html"))
}

func TestDependents(t *testing.T) {
	eng := &fakeEngine{components: map[string][]string{
		"a.templ": {"card.templ"},
		"b.templ": {"card.templ", "nav.templ"},
		"c.templ": {"nav.templ"},
	}}
	tr := New(eng)
	for _, p := range []string{"a.templ", "b.templ", "c.templ"} {
		_, err := tr.Add("", p)
		require.NoError(t, err)
		tr.AddSetup(p, &engine.Setup{})
	}
	tr.SetLayouts(map[string][]string{"card.templ": {"d.templ"}})

	assert.Equal(t, []string{"a.templ", "b.templ", "d.templ"}, tr.Dependents("card.templ"))
	assert.Equal(t, []string{"b.templ", "c.templ"}, tr.Dependents("nav.templ"))
	assert.Empty(t, tr.Dependents("unused.templ"))
}

func TestStateRoundTrip(t *testing.T) {
	eng := &fakeEngine{components: map[string][]string{"a.templ": {"card.templ"}}}
	tr := New(eng)
	_, err := tr.Add("", "a.templ")
	require.NoError(t, err)
	tr.AddSetup("a.templ", &engine.Setup{})
	tr.SetLayouts(map[string][]string{"base.html": {"a.templ"}})

	enc := encoding.NewEncoder([]byte("project"))
	data, err := tr.MarshalState(enc)
	require.NoError(t, err)

	restored := New(eng)
	require.NoError(t, restored.UnmarshalState(enc, data))

	assert.True(t, restored.IsIncrementalMatch("a.templ", "card.templ"))
	assert.True(t, restored.IsIncrementalMatch("a.templ", "base.html"))
	assert.Equal(t, tr.Snapshot(), restored.Snapshot())
}

func TestRestoreVersionMismatch(t *testing.T) {
	tr := New(nil)
	err := tr.Restore(Snapshot{Version: SnapshotVersion + 1})
	require.Error(t, err)
}
