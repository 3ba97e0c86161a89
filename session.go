package hxsite

import (
	"fmt"
	"sort"

	"github.com/pthm/hxsite/lib/bundle"
	"github.com/pthm/hxsite/lib/codemanager"
	"github.com/pthm/hxsite/lib/engine"
)

// Session owns the fragment stores of one build.
//
// Rendering a page is a two-phase protocol:
//
//	compiled, err := s.Commit(pageURL, artifact) // phase 1: store fragments
//	html, err := s.Bundle(compiled)               // phase 2: substitute markers
//
// Bundle only accepts a *Compiled returned by Commit on the same session, so
// substitution can never run before the page's fragments are stored.
// Reset must complete before any page of the next build commits.
type Session struct {
	css *codemanager.Manager
	js  *codemanager.Manager
}

// NewSession creates a session with empty stores.
func NewSession() *Session {
	return &Session{
		css: codemanager.New(),
		js:  codemanager.New(),
	}
}

// Reset clears every stored fragment.
func (s *Session) Reset() {
	s.css.Reset()
	s.js.Reset()
}

// CSSManager returns the CSS fragment store.
func (s *Session) CSSManager() *codemanager.Manager {
	return s.css
}

// JSManager returns the JS fragment store.
func (s *Session) JSManager() *codemanager.Manager {
	return s.js
}

// Compiled is a page whose compilation completed and whose fragments are
// stored. Only Session.Commit creates one.
type Compiled struct {
	session *Session
	pageKey string
	html    string
	counts  [2]int // css, js fragments committed
}

// PageKey returns the page the fragments were stored under.
func (c *Compiled) PageKey() string {
	return c.pageKey
}

// Commit stores the fragments of art under pageKey and returns the page
// ready for bundling. Default-bucket code is stored before named buckets,
// and named buckets are stored in name order.
func (s *Session) Commit(pageKey string, art *engine.Artifact) (*Compiled, error) {
	if pageKey == "" {
		return nil, ErrNoPageURL
	}
	if art == nil {
		return nil, ErrNilArtifact
	}

	c := &Compiled{session: s, pageKey: pageKey, html: art.HTML}
	c.counts[0] = commitKind(s.css, pageKey, art.CSS, art.Buckets.CSS)
	c.counts[1] = commitKind(s.js, pageKey, art.JS, art.Buckets.JS)
	return c, nil
}

func commitKind(m *codemanager.Manager, pageKey, def string, buckets map[string]string) int {
	n := 0
	if def != "" {
		m.AddToPage(pageKey, def, codemanager.DefaultBucket)
		n++
	}

	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if buckets[name] == "" {
			continue
		}
		m.AddToPage(pageKey, buckets[name], name)
		n++
	}
	return n
}

// Bundle replaces the asset markers of a committed page with its stored
// code.
func (s *Session) Bundle(c *Compiled) (string, error) {
	if c == nil || c.session != s {
		return "", ErrNotCompiled
	}

	b := bundle.New(c.html)
	b.SetAssetManager(bundle.KindCSS, s.css)
	b.SetAssetManager(bundle.KindJS, s.js)

	out, err := b.ReplaceAll(c.pageKey)
	if err != nil {
		return "", fmt.Errorf("bundle %s: %w", c.pageKey, err)
	}
	return out, nil
}

// CSS returns the bundled CSS of a page for bucket.
func (s *Session) CSS(pageURL string, bucket ...string) string {
	return s.css.GetForPage(pageURL, firstBucket(bucket))
}

// JS returns the bundled JS of a page for bucket.
func (s *Session) JS(pageURL string, bucket ...string) string {
	return s.js.GetForPage(pageURL, firstBucket(bucket))
}

func firstBucket(bucket []string) string {
	if len(bucket) == 0 || bucket[0] == "" {
		return codemanager.DefaultBucket
	}
	return bucket[0]
}
