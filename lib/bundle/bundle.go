// Package bundle substitutes asset markers in rendered HTML with the code
// collected for a page.
//
// Markers come in two forms:
//   - Raw: /*@hxsite:asset:css:default*/ is replaced by the bundled code
//     verbatim. Use it inside an existing <style> or <script> element.
//   - Wrapped: <!--@hxsite:asset:css:default--> is replaced by the bundled
//     code inside a <style> (css) or <script> (js) element. Nothing is emitted
//     when the bucket is empty.
//
// Kind and bucket are percent-escaped inside a marker, so any bucket name
// survives the round trip. A marker left over after substitution is an
// error, never output.
//
// Substitution must run only after every fragment for the page has been
// written. Markers emitted early in the document still receive fragments
// that nested templates contributed later in the same render.
package bundle

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Well-known asset kinds.
const (
	KindCSS = "css"
	KindJS  = "js"
)

const (
	defaultBucket = "default"
	markerTag     = "@hxsite:asset:"
)

// ErrNoAssetManager is returned when a marker names an asset kind that has
// no registered manager.
var ErrNoAssetManager = errors.New("hxsite: no asset manager registered for kind")

// ErrMalformedMarker is returned when asset marker text remains in the
// document after substitution.
var ErrMalformedMarker = errors.New("hxsite: malformed asset marker")

// Source supplies the bundled code for a page and bucket.
// *codemanager.Manager implements Source.
type Source interface {
	GetForPage(pageKey, bucket string) string
}

// wrappers maps asset kinds to the element used for wrapped markers.
var wrappers = map[string][2]string{
	KindCSS: {"<style>", "</style>"},
	KindJS:  {"<script>", "</script>"},
}

// escaped matches the output of url.QueryEscape.
const escaped = `([A-Za-z0-9_.~%+\-]+)`

// markerPattern matches both marker forms. Groups 1-2 capture kind and
// bucket of a raw marker, groups 3-4 of a wrapped one.
var markerPattern = regexp.MustCompile(
	`/\*` + regexp.QuoteMeta(markerTag) + escaped + `:` + escaped + `\*/` +
		`|<!--` + regexp.QuoteMeta(markerTag) + escaped + `:` + escaped + `-->`,
)

// Key returns the raw marker for kind and bucket.
func Key(kind, bucket string) string {
	return "/*" + markerTag + marker(kind, bucket) + "*/"
}

// WrappedKey returns the wrapped marker for kind and bucket.
func WrappedKey(kind, bucket string) string {
	return "<!--" + markerTag + marker(kind, bucket) + "-->"
}

func marker(kind, bucket string) string {
	return url.QueryEscape(kind) + ":" + url.QueryEscape(normalizeBucket(bucket))
}

// Bundler rewrites the markers of one rendered document.
type Bundler struct {
	html     string
	managers map[string]Source
}

// New creates a Bundler for html.
func New(html string) *Bundler {
	return &Bundler{
		html:     html,
		managers: make(map[string]Source),
	}
}

// SetAssetManager registers the source for an asset kind ("css", "js").
func (b *Bundler) SetAssetManager(kind string, m Source) {
	b.managers[kind] = m
}

// HasMarkers reports whether the document contains any asset marker.
func (b *Bundler) HasMarkers() bool {
	return strings.Contains(b.html, markerTag)
}

// ReplaceAll substitutes every marker with the code registered for pageKey
// and returns the resulting document.
func (b *Bundler) ReplaceAll(pageKey string) (string, error) {
	if !b.HasMarkers() {
		return b.html, nil
	}

	matches := markerPattern.FindAllStringSubmatchIndex(b.html, -1)
	if len(matches) == 0 {
		return "", fmt.Errorf("%w (page %s)", ErrMalformedMarker, pageKey)
	}

	var out strings.Builder
	out.Grow(len(b.html))
	last := 0
	for _, m := range matches {
		out.WriteString(b.html[last:m[0]])
		last = m[1]

		wrapped := m[2] < 0
		var rawKind, rawBucket string
		if wrapped {
			rawKind, rawBucket = b.html[m[6]:m[7]], b.html[m[8]:m[9]]
		} else {
			rawKind, rawBucket = b.html[m[2]:m[3]], b.html[m[4]:m[5]]
		}
		kind, err := url.QueryUnescape(rawKind)
		if err != nil {
			return "", fmt.Errorf("%w: kind %q (page %s)", ErrMalformedMarker, rawKind, pageKey)
		}
		bucket, err := url.QueryUnescape(rawBucket)
		if err != nil {
			return "", fmt.Errorf("%w: bucket %q (page %s)", ErrMalformedMarker, rawBucket, pageKey)
		}

		src, ok := b.managers[kind]
		if !ok {
			return "", fmt.Errorf("%w: %q (page %s)", ErrNoAssetManager, kind, pageKey)
		}

		code := src.GetForPage(pageKey, bucket)
		if wrapped {
			code = wrap(kind, code)
		}
		out.WriteString(code)
	}
	out.WriteString(b.html[last:])

	// Substituted code is not scanned; only the document's own text is.
	for i, m := range matches {
		start := 0
		if i > 0 {
			start = matches[i-1][1]
		}
		if strings.Contains(b.html[start:m[0]], markerTag) {
			return "", fmt.Errorf("%w (page %s)", ErrMalformedMarker, pageKey)
		}
	}
	if strings.Contains(b.html[last:], markerTag) {
		return "", fmt.Errorf("%w (page %s)", ErrMalformedMarker, pageKey)
	}

	return out.String(), nil
}

func wrap(kind, code string) string {
	if code == "" {
		return ""
	}
	w, ok := wrappers[kind]
	if !ok {
		return code
	}
	return w[0] + code + w[1]
}

func normalizeBucket(bucket string) string {
	if bucket == "" {
		return defaultBucket
	}
	return bucket
}
