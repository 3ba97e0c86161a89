package codemanager

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestAddToPagePreservesOrder(t *testing.T) {
	m := New()
	frags := []string{".a{}", ".b{}", ".a{}", ".c{}"}
	for _, f := range frags {
		m.AddToPage("/p/", f, "default")
	}

	got := m.GetForPage("/p/", "default")
	want := strings.Join(frags, Separator)
	if got != want {
		t.Errorf("GetForPage = %q, want %q", got, want)
	}
}

func TestGetForPageUnknown(t *testing.T) {
	m := New()
	m.AddToPage("/p/", "x", "default")

	tests := []struct {
		name   string
		page   string
		bucket string
	}{
		{"unknown page", "/missing/", "default"},
		{"unknown bucket", "/p/", "critical"},
		{"both unknown", "/nope/", "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.GetForPage(tt.page, tt.bucket); got != "" {
				t.Errorf("GetForPage(%q, %q) = %q, want empty", tt.page, tt.bucket, got)
			}
		})
	}
}

func TestEmptyBucketIsDefault(t *testing.T) {
	m := New()
	m.AddToPage("/p/", "one", "")
	m.AddToPage("/p/", "two", DefaultBucket)

	if got := m.GetForPage("/p/", ""); got != "one\ntwo" {
		t.Errorf("GetForPage(default) = %q", got)
	}
}

func TestEmptyFragmentSkipped(t *testing.T) {
	m := New()
	m.AddToPage("/p/", "", "default")
	m.AddToPage("/p/", "a", "default")
	m.AddToPage("/p/", "", "default")

	if got := m.GetForPage("/p/", "default"); got != "a" {
		t.Errorf("GetForPage = %q, want %q", got, "a")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestReset(t *testing.T) {
	m := New()
	m.AddToPage("/a/", "console.log(1)", "default")
	m.AddToPage("/b/", "x", "other")

	m.Reset()
	m.Reset()

	if got := m.GetForPage("/a/", "default"); got != "" {
		t.Errorf("after Reset GetForPage = %q, want empty", got)
	}
	if got := m.GetForPage("/b/", "other"); got != "" {
		t.Errorf("after Reset GetForPage = %q, want empty", got)
	}
	if len(m.Pages()) != 0 {
		t.Errorf("after Reset Pages() = %v", m.Pages())
	}
}

func TestBucketAndPageIsolation(t *testing.T) {
	m := New()
	m.AddToPage("/p1/", "in-a", "a")
	m.AddToPage("/p1/", "in-b", "b")
	m.AddToPage("/p2/", "p2-a", "a")

	if got := m.GetForPage("/p1/", "b"); strings.Contains(got, "in-a") {
		t.Errorf("bucket b leaked bucket a: %q", got)
	}
	if got := m.GetForPage("/p2/", "a"); got != "p2-a" {
		t.Errorf("GetForPage(/p2/, a) = %q", got)
	}
	if got := m.GetForPage("/p2/", "b"); got != "" {
		t.Errorf("GetForPage(/p2/, b) = %q, want empty", got)
	}
}

func TestPagesAndBuckets(t *testing.T) {
	m := New()
	m.AddToPage("/z/", "1", "default")
	m.AddToPage("/a/", "1", "critical")
	m.AddToPage("/a/", "1", "default")

	pages := m.Pages()
	if len(pages) != 2 || pages[0] != "/a/" || pages[1] != "/z/" {
		t.Errorf("Pages() = %v", pages)
	}
	buckets := m.Buckets("/a/")
	if len(buckets) != 2 || buckets[0] != "critical" || buckets[1] != "default" {
		t.Errorf("Buckets() = %v", buckets)
	}
}

func TestConcurrentPages(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			page := fmt.Sprintf("/p%d/", i)
			for j := 0; j < 10; j++ {
				m.AddToPage(page, fmt.Sprintf("f%d", j), "default")
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 16; i++ {
		got := m.GetForPage(fmt.Sprintf("/p%d/", i), "default")
		if !strings.HasPrefix(got, "f0\nf1") || !strings.HasSuffix(got, "f9") {
			t.Errorf("page %d out of order: %q", i, got)
		}
	}
}
