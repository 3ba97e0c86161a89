// Package codemanager accumulates generated code fragments (CSS or JS) per
// page and per bucket for the lifetime of one build.
//
// A Manager is created once and reset at the start of every build. Pages
// append fragments while they compile and read them back when their asset
// markers are substituted:
//
//	css := codemanager.New()
//	css.Reset()
//	css.AddToPage("/index/", ".x{color:red}", codemanager.DefaultBucket)
//	css.GetForPage("/index/", "") // ".x{color:red}"
//
// Fragments within a bucket keep their insertion order. Pages never see each
// other's fragments because every entry is keyed by page URL.
package codemanager

import (
	"sort"
	"strings"
	"sync"
)

// DefaultBucket is the bucket used when no bucket name is given.
const DefaultBucket = "default"

// Separator joins the fragments of one bucket in GetForPage.
const Separator = "\n"

// Manager stores code fragments keyed by page and bucket.
// It is safe for concurrent use.
type Manager struct {
	mu    sync.RWMutex
	pages map[string]map[string][]string // map[pageKey]map[bucket]fragments
}

// New creates an empty Manager.
func New() *Manager {
	return &Manager{
		pages: make(map[string]map[string][]string),
	}
}

// Reset clears every stored fragment for all pages and buckets.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = make(map[string]map[string][]string)
}

// AddToPage appends fragment to the ordered sequence for (pageKey, bucket).
// Empty fragments are skipped. Duplicates are kept in order.
func (m *Manager) AddToPage(pageKey, fragment, bucket string) {
	if fragment == "" {
		return
	}
	bucket = normalizeBucket(bucket)

	m.mu.Lock()
	defer m.mu.Unlock()

	buckets, ok := m.pages[pageKey]
	if !ok {
		buckets = make(map[string][]string)
		m.pages[pageKey] = buckets
	}
	buckets[bucket] = append(buckets[bucket], fragment)
}

// GetForPage returns the fragments for (pageKey, bucket) joined with
// Separator, or "" when nothing was added.
func (m *Manager) GetForPage(pageKey, bucket string) string {
	bucket = normalizeBucket(bucket)

	m.mu.RLock()
	defer m.mu.RUnlock()

	return strings.Join(m.pages[pageKey][bucket], Separator)
}

// Pages returns the keys of all pages holding fragments, sorted.
func (m *Manager) Pages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.pages))
	for k := range m.pages {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Buckets returns the bucket names populated for pageKey, sorted.
func (m *Manager) Buckets(pageKey string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.pages[pageKey]))
	for name := range m.pages[pageKey] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the total number of fragments stored.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, buckets := range m.pages {
		for _, frags := range buckets {
			n += len(frags)
		}
	}
	return n
}

func normalizeBucket(bucket string) string {
	if bucket == "" {
		return DefaultBucket
	}
	return bucket
}
