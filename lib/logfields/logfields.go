// Package logfields holds canonical slog attribute names shared across packages.
package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPageURL    = "page_url"
	KeyInputPath  = "input_path"
	KeyOutputPath = "output_path"
	KeyFormat     = "format"
	KeyBucket     = "bucket"
	KeyKind       = "kind"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyHelper     = "helper"
	KeyPath       = "path"
	KeyError      = "error"
)

func PageURL(u string) slog.Attr      { return slog.String(KeyPageURL, u) }
func InputPath(p string) slog.Attr    { return slog.String(KeyInputPath, p) }
func OutputPath(p string) slog.Attr   { return slog.String(KeyOutputPath, p) }
func Format(f string) slog.Attr       { return slog.String(KeyFormat, f) }
func Bucket(b string) slog.Attr       { return slog.String(KeyBucket, b) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Helper(name string) slog.Attr    { return slog.String(KeyHelper, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
