package hxsite

import (
	"errors"

	"github.com/pthm/hxsite/lib/bundle"
)

// Sentinel errors for plugin operations.
var (
	ErrNoEngine          = errors.New("hxsite: no template engine configured")
	ErrNoPageURL         = errors.New("hxsite: render data has no page url")
	ErrInvalidRenderData = errors.New("hxsite: invalid render data")
	ErrNilArtifact       = errors.New("hxsite: serializer returned no artifact")
	ErrNotCompiled       = errors.New("hxsite: page has not completed compilation")
	ErrNoRenderer        = errors.New("hxsite: host cannot render nested syntax")

	// ErrNoAssetManager is returned when an asset marker names a kind with
	// no code manager behind it.
	ErrNoAssetManager = bundle.ErrNoAssetManager

	// ErrMalformedMarker is returned when asset marker text survives
	// substitution.
	ErrMalformedMarker = bundle.ErrMalformedMarker
)

// IsConfigurationError reports whether err comes from a wiring mistake
// rather than from template content.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrNoEngine) ||
		errors.Is(err, ErrNoAssetManager) ||
		errors.Is(err, ErrNoRenderer)
}

// IsNotCompiled checks if err reports a bundle attempted before compilation
// finished.
func IsNotCompiled(err error) bool {
	return errors.Is(err, ErrNotCompiled)
}
