package hxsite

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	// Verify sentinel errors are distinct
	errs := []error{
		ErrNoEngine,
		ErrNoPageURL,
		ErrInvalidRenderData,
		ErrNilArtifact,
		ErrNotCompiled,
		ErrNoRenderer,
		ErrNoAssetManager,
		ErrMalformedMarker,
	}

	for i, err1 := range errs {
		for j, err2 := range errs {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v and %v", err1, err2)
			}
		}
	}
}

func TestIsConfigurationError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect bool
	}{
		{"nil error", nil, false},
		{"ErrNoEngine", ErrNoEngine, true},
		{"ErrNoAssetManager", ErrNoAssetManager, true},
		{"wrapped ErrNoAssetManager", fmt.Errorf("bundle /x/: %w", ErrNoAssetManager), true},
		{"ErrNoRenderer", ErrNoRenderer, true},
		{"ErrNoPageURL", ErrNoPageURL, false},
		{"ErrMalformedMarker", ErrMalformedMarker, false},
		{"other error", errors.New("other error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsConfigurationError(tt.err)
			if result != tt.expect {
				t.Errorf("IsConfigurationError(%v) = %v, want %v", tt.err, result, tt.expect)
			}
		})
	}
}

func TestIsNotCompiled(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect bool
	}{
		{"nil error", nil, false},
		{"ErrNotCompiled", ErrNotCompiled, true},
		{"wrapped ErrNotCompiled", fmt.Errorf("wrapped: %w", ErrNotCompiled), true},
		{"ErrNilArtifact", ErrNilArtifact, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotCompiled(tt.err); got != tt.expect {
				t.Errorf("IsNotCompiled(%v) = %v, want %v", tt.err, got, tt.expect)
			}
		})
	}
}
