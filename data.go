package hxsite

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/pthm/hxsite/lib/engine"
)

// DataKey is the render data key holding per-page plugin settings:
//
//	data := engine.Data{
//	    "page":   map[string]any{"url": "/blog/", "inputPath": "pages/blog.templ"},
//	    "hxsite": map[string]any{"components": "_components/*.templ"},
//	}
const DataKey = "hxsite"

// renderData is the part of the render data the plugin reads.
type renderData struct {
	Page struct {
		URL        string `mapstructure:"url"`
		InputPath  string `mapstructure:"inputPath"`
		OutputPath string `mapstructure:"outputPath"`
	} `mapstructure:"page"`

	Settings struct {
		// Components are page-local component globs, relative to the page
		// unless prefixed with "~/".
		Components []string `mapstructure:"components"`
	} `mapstructure:"hxsite"`
}

// decodeRenderData reads the plugin's view of data. A single components
// glob may be given as a string.
func decodeRenderData(data engine.Data) (*renderData, error) {
	var rd renderData
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &rd,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRenderData, err)
	}
	if rd.Page.URL == "" {
		return nil, ErrNoPageURL
	}
	return &rd, nil
}
