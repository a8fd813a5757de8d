package reader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KingTheFifth/ray-tracer/asset"
	"github.com/KingTheFifth/ray-tracer/scene"
)

// Scene arguments with this prefix select a built-in preset.
const PresetPrefix = "preset:"

var ErrUnsupportedFormat = errors.New("scene reader: unsupported file format")

// The Reader interface is implemented by all scene readers.
type Reader interface {
	// Read scene definition from a resource.
	Read(*asset.Resource) (*scene.Scene, error)
}

// Read scene from a preset name, a local file or an http(s) URL. The reader
// is selected by the file extension.
func ReadScene(filename string) (*scene.Scene, error) {
	if strings.HasPrefix(filename, PresetPrefix) {
		return scene.Preset(strings.TrimPrefix(filename, PresetPrefix))
	}

	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return Read(res)
}

// Read scene from an open resource.
func Read(res *asset.Resource) (*scene.Scene, error) {
	var reader Reader
	switch res.Ext() {
	case ".json":
		reader = newJSONSceneReader()
	case ".zip":
		reader = newZipSceneReader()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, res.Path())
	}
	return reader.Read(res)
}
