package reader

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/KingTheFifth/ray-tracer/asset"
	"github.com/KingTheFifth/ray-tracer/log"
	"github.com/KingTheFifth/ray-tracer/scene"
)

// Entries of a compiled scene archive.
const (
	SphereDataFile = "spheres.bin"
	CameraFile     = "camera.json"
)

var ErrMissingEntry = errors.New("zip reader: missing archive entry")

type zipSceneReader struct {
	logger log.Logger
}

// Create a new zip scene reader.
func newZipSceneReader() *zipSceneReader {
	return &zipSceneReader{
		logger: log.New("zip reader"),
	}
}

// Read a compiled scene from a zip file.
func (p *zipSceneReader) Read(sceneRes *asset.Resource) (*scene.Scene, error) {
	p.logger.Noticef(`parsing compiled scene from "%s"`, sceneRes.Path())
	start := time.Now()

	// zip package requires a reader implementing ReaderAt. To work around
	// this requirement we read the entire zip file into memory and create
	// a reader from the bytes package that implements ReaderAt
	data, err := sceneRes.Bytes()
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("zip reader: %s: %w", sceneRes.Path(), err)
	}

	var (
		spheres    []scene.Sphere
		camera     *scene.Camera
		hasSpheres bool
	)
	for _, f := range zr.File {
		switch f.Name {
		case SphereDataFile:
			payload, err := readEntry(f)
			if err != nil {
				return nil, err
			}
			if spheres, err = scene.UnmarshalSpheres(payload); err != nil {
				return nil, fmt.Errorf("zip reader: failed to load %s: %w", f.Name, err)
			}
			hasSpheres = true
		case CameraFile:
			payload, err := readEntry(f)
			if err != nil {
				return nil, err
			}
			camera = scene.NewCamera(defaultFOV)
			if err = json.Unmarshal(payload, camera); err != nil {
				return nil, fmt.Errorf("zip reader: failed to load %s: %w", f.Name, err)
			}
		default:
			p.logger.Warningf("unknown file %s in scene zip file; skipping", f.Name)
		}
	}

	if !hasSpheres {
		return nil, fmt.Errorf("%w: %s", ErrMissingEntry, SphereDataFile)
	}
	if camera == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingEntry, CameraFile)
	}

	sc, err := scene.New(camera, spheres...)
	if err != nil {
		return nil, err
	}

	p.logger.Noticef("loaded scene in %d ms", time.Since(start).Milliseconds())
	return sc, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("zip reader: could not open %s: %w", f.Name, err)
	}
	defer rc.Close()

	return io.ReadAll(rc)
}
