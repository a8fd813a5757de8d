package writer

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/KingTheFifth/ray-tracer/log"
	"github.com/KingTheFifth/ray-tracer/scene"
	"github.com/KingTheFifth/ray-tracer/scene/reader"
)

var ErrNoCamera = errors.New("zip writer: scene has no camera")

type zipSceneWriter struct {
	logger    log.Logger
	sceneFile string
}

// Create a new zip scene writer
func newZipSceneWriter(sceneFile string) *zipSceneWriter {
	return &zipSceneWriter{
		logger:    log.New("zip writer"),
		sceneFile: sceneFile,
	}
}

// Write scene definition to zip file.
func (w *zipSceneWriter) Write(sc *scene.Scene) (err error) {
	if sc.Camera == nil {
		return ErrNoCamera
	}

	w.logger.Noticef("writing compiled scene to %s", w.sceneFile)
	start := time.Now()

	zipFile, err := os.Create(w.sceneFile)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := zipFile.Close(); err == nil {
			err = closeErr
		}
	}()

	zw := zip.NewWriter(zipFile)

	// Write sphere data using the kernel layout
	cw, err := zw.Create(reader.SphereDataFile)
	if err != nil {
		return err
	}
	if _, err = cw.Write(sc.Pack()); err != nil {
		return err
	}

	// Write camera
	cw, err = zw.Create(reader.CameraFile)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cw)
	enc.SetIndent("", "  ")
	if err = enc.Encode(sc.Camera); err != nil {
		return err
	}

	if err = zw.Close(); err != nil {
		return err
	}

	w.logger.Noticef("compiled %d spheres in %d ms", sc.Len(), time.Since(start).Milliseconds())
	return nil
}
