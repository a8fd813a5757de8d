package reader

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/KingTheFifth/ray-tracer/asset"
	"github.com/KingTheFifth/ray-tracer/log"
	"github.com/KingTheFifth/ray-tracer/scene"
)

// The on-disk scene definition. Omitted camera fields keep the values of
// scene.NewCamera(defaultFOV) and omitted material fields keep the values
// of scene.DefaultMaterial.
type sceneDefinition struct {
	Camera  *scene.Camera  `json:"camera"`
	Spheres []scene.Sphere `json:"spheres"`
}

// Vertical field of view used when the definition does not specify one.
const defaultFOV = 90

type jsonSceneReader struct {
	logger log.Logger
}

// Create a new json scene reader.
func newJSONSceneReader() *jsonSceneReader {
	return &jsonSceneReader{
		logger: log.New("json reader"),
	}
}

// Read scene definition from a json document.
func (p *jsonSceneReader) Read(sceneRes *asset.Resource) (*scene.Scene, error) {
	p.logger.Noticef(`parsing scene from "%s"`, sceneRes.Path())
	start := time.Now()

	def := sceneDefinition{Camera: scene.NewCamera(defaultFOV)}
	dec := json.NewDecoder(sceneRes)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("json reader: could not parse %s: %w", sceneRes.Path(), err)
	}
	if def.Camera == nil {
		def.Camera = scene.NewCamera(defaultFOV)
	}

	sc, err := scene.New(def.Camera, def.Spheres...)
	if err != nil {
		return nil, err
	}

	p.logger.Noticef("loaded %d spheres in %d ms", sc.Len(), time.Since(start).Milliseconds())
	return sc, nil
}
