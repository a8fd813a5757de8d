package renderer

import (
	"image"

	"github.com/KingTheFifth/ray-tracer/scene"
)

type Renderer interface {
	// Render the configured number of frames.
	Render() error

	// Render and accumulate the next frame and return the tonemapped frame buffer.
	RenderFrame() (*image.RGBA, error)

	// Replace the camera. The accumulated history is discarded.
	UpdateCamera(*scene.Camera) error

	// Replace the scene. The accumulated history is discarded.
	UpdateScene(*scene.Scene) error

	// Get the number of frames accumulated since the last reset.
	FrameIndex() uint32

	// Shutdown renderer and any attached tracer.
	Close()

	// Get render statistics.
	Stats() FrameStats
}
