package cpu

import (
	"image/color"
	"math"
	"time"

	"github.com/KingTheFifth/ray-tracer/tracer"
	"github.com/KingTheFifth/ray-tracer/tracer/kernel"
	"github.com/KingTheFifth/ray-tracer/types"
)

// Display gamma applied after tonemapping.
const displayGamma = 2.2

// An alias for functions that can be used as part of the rendering pipeline.
type PipelineStage func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error)

// The list of pluggable of stages that are used to render the scene.
type Pipeline struct {
	// Reset the tracer state. This stage is executed for the first frame
	// after the camera or scene changes.
	Reset PipelineStage

	// This stage traces the block and blends the new samples into the
	// accumulation buffer.
	Integrator PipelineStage

	// A set of post-processing stages that are executed prior to
	// rendering the final frame.
	PostProcess []PipelineStage
}

// Create the default pipeline. A zero exposure uses the camera exposure.
func DefaultPipeline(exposure float32) *Pipeline {
	return &Pipeline{
		Reset:      ClearAccumulator(),
		Integrator: PathTraceIntegrator(),
		PostProcess: []PipelineStage{
			TonemapSimpleReinhard(exposure),
		},
	}
}

// Clear the accumulator rows covered by the block.
func ClearAccumulator() PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()
		err := tr.target.Accumulator.ClearRows(int(blockReq.BlockY), int(blockReq.BlockH))
		return time.Since(start), err
	}
}

// Trace the block rows with the path tracing kernel and accumulate the
// noisy estimate into the back accumulation buffer.
func PathTraceIntegrator() PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()

		err := kernel.RenderBlock(tr.device, tr.frameCfg, tr.sceneData, tr.noisy, blockReq.BlockY, blockReq.BlockH)
		if err != nil {
			return time.Since(start), err
		}

		err = tr.target.Accumulator.AccumulateRows(tr.noisy, blockReq.FrameIndex, int(blockReq.BlockY), int(blockReq.BlockH))
		return time.Since(start), err
	}
}

// Apply simple Reinhard tone-mapping to the accumulated block rows and write
// them to the RGBA frame buffer.
func TonemapSimpleReinhard(exposure float32) PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()

		exp := exposure
		if exp <= 0 {
			exp = tr.frameCfg.Camera.Exposure
		}

		accum := tr.target.Accumulator.Back()
		fb := tr.target.FrameBuffer
		for y := int(blockReq.BlockY); y < int(blockReq.BlockY+blockReq.BlockH); y++ {
			for x := 0; x < accum.Width; x++ {
				fb.SetRGBA(x, y, Tonemap(accum.At(x, y), exp))
			}
		}

		return time.Since(start), nil
	}
}

// Map linear HDR radiance to an 8-bit display colour: exposure scale,
// Reinhard c/(1+c) and gamma correction.
func Tonemap(c types.Vec3, exposure float32) color.RGBA {
	var out [3]uint8
	for i := 0; i < 3; i++ {
		v := float64(c[i] * exposure)
		if v <= 0 || math.IsNaN(v) {
			continue
		}
		if math.IsInf(v, 1) {
			out[i] = 255
			continue
		}
		v = v / (1 + v)
		v = math.Pow(v, 1/displayGamma)
		out[i] = uint8(math.Min(255, math.Round(v*255)))
	}
	return color.RGBA{out[0], out[1], out[2], 255}
}
