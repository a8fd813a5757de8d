package renderer

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/KingTheFifth/ray-tracer/log"
	"github.com/KingTheFifth/ray-tracer/scene"
	"github.com/KingTheFifth/ray-tracer/tracer"
	"github.com/KingTheFifth/ray-tracer/tracer/cpu"
)

// The default renderer drives one or more tracers. It owns the frame
// counter and the accumulation buffers, splits every frame into blocks and
// swaps the accumulation buffers once all blocks complete.
type defaultRenderer struct {
	logger log.Logger

	sync.Mutex

	options   Options
	scheduler tracer.BlockScheduler

	tracers          []tracer.Tracer
	blockAssignments []uint32

	target *tracer.FrameTarget

	scene  *scene.Scene
	camera *scene.Camera

	// Number of frames accumulated since the last reset.
	accumulatedFrames uint32

	stats FrameStats

	doneChan chan uint32
	errChan  chan error
}

// Create a new default renderer using the specified block scheduler and tracing pipeline.
func NewDefault(sc *scene.Scene, scheduler tracer.BlockScheduler, pipeline *cpu.Pipeline, opts Options) (Renderer, error) {
	return newDefault(sc, scheduler, pipeline, opts)
}

func newDefault(sc *scene.Scene, scheduler tracer.BlockScheduler, pipeline *cpu.Pipeline, opts Options) (*defaultRenderer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, ErrSceneNotDefined
	}
	if sc.Camera == nil {
		return nil, ErrCameraNotDefined
	}
	if _, err := sc.Camera.Basis(opts.Aspect()); err != nil {
		return nil, err
	}
	if scheduler == nil {
		scheduler = tracer.NaiveScheduler()
	}
	if pipeline == nil {
		pipeline = cpu.DefaultPipeline(opts.Exposure)
	}

	accum, err := tracer.NewAccumulationBuffers(int(opts.FrameW), int(opts.FrameH))
	if err != nil {
		return nil, err
	}

	camCopy := *sc.Camera
	r := &defaultRenderer{
		logger:    log.New("renderer"),
		options:   opts,
		scheduler: scheduler,
		target: &tracer.FrameTarget{
			Accumulator: accum,
			FrameBuffer: image.NewRGBA(image.Rect(0, 0, int(opts.FrameW), int(opts.FrameH))),
		},
		scene:  sc,
		camera: &camCopy,
	}

	start := time.Now()
	for idx, dev := range cpu.SelectDevices(opts.NumTracers, opts.WorkersPerTracer) {
		tr, err := cpu.NewTracer(fmt.Sprintf("cpu-%d", idx), dev, pipeline)
		if err != nil {
			r.logger.Warningf("skipping device %s due to error: %v", dev.Name, err)
			continue
		}

		if err = r.attach(tr); err != nil {
			r.logger.Warningf("skipping device %s due to renderer attachment error: %v", dev.Name, err)
			tr.Close()
			continue
		}
		r.logger.Infof(`attached tracer "%s" (%d workers)`, tr.Id(), dev.Workers)
	}

	if len(r.tracers) == 0 {
		return nil, ErrNoTracers
	}
	r.logger.Noticef("setup %d tracers in %s", len(r.tracers), time.Since(start))

	r.doneChan = make(chan uint32, len(r.tracers))
	r.errChan = make(chan error, len(r.tracers))
	return r, nil
}

// Initialize a tracer and upload the scene data.
func (r *defaultRenderer) attach(tr tracer.Tracer) error {
	if err := tr.Init(r.options.FrameW, r.options.FrameH, r.target); err != nil {
		return err
	}
	if err := tr.UpdateState(tracer.Synchronous, tracer.SceneData, r.scene); err != nil {
		return err
	}
	if err := tr.UpdateState(tracer.Synchronous, tracer.CameraData, r.camera); err != nil {
		return err
	}
	r.tracers = append(r.tracers, tr)
	return nil
}

// Shutdown renderer and any attached tracer.
func (r *defaultRenderer) Close() {
	r.Lock()
	defer r.Unlock()

	for _, tr := range r.tracers {
		tr.Close()
	}
	r.tracers = nil
}

// Render the configured number of frames.
func (r *defaultRenderer) Render() error {
	numFrames := r.options.NumFrames
	if numFrames == 0 {
		numFrames = 1
	}

	for frame := uint32(0); frame < numFrames; frame++ {
		if _, err := r.RenderFrame(); err != nil {
			return err
		}
	}
	return nil
}

// Render and accumulate the next frame.
func (r *defaultRenderer) RenderFrame() (*image.RGBA, error) {
	r.Lock()
	defer r.Unlock()

	return r.renderFrame()
}

// Render a frame. This method is meant to be called while holding r.Lock().
func (r *defaultRenderer) renderFrame() (*image.RGBA, error) {
	if len(r.tracers) == 0 {
		return nil, ErrNoTracers
	}

	frameIndex := r.accumulatedFrames + 1
	start := time.Now()

	r.blockAssignments = r.scheduler.Schedule(r.tracers, r.options.FrameH)

	var blockY uint32
	var pending int
	for idx, tr := range r.tracers {
		blockH := r.blockAssignments[idx]
		if blockH == 0 {
			continue
		}

		tr.Enqueue(tracer.BlockRequest{
			FrameW:          r.options.FrameW,
			FrameH:          r.options.FrameH,
			BlockY:          blockY,
			BlockH:          blockH,
			SamplesPerPixel: r.options.SamplesPerPixel,
			NumBounces:      r.options.NumBounces,
			MinBouncesForRR: r.options.MinBouncesForRR,
			Seed:            r.options.Seed,
			FrameIndex:      frameIndex,
			DoneChan:        r.doneChan,
			ErrChan:         r.errChan,
		})
		blockY += blockH
		pending++
	}

	// Every block must complete before the buffers are swapped.
	var err error
	for ; pending > 0; pending-- {
		select {
		case <-r.doneChan:
		case blockErr := <-r.errChan:
			if err == nil {
				err = blockErr
			}
		}
	}
	if err != nil {
		return nil, err
	}

	r.target.Accumulator.Swap()
	r.accumulatedFrames = frameIndex
	r.updateStats(time.Since(start))
	r.logger.Debugf("rendered frame %d in %s", frameIndex, r.stats.RenderTime)

	return r.target.FrameBuffer, nil
}

func (r *defaultRenderer) updateStats(renderTime time.Duration) {
	r.stats.Tracers = make([]TracerStat, len(r.tracers))
	r.stats.FrameIndex = r.accumulatedFrames
	r.stats.RenderTime = renderTime
	for idx, tr := range r.tracers {
		blockH := r.blockAssignments[idx]
		stat := TracerStat{
			Id:           tr.Id(),
			BlockH:       blockH,
			FramePercent: 100 * float32(blockH) / float32(r.options.FrameH),
		}
		if blockH != 0 {
			stat.RenderTime = tr.Stats().RenderTime
		}
		r.stats.Tracers[idx] = stat
	}
}

// Replace the camera and discard the accumulated history.
func (r *defaultRenderer) UpdateCamera(cam *scene.Camera) error {
	if cam == nil {
		return ErrCameraNotDefined
	}
	if _, err := cam.Basis(r.options.Aspect()); err != nil {
		return err
	}

	r.Lock()
	defer r.Unlock()

	for _, tr := range r.tracers {
		if err := tr.UpdateState(tracer.Asynchronous, tracer.CameraData, cam); err != nil {
			return err
		}
	}

	camCopy := *cam
	r.camera = &camCopy
	r.resetAccumulation("camera changed")
	return nil
}

// Replace the scene and discard the accumulated history.
func (r *defaultRenderer) UpdateScene(sc *scene.Scene) error {
	if sc == nil {
		return ErrSceneNotDefined
	}
	if sc.Camera == nil {
		return ErrCameraNotDefined
	}
	if _, err := sc.Camera.Basis(r.options.Aspect()); err != nil {
		return err
	}

	r.Lock()
	defer r.Unlock()

	for _, tr := range r.tracers {
		if err := tr.UpdateState(tracer.Synchronous, tracer.SceneData, sc); err != nil {
			return err
		}
	}

	camCopy := *sc.Camera
	r.scene = sc
	r.camera = &camCopy
	r.resetAccumulation("scene changed")
	return nil
}

// Restart accumulation with the next frame.
func (r *defaultRenderer) resetAccumulation(reason string) {
	if r.accumulatedFrames != 0 {
		r.logger.Infof("%s; discarding %d accumulated frames", reason, r.accumulatedFrames)
	}
	r.accumulatedFrames = 0
}

// Get the number of frames accumulated since the last reset.
func (r *defaultRenderer) FrameIndex() uint32 {
	r.Lock()
	defer r.Unlock()

	return r.accumulatedFrames
}

// Get render statistics.
func (r *defaultRenderer) Stats() FrameStats {
	r.Lock()
	defer r.Unlock()

	return r.stats
}
