package cpu

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KingTheFifth/ray-tracer/log"
	"github.com/KingTheFifth/ray-tracer/scene"
	"github.com/KingTheFifth/ray-tracer/tracer"
	"github.com/KingTheFifth/ray-tracer/tracer/kernel"
	"github.com/KingTheFifth/ray-tracer/types"
)

var (
	ErrNoSceneData       = errors.New("cpu tracer: no scene data uploaded")
	ErrNoCameraData      = errors.New("cpu tracer: no camera data uploaded")
	ErrNotInitialized    = errors.New("cpu tracer: tracer not initialized")
	ErrUnsupportedUpdate = errors.New("cpu tracer: unsupported state update")
	ErrRequestDropped    = errors.New("cpu tracer: block request dropped")
)

// A Tracer renders blocks of rows on a CPU device.
type Tracer struct {
	logger log.Logger

	sync.Mutex
	wg sync.WaitGroup

	// The device associated with this tracer instance.
	device *Device

	// The tracer id.
	id string

	// A buffer for queuing updates. Updates are grouped by type and
	// latest updates always overwrite the previous ones.
	updateBuffer map[tracer.UpdateType]interface{}

	// A channel for receiving block requests from the renderer.
	blockReqChan chan tracer.BlockRequest

	// A channel for signaling the worker to exit.
	closeChan chan struct{}

	// Statistics for last rendered frame.
	stats *tracer.Stats

	// The tracer rendering pipeline.
	pipeline *Pipeline

	// Shared output buffers and the tracer-local noisy frame.
	target *tracer.FrameTarget
	noisy  *types.Image

	// The uploaded scene and a private copy of the camera.
	sceneData *kernel.Scene
	camera    *scene.Camera

	// The kernel configuration for the block being rendered.
	frameCfg kernel.FrameConfig
}

// Create a new cpu tracer. A nil pipeline selects the default pipeline.
func NewTracer(id string, device *Device, pipeline *Pipeline) (*Tracer, error) {
	if device == nil {
		return nil, fmt.Errorf("%w: no device", tracer.ErrResourceUnavailable)
	}
	if pipeline == nil {
		pipeline = DefaultPipeline(0)
	}

	return &Tracer{
		logger:       log.New(fmt.Sprintf("cpu tracer (%s)", device.Name)),
		device:       device,
		id:           id,
		blockReqChan: make(chan tracer.BlockRequest, 1),
		updateBuffer: make(map[tracer.UpdateType]interface{}),
		stats:        &tracer.Stats{},
		pipeline:     pipeline,
	}, nil
}

// Get tracer id.
func (tr *Tracer) Id() string {
	return tr.id
}

// Get the computation speed estimate.
func (tr *Tracer) Speed() uint32 {
	return tr.device.Speed()
}

// Initialize tracer
func (tr *Tracer) Init(frameW, frameH uint32, target *tracer.FrameTarget) error {
	tr.Lock()
	defer tr.Unlock()

	if target == nil || target.Accumulator == nil || target.FrameBuffer == nil {
		return fmt.Errorf("%w: missing frame target", tracer.ErrResourceUnavailable)
	}
	front := target.Accumulator.Front()
	bounds := target.FrameBuffer.Bounds()
	if front.Width != int(frameW) || front.Height != int(frameH) || bounds.Dx() != int(frameW) || bounds.Dy() != int(frameH) {
		return fmt.Errorf("%w: frame target does not match %dx%d", tracer.ErrResourceUnavailable, frameW, frameH)
	}

	if err := tr.device.Init(); err != nil {
		tr.cleanup()
		return fmt.Errorf("%w: %w", tracer.ErrResourceUnavailable, err)
	}

	tr.target = target
	tr.noisy = types.NewImage(int(frameW), int(frameH))

	// Start worker
	if tr.closeChan == nil {
		tr.startWorker()
	}

	tr.logger.Infof("initialized for %dx%d frames using %d workers", frameW, frameH, tr.device.Workers)
	return nil
}

// Shutdown and cleanup tracer.
func (tr *Tracer) Close() {
	// The worker may be waiting for the lock so it must be stopped first.
	tr.stopWorker()

	tr.Lock()
	defer tr.Unlock()

	tr.cleanup()
}

// Cleanup tracer. This method is meant to be called while holding tr.Lock()
func (tr *Tracer) cleanup() {
	if tr.device != nil {
		tr.device.Close()
	}

	tr.sceneData = nil
	tr.target = nil
	tr.noisy = nil
}

// If the worker is running shut it down.
func (tr *Tracer) stopWorker() {
	if tr.closeChan == nil {
		return
	}
	tr.closeChan <- struct{}{}

	// wait for worker to ack close and shutdown channel
	<-tr.closeChan
	close(tr.closeChan)
	tr.closeChan = nil
	tr.wg.Wait()
}

// Enqueue block request.
func (tr *Tracer) Enqueue(blockReq tracer.BlockRequest) {
	select {
	case tr.blockReqChan <- blockReq:
	default:
		// drop the request if worker is not listening
		tr.logger.Error("request processor did not receive block request")
		if blockReq.ErrChan != nil {
			blockReq.ErrChan <- ErrRequestDropped
		}
	}
}

// Apply or queue a state update. Camera updates are copied so that later
// changes to the caller's camera cannot leak into a frame in progress.
func (tr *Tracer) UpdateState(mode tracer.UpdateMode, updateType tracer.UpdateType, data interface{}) error {
	switch updateType {
	case tracer.SceneData:
		sc, ok := data.(*scene.Scene)
		if !ok || sc == nil {
			return fmt.Errorf("%w: expected *scene.Scene; got %T", ErrUnsupportedUpdate, data)
		}
	case tracer.CameraData:
		cam, ok := data.(*scene.Camera)
		if !ok || cam == nil {
			return fmt.Errorf("%w: expected *scene.Camera; got %T", ErrUnsupportedUpdate, data)
		}
		camCopy := *cam
		data = &camCopy
	default:
		return fmt.Errorf("%w: type %d", ErrUnsupportedUpdate, updateType)
	}

	tr.Lock()
	defer tr.Unlock()

	if mode == tracer.Synchronous {
		return tr.applyUpdate(updateType, data)
	}

	tr.updateBuffer[updateType] = data
	return nil
}

// Retrieve last frame statistics.
func (tr *Tracer) Stats() *tracer.Stats {
	return tr.stats
}

func (tr *Tracer) applyUpdate(updateType tracer.UpdateType, data interface{}) error {
	switch updateType {
	case tracer.SceneData:
		sc := data.(*scene.Scene)
		ksc, err := kernel.Upload(sc.Pack())
		if err != nil {
			return err
		}
		tr.sceneData = ksc
		if sc.Camera != nil {
			camCopy := *sc.Camera
			tr.camera = &camCopy
		}
		tr.logger.Infof("uploaded %d spheres", ksc.Len())
	case tracer.CameraData:
		tr.camera = data.(*scene.Camera)
	}
	return nil
}

// Commit queued changes. Scene data is applied before camera data so that a
// queued camera always overrides the scene camera.
func (tr *Tracer) commitUpdates() error {
	for _, updateType := range []tracer.UpdateType{tracer.SceneData, tracer.CameraData} {
		data, exists := tr.updateBuffer[updateType]
		if !exists {
			continue
		}
		if err := tr.applyUpdate(updateType, data); err != nil {
			return err
		}
	}

	tr.updateBuffer = make(map[tracer.UpdateType]interface{})
	return nil
}

// Spawn a go-routine to process block render requests.
func (tr *Tracer) startWorker() {
	// Worker already running
	if tr.closeChan != nil {
		return
	}

	closeChan := make(chan struct{})
	tr.closeChan = closeChan
	readyChan := make(chan struct{})
	tr.wg.Add(1)
	go func() {
		defer tr.wg.Done()
		close(readyChan)
		for {
			select {
			case blockReq := <-tr.blockReqChan:
				err := tr.process(&blockReq)
				if err != nil {
					if blockReq.ErrChan != nil {
						blockReq.ErrChan <- err
					} else {
						tr.logger.Errorf("block [%d, %d) failed: %v", blockReq.BlockY, blockReq.BlockY+blockReq.BlockH, err)
					}
					continue
				}
				if blockReq.DoneChan != nil {
					blockReq.DoneChan <- blockReq.BlockH
				}
			case <-closeChan:
				// Ack close
				closeChan <- struct{}{}
				return
			}
		}
	}()

	// Wait for go-routine to start
	<-readyChan
}

// Apply pending updates and render a block.
func (tr *Tracer) process(blockReq *tracer.BlockRequest) error {
	tr.Lock()
	defer tr.Unlock()

	// Apply any pending changes
	if len(tr.updateBuffer) != 0 {
		start := time.Now()
		if err := tr.commitUpdates(); err != nil {
			return err
		}
		tr.stats.UpdateTime = time.Since(start)
	}

	// Render block and reply with our completion status
	start := time.Now()
	if err := tr.renderBlock(blockReq); err != nil {
		return err
	}

	// Update stats
	tr.stats.BlockH = blockReq.BlockH
	tr.stats.RenderTime = time.Since(start)
	tr.logger.Debugf("rendered rows [%d, %d) of frame %d in %s", blockReq.BlockY, blockReq.BlockY+blockReq.BlockH, blockReq.FrameIndex, tr.stats.RenderTime)
	return nil
}

// Render block.
func (tr *Tracer) renderBlock(blockReq *tracer.BlockRequest) error {
	if tr.target == nil {
		return ErrNotInitialized
	}
	if tr.sceneData == nil {
		return ErrNoSceneData
	}
	if tr.camera == nil {
		return ErrNoCameraData
	}

	cfg, err := kernel.NewFrameConfig(tr.camera, blockReq.FrameW, blockReq.FrameH, blockReq.SamplesPerPixel, blockReq.NumBounces, blockReq.FrameIndex)
	if err != nil {
		return err
	}
	cfg.MinBouncesForRR = blockReq.MinBouncesForRR
	cfg.Seed = blockReq.Seed
	tr.frameCfg = cfg

	// Execute pipeline
	var stages []PipelineStage
	if blockReq.FrameIndex == 1 && tr.pipeline.Reset != nil {
		stages = append(stages, tr.pipeline.Reset)
	}
	if tr.pipeline.Integrator != nil {
		stages = append(stages, tr.pipeline.Integrator)
	}
	stages = append(stages, tr.pipeline.PostProcess...)

	for _, stage := range stages {
		if _, err = stage(tr, blockReq); err != nil {
			return err
		}
	}

	return nil
}
