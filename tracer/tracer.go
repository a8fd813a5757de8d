package tracer

import (
	"image"
	"time"
)

type UpdateType uint8

// Supported state updates.
const (
	SceneData UpdateType = iota
	CameraData
)

type UpdateMode uint8

const (
	// Apply the update immediately.
	Synchronous UpdateMode = iota

	// Queue the update and apply it before processing the next block request.
	Asynchronous
)

// A unit of work that is processed by a tracer.
type BlockRequest struct {
	// Frame dimensions.
	FrameW uint32
	FrameH uint32

	// Block start row and height.
	BlockY uint32
	BlockH uint32

	// The number of emitted rays per traced pixel.
	SamplesPerPixel uint32

	// Number of path segments and the min bounces before applying russian
	// roulette (0 disables it).
	NumBounces      uint32
	MinBouncesForRR uint32

	// A random seed value for the tracer's random number generator.
	Seed uint32

	// 1-based index of the frame since the last accumulation reset.
	FrameIndex uint32

	// A channel to signal on block completion with the number of completed rows.
	DoneChan chan<- uint32

	// A channel to signal if an error occurs.
	ErrChan chan<- error
}

// The buffers shared by all tracers that contribute blocks to a frame.
type FrameTarget struct {
	// Accumulation history.
	Accumulator *AccumulationBuffers

	// Tonemapped output.
	FrameBuffer *image.RGBA
}

// Tracer statistics.
type Stats struct {
	// The rendered block height.
	BlockH uint32

	// The time for applying queued state updates.
	UpdateTime time.Duration

	// The time for rendering this block.
	RenderTime time.Duration
}

type Tracer interface {
	// Get tracer id.
	Id() string

	// Get the computation speed estimate relative to a single CPU core.
	Speed() uint32

	// Initialize the tracer and bind it to the shared frame target.
	Init(frameW, frameH uint32, target *FrameTarget) error

	// Shutdown and cleanup tracer.
	Close()

	// Enqueue block request.
	Enqueue(BlockRequest)

	// Apply or queue a state update.
	UpdateState(UpdateMode, UpdateType, interface{}) error

	// Retrieve last frame statistics.
	Stats() *Stats
}
