package renderer

import "fmt"

type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Number of path segments traced per sample.
	NumBounces uint32

	// Min bounces before applying russian roulette for path elimination.
	// A value of 0 disables russian roulette.
	MinBouncesForRR uint32

	// Number of samples.
	SamplesPerPixel uint32

	// Exposure for tonemapping. A value of 0 uses the camera exposure.
	Exposure float32

	// Seed mixed into every random stream.
	Seed uint32

	// Number of frames accumulated by Render. The interactive renderer stops
	// refining the image once this many frames are accumulated; 0 refines
	// forever.
	NumFrames uint32

	// Tracer selection. A non-positive worker count splits the available
	// CPUs evenly between tracers.
	NumTracers       int
	WorkersPerTracer int
}

// Check the options.
func (opts Options) Validate() error {
	switch {
	case opts.FrameW == 0 || opts.FrameH == 0:
		return fmt.Errorf("%w: frame dimensions %dx%d", ErrInvalidOptions, opts.FrameW, opts.FrameH)
	case opts.SamplesPerPixel == 0:
		return fmt.Errorf("%w: samples per pixel must be > 0", ErrInvalidOptions)
	case opts.Exposure < 0:
		return fmt.Errorf("%w: exposure must be >= 0", ErrInvalidOptions)
	}
	return nil
}

// Get the output aspect ratio.
func (opts Options) Aspect() float32 {
	return float32(opts.FrameW) / float32(opts.FrameH)
}
