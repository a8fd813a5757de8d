package tracer

import (
	"fmt"

	"github.com/KingTheFifth/ray-tracer/types"
)

// Blend a new sample into the running mean of frameIndex-1 previous samples.
// The first frame replaces the history.
func AccumulatePixel(history, sample types.Vec3, frameIndex uint32) types.Vec3 {
	if frameIndex <= 1 {
		return sample
	}

	n := float64(frameIndex)
	wh := (n - 1) / n
	ws := 1 / n
	return types.Vec3{
		float32(float64(history[0])*wh + float64(sample[0])*ws),
		float32(float64(history[1])*wh + float64(sample[1])*ws),
		float32(float64(history[2])*wh + float64(sample[2])*ws),
	}
}

// Accumulate a noisy frame into the history and return the updated history
// as a new image. Neither input is modified. The first frame has no history
// so history may be nil when frameIndex is 1.
func Accumulate(history, noisy *types.Image, frameIndex uint32) (*types.Image, error) {
	if frameIndex == 0 {
		return nil, ErrInvalidFrameIndex
	}
	if noisy == nil {
		return nil, ErrBufferSizeMismatch
	}

	out := types.NewImage(noisy.Width, noisy.Height)
	if frameIndex == 1 && history == nil {
		copy(out.Pix, noisy.Pix)
		return out, nil
	}
	if !noisy.SameSize(history) {
		return nil, ErrBufferSizeMismatch
	}

	accumulateRows(out, history, noisy, frameIndex, 0, noisy.Height)
	return out, nil
}

func accumulateRows(dst, history, noisy *types.Image, frameIndex uint32, y, h int) {
	from, to := y*noisy.Width, (y+h)*noisy.Width
	for i := from; i < to; i++ {
		dst.Pix[i] = AccumulatePixel(history.Pix[i], noisy.Pix[i], frameIndex)
	}
}

// AccumulationBuffers holds the two alternating history buffers. While a
// frame is rendered the front buffer holds the finished history of the
// previous frame and is only read; the new history is written to the back
// buffer. Swap exchanges the roles once every block of the frame completes.
type AccumulationBuffers struct {
	front *types.Image
	back  *types.Image
}

// Allocate a pair of black accumulation buffers.
func NewAccumulationBuffers(width, height int) (*AccumulationBuffers, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: cannot allocate %dx%d accumulation buffers", ErrResourceUnavailable, width, height)
	}
	return &AccumulationBuffers{
		front: types.NewImage(width, height),
		back:  types.NewImage(width, height),
	}, nil
}

// Get the finished history.
func (b *AccumulationBuffers) Front() *types.Image {
	return b.front
}

// Get the buffer receiving the history of the frame in progress.
func (b *AccumulationBuffers) Back() *types.Image {
	return b.back
}

// Exchange the front and back buffers.
func (b *AccumulationBuffers) Swap() {
	b.front, b.back = b.back, b.front
}

// Discard all history.
func (b *AccumulationBuffers) Reset() {
	b.front.Fill(types.Vec3{})
	b.back.Fill(types.Vec3{})
}

// Clear the history rows [y, y+h).
func (b *AccumulationBuffers) ClearRows(y, h int) error {
	if y < 0 || h < 0 || y+h > b.front.Height {
		return fmt.Errorf("%w: rows [%d, %d) outside %d row buffer", ErrBufferSizeMismatch, y, y+h, b.front.Height)
	}
	from, to := y*b.front.Width, (y+h)*b.front.Width
	for i := from; i < to; i++ {
		b.front.Pix[i] = types.Vec3{}
		b.back.Pix[i] = types.Vec3{}
	}
	return nil
}

// Blend rows [y, y+h) of a noisy frame with the front history and write the
// result to the back buffer.
func (b *AccumulationBuffers) AccumulateRows(noisy *types.Image, frameIndex uint32, y, h int) error {
	if frameIndex == 0 {
		return ErrInvalidFrameIndex
	}
	if !b.front.SameSize(noisy) {
		return ErrBufferSizeMismatch
	}
	if y < 0 || h < 0 || y+h > noisy.Height {
		return fmt.Errorf("%w: rows [%d, %d) outside %d row buffer", ErrBufferSizeMismatch, y, y+h, noisy.Height)
	}
	accumulateRows(b.back, b.front, noisy, frameIndex, y, h)
	return nil
}
