package tracer

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/KingTheFifth/ray-tracer/types"
)

func TestAccumulateFirstFrameIsExact(t *testing.T) {
	history := types.NewImage(4, 3)
	history.Fill(types.XYZ(100, -3, float32(math.Inf(1))))
	noisy := types.NewImage(4, 3)
	noisy.Fill(types.XYZ(0.25, 0.5, 0.75))

	out, err := Accumulate(history, noisy, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i, px := range out.Pix {
		if px != noisy.Pix[i] {
			t.Fatalf("expected pixel %d to equal the new frame; got %v", i, px)
		}
	}

	// Inputs must not be modified.
	if history.Pix[0] != types.XYZ(100, -3, float32(math.Inf(1))) {
		t.Fatalf("expected history to be left untouched; got %v", history.Pix[0])
	}

	// The first frame needs no history at all.
	out, err = Accumulate(nil, noisy, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i, px := range out.Pix {
		if px != noisy.Pix[i] {
			t.Fatalf("expected pixel %d to equal the new frame without history; got %v", i, px)
		}
	}
	out.Pix[0] = types.Vec3{}
	if noisy.Pix[0] != types.XYZ(0.25, 0.5, 0.75) {
		t.Fatal("expected the result not to alias the new frame")
	}
}

func TestAccumulateConstantInput(t *testing.T) {
	c := types.XYZ(0.1, 0.7, 3.5)
	noisy := types.NewImage(2, 2)
	noisy.Fill(c)

	history := types.NewImage(2, 2)
	var err error
	for frame := uint32(1); frame <= 64; frame++ {
		history, err = Accumulate(history, noisy, frame)
		if err != nil {
			t.Fatal(err)
		}
		for i, px := range history.Pix {
			for ch := 0; ch < 3; ch++ {
				if diff := math.Abs(float64(px[ch] - c[ch])); diff > 1e-6*math.Abs(float64(c[ch])) {
					t.Fatalf("[frame %d] expected pixel %d to stay at %v; got %v", frame, i, c, px)
				}
			}
		}
	}
}

func TestAccumulateWeights(t *testing.T) {
	type spec struct {
		history    float32
		sample     float32
		frameIndex uint32
		exp        float32
	}
	specs := []spec{
		{0, 1, 1, 1},
		{1, 0, 2, 0.5},
		{0.5, 2, 4, 0.875},
		{3, 3, 10, 3},
	}
	for index, s := range specs {
		got := AccumulatePixel(types.XYZ(s.history, 0, 0), types.XYZ(s.sample, 0, 0), s.frameIndex)
		if math.Abs(float64(got[0]-s.exp)) > 1e-6 {
			t.Fatalf("[spec %d] expected %f; got %f", index, s.exp, got[0])
		}
	}
}

func TestAccumulateVarianceDecreases(t *testing.T) {
	const (
		w, h     = 64, 64
		variance = 1.0 / 12.0 // uniform [0, 1)
	)
	rng := rand.New(rand.NewPCG(1, 2))

	history := types.NewImage(w, h)
	noisy := types.NewImage(w, h)
	checkpoints := map[uint32]bool{1: true, 4: true, 16: true, 64: true}

	var err error
	for frame := uint32(1); frame <= 64; frame++ {
		for i := range noisy.Pix {
			v := rng.Float32()
			noisy.Pix[i] = types.XYZ(v, v, v)
		}
		if history, err = Accumulate(history, noisy, frame); err != nil {
			t.Fatal(err)
		}
		if !checkpoints[frame] {
			continue
		}

		var mean, sq float64
		for _, px := range history.Pix {
			mean += float64(px[0])
		}
		mean /= float64(len(history.Pix))
		for _, px := range history.Pix {
			d := float64(px[0]) - mean
			sq += d * d
		}
		got := sq / float64(len(history.Pix)-1)

		ratio := got * float64(frame) / variance
		if ratio < 0.85 || ratio > 1.15 {
			t.Fatalf("[frame %d] expected variance ~ %f; got %f (ratio %f)", frame, variance/float64(frame), got, ratio)
		}
	}
}

func TestAccumulateErrors(t *testing.T) {
	a := types.NewImage(2, 2)
	if _, err := Accumulate(a, types.NewImage(2, 3), 1); err != ErrBufferSizeMismatch {
		t.Fatalf("expected ErrBufferSizeMismatch; got %v", err)
	}
	if _, err := Accumulate(nil, a, 2); err != ErrBufferSizeMismatch {
		t.Fatalf("expected ErrBufferSizeMismatch for a missing history; got %v", err)
	}
	if _, err := Accumulate(a, nil, 1); err != ErrBufferSizeMismatch {
		t.Fatalf("expected ErrBufferSizeMismatch for a missing frame; got %v", err)
	}
	if _, err := Accumulate(a, a, 0); err != ErrInvalidFrameIndex {
		t.Fatalf("expected ErrInvalidFrameIndex; got %v", err)
	}
	if _, err := NewAccumulationBuffers(0, 1); !errors.Is(err, ErrResourceUnavailable) {
		t.Fatalf("expected ErrResourceUnavailable; got %v", err)
	}
}

func TestAccumulationBuffers(t *testing.T) {
	bufs, err := NewAccumulationBuffers(2, 2)
	if err != nil {
		t.Fatal(err)
	}

	noisy := types.NewImage(2, 2)
	noisy.Fill(types.XYZ(1, 1, 1))

	// Frame 1: only the bottom row
	if err = bufs.AccumulateRows(noisy, 1, 1, 1); err != nil {
		t.Fatal(err)
	}
	if !bufs.Front().At(0, 1).IsZero() {
		t.Fatal("expected the front buffer to be read-only while a frame is in progress")
	}
	if bufs.Back().At(0, 1) != types.XYZ(1, 1, 1) || !bufs.Back().At(0, 0).IsZero() {
		t.Fatalf("expected only row 1 to be written; got %v", bufs.Back().Pix)
	}

	bufs.Swap()
	if bufs.Front().At(1, 1) != types.XYZ(1, 1, 1) {
		t.Fatal("expected the finished history to move to the front after a swap")
	}

	// Frame 2 blends with the history
	noisy.Fill(types.XYZ(0, 0, 0))
	if err = bufs.AccumulateRows(noisy, 2, 0, 2); err != nil {
		t.Fatal(err)
	}
	if got := bufs.Back().At(1, 1); got != types.XYZ(0.5, 0.5, 0.5) {
		t.Fatalf("expected blended value 0.5; got %v", got)
	}

	if err = bufs.AccumulateRows(noisy, 2, 1, 2); !errors.Is(err, ErrBufferSizeMismatch) {
		t.Fatalf("expected ErrBufferSizeMismatch for out of range rows; got %v", err)
	}
	if err = bufs.ClearRows(1, 1); err != nil {
		t.Fatal(err)
	}
	if !bufs.Front().At(0, 1).IsZero() {
		t.Fatal("expected cleared rows to be black")
	}

	bufs.Reset()
	for _, im := range []*types.Image{bufs.Front(), bufs.Back()} {
		for i, px := range im.Pix {
			if !px.IsZero() {
				t.Fatalf("expected pixel %d to be reset; got %v", i, px)
			}
		}
	}
}
