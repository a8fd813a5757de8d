package cpu

import (
	"errors"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KingTheFifth/ray-tracer/scene"
	"github.com/KingTheFifth/ray-tracer/tracer"
	"github.com/KingTheFifth/ray-tracer/types"
)

func makeTarget(t *testing.T, w, h int) *tracer.FrameTarget {
	bufs, err := tracer.NewAccumulationBuffers(w, h)
	if err != nil {
		t.Fatal(err)
	}
	return &tracer.FrameTarget{
		Accumulator: bufs,
		FrameBuffer: image.NewRGBA(image.Rect(0, 0, w, h)),
	}
}

// Submit a block request and wait for the tracer to reply.
func renderBlock(t *testing.T, tr *Tracer, req tracer.BlockRequest) error {
	doneChan := make(chan uint32, 1)
	errChan := make(chan error, 1)
	req.DoneChan = doneChan
	req.ErrChan = errChan
	tr.Enqueue(req)

	select {
	case rows := <-doneChan:
		if rows != req.BlockH {
			t.Fatalf("expected %d completed rows; got %d", req.BlockH, rows)
		}
		return nil
	case err := <-errChan:
		return err
	case <-time.After(30 * time.Second):
		t.Fatal("timed out waiting for block")
	}
	return nil
}

func TestDeviceExec2D(t *testing.T) {
	for _, initialized := range []bool{false, true} {
		dev := NewDevice("test", 3)
		if initialized {
			if err := dev.Init(); err != nil {
				t.Fatal(err)
			}
		}

		var calls [4][5]int32
		dev.Exec2D(1, 1, 4, 3, func(x, y uint32) {
			atomic.AddInt32(&calls[y][x], 1)
		})
		dev.Close()

		for y := 0; y < 4; y++ {
			for x := 0; x < 5; x++ {
				exp := int32(0)
				if y >= 1 && x >= 1 {
					exp = 1
				}
				if calls[y][x] != exp {
					t.Fatalf("[init %t] expected pixel (%d, %d) to be visited %d times; got %d", initialized, x, y, exp, calls[y][x])
				}
			}
		}
	}
}

func TestSelectDevices(t *testing.T) {
	devices := SelectDevices(2, 3)
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices; got %d", len(devices))
	}
	for _, dev := range devices {
		if dev.Speed() != 3 {
			t.Fatalf("expected speed 3; got %d", dev.Speed())
		}
	}
	if devices := SelectDevices(0, 0); len(devices) != 1 || devices[0].Workers < 1 {
		t.Fatalf("expected a single device with at least one worker; got %v", devices)
	}
}

func TestTracerRendersScenario1(t *testing.T) {
	const w, h = 16, 8
	sc, err := scene.Preset("scenario1")
	if err != nil {
		t.Fatal(err)
	}

	tr, err := NewTracer("cpu-0", NewDevice("test", 2), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	target := makeTarget(t, w, h)
	if err = tr.Init(w, h, target); err != nil {
		t.Fatal(err)
	}
	if err = tr.UpdateState(tracer.Synchronous, tracer.SceneData, sc); err != nil {
		t.Fatal(err)
	}

	req := tracer.BlockRequest{FrameW: w, FrameH: h, BlockY: 0, BlockH: h, SamplesPerPixel: 1, NumBounces: 1, FrameIndex: 1}
	if err = renderBlock(t, tr, req); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < len(target.FrameBuffer.Pix); i += 4 {
		px := target.FrameBuffer.Pix[i : i+4]
		if px[0] != 0 || px[1] != 0 || px[2] != 0 || px[3] != 255 {
			t.Fatalf("expected opaque black at byte offset %d; got %v", i, px)
		}
	}
	if stats := tr.Stats(); stats.BlockH != h {
		t.Fatalf("expected stats for %d rows; got %d", h, stats.BlockH)
	}
}

func TestTracerBlockAccumulation(t *testing.T) {
	const w, h = 8, 8
	sc, err := scene.Scenario2(10)
	if err != nil {
		t.Fatal(err)
	}

	tr, _ := NewTracer("cpu-0", NewDevice("test", 2), nil)
	defer tr.Close()

	target := makeTarget(t, w, h)
	if err = tr.Init(w, h, target); err != nil {
		t.Fatal(err)
	}
	if err = tr.UpdateState(tracer.Asynchronous, tracer.SceneData, sc); err != nil {
		t.Fatal(err)
	}

	// Render the bottom half only; the top half of the history must stay black.
	req := tracer.BlockRequest{FrameW: w, FrameH: h, BlockY: 4, BlockH: 4, SamplesPerPixel: 2, NumBounces: 4, FrameIndex: 1}
	if err = renderBlock(t, tr, req); err != nil {
		t.Fatal(err)
	}

	back := target.Accumulator.Back()
	for y := 0; y < 4; y++ {
		for x := 0; x < w; x++ {
			if !back.At(x, y).IsZero() {
				t.Fatalf("expected untouched row %d to be black; got %v", y, back.At(x, y))
			}
		}
	}
	if target.FrameBuffer.Pix[0] != 0 || target.FrameBuffer.Pix[3] != 0 {
		t.Fatalf("expected untouched frame buffer rows; got %v", target.FrameBuffer.Pix[0:4])
	}
}

func TestTracerErrors(t *testing.T) {
	if _, err := NewTracer("cpu-0", nil, nil); !errors.Is(err, tracer.ErrResourceUnavailable) {
		t.Fatalf("expected ErrResourceUnavailable; got %v", err)
	}

	tr, _ := NewTracer("cpu-0", NewDevice("test", 1), nil)
	defer tr.Close()

	if err := tr.Init(4, 4, makeTarget(t, 2, 2)); !errors.Is(err, tracer.ErrResourceUnavailable) {
		t.Fatalf("expected ErrResourceUnavailable for mismatched target; got %v", err)
	}
	if err := tr.Init(4, 4, makeTarget(t, 4, 4)); err != nil {
		t.Fatal(err)
	}

	req := tracer.BlockRequest{FrameW: 4, FrameH: 4, BlockH: 4, SamplesPerPixel: 1, NumBounces: 1, FrameIndex: 1}
	if err := renderBlock(t, tr, req); err != ErrNoSceneData {
		t.Fatalf("expected ErrNoSceneData; got %v", err)
	}

	if err := tr.UpdateState(tracer.Synchronous, tracer.CameraData, "camera"); !errors.Is(err, ErrUnsupportedUpdate) {
		t.Fatalf("expected ErrUnsupportedUpdate; got %v", err)
	}
	if err := tr.UpdateState(tracer.Synchronous, tracer.UpdateType(99), nil); !errors.Is(err, ErrUnsupportedUpdate) {
		t.Fatalf("expected ErrUnsupportedUpdate; got %v", err)
	}
}

// Wait for the worker to pick up the queued request.
func waitDequeued(t *testing.T, tr *Tracer) {
	deadline := time.Now().Add(30 * time.Second)
	for len(tr.blockReqChan) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the worker to dequeue the request")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTracerRequestWithoutChannels(t *testing.T) {
	tr, _ := NewTracer("cpu-0", NewDevice("test", 1), nil)
	if err := tr.Init(4, 4, makeTarget(t, 4, 4)); err != nil {
		t.Fatal(err)
	}

	// Fails without scene data and has nowhere to report the error.
	req := tracer.BlockRequest{FrameW: 4, FrameH: 4, BlockH: 4, SamplesPerPixel: 1, NumBounces: 1, FrameIndex: 1}
	tr.Enqueue(req)
	waitDequeued(t, tr)

	// The worker must still be serving requests.
	if err := renderBlock(t, tr, req); err != ErrNoSceneData {
		t.Fatalf("expected ErrNoSceneData; got %v", err)
	}

	sc, _ := scene.Preset("scenario1")
	if err := tr.UpdateState(tracer.Synchronous, tracer.SceneData, sc); err != nil {
		t.Fatal(err)
	}
	tr.Enqueue(req)
	waitDequeued(t, tr)
	if err := renderBlock(t, tr, req); err != nil {
		t.Fatal(err)
	}

	closed := make(chan struct{})
	go func() {
		tr.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(30 * time.Second):
		t.Fatal("timed out waiting for the tracer to close")
	}
}

func TestTracerCameraUpdateIsCopied(t *testing.T) {
	sc, _ := scene.Preset("scenario1")
	tr, _ := NewTracer("cpu-0", NewDevice("test", 1), nil)
	defer tr.Close()

	if err := tr.UpdateState(tracer.Synchronous, tracer.SceneData, sc); err != nil {
		t.Fatal(err)
	}

	cam := scene.NewCamera(45)
	if err := tr.UpdateState(tracer.Asynchronous, tracer.CameraData, cam); err != nil {
		t.Fatal(err)
	}
	cam.FOV = 10

	tr.Lock()
	err := tr.commitUpdates()
	fov := tr.camera.FOV
	tr.Unlock()
	if err != nil {
		t.Fatal(err)
	}
	if fov != 45 {
		t.Fatalf("expected the queued camera snapshot to keep fov 45; got %f", fov)
	}
}

func TestTonemap(t *testing.T) {
	type spec struct {
		in       types.Vec3
		exposure float32
		exp      [3]uint8
	}
	specs := []spec{
		{types.XYZ(0, 0, 0), 1, [3]uint8{0, 0, 0}},
		{types.XYZ(-1, 0, 0), 1, [3]uint8{0, 0, 0}},
		{types.XYZ(1, 1, 1), 1, [3]uint8{186, 186, 186}},
		{types.XYZ(0.5, 0, 0), 2, [3]uint8{186, 0, 0}},
		{types.XYZ(1e30, 0, 0), 1e30, [3]uint8{255, 0, 0}},
	}

	for index, s := range specs {
		got := Tonemap(s.in, s.exposure)
		if got.R != s.exp[0] || got.G != s.exp[1] || got.B != s.exp[2] || got.A != 255 {
			t.Fatalf("[spec %d] expected %v; got %v", index, s.exp, got)
		}
	}
}
