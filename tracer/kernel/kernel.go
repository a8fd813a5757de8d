package kernel

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/KingTheFifth/ray-tracer/scene"
	"github.com/KingTheFifth/ray-tracer/tracer"
	"github.com/KingTheFifth/ray-tracer/types"
)

// Lower bound for the russian roulette survival probability.
const minSurvivalProbability = 0.05

var (
	ErrInvalidFrameConfig = errors.New("kernel: invalid frame configuration")
	ErrNoScene            = errors.New("kernel: no scene uploaded")
)

// The explicit per-frame kernel configuration. It is fixed before a frame
// starts and never changes while the frame is being rendered.
type FrameConfig struct {
	// Output dimensions.
	Width  uint32
	Height uint32

	// Camera basis derived for this frame.
	Camera scene.Basis

	SamplesPerPixel uint32

	// Maximum number of path segments per sample. A value of 0 renders black.
	MaxBounces uint32

	// Number of bounces after which russian roulette path termination kicks
	// in. A value of 0 disables russian roulette.
	MinBouncesForRR uint32

	// 1-based index of the frame since the last accumulation reset.
	FrameIndex uint32

	// Session seed mixed into every random stream.
	Seed uint32
}

// Create a frame configuration deriving the camera basis for the output aspect ratio.
func NewFrameConfig(cam *scene.Camera, width, height, samplesPerPixel, maxBounces, frameIndex uint32) (FrameConfig, error) {
	if width == 0 || height == 0 {
		return FrameConfig{}, fmt.Errorf("%w: frame dimensions %dx%d", ErrInvalidFrameConfig, width, height)
	}
	basis, err := cam.Basis(float32(width) / float32(height))
	if err != nil {
		return FrameConfig{}, err
	}

	cfg := FrameConfig{
		Width:           width,
		Height:          height,
		Camera:          basis,
		SamplesPerPixel: samplesPerPixel,
		MaxBounces:      maxBounces,
		FrameIndex:      frameIndex,
	}
	return cfg, cfg.Validate()
}

// Check the configuration.
func (cfg FrameConfig) Validate() error {
	switch {
	case cfg.Width == 0 || cfg.Height == 0:
		return fmt.Errorf("%w: frame dimensions %dx%d", ErrInvalidFrameConfig, cfg.Width, cfg.Height)
	case cfg.SamplesPerPixel == 0:
		return fmt.Errorf("%w: samples per pixel must be > 0", ErrInvalidFrameConfig)
	case cfg.FrameIndex == 0:
		return fmt.Errorf("%w: frame index starts at 1", ErrInvalidFrameConfig)
	}
	return nil
}

// A read-only handle to an uploaded sphere array shared by all pixels of a frame.
type Scene struct {
	spheres []scene.Sphere
}

// Upload a packed sphere array. The data must use the layout produced by
// scene.MarshalSpheres.
func Upload(data []byte) (*Scene, error) {
	spheres, err := scene.UnmarshalSpheres(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tracer.ErrResourceUnavailable, err)
	}
	return &Scene{spheres: spheres}, nil
}

// Get the number of uploaded spheres.
func (sc *Scene) Len() int {
	return len(sc.spheres)
}

// The Executor interface is implemented by facilities that invoke a per-pixel
// function over a rectangular region of the output.
type Executor interface {
	// Invoke fn for every pixel in [x, x+w) x [y, y+h) and block until all
	// invocations complete.
	Exec2D(x, y, w, h uint32, fn func(x, y uint32))
}

// Render a full noisy frame using all available CPUs.
func RenderFrame(cfg FrameConfig, sc *Scene) (*types.Image, error) {
	out := types.NewImage(int(cfg.Width), int(cfg.Height))
	if err := RenderBlock(parallelRows{}, cfg, sc, out, 0, cfg.Height); err != nil {
		return nil, err
	}
	return out, nil
}

// Render rows [blockY, blockY+blockH) of a noisy frame into out.
func RenderBlock(exec Executor, cfg FrameConfig, sc *Scene, out *types.Image, blockY, blockH uint32) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if sc == nil {
		return ErrNoScene
	}
	if out == nil || out.Width != int(cfg.Width) || out.Height != int(cfg.Height) {
		return fmt.Errorf("%w: output buffer does not match %dx%d", ErrInvalidFrameConfig, cfg.Width, cfg.Height)
	}
	if blockY+blockH > cfg.Height {
		return fmt.Errorf("%w: block rows [%d, %d) exceed frame height %d", ErrInvalidFrameConfig, blockY, blockY+blockH, cfg.Height)
	}

	exec.Exec2D(0, blockY, cfg.Width, blockH, func(x, y uint32) {
		out.Set(int(x), int(y), Radiance(cfg, sc, x, y))
	})
	return nil
}

// Estimate the incoming radiance for pixel (x, y) of the configured frame as
// the mean of SamplesPerPixel independent path samples.
func Radiance(cfg FrameConfig, sc *Scene, x, y uint32) types.Vec3 {
	if cfg.SamplesPerPixel == 0 {
		return types.Vec3{}
	}

	rng := newStream()
	pixel := y*cfg.Width + x

	var sum types.Vec3
	for sample := uint32(0); sample < cfg.SamplesPerPixel; sample++ {
		rng.reset(cfg.Seed, pixel, cfg.FrameIndex, sample, 0)
		origin, dir := primaryRay(&cfg, x, y, rng)
		sum = sum.Add(tracePath(&cfg, sc.spheres, origin, dir, rng, pixel, sample))
	}
	return sum.Mul(1 / float32(cfg.SamplesPerPixel))
}

// Generate a jittered camera ray through pixel (x, y). Row 0 is the top of
// the frame. The ray origin is sampled on the lens disk when depth of field
// is enabled.
func primaryRay(cfg *FrameConfig, x, y uint32, rng *stream) (types.Vec3, types.Vec3) {
	cam := &cfg.Camera
	u := ((float32(x)+rng.float())/float32(cfg.Width))*2 - 1
	v := 1 - ((float32(y)+rng.float())/float32(cfg.Height))*2

	target := cam.Eye.
		Sub(cam.Forward.Mul(cam.FocusDist)).
		Add(cam.Right.Mul(u * cam.HalfWidth)).
		Add(cam.Up.Mul(v * cam.HalfHeight))

	origin := cam.Eye
	if cam.DefocusRadius > 0 {
		disk := rng.inUnitDisk()
		origin = origin.
			Add(cam.Right.Mul(disk[0] * cam.DefocusRadius)).
			Add(cam.Up.Mul(disk[1] * cam.DefocusRadius))
	}

	return origin, target.Sub(origin).Normalize()
}

// Trace a single path and return the radiance it carries back to the camera.
func tracePath(cfg *FrameConfig, spheres []scene.Sphere, origin, dir types.Vec3, rng *stream, pixel, sample uint32) types.Vec3 {
	var radiance types.Vec3
	throughput := types.XYZ(1, 1, 1)
	last := noSphere

	for bounce := uint32(1); bounce <= cfg.MaxBounces; bounce++ {
		h, ok := intersect(spheres, origin, dir, last)
		if !ok {
			break
		}

		m := &spheres[h.sphere].Material
		if m.EmissionStrength > 0 {
			radiance = radiance.Add(throughput.MulVec(m.Emission()))
		}
		if bounce == cfg.MaxBounces {
			break
		}

		rng.reset(cfg.Seed, pixel, cfg.FrameIndex, sample, bounce)
		newDir, weight := scatter(m, dir, h.normal, rng)
		throughput = throughput.MulVec(weight)
		if throughput.IsZero() {
			break
		}

		if cfg.MinBouncesForRR > 0 && bounce >= cfg.MinBouncesForRR {
			p := throughput.MaxComponent()
			if p < minSurvivalProbability {
				p = minSurvivalProbability
			}
			if p < 1 {
				if rng.float() >= p {
					break
				}
				throughput = throughput.Mul(1 / p)
			}
		}

		origin = offsetOrigin(h.point, h.normal, newDir)
		dir = newDir
		last = h.sphere
	}

	// Near tangent hits may still produce non-finite values.
	if radiance.IsNaNOrInf() {
		return types.Vec3{}
	}
	return radiance
}

// Default executor used by RenderFrame; rows are distributed across one
// goroutine per CPU.
type parallelRows struct{}

func (parallelRows) Exec2D(x, y, w, h uint32, fn func(x, y uint32)) {
	rows := make(chan uint32, h)
	for row := y; row < y+h; row++ {
		rows <- row
	}
	close(rows)

	var wg sync.WaitGroup
	for i := 0; i < runtime.NumCPU(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range rows {
				for col := x; col < x+w; col++ {
					fn(col, row)
				}
			}
		}()
	}
	wg.Wait()
}
