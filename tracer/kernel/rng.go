package kernel

import (
	"math"
	"math/rand/v2"

	"github.com/KingTheFifth/ray-tracer/types"
)

// A stream is a reproducible pseudo-random sequence keyed by
// (seed, pixel, frame, sample, bounce). Re-keying the stream discards any
// previous state so every tuple yields the same numbers regardless of the
// order in which pixels are processed.
type stream struct {
	pcg *rand.PCG
	rng *rand.Rand
}

func newStream() *stream {
	pcg := rand.NewPCG(0, 0)
	return &stream{
		pcg: pcg,
		rng: rand.New(pcg),
	}
}

// Re-key the stream. Bounce 0 is reserved for the camera ray.
func (s *stream) reset(seed, pixel, frame, sample, bounce uint32) {
	hi := mix64(uint64(seed)<<32 | uint64(pixel))
	lo := mix64(uint64(frame)<<32 | uint64(sample))
	lo = mix64(lo ^ hi ^ (uint64(bounce) * 0x9e3779b97f4a7c15))
	s.pcg.Seed(hi, lo)
}

// Uniform value in [0, 1).
func (s *stream) float() float32 {
	return s.rng.Float32()
}

// Random direction uniformly distributed on the unit sphere.
func (s *stream) unitVector() types.Vec3 {
	for {
		v := types.XYZ(
			float32(s.rng.NormFloat64()),
			float32(s.rng.NormFloat64()),
			float32(s.rng.NormFloat64()),
		)
		if l := v.Len(); l > 1e-6 {
			return v.Mul(1 / l)
		}
	}
}

// Random point uniformly distributed inside the unit disk.
func (s *stream) inUnitDisk() types.Vec2 {
	r := float32(math.Sqrt(float64(s.float())))
	theta := 2 * math.Pi * float64(s.float())
	return types.XY(r*float32(math.Cos(theta)), r*float32(math.Sin(theta)))
}

// Cosine weighted direction in the hemisphere around unit normal n.
func (s *stream) cosineHemisphere(n types.Vec3) types.Vec3 {
	dir := n.Add(s.unitVector())
	if dir.Len() < 1e-6 {
		return n
	}
	return dir.Normalize()
}

// SplitMix64 finalizer.
func mix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
