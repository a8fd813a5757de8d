package kernel

import (
	"math"

	"github.com/KingTheFifth/ray-tracer/scene"
	"github.com/KingTheFifth/ray-tracer/types"
)

const (
	// Minimum hit distance.
	tMin = 1e-4

	// Minimum hit distance against the sphere the ray just left.
	tMinSelf = 1e-3

	// Distance along the surface normal applied to the origin of scattered rays.
	originOffset = 1e-3

	// No sphere was left by a camera ray.
	noSphere = -1
)

type hit struct {
	t      float32
	point  types.Vec3
	normal types.Vec3 // outward facing
	sphere int
}

// Find the nearest sphere hit along a normalized ray. Hits on the sphere
// with index last must lie further than tMinSelf.
func intersect(spheres []scene.Sphere, origin, dir types.Vec3, last int) (hit, bool) {
	closest := hit{t: float32(math.Inf(1)), sphere: noSphere}

	for idx := range spheres {
		minT := float64(tMin)
		if idx == last {
			minT = tMinSelf
		}

		t, ok := intersectSphere(&spheres[idx], origin, dir, minT, float64(closest.t))
		if !ok {
			continue
		}
		closest.t = t
		closest.sphere = idx
	}

	if closest.sphere == noSphere {
		return closest, false
	}

	s := &spheres[closest.sphere]
	closest.point = origin.Add(dir.Mul(closest.t))
	closest.normal = closest.point.Sub(s.Centre).Mul(1 / s.Radius).Normalize()
	return closest, true
}

// Solve |o + t*d - c|^2 = r^2 for a unit length d. The quadratic is solved in
// double precision to keep large spheres stable.
func intersectSphere(s *scene.Sphere, origin, dir types.Vec3, minT, maxT float64) (float32, bool) {
	ocx := float64(origin[0]) - float64(s.Centre[0])
	ocy := float64(origin[1]) - float64(s.Centre[1])
	ocz := float64(origin[2]) - float64(s.Centre[2])
	dx, dy, dz := float64(dir[0]), float64(dir[1]), float64(dir[2])
	r := float64(s.Radius)

	b := ocx*dx + ocy*dy + ocz*dz
	c := ocx*ocx + ocy*ocy + ocz*ocz - r*r
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}

	sq := math.Sqrt(disc)
	t := -b - sq
	if t <= minT || t >= maxT {
		t = -b + sq
		if t <= minT || t >= maxT {
			return 0, false
		}
	}
	return float32(t), true
}

// Move a hit point off the surface towards the side dir points to.
func offsetOrigin(point, normal, dir types.Vec3) types.Vec3 {
	if dir.Dot(normal) < 0 {
		return point.Sub(normal.Mul(originOffset))
	}
	return point.Add(normal.Mul(originOffset))
}
