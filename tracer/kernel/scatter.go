package kernel

import (
	"math"

	"github.com/KingTheFifth/ray-tracer/scene"
	"github.com/KingTheFifth/ray-tracer/types"
)

type scatterMode uint8

const (
	diffuseMode scatterMode = iota
	specularMode
	refractMode
)

// Pick a scatter mode using the material selection probabilities. Returns
// the selected mode and its probability.
func selectMode(m *scene.Material, u float32) (scatterMode, float32) {
	pS, pR := m.SpecularProbability, m.RefractionProbability
	switch {
	case u < pS:
		return specularMode, pS
	case u < pS+pR:
		return refractMode, pR
	}
	return diffuseMode, m.DiffuseProbability()
}

// Scatter a ray with unit direction dir that hit a surface with outward unit
// normal n. Returns the new direction and the throughput weight, which
// already includes the division by the selected mode probability.
func scatter(m *scene.Material, dir, n types.Vec3, rng *stream) (types.Vec3, types.Vec3) {
	mode, p := selectMode(m, rng.float())
	if p <= 0 {
		// Floating point remainder of the mode probabilities.
		return dir, types.Vec3{}
	}

	// Normal facing the incoming ray.
	facing := n
	if dir.Dot(n) > 0 {
		facing = n.Neg()
	}

	switch mode {
	case specularMode:
		diffuseDir := rng.cosineHemisphere(facing)
		mirror := dir.Reflect(facing).Add(rng.unitVector().Mul(m.Fuzz)).Normalize()
		out := diffuseDir.Lerp(mirror, m.Smoothness).Normalize()
		if out.Dot(facing) <= 0 || out.IsZero() {
			out = dir.Reflect(facing)
		}

		cosTheta := clamp01(-dir.Dot(facing))
		fresnel := schlick(m.F0, m.F90, cosTheta)
		return out, m.Albedo.Lerp(m.SpecularColour, fresnel).Mul(1 / p)
	case refractMode:
		out := refract(dir, n, m.IOR)
		if m.RefractionRoughness > 0 {
			// Perturb towards a diffuse transmission about the side the ray exits to.
			exitNormal := facing
			if out.Dot(facing) < 0 {
				exitNormal = facing.Neg()
			}
			out = out.Lerp(rng.cosineHemisphere(exitNormal), m.RefractionRoughness).Normalize()
			if out.IsZero() {
				out = exitNormal
			}
		}
		return out, m.Albedo.Mul(1 / p)
	}

	return rng.cosineHemisphere(facing), m.Albedo.Mul(1 / p)
}

// Refract a unit direction at a surface with outward unit normal n and the
// given index of refraction. The index ratio is inverted when the ray leaves
// the surface. Falls back to mirror reflection on total internal reflection.
func refract(dir, n types.Vec3, ior float32) types.Vec3 {
	eta := 1 / ior
	facing := n
	if dir.Dot(n) > 0 {
		eta = ior
		facing = n.Neg()
	}

	cosTheta := float64(-dir.Dot(facing))
	if cosTheta > 1 {
		cosTheta = 1
	}
	sin2Theta := float64(eta) * float64(eta) * (1 - cosTheta*cosTheta)
	if sin2Theta > 1 {
		return dir.Reflect(facing)
	}

	perp := dir.Add(facing.Mul(float32(cosTheta))).Mul(eta)
	parallel := facing.Mul(-float32(math.Sqrt(math.Abs(1 - sin2Theta))))
	return perp.Add(parallel).Normalize()
}

// Schlick approximation of the Fresnel reflectance.
func schlick(f0, f90, cosTheta float32) float32 {
	x := 1 - cosTheta
	x2 := x * x
	return f0 + (f90-f0)*x2*x2*x
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
