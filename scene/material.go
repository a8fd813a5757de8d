package scene

import (
	"encoding/json"
	"math"

	"github.com/KingTheFifth/ray-tracer/types"
)

// Tolerance used when checking that the scatter probabilities sum to at most 1.
const probabilitySumTolerance = 1e-6

// A Material describes every scatter behavior a surface supports. On each
// bounce the kernel selects the specular mode with SpecularProbability, the
// refractive mode with RefractionProbability and the diffuse mode with the
// remaining probability. Emission is added on every hit regardless of the
// selected mode.
type Material struct {
	// Diffuse reflectance in linear RGB.
	Albedo types.Vec3 `json:"albedo"`

	// Emitted radiance is EmissionColour * EmissionStrength.
	EmissionColour   types.Vec3 `json:"emission_colour"`
	EmissionStrength float32    `json:"emission_strength"`

	// Specular lobe. Smoothness blends between a diffuse direction (0) and
	// the mirror direction (1); Fuzz perturbs the mirror direction.
	SpecularProbability float32    `json:"specular_probability"`
	SpecularColour      types.Vec3 `json:"specular_colour"`
	Smoothness          float32    `json:"smoothness"`
	Fuzz                float32    `json:"fuzz"`

	// Schlick Fresnel reflectance at normal (F0) and grazing (F90) incidence.
	F0  float32 `json:"f0"`
	F90 float32 `json:"f90"`

	// Transmission lobe.
	RefractionProbability float32 `json:"refraction_probability"`
	RefractionRoughness   float32 `json:"refraction_roughness"`
	IOR                   float32 `json:"ior"`
}

// Get a material with neutral defaults: white diffuse, no emission and an
// index of refraction of 1.
func DefaultMaterial() Material {
	return Material{
		Albedo:         types.XYZ(1, 1, 1),
		SpecularColour: types.XYZ(1, 1, 1),
		Smoothness:     1,
		F0:             0.04,
		F90:            1,
		IOR:            1,
	}
}

// Create a lambertian material.
func Diffuse(albedo types.Vec3) Material {
	m := DefaultMaterial()
	m.Albedo = albedo
	m.Smoothness = 0
	return m
}

// Create a metallic material that always reflects specularly.
func Metal(albedo types.Vec3, smoothness, fuzz float32) Material {
	m := DefaultMaterial()
	m.Albedo = albedo
	m.SpecularProbability = 1
	m.SpecularColour = albedo
	m.Smoothness = smoothness
	m.Fuzz = fuzz
	m.F0 = 1
	return m
}

// Create a clear dielectric. Every bounce refracts; reflection only happens
// through total internal reflection so a hit never returns more light than
// it receives.
func Glass(ior float32) Material {
	m := DefaultMaterial()
	m.RefractionProbability = 1
	m.IOR = ior
	r0 := (1 - ior) / (1 + ior)
	m.F0 = r0 * r0
	return m
}

// Create a black emitter.
func Light(colour types.Vec3, strength float32) Material {
	m := DefaultMaterial()
	m.Albedo = types.Vec3{}
	m.EmissionColour = colour
	m.EmissionStrength = strength
	return m
}

// Get the probability of selecting the diffuse scatter mode.
func (m Material) DiffuseProbability() float32 {
	p := 1 - m.SpecularProbability - m.RefractionProbability
	if p < 0 {
		return 0
	}
	return p
}

// Get the emitted radiance.
func (m Material) Emission() types.Vec3 {
	return m.EmissionColour.Mul(m.EmissionStrength)
}

// Check that all material fields are within their valid ranges. Values are
// never clamped.
func (m Material) Validate() error {
	colours := []struct {
		field string
		value types.Vec3
	}{
		{"albedo", m.Albedo},
		{"emission_colour", m.EmissionColour},
		{"specular_colour", m.SpecularColour},
	}
	for _, c := range colours {
		for _, ch := range c.value {
			if !inUnitRange(ch) {
				return configError("material", c.field, c.value, "colour channels must be in [0, 1]")
			}
		}
	}

	units := []struct {
		field string
		value float32
	}{
		{"specular_probability", m.SpecularProbability},
		{"smoothness", m.Smoothness},
		{"fuzz", m.Fuzz},
		{"f0", m.F0},
		{"f90", m.F90},
		{"refraction_probability", m.RefractionProbability},
		{"refraction_roughness", m.RefractionRoughness},
	}
	for _, u := range units {
		if !inUnitRange(u.value) {
			return configError("material", u.field, u.value, "value must be in [0, 1]")
		}
	}

	if sum := m.SpecularProbability + m.RefractionProbability; sum > 1+probabilitySumTolerance {
		return configError("material", "specular_probability+refraction_probability", sum, "scatter probabilities must not exceed 1")
	}

	if !isFinite(m.EmissionStrength) || m.EmissionStrength < 0 {
		return configError("material", "emission_strength", m.EmissionStrength, "value must be finite and >= 0")
	}

	if math.IsNaN(float64(m.IOR)) || math.IsInf(float64(m.IOR), 0) {
		return configError("material", "ior", m.IOR, "value must be finite")
	}
	if m.IOR <= 0 {
		return degeneracyError("material", "ior", m.IOR, "index of refraction must be > 0")
	}

	return nil
}

// Decode a material applying the defaults from DefaultMaterial for any
// omitted fields.
func (m *Material) UnmarshalJSON(data []byte) error {
	type plain Material
	p := plain(DefaultMaterial())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = Material(p)
	return nil
}

func inUnitRange(v float32) bool {
	return v >= 0 && v <= 1
}

func isFinite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}
