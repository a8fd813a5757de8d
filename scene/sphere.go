package scene

import (
	"fmt"

	"github.com/KingTheFifth/ray-tracer/types"
)

// A Sphere owns its material by value.
type Sphere struct {
	Centre   types.Vec3 `json:"centre"`
	Radius   float32    `json:"radius"`
	Material Material   `json:"material"`
}

// Create a validated sphere.
func NewSphere(centre types.Vec3, radius float32, material Material) (Sphere, error) {
	s := Sphere{Centre: centre, Radius: radius, Material: material}
	if err := s.Validate(); err != nil {
		return Sphere{}, err
	}
	return s, nil
}

// Check sphere geometry and material.
func (s Sphere) Validate() error {
	if s.Centre.IsNaNOrInf() {
		return configError("sphere", "centre", s.Centre, "coordinates must be finite")
	}
	if !isFinite(s.Radius) || s.Radius <= 0 {
		return configError("sphere", "radius", s.Radius, "radius must be finite and > 0")
	}
	if err := s.Material.Validate(); err != nil {
		return fmt.Errorf("sphere material: %w", err)
	}
	return nil
}
