package scene

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/KingTheFifth/ray-tracer/types"
)

// Packed sizes. Every 3-component field is followed by a scalar that fills
// its fourth lane so that all vectors start on a 16 byte boundary.
const (
	MaterialSize = 80
	SphereSize   = 96
)

// Byte offsets inside a packed material.
const (
	OffsetAlbedo                = 0  // vec3
	OffsetEmissionStrength      = 12 // float
	OffsetEmissionColour        = 16 // vec3
	OffsetSpecularProbability   = 28 // float
	OffsetSpecularColour        = 32 // vec3
	OffsetSmoothness            = 44 // float
	OffsetFuzz                  = 48 // float
	OffsetF0                    = 52 // float
	OffsetF90                   = 56 // float
	OffsetRefractionProbability = 60 // float
	OffsetRefractionRoughness   = 64 // float
	OffsetIOR                   = 68 // float
	// 72 - 79: padding
)

// Byte offsets inside a packed sphere.
const (
	OffsetCentre   = 0  // vec3
	OffsetRadius   = 12 // float
	OffsetMaterial = 16 // Material
)

// Pack spheres into the little-endian kernel layout.
func MarshalSpheres(spheres []Sphere) []byte {
	data := make([]byte, len(spheres)*SphereSize)
	for idx, s := range spheres {
		putSphere(data[idx*SphereSize:(idx+1)*SphereSize], s)
	}
	return data
}

// Unpack spheres from the kernel layout. Decoded spheres are validated.
func UnmarshalSpheres(data []byte) ([]Sphere, error) {
	if len(data)%SphereSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrLayoutMismatch, len(data), SphereSize)
	}

	spheres := make([]Sphere, len(data)/SphereSize)
	for idx := range spheres {
		s := getSphere(data[idx*SphereSize : (idx+1)*SphereSize])
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("%w: sphere %d: %v", ErrLayoutMismatch, idx, err)
		}
		spheres[idx] = s
	}
	return spheres, nil
}

func putSphere(b []byte, s Sphere) {
	putVec3(b[OffsetCentre:], s.Centre)
	putFloat(b[OffsetRadius:], s.Radius)
	putMaterial(b[OffsetMaterial:OffsetMaterial+MaterialSize], s.Material)
}

func getSphere(b []byte) Sphere {
	return Sphere{
		Centre:   getVec3(b[OffsetCentre:]),
		Radius:   getFloat(b[OffsetRadius:]),
		Material: getMaterial(b[OffsetMaterial : OffsetMaterial+MaterialSize]),
	}
}

func putMaterial(b []byte, m Material) {
	putVec3(b[OffsetAlbedo:], m.Albedo)
	putFloat(b[OffsetEmissionStrength:], m.EmissionStrength)
	putVec3(b[OffsetEmissionColour:], m.EmissionColour)
	putFloat(b[OffsetSpecularProbability:], m.SpecularProbability)
	putVec3(b[OffsetSpecularColour:], m.SpecularColour)
	putFloat(b[OffsetSmoothness:], m.Smoothness)
	putFloat(b[OffsetFuzz:], m.Fuzz)
	putFloat(b[OffsetF0:], m.F0)
	putFloat(b[OffsetF90:], m.F90)
	putFloat(b[OffsetRefractionProbability:], m.RefractionProbability)
	putFloat(b[OffsetRefractionRoughness:], m.RefractionRoughness)
	putFloat(b[OffsetIOR:], m.IOR)
}

func getMaterial(b []byte) Material {
	return Material{
		Albedo:                getVec3(b[OffsetAlbedo:]),
		EmissionStrength:      getFloat(b[OffsetEmissionStrength:]),
		EmissionColour:        getVec3(b[OffsetEmissionColour:]),
		SpecularProbability:   getFloat(b[OffsetSpecularProbability:]),
		SpecularColour:        getVec3(b[OffsetSpecularColour:]),
		Smoothness:            getFloat(b[OffsetSmoothness:]),
		Fuzz:                  getFloat(b[OffsetFuzz:]),
		F0:                    getFloat(b[OffsetF0:]),
		F90:                   getFloat(b[OffsetF90:]),
		RefractionProbability: getFloat(b[OffsetRefractionProbability:]),
		RefractionRoughness:   getFloat(b[OffsetRefractionRoughness:]),
		IOR:                   getFloat(b[OffsetIOR:]),
	}
}

func putFloat(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func getFloat(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func putVec3(b []byte, v types.Vec3) {
	putFloat(b[0:], v[0])
	putFloat(b[4:], v[1])
	putFloat(b[8:], v[2])
}

func getVec3(b []byte) types.Vec3 {
	return types.Vec3{getFloat(b[0:]), getFloat(b[4:]), getFloat(b[8:])}
}
