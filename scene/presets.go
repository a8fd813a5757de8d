package scene

import (
	"errors"
	"sort"

	"github.com/KingTheFifth/ray-tracer/types"
)

var ErrUnknownPreset = errors.New("scene: unknown preset")

// Palette shared by the preset scenes.
var (
	white = types.XYZ(1, 0.9, 0.8)
	gray  = white.Mul(0.5)
	red   = types.XYZ(1, 0, 0)
	cyan  = types.XYZ(0, 0.7, 0.7)
	green = types.XYZ(0, 0.5, 0)
	blue  = types.XYZ(0, 0, 0.5)
	brown = types.XYZ(0.8, 0.6, 0.2)
)

var presets = map[string]func() (*Scene, error){
	"default":   defaultPreset,
	"showcase":  showcasePreset,
	"scenario1": scenario1Preset,
	"scenario2": scenario2Preset,
}

// Build a fresh copy of a named preset scene.
func Preset(name string) (*Scene, error) {
	build, exists := presets[name]
	if !exists {
		return nil, ErrUnknownPreset
	}
	return build()
}

// Get the sorted list of preset names.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ground, matte centre, a glass sphere holding an air bubble, a fuzzy brown
// metal and an overhead light.
func defaultPreset() (*Scene, error) {
	cam := &Camera{
		Eye:          types.XYZ(-2, 2, 1),
		LookAt:       types.XYZ(0, 0, -1),
		Up:           types.XYZ(0, 1, 0),
		FOV:          20,
		DefocusAngle: 10,
		FocusDist:    3.4,
		Exposure:     1,
	}

	return New(cam,
		Sphere{Centre: types.XYZ(0, -100.5, -1), Radius: 100, Material: Diffuse(green)},
		Sphere{Centre: types.XYZ(0, 0, -1.2), Radius: 0.5, Material: Diffuse(blue)},
		Sphere{Centre: types.XYZ(-1, 0, -1), Radius: 0.5, Material: Glass(1.5)},
		Sphere{Centre: types.XYZ(-1, 0, -1), Radius: 0.4, Material: Glass(1 / 1.5)},
		Sphere{Centre: types.XYZ(1, 0, -1), Radius: 0.5, Material: Metal(brown, 0.8, 1)},
		Sphere{Centre: types.XYZ(0, 10, -2), Radius: 2, Material: Light(white, 100)},
	)
}

func showcasePreset() (*Scene, error) {
	cam := &Camera{
		Eye:       types.XYZ(0, 0.5, 1),
		LookAt:    types.XYZ(0, 0, -2),
		Up:        types.XYZ(0, 1, 0),
		FOV:       60,
		FocusDist: 3,
		Exposure:  1,
	}

	// Each mode is weighted by colour over probability, so the diffuse and
	// specular colours of the mixed materials are halved to keep their summed
	// reflectance within 1.
	redGlossy := Diffuse(red.Mul(0.5))
	redGlossy.SpecularProbability = 0.3
	redGlossy.SpecularColour = white.Mul(0.5)
	redGlossy.Smoothness = 0.7

	cyanFunky := Diffuse(cyan.Mul(0.5))
	cyanFunky.EmissionColour = green
	cyanFunky.EmissionStrength = 5
	cyanFunky.SpecularProbability = 0.3
	cyanFunky.SpecularColour = blue
	cyanFunky.Smoothness = 0.1

	clearGlass := Glass(1.5)
	bubble := Glass(1 / 1.5)

	return New(cam,
		Sphere{Centre: types.XYZ(1.5, 0.5, -4), Radius: 0.5, Material: redGlossy},
		Sphere{Centre: types.XYZ(0.4, -0.4, -0.7), Radius: 0.1, Material: Diffuse(green)},
		Sphere{Centre: types.XYZ(-1, -0.25, -2), Radius: 0.25, Material: cyanFunky},
		Sphere{Centre: types.XYZ(0, -100.5, -1), Radius: 100, Material: Diffuse(blue)},
		Sphere{Centre: types.XYZ(0, 10, -2), Radius: 2, Material: Light(white, 100)},
		Sphere{Centre: types.XYZ(-0.7, -0.25, -3), Radius: 0.25, Material: Metal(gray, 1, 0)},
		Sphere{Centre: types.XYZ(0.9, -0.5, -4), Radius: 0.5, Material: Metal(gray, 1, 0.6)},
		Sphere{Centre: types.XYZ(-0.5, -0.25, -1), Radius: 0.1, Material: clearGlass},
		Sphere{Centre: types.XYZ(-0.5, -0.25, -1), Radius: 0.08, Material: bubble},
	)
}

// Camera at the origin looking down -Z with a 90 degree field of view.
func scenarioCamera() *Camera {
	return NewCamera(90)
}

// Green ground and a blue diffuse sphere without any emitter.
func scenario1Preset() (*Scene, error) {
	return New(scenarioCamera(),
		Sphere{Centre: types.XYZ(0, -100.5, -1), Radius: 100, Material: Diffuse(green)},
		Sphere{Centre: types.XYZ(0, 0, -1), Radius: 0.5, Material: Diffuse(blue)},
	)
}

// Scenario1 with a mirror blue sphere reflecting an emitter placed behind
// the camera.
func scenario2Preset() (*Scene, error) {
	return Scenario2(10)
}

// Build the mirror scenario with the given emitter strength.
func Scenario2(strength float32) (*Scene, error) {
	mirror := Diffuse(blue)
	mirror.SpecularProbability = 1
	mirror.SpecularColour = types.XYZ(1, 1, 1)
	mirror.Smoothness = 1
	mirror.Fuzz = 0

	return New(scenarioCamera(),
		Sphere{Centre: types.XYZ(0, -100.5, -1), Radius: 100, Material: Diffuse(green)},
		Sphere{Centre: types.XYZ(0, 0, -1), Radius: 0.5, Material: mirror},
		Sphere{Centre: types.XYZ(0, 0, 3), Radius: 1.5, Material: Light(types.XYZ(1, 1, 1), strength)},
	)
}
