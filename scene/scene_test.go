package scene

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/KingTheFifth/ray-tracer/types"
)

func TestMaterialValidation(t *testing.T) {
	type spec struct {
		mutate func(m *Material)
		expErr error
	}

	specs := []spec{
		{func(m *Material) {}, nil},
		{func(m *Material) { m.Albedo = types.XYZ(1.1, 0, 0) }, ErrConfiguration},
		{func(m *Material) { m.EmissionColour = types.XYZ(0, -0.1, 0) }, ErrConfiguration},
		{func(m *Material) { m.SpecularProbability = 1.5 }, ErrConfiguration},
		{func(m *Material) { m.RefractionProbability = -0.5 }, ErrConfiguration},
		{func(m *Material) { m.SpecularProbability, m.RefractionProbability = 0.6, 0.6 }, ErrConfiguration},
		{func(m *Material) { m.Fuzz = float32(math.NaN()) }, ErrConfiguration},
		{func(m *Material) { m.EmissionStrength = -1 }, ErrConfiguration},
		{func(m *Material) { m.IOR = float32(math.Inf(1)) }, ErrConfiguration},
		{func(m *Material) { m.IOR = 0 }, ErrNumericDegeneracy},
		{func(m *Material) { m.IOR = -1.5 }, ErrNumericDegeneracy},
		{func(m *Material) { m.SpecularProbability, m.RefractionProbability = 0.5, 0.5 }, nil},
	}

	for index, s := range specs {
		m := DefaultMaterial()
		s.mutate(&m)
		err := m.Validate()
		if s.expErr == nil {
			if err != nil {
				t.Fatalf("[spec %d] unexpected error: %v", index, err)
			}
			continue
		}
		if !errors.Is(err, s.expErr) {
			t.Fatalf("[spec %d] expected error %v; got %v", index, s.expErr, err)
		}
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("[spec %d] expected a *ValidationError; got %T", index, err)
		}
	}
}

func TestMaterialConstructors(t *testing.T) {
	mats := []Material{
		Diffuse(types.XYZ(0.5, 0.5, 0.5)),
		Metal(types.XYZ(0.8, 0.6, 0.2), 0.8, 1),
		Glass(1.5),
		Glass(1 / 1.5),
		Light(types.XYZ(1, 1, 1), 100),
	}
	for index, m := range mats {
		if err := m.Validate(); err != nil {
			t.Fatalf("[mat %d] unexpected error: %v", index, err)
		}
	}

	if p := Diffuse(types.XYZ(1, 1, 1)).DiffuseProbability(); p != 1 {
		t.Fatalf("expected diffuse probability 1; got %f", p)
	}
	if p := Glass(1.5).DiffuseProbability(); p != 0 {
		t.Fatalf("expected glass diffuse probability 0; got %f", p)
	}
	if e := Light(types.XYZ(1, 0.5, 0), 10).Emission(); e != types.XYZ(10, 5, 0) {
		t.Fatalf("expected emission (10, 5, 0); got %v", e)
	}
}

func TestMaterialJSONDefaults(t *testing.T) {
	var m Material
	if err := m.UnmarshalJSON([]byte(`{"albedo": [0.2, 0.3, 0.4], "ior": 1.33}`)); err != nil {
		t.Fatal(err)
	}

	if m.Albedo != types.XYZ(0.2, 0.3, 0.4) {
		t.Fatalf("expected albedo to be decoded; got %v", m.Albedo)
	}
	if m.IOR != 1.33 {
		t.Fatalf("expected ior 1.33; got %f", m.IOR)
	}
	exp := DefaultMaterial()
	if m.F0 != exp.F0 || m.F90 != exp.F90 || m.SpecularColour != exp.SpecularColour {
		t.Fatalf("expected omitted fields to keep their defaults; got %+v", m)
	}
}

func TestSphereValidation(t *testing.T) {
	type spec struct {
		radius float32
		centre types.Vec3
		expErr error
	}
	specs := []spec{
		{0.5, types.XYZ(0, 0, -1), nil},
		{0, types.XYZ(0, 0, -1), ErrConfiguration},
		{-1, types.XYZ(0, 0, -1), ErrConfiguration},
		{1, types.XYZ(float32(math.NaN()), 0, 0), ErrConfiguration},
	}

	for index, s := range specs {
		_, err := NewSphere(s.centre, s.radius, DefaultMaterial())
		if s.expErr == nil && err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", index, err)
		}
		if s.expErr != nil && !errors.Is(err, s.expErr) {
			t.Fatalf("[spec %d] expected error %v; got %v", index, s.expErr, err)
		}
	}

	bad := DefaultMaterial()
	bad.IOR = 0
	if _, err := NewSphere(types.XYZ(0, 0, 0), 1, bad); !errors.Is(err, ErrNumericDegeneracy) {
		t.Fatalf("expected material errors to propagate; got %v", err)
	}
}

func TestCameraBasisOrthonormal(t *testing.T) {
	cams := []*Camera{
		NewCamera(90),
		{Eye: types.XYZ(-2, 2, 1), LookAt: types.XYZ(0, 0, -1), Up: types.XYZ(0, 1, 0), FOV: 20, DefocusAngle: 10, FocusDist: 3.4, Exposure: 1},
		{Eye: types.XYZ(3, -1, 7), LookAt: types.XYZ(-2, 4, 0.5), Up: types.XYZ(0.2, 1, 0.1), FOV: 45, FocusDist: 2, Exposure: 1},
		{Eye: types.XYZ(0, 10, 0), LookAt: types.XYZ(0, 0, 0), Up: types.XYZ(0, 0, -1), FOV: 120, FocusDist: 1, Exposure: 0.5},
	}

	const eps = 1e-5
	for index, cam := range cams {
		b, err := cam.Basis(16.0 / 9.0)
		if err != nil {
			t.Fatalf("[cam %d] unexpected error: %v", index, err)
		}

		for name, v := range map[string]types.Vec3{"forward": b.Forward, "right": b.Right, "up": b.Up} {
			if l := v.Len(); math.Abs(float64(l-1)) > eps {
				t.Fatalf("[cam %d] expected %s to be a unit vector; got length %f", index, name, l)
			}
		}
		if d := b.Forward.Dot(b.Right); math.Abs(float64(d)) > eps {
			t.Fatalf("[cam %d] expected forward . right = 0; got %f", index, d)
		}
		if d := b.Forward.Dot(b.Up); math.Abs(float64(d)) > eps {
			t.Fatalf("[cam %d] expected forward . up = 0; got %f", index, d)
		}
		if d := b.Right.Dot(b.Up); math.Abs(float64(d)) > eps {
			t.Fatalf("[cam %d] expected right . up = 0; got %f", index, d)
		}

		// right x up must give forward for a right-handed basis
		if d := b.Right.Cross(b.Up).Sub(b.Forward).Len(); d > eps {
			t.Fatalf("[cam %d] expected a right-handed basis; right x up differs from forward by %f", index, d)
		}
	}
}

func TestCameraViewport(t *testing.T) {
	cam := NewCamera(90)
	cam.FocusDist = 2
	cam.DefocusAngle = 90

	b, err := cam.Basis(2)
	if err != nil {
		t.Fatal(err)
	}

	const eps = 1e-5
	if math.Abs(float64(b.HalfHeight-2)) > eps {
		t.Fatalf("expected half height 2; got %f", b.HalfHeight)
	}
	if math.Abs(float64(b.HalfWidth-4)) > eps {
		t.Fatalf("expected half width 4; got %f", b.HalfWidth)
	}
	if math.Abs(float64(b.DefocusRadius-2)) > eps {
		t.Fatalf("expected defocus radius 2; got %f", b.DefocusRadius)
	}
	if b.Forward != types.XYZ(0, 0, 1) {
		t.Fatalf("expected forward to point from look-at to eye; got %v", b.Forward)
	}
}

func TestCameraValidation(t *testing.T) {
	type spec struct {
		mutate func(c *Camera)
		aspect float32
		expErr error
	}
	specs := []spec{
		{func(c *Camera) { c.FOV = 0 }, 1, ErrConfiguration},
		{func(c *Camera) { c.FOV = 180 }, 1, ErrConfiguration},
		{func(c *Camera) { c.DefocusAngle = -1 }, 1, ErrConfiguration},
		{func(c *Camera) { c.FocusDist = 0 }, 1, ErrConfiguration},
		{func(c *Camera) { c.Exposure = 0 }, 1, ErrConfiguration},
		{func(c *Camera) {}, 0, ErrConfiguration},
		{func(c *Camera) {}, -1, ErrConfiguration},
		{func(c *Camera) { c.LookAt = c.Eye }, 1, ErrNumericDegeneracy},
		{func(c *Camera) { c.Up = types.XYZ(0, 0, 1) }, 1, ErrNumericDegeneracy},
	}

	for index, s := range specs {
		cam := NewCamera(60)
		s.mutate(cam)
		_, err := cam.Basis(s.aspect)
		if !errors.Is(err, s.expErr) {
			t.Fatalf("[spec %d] expected error %v; got %v", index, s.expErr, err)
		}
	}
}

func TestCameraMoveAndOrbit(t *testing.T) {
	cam := NewCamera(60)

	cam.Move(Forward, 2)
	if cam.Eye != types.XYZ(0, 0, -2) || cam.LookAt != types.XYZ(0, 0, -3) {
		t.Fatalf("expected forward move along -Z; got eye %v look at %v", cam.Eye, cam.LookAt)
	}
	cam.Move(Right, 1)
	if cam.Eye != types.XYZ(1, 0, -2) {
		t.Fatalf("expected right move along +X; got eye %v", cam.Eye)
	}
	cam.Move(Up, 1)
	if cam.Eye != types.XYZ(1, 1, -2) {
		t.Fatalf("expected up move along +Y; got eye %v", cam.Eye)
	}

	cam = NewCamera(60)
	cam.Orbit(float32(math.Pi/2), 0)
	view := cam.LookAt.Sub(cam.Eye)
	const eps = 1e-5
	if math.Abs(float64(view.Len()-1)) > eps {
		t.Fatalf("expected orbit to preserve the view distance; got %f", view.Len())
	}
	if math.Abs(float64(view[0]+1)) > eps || math.Abs(float64(view[2])) > eps {
		t.Fatalf("expected a quarter yaw to look down -X; got %v", view)
	}

	cam = NewCamera(60)
	cam.Orbit(0, 0.5)
	if cam.LookAt[1] <= 0 {
		t.Fatalf("expected positive pitch to raise the look-at target; got %v", cam.LookAt)
	}
	if _, err := cam.Basis(1); err != nil {
		t.Fatalf("expected a valid basis after orbit; got %v", err)
	}
}

func TestSceneConstruction(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected missing camera error; got %v", err)
	}

	bad := Sphere{Centre: types.XYZ(0, 0, 0), Radius: -1, Material: DefaultMaterial()}
	if _, err := New(NewCamera(60), bad); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected invalid sphere error; got %v", err)
	}

	spheres := []Sphere{{Centre: types.XYZ(0, 0, -1), Radius: 0.5, Material: Diffuse(types.XYZ(0, 0, 0.5))}}
	sc, err := New(NewCamera(60), spheres...)
	if err != nil {
		t.Fatal(err)
	}

	// Mutating the input slice or the returned copy must not affect the scene.
	spheres[0].Radius = 10
	out := sc.Spheres()
	out[0].Radius = 20
	if got := sc.Spheres()[0].Radius; got != 0.5 {
		t.Fatalf("expected scene spheres to be immutable; got radius %f", got)
	}
	if sc.Len() != 1 {
		t.Fatalf("expected 1 sphere; got %d", sc.Len())
	}

	stats := sc.Stats()
	if !strings.Contains(stats, "0 emitters") || !strings.Contains(stats, "96 bytes") {
		t.Fatalf("expected stats table to include footer totals; got\n%s", stats)
	}
}

func TestPresets(t *testing.T) {
	names := PresetNames()
	if len(names) != 4 {
		t.Fatalf("expected 4 presets; got %d", len(names))
	}
	for _, name := range names {
		sc, err := Preset(name)
		if err != nil {
			t.Fatalf("[preset %s] unexpected error: %v", name, err)
		}
		if sc.Len() == 0 {
			t.Fatalf("[preset %s] expected spheres", name)
		}
	}

	if _, err := Preset("missing"); err != ErrUnknownPreset {
		t.Fatalf("expected ErrUnknownPreset; got %v", err)
	}

	// Presets are built fresh so camera edits do not leak between calls.
	a, _ := Preset("default")
	a.Camera.Move(Forward, 1)
	b, _ := Preset("default")
	if b.Camera.Eye != types.XYZ(-2, 2, 1) {
		t.Fatalf("expected a fresh camera; got eye %v", b.Camera.Eye)
	}
}

// Upper bound of the expected per-channel reflectance of a material when each
// scatter mode is weighted by its colour over its selection probability.
func maxReflectance(m Material) types.Vec3 {
	var sum types.Vec3
	if m.DiffuseProbability() > 0 {
		sum = sum.Add(m.Albedo)
	}
	if m.SpecularProbability > 0 {
		for ch := range sum {
			sum[ch] += float32(math.Max(float64(m.Albedo[ch]), float64(m.SpecularColour[ch])))
		}
	}
	if m.RefractionProbability > 0 {
		sum = sum.Add(m.Albedo)
	}
	return sum
}

func TestPresetMaterialsConserveEnergy(t *testing.T) {
	mats := map[string]Material{
		"glass":  Glass(1.5),
		"bubble": Glass(1 / 1.5),
		"metal":  Metal(types.XYZ(0.8, 0.6, 0.2), 0.8, 1),
	}
	for _, name := range PresetNames() {
		sc, err := Preset(name)
		if err != nil {
			t.Fatal(err)
		}
		for index, s := range sc.Spheres() {
			mats[fmt.Sprintf("%s/%d", name, index)] = s.Material
		}
	}

	for name, m := range mats {
		bound := maxReflectance(m)
		for ch, v := range bound {
			if v > 1+1e-6 {
				t.Fatalf("[%s] expected reflectance <= 1 for channel %d; got %f", name, ch, v)
			}
		}
	}
}
