package scene

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
)

// A Scene couples a camera with a fixed array of spheres. The sphere array is
// immutable once the scene is constructed; the camera may be replaced between
// frames by the renderer.
type Scene struct {
	Camera *Camera

	spheres []Sphere
}

// Create a new scene. All spheres and the camera are validated; the first
// invalid object aborts construction.
func New(camera *Camera, spheres ...Sphere) (*Scene, error) {
	if camera == nil {
		return nil, configError("scene", "camera", nil, "a camera is required")
	}
	if err := camera.Validate(); err != nil {
		return nil, err
	}
	for idx, s := range spheres {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("scene: sphere %d: %w", idx, err)
		}
	}

	sc := &Scene{
		Camera:  camera,
		spheres: make([]Sphere, len(spheres)),
	}
	copy(sc.spheres, spheres)
	return sc, nil
}

// Get a copy of the scene spheres in upload order.
func (sc *Scene) Spheres() []Sphere {
	out := make([]Sphere, len(sc.spheres))
	copy(out, sc.spheres)
	return out
}

// Get the number of spheres.
func (sc *Scene) Len() int {
	return len(sc.spheres)
}

// Pack the sphere array into the kernel layout.
func (sc *Scene) Pack() []byte {
	return MarshalSpheres(sc.spheres)
}

// Generate a table with the scene contents.
func (sc *Scene) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetHeader([]string{"#", "Centre", "Radius", "Albedo", "Emission", "Spec P", "Refr P", "IOR"})

	var emitters int
	for idx, s := range sc.spheres {
		m := s.Material
		if m.EmissionStrength > 0 {
			emitters++
		}
		table.Append([]string{
			fmt.Sprintf("%d", idx),
			fmt.Sprintf("(%.2f, %.2f, %.2f)", s.Centre[0], s.Centre[1], s.Centre[2]),
			fmt.Sprintf("%.3f", s.Radius),
			fmt.Sprintf("(%.2f, %.2f, %.2f)", m.Albedo[0], m.Albedo[1], m.Albedo[2]),
			fmt.Sprintf("%.2f", m.EmissionStrength),
			fmt.Sprintf("%.2f", m.SpecularProbability),
			fmt.Sprintf("%.2f", m.RefractionProbability),
			fmt.Sprintf("%.3f", m.IOR),
		})
	}
	table.SetFooter([]string{"", "", "", "", fmt.Sprintf("%d emitters", emitters), "", "", fmt.Sprintf("%d bytes", len(sc.spheres)*SphereSize)})
	table.Render()

	if sc.Camera != nil {
		fmt.Fprintf(&buf, "camera: eye (%.2f, %.2f, %.2f) look at (%.2f, %.2f, %.2f) fov %.1f defocus %.1f focus %.2f exposure %.2f\n",
			sc.Camera.Eye[0], sc.Camera.Eye[1], sc.Camera.Eye[2],
			sc.Camera.LookAt[0], sc.Camera.LookAt[1], sc.Camera.LookAt[2],
			sc.Camera.FOV, sc.Camera.DefocusAngle, sc.Camera.FocusDist, sc.Camera.Exposure,
		)
	}
	return buf.String()
}
