package scene

import (
	"fmt"
	"math"

	"github.com/KingTheFifth/ray-tracer/types"
	"github.com/go-gl/mathgl/mgl32"
)

// Basis vectors shorter than this are treated as degenerate.
const basisEpsilon = 1e-6

type CameraDirection uint8

// Camera movement directions.
const (
	Forward CameraDirection = iota
	Backward
	Left
	Right
	Up
	Down
)

// The camera type stores the mutable pose and lens settings of the scene camera.
type Camera struct {
	Eye    types.Vec3 `json:"eye"`
	LookAt types.Vec3 `json:"look_at"`
	Up     types.Vec3 `json:"up"`

	// Vertical field of view in degrees.
	FOV float32 `json:"fov"`

	// Thin lens settings. A zero defocus angle disables depth of field.
	DefocusAngle float32 `json:"defocus_angle"`
	FocusDist    float32 `json:"focus_dist"`

	// Post-accumulation radiance scale.
	Exposure float32 `json:"exposure"`
}

// The per-frame camera state derived from a Camera. Forward points from the
// look-at target towards the eye; Right, Up and Forward form a right-handed
// orthonormal basis.
type Basis struct {
	Eye     types.Vec3
	Forward types.Vec3
	Right   types.Vec3
	Up      types.Vec3

	// Viewport extents measured on the focus plane.
	HalfWidth  float32
	HalfHeight float32
	FocusDist  float32

	DefocusRadius float32
	Exposure      float32
}

func (b Basis) String() string {
	return fmt.Sprintf(
		"Camera Basis:\nEye     : (%3.3f, %3.3f, %3.3f)\nForward : (%3.3f, %3.3f, %3.3f)\nRight   : (%3.3f, %3.3f, %3.3f)\nUp      : (%3.3f, %3.3f, %3.3f)\nViewport: %3.3f x %3.3f at %3.3f, lens radius %3.3f",
		b.Eye[0], b.Eye[1], b.Eye[2],
		b.Forward[0], b.Forward[1], b.Forward[2],
		b.Right[0], b.Right[1], b.Right[2],
		b.Up[0], b.Up[1], b.Up[2],
		2*b.HalfWidth, 2*b.HalfHeight, b.FocusDist, b.DefocusRadius,
	)
}

// Create a camera at the origin looking down the negative Z axis.
func NewCamera(fov float32) *Camera {
	return &Camera{
		Eye:       types.Vec3{0, 0, 0},
		LookAt:    types.Vec3{0, 0, -1},
		Up:        types.Vec3{0, 1, 0},
		FOV:       fov,
		FocusDist: 1,
		Exposure:  1,
	}
}

// Check camera settings that do not depend on the output aspect ratio.
func (c *Camera) Validate() error {
	if !isFinite(c.FOV) || c.FOV <= 0 || c.FOV >= 180 {
		return configError("camera", "fov", c.FOV, "vertical field of view must be in (0, 180) degrees")
	}
	if !isFinite(c.DefocusAngle) || c.DefocusAngle < 0 || c.DefocusAngle >= 180 {
		return configError("camera", "defocus_angle", c.DefocusAngle, "defocus angle must be in [0, 180) degrees")
	}
	if !isFinite(c.FocusDist) || c.FocusDist <= 0 {
		return configError("camera", "focus_dist", c.FocusDist, "focus distance must be > 0")
	}
	if !isFinite(c.Exposure) || c.Exposure <= 0 {
		return configError("camera", "exposure", c.Exposure, "exposure must be > 0")
	}
	if c.Eye.IsNaNOrInf() || c.LookAt.IsNaNOrInf() || c.Up.IsNaNOrInf() {
		return configError("camera", "pose", [3]types.Vec3{c.Eye, c.LookAt, c.Up}, "eye, look_at and up must be finite")
	}
	if c.Eye == c.LookAt {
		return degeneracyError("camera", "look_at", c.LookAt, "look_at must differ from eye")
	}
	return nil
}

// Derive the orthonormal view basis and thin-lens parameters for the given
// output aspect ratio.
func (c *Camera) Basis(aspect float32) (Basis, error) {
	if err := c.Validate(); err != nil {
		return Basis{}, err
	}
	if !isFinite(aspect) || aspect <= 0 {
		return Basis{}, configError("camera", "aspect", aspect, "aspect ratio must be > 0")
	}

	forward := c.Eye.Sub(c.LookAt).Normalize()
	right := c.Up.Cross(forward)
	if right.Len() < basisEpsilon {
		return Basis{}, degeneracyError("camera", "up", c.Up, "up vector must not be parallel to the view direction")
	}
	right = right.Normalize()
	up := forward.Cross(right)

	halfHeight := float32(math.Tan(degToRad(c.FOV)/2)) * c.FocusDist
	return Basis{
		Eye:           c.Eye,
		Forward:       forward,
		Right:         right,
		Up:            up,
		HalfHeight:    halfHeight,
		HalfWidth:     halfHeight * aspect,
		FocusDist:     c.FocusDist,
		DefocusRadius: c.FocusDist * float32(math.Tan(degToRad(c.DefocusAngle)/2)),
		Exposure:      c.Exposure,
	}, nil
}

// Translate both eye and look-at target along a view-relative direction.
func (c *Camera) Move(dir CameraDirection, amount float32) {
	view := c.LookAt.Sub(c.Eye).Normalize()
	right := view.Cross(c.Up).Normalize()

	var delta types.Vec3
	switch dir {
	case Forward:
		delta = view.Mul(amount)
	case Backward:
		delta = view.Mul(-amount)
	case Left:
		delta = right.Mul(-amount)
	case Right:
		delta = right.Mul(amount)
	case Up:
		delta = c.Up.Normalize().Mul(amount)
	case Down:
		delta = c.Up.Normalize().Mul(-amount)
	}

	c.Eye = c.Eye.Add(delta)
	c.LookAt = c.LookAt.Add(delta)
}

// Rotate the look-at target around the eye. Yaw rotates around the up
// vector and pitch around the camera right axis; both angles are in radians.
// The eye to target distance is preserved.
func (c *Camera) Orbit(yaw, pitch float32) {
	offset := mgl32.Vec3(c.LookAt.Sub(c.Eye))
	up := mgl32.Vec3(c.Up).Normalize()
	pitchAxis := offset.Cross(up)
	if pitchAxis.Len() < basisEpsilon {
		pitch = 0
		pitchAxis = mgl32.Vec3{1, 0, 0}
	}

	orient := mgl32.QuatRotate(yaw, up).Mul(mgl32.QuatRotate(pitch, pitchAxis.Normalize())).Normalize()
	rotated := orient.Rotate(offset)

	// Refuse rotations that would align the view direction with up.
	if rotated.Normalize().Cross(up).Len() < basisEpsilon {
		return
	}
	c.LookAt = c.Eye.Add(types.Vec3(rotated))
}

func degToRad(deg float32) float64 {
	return float64(deg) * math.Pi / 180
}
