package preview

import (
	"math"

	"github.com/philipparndt/obbkit/pkg/geometry"
)

// Camera is an orbit camera looking at a fixed target
type Camera struct {
	Position  geometry.Vector3
	Target    geometry.Vector3
	Up        geometry.Vector3
	FOV       float64 // Field of view in radians
	Distance  float64
	RotationX float64 // Rotation around X axis (vertical)
	RotationY float64 // Rotation around Y axis (horizontal)
}

// NewCamera creates a camera framing a bounding box
func NewCamera(bbox geometry.BoundingBox) *Camera {
	fov := math.Pi / 4
	// Fit the bounding sphere into the narrower field of view
	radius := math.Max(bbox.Diagonal()/2, 1e-3)
	distance := radius / math.Sin(fov/2) * 1.1

	c := &Camera{
		Target:   bbox.Center(),
		Up:       geometry.NewVector3(0, 1, 0),
		FOV:      fov,
		Distance: distance,
	}
	c.UpdatePosition()
	return c
}

// UpdatePosition updates camera position based on rotation angles
func (c *Camera) UpdatePosition() {
	x := c.Distance * math.Cos(c.RotationX) * math.Sin(c.RotationY)
	y := c.Distance * math.Sin(c.RotationX)
	z := c.Distance * math.Cos(c.RotationX) * math.Cos(c.RotationY)

	c.Position = c.Target.Add(geometry.NewVector3(x, y, z))
}

// Rotate rotates the camera by the given angles
func (c *Camera) Rotate(deltaX, deltaY float64) {
	c.RotationX += deltaX
	c.RotationY += deltaY

	// Clamp X rotation to keep Up usable
	maxAngle := math.Pi/2 - 0.1
	if c.RotationX > maxAngle {
		c.RotationX = maxAngle
	}
	if c.RotationX < -maxAngle {
		c.RotationX = -maxAngle
	}

	c.UpdatePosition()
}

// Forward returns the unit view direction
func (c *Camera) Forward() geometry.Vector3 {
	return c.Target.Sub(c.Position).Normalize()
}

// Project projects a 3D point to screen coordinates and returns its depth
// along the view direction.
func (c *Camera) Project(point geometry.Vector3, width, height float64) (float64, float64, float64) {
	forward := c.Forward()
	right := forward.Cross(c.Up).Normalize()
	up := right.Cross(forward).Normalize()

	relative := point.Sub(c.Position)
	x := relative.Dot(right)
	y := relative.Dot(up)
	z := relative.Dot(forward)

	if z <= 0.01 {
		z = 0.01
	}

	// Square pixels: scale both axes by the shorter side
	scale := math.Min(width, height) / 2 / math.Tan(c.FOV/2)

	screenX := x/z*scale + width/2
	screenY := -y/z*scale + height/2

	return screenX, screenY, z
}
