package graphics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"perlin-terrain/internal/noise"
)

// Camera is a free-flying camera. World space is y-up; the map lies in the xz plane with
// vertex (x, y) at (x, height, y).
type Camera struct {
	Position mgl32.Vec3
	Yaw      float64
	Pitch    float64
	Speed    float32

	AspectRatio float32
	FOV         float32
	NearPlane   float32
	FarPlane    float32

	FirstMouse bool
	LastMouseX float64
	LastMouseY float64
}

// Direction is a movement request relative to the camera orientation.
type Direction int

const (
	Forward Direction = iota
	Backward
	Left
	Right
	Up
	Down
)

func NewCamera(width, height int) *Camera {
	return &Camera{
		AspectRatio: float32(width) / float32(height),
		FOV:         60.0,
		NearPlane:   1.0,
		FarPlane:    20000.0,
		Yaw:         -90.0,
		Speed:       400.0,
		FirstMouse:  true,
	}
}

// Frame places the camera above the map centre, high enough to clear the tallest possible
// peak, looking down across the map.
func (c *Camera) Frame(grid noise.VertexGrid, fullAmplitude float64) {
	far := grid.FarCorner()
	centre := mgl32.Vec3{far.X() / 2, 0, far.Y() / 2}
	span := max(far.X(), far.Y())

	height := float32(max(2*fullAmplitude, 512))
	c.Position = mgl32.Vec3{centre.X(), height, centre.Z() + span/2}
	c.Yaw = -90.0
	c.Pitch = -mgl32.RadToDeg(float32(math.Atan2(float64(height), float64(span/2))))
	c.Speed = max(span/4, 100)
	c.FarPlane = max(4*span, 4*height, 1000)
}

// SetViewport updates the aspect ratio after a framebuffer resize.
func (c *Camera) SetViewport(width, height int) {
	if height > 0 {
		c.AspectRatio = float32(width) / float32(height)
	}
}

func (c *Camera) HandleMouseMovement(xpos, ypos float64) {
	if c.FirstMouse {
		c.LastMouseX = xpos
		c.LastMouseY = ypos
		c.FirstMouse = false
		return
	}

	xoffset := xpos - c.LastMouseX
	yoffset := c.LastMouseY - ypos
	c.LastMouseX = xpos
	c.LastMouseY = ypos

	sensitivity := 0.1
	c.Yaw += xoffset * sensitivity
	c.Pitch += yoffset * sensitivity

	// Constrain pitch
	if c.Pitch > 89.0 {
		c.Pitch = 89.0
	}
	if c.Pitch < -89.0 {
		c.Pitch = -89.0
	}
}

// Move flies the camera for dt seconds. Up and Down are along world y.
func (c *Camera) Move(d Direction, dt float64) {
	step := c.Speed * float32(dt)
	front := c.Front()
	right := front.Cross(mgl32.Vec3{0, 1, 0}).Normalize()
	switch d {
	case Forward:
		c.Position = c.Position.Add(front.Mul(step))
	case Backward:
		c.Position = c.Position.Sub(front.Mul(step))
	case Left:
		c.Position = c.Position.Sub(right.Mul(step))
	case Right:
		c.Position = c.Position.Add(right.Mul(step))
	case Up:
		c.Position[1] += step
	case Down:
		c.Position[1] -= step
	}
}

func (c *Camera) Front() mgl32.Vec3 {
	y := mgl32.DegToRad(float32(c.Yaw))
	pt := mgl32.DegToRad(float32(c.Pitch))
	fx := float32(math.Cos(float64(y)) * math.Cos(float64(pt)))
	fy := float32(math.Sin(float64(pt)))
	fz := float32(math.Sin(float64(y)) * math.Cos(float64(pt)))
	return mgl32.Vec3{fx, fy, fz}.Normalize()
}

func (c *Camera) GetViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Front()), mgl32.Vec3{0, 1, 0})
}

func (c *Camera) GetProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.AspectRatio, c.NearPlane, c.FarPlane)
}
