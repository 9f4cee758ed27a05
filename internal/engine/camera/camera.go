// Package camera mirrors the host camera pose so the editor can place new
// objects, turn screen positions into pick rays and frame bounds.
package camera

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/navscene/internal/engine/model"
	"github.com/Faultbox/navscene/internal/engine/picking"
)

// Camera is a perspective camera defined by a position and view direction.
type Camera struct {
	Position mgl32.Vec3
	Forward  mgl32.Vec3 // Normalized view direction

	FieldOfView float32 // Vertical, degrees
	Near        float32
	Far         float32
}

// New creates a camera at the origin looking down +Z.
func New(fov float32) *Camera {
	if fov <= 0 || fov >= 180 {
		fov = 60
	}
	return &Camera{
		Forward:     mgl32.Vec3{0, 0, 1},
		FieldOfView: fov,
		Near:        0.1,
		Far:         1000,
	}
}

// SetPose updates position and direction. A zero forward keeps the old direction.
func (c *Camera) SetPose(position, forward mgl32.Vec3) {
	c.Position = position
	if forward.Len() > 0 {
		c.Forward = forward.Normalize()
	}
}

// PointAhead returns the point dist units in front of the camera.
func (c *Camera) PointAhead(dist float32) mgl32.Vec3 {
	return c.Position.Add(c.Forward.Mul(dist))
}

// up picks a world up vector that is not parallel to the view direction.
func (c *Camera) up() mgl32.Vec3 {
	up := mgl32.Vec3{0, 1, 0}
	if gomath.Abs(float64(c.Forward.Dot(up))) > 0.999 {
		return mgl32.Vec3{0, 0, 1}
	}
	return up
}

// ViewMatrix returns the world-to-view matrix.
func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Forward), c.up())
}

// ProjectionMatrix returns the perspective projection for aspect (width / height).
func (c *Camera) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FieldOfView), aspect, c.Near, c.Far)
}

// ScreenRay returns the world ray through pixel (x, y) of a w by h viewport.
func (c *Camera) ScreenRay(x, y, w, h float32) picking.Ray {
	if w <= 0 || h <= 0 {
		return picking.NewRay(c.Position, c.Forward)
	}
	viewProj := c.ProjectionMatrix(w / h).Mul4(c.ViewMatrix())
	return picking.ScreenToRay(x, y, w, h, viewProj.Inv())
}

// FitToBounds moves the camera back along its view direction until the
// largest dimension of b fills a field of view of fov degrees (the camera's
// own when fov is not positive). It returns the framed center and distance.
func (c *Camera) FitToBounds(b model.Bounds, fov float32) (mgl32.Vec3, float32) {
	if fov <= 0 {
		fov = c.FieldOfView
	}
	center := b.Center()
	dist := model.FitDistance(b, mgl32.DegToRad(fov))
	c.Position = center.Sub(c.Forward.Mul(dist))
	return center, dist
}
