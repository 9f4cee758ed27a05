package model

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// Bounds holds an axis-aligned bounding box.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Size returns the box dimensions.
func (b Bounds) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Center returns the box center.
func (b Bounds) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// MaxExtent returns the largest box dimension.
func (b Bounds) MaxExtent() float32 {
	s := b.Size()
	return float32(gomath.Max(float64(s.X()), gomath.Max(float64(s.Y()), float64(s.Z()))))
}

// Corners returns the eight box corners.
func (b Bounds) Corners() [8]mgl32.Vec3 {
	return [8]mgl32.Vec3{
		{b.Min.X(), b.Min.Y(), b.Min.Z()},
		{b.Max.X(), b.Min.Y(), b.Min.Z()},
		{b.Min.X(), b.Max.Y(), b.Min.Z()},
		{b.Max.X(), b.Max.Y(), b.Min.Z()},
		{b.Min.X(), b.Min.Y(), b.Max.Z()},
		{b.Max.X(), b.Min.Y(), b.Max.Z()},
		{b.Min.X(), b.Max.Y(), b.Max.Z()},
		{b.Max.X(), b.Max.Y(), b.Max.Z()},
	}
}

// Transformed returns the axis-aligned box enclosing b after applying m.
func (b Bounds) Transformed(m mgl32.Mat4) Bounds {
	var acc boundsAccumulator
	for _, c := range b.Corners() {
		acc.add(m.Mul4x1(c.Vec4(1)).Vec3())
	}
	return acc.bounds
}

// boundsAccumulator grows a box point by point.
type boundsAccumulator struct {
	bounds Bounds
	any    bool
}

func (a *boundsAccumulator) add(p mgl32.Vec3) {
	if !a.any {
		a.bounds = Bounds{Min: p, Max: p}
		a.any = true
		return
	}
	for i := 0; i < 3; i++ {
		if p[i] < a.bounds.Min[i] {
			a.bounds.Min[i] = p[i]
		}
		if p[i] > a.bounds.Max[i] {
			a.bounds.Max[i] = p[i]
		}
	}
}

// ComputeBounds returns the world-space union of every mesh-bearing part under root.
// When no part has vertices the result is a zero-size box at the root position.
func ComputeBounds(root *Node) Bounds {
	if root == nil {
		return Bounds{}
	}
	var acc boundsAccumulator
	Walk(root, accumulateMeshes(&acc))
	if !acc.any {
		return Bounds{Min: root.Transform.Position, Max: root.Transform.Position}
	}
	return acc.bounds
}

// ComputeLocalBounds is ComputeBounds expressed in node's own frame, so the
// result is independent of node's position, rotation and scale.
func ComputeLocalBounds(node *Node) Bounds {
	if node == nil {
		return Bounds{}
	}
	var acc boundsAccumulator
	walkLocal(node, accumulateMeshes(&acc))
	return acc.bounds
}

func accumulateMeshes(acc *boundsAccumulator) WalkFunc {
	return func(n *Node, world mgl32.Mat4) bool {
		if !n.HasMesh() {
			return true
		}
		for _, v := range n.Mesh.Vertices {
			acc.add(world.Mul4x1(mgl32.Vec4{v[0], v[1], v[2], 1}).Vec3())
		}
		return true
	}
}

// HasNegativeScale reports whether any scale component is negative.
func HasNegativeScale(t Transform) bool {
	return t.Scale.X() < 0 || t.Scale.Y() < 0 || t.Scale.Z() < 0
}

// FitDistance returns the camera distance at which the largest box dimension
// exactly fills a field of view of fov radians.
func FitDistance(b Bounds, fov float32) float32 {
	if fov <= 0 || fov >= gomath.Pi {
		return 0
	}
	return b.MaxExtent() / (2 * float32(gomath.Tan(float64(fov)/2)))
}
