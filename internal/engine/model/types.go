// Package model provides the scene-graph node tree used for imported models,
// hierarchy traversal and geometry utilities.
package model

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/navscene/pkg/formats"
)

// Transform holds a node's position, rotation and scale.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// IdentityTransform returns a transform with no translation, no rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Matrix returns the T*R*S matrix for the transform.
func (t Transform) Matrix() mgl32.Mat4 {
	tr := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rot := t.Rotation.Normalize().Mat4()
	sc := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return tr.Mul4(rot).Mul4(sc)
}

// Node is one element of a model hierarchy. A node with a non-nil Mesh is a
// mesh-bearing part; nodes without one are purely structural.
type Node struct {
	Name      string
	Transform Transform
	Mesh      *formats.Mesh
	Children  []*Node
}

// NewNode creates a structural node with an identity transform.
func NewNode(name string) *Node {
	return &Node{Name: name, Transform: IdentityTransform()}
}

// AddChild appends child and returns it.
func (n *Node) AddChild(child *Node) *Node {
	n.Children = append(n.Children, child)
	return child
}

// HasMesh reports whether the node directly owns geometry.
func (n *Node) HasMesh() bool {
	return n.Mesh != nil
}

// Clone deep-copies the node tree. Meshes are shared, they are never mutated
// after import.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		Name:      n.Name,
		Transform: n.Transform,
		Mesh:      n.Mesh,
	}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// FromMesh wraps a decoded mesh in a structural root with a single mesh-bearing child.
func FromMesh(name string, mesh *formats.Mesh) *Node {
	root := NewNode(name)
	partName := "default"
	if mesh != nil && len(mesh.Submeshes) > 0 && mesh.Submeshes[0].Name != "" {
		partName = mesh.Submeshes[0].Name
	}
	part := NewNode(partName)
	part.Mesh = mesh
	root.AddChild(part)
	return root
}

// WalkFunc is called for each node with its accumulated world matrix.
// Returning false stops the walk.
type WalkFunc func(n *Node, world mgl32.Mat4) bool

// Walk visits root and its descendants depth first, parents before children.
func Walk(root *Node, fn WalkFunc) {
	if root == nil {
		return
	}
	walk(root, root.Transform.Matrix(), fn)
}

// walkLocal is Walk expressed in root's own frame (root's transform excluded).
func walkLocal(root *Node, fn WalkFunc) {
	if root == nil {
		return
	}
	walk(root, mgl32.Ident4(), fn)
}

func walk(n *Node, world mgl32.Mat4, fn WalkFunc) bool {
	if !fn(n, world) {
		return false
	}
	for _, child := range n.Children {
		if !walk(child, world.Mul4(child.Transform.Matrix()), fn) {
			return false
		}
	}
	return true
}

// FirstMeshNode returns the first mesh-bearing node in depth-first order, or nil.
func FirstMeshNode(root *Node) *Node {
	var found *Node
	Walk(root, func(n *Node, _ mgl32.Mat4) bool {
		if n.HasMesh() {
			found = n
			return false
		}
		return true
	})
	return found
}

// MeshNodes returns every mesh-bearing node in depth-first order.
func MeshNodes(root *Node) []*Node {
	var nodes []*Node
	Walk(root, func(n *Node, _ mgl32.Mat4) bool {
		if n.HasMesh() {
			nodes = append(nodes, n)
		}
		return true
	})
	return nodes
}

// WorldMatrix returns target's accumulated world matrix within root's tree.
func WorldMatrix(root, target *Node) (mgl32.Mat4, bool) {
	var (
		m  mgl32.Mat4
		ok bool
	)
	Walk(root, func(n *Node, world mgl32.Mat4) bool {
		if n == target {
			m, ok = world, true
			return false
		}
		return true
	})
	return m, ok
}
