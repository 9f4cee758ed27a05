// Package scene holds the live set of editable objects and the current selection.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/Faultbox/navscene/internal/engine/model"
)

// Kind identifies what an object represents.
type Kind int

// Object kinds.
const (
	KindImportedModel Kind = iota
	KindNavigationPoint
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindImportedModel:
		return "ImportedModel"
	case KindNavigationPoint:
		return "NavigationPoint"
	default:
		return "Unknown"
	}
}

// NavInfo is the role metadata carried by navigation points.
type NavInfo struct {
	Label         string
	IsSource      bool
	IsDestination bool
}

// ColliderKind selects the pick geometry attached to an object.
type ColliderKind int

// Collider kinds.
const (
	ColliderNone ColliderKind = iota
	ColliderBox
	ColliderConvexHull
)

// String returns the collider kind name.
func (k ColliderKind) String() string {
	switch k {
	case ColliderBox:
		return "box"
	case ColliderConvexHull:
		return "convex-hull"
	default:
		return "none"
	}
}

// Collider is pick geometry expressed in the pivot's local space.
type Collider struct {
	Kind   ColliderKind
	Center mgl32.Vec3   // Box center
	Size   mgl32.Vec3   // Box size
	Points []mgl32.Vec3 // Hull point set
}

// LocalBounds returns the collider extent in pivot space.
func (c Collider) LocalBounds() (model.Bounds, bool) {
	switch c.Kind {
	case ColliderBox:
		half := c.Size.Mul(0.5)
		return model.Bounds{Min: c.Center.Sub(half), Max: c.Center.Add(half)}, true
	case ColliderConvexHull:
		if len(c.Points) == 0 {
			return model.Bounds{}, false
		}
		b := model.Bounds{Min: c.Points[0], Max: c.Points[0]}
		for _, p := range c.Points[1:] {
			for i := 0; i < 3; i++ {
				b.Min[i] = min(b.Min[i], p[i])
				b.Max[i] = max(b.Max[i], p[i])
			}
		}
		return b, true
	default:
		return model.Bounds{}, false
	}
}

// Object is one editable entity in the scene.
//
// Root is the object's node hierarchy. Pivot is the node whose transform is
// the object's transform: the first mesh-bearing part for imported models,
// and the root marker itself for navigation points.
type Object struct {
	ID       string
	Kind     Kind
	Name     string
	Root     *model.Node
	Pivot    *model.Node
	MeshKey  string
	Nav      NavInfo
	Collider Collider
	Hidden   bool
}

// NewModel creates an imported-model object around root. The pivot is the
// first mesh-bearing node, or root when the hierarchy has no geometry.
func NewModel(name, meshKey string, root *model.Node) *Object {
	pivot := model.FirstMeshNode(root)
	if pivot == nil {
		pivot = root
	}
	return &Object{
		ID:      uuid.NewString(),
		Kind:    KindImportedModel,
		Name:    name,
		Root:    root,
		Pivot:   pivot,
		MeshKey: meshKey,
	}
}

// NewNavigationPoint creates a navigation marker at position with a unit box collider.
func NewNavigationPoint(nav NavInfo, position mgl32.Vec3) *Object {
	root := model.NewNode("NavigationPoint")
	root.Transform.Position = position
	return &Object{
		ID:    uuid.NewString(),
		Kind:  KindNavigationPoint,
		Name:  nav.Label,
		Root:  root,
		Pivot: root,
		Nav:   nav,
		Collider: Collider{
			Kind: ColliderBox,
			Size: mgl32.Vec3{1, 1, 1},
		},
	}
}

// Transform returns the editable transform of the object.
func (o *Object) Transform() *model.Transform {
	return &o.Pivot.Transform
}

// PivotWorld returns the pivot's world matrix.
func (o *Object) PivotWorld() mgl32.Mat4 {
	if m, ok := model.WorldMatrix(o.Root, o.Pivot); ok {
		return m
	}
	return o.Pivot.Transform.Matrix()
}

// WorldBounds returns the world-space box used for picking and framing.
// It comes from the collider when one is attached, otherwise from the meshes.
func (o *Object) WorldBounds() model.Bounds {
	if local, ok := o.Collider.LocalBounds(); ok {
		return local.Transformed(o.PivotWorld())
	}
	return model.ComputeBounds(o.Root)
}

// Clone deep-copies the object, keeping its ID. The clone's pivot points
// into the cloned hierarchy.
func (o *Object) Clone() *Object {
	c := *o
	c.Root = o.Root.Clone()
	c.Pivot = c.Root
	if path, ok := pathTo(o.Root, o.Pivot); ok {
		c.Pivot = nodeAt(c.Root, path)
	}
	if len(o.Collider.Points) > 0 {
		c.Collider.Points = append([]mgl32.Vec3(nil), o.Collider.Points...)
	}
	return &c
}

// pathTo returns the child indices leading from root to target.
func pathTo(root, target *model.Node) ([]int, bool) {
	if root == target {
		return nil, true
	}
	for i, child := range root.Children {
		if p, ok := pathTo(child, target); ok {
			return append([]int{i}, p...), true
		}
	}
	return nil, false
}

func nodeAt(root *model.Node, path []int) *model.Node {
	n := root
	for _, i := range path {
		n = n.Children[i]
	}
	return n
}
