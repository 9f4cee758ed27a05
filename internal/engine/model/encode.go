package model

import (
	"errors"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/navscene/internal/logger"
	"github.com/Faultbox/navscene/pkg/formats"
)

// ErrNoMesh is returned when a hierarchy contains no mesh-bearing part.
var ErrNoMesh = errors.New("no mesh-bearing part in hierarchy")

// EncodeOBJ writes every mesh-bearing part under root as OBJ text, with
// geometry expressed in pivot's frame so the parts keep their placement
// relative to each other. A nil pivot, or one outside root's tree, means root.
// Leaf nodes without geometry are skipped and returned by name; the call only
// fails when the whole hierarchy has no mesh.
func EncodeOBJ(w io.Writer, root, pivot *Node) (skipped []string, err error) {
	toPivot := mgl32.Ident4()
	if pivotWorld, ok := WorldMatrix(root, pivot); ok {
		toPivot = pivotWorld.Inv()
	} else if root != nil {
		toPivot = root.Transform.Matrix().Inv()
	}

	var parts []formats.Part
	Walk(root, func(n *Node, world mgl32.Mat4) bool {
		switch {
		case n.HasMesh():
			mesh := n.Mesh
			if m := toPivot.Mul4(world); !m.ApproxEqual(mgl32.Ident4()) {
				mesh = transformMesh(mesh, m)
			}
			parts = append(parts, formats.Part{Name: n.Name, Mesh: mesh})
		case len(n.Children) == 0:
			logger.Debug("skipping part without mesh", zap.String("part", n.Name))
			skipped = append(skipped, n.Name)
		}
		return true
	})

	if len(parts) == 0 {
		return skipped, ErrNoMesh
	}
	return skipped, formats.WriteOBJ(w, parts)
}

// transformMesh returns a copy of mesh with positions multiplied by m and
// normals by its inverse transpose.
func transformMesh(mesh *formats.Mesh, m mgl32.Mat4) *formats.Mesh {
	out := &formats.Mesh{
		Vertices:  make([][3]float32, len(mesh.Vertices)),
		Normals:   make([][3]float32, len(mesh.Normals)),
		TexCoords: mesh.TexCoords,
		Submeshes: mesh.Submeshes,
	}
	for i, v := range mesh.Vertices {
		out.Vertices[i] = m.Mul4x1(mgl32.Vec4{v[0], v[1], v[2], 1}).Vec3()
	}

	normalMat := m.Mat3().Inv().Transpose()
	for i, n := range mesh.Normals {
		tn := normalMat.Mul3x1(mgl32.Vec3(n))
		if l := tn.Len(); l > 0 {
			tn = tn.Mul(1 / l)
		} else {
			tn = mgl32.Vec3(n)
		}
		out.Normals[i] = tn
	}
	return out
}
