// Package preview renders a scene as a glTF document for inspection in
// external viewers.
package preview

import (
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/navscene/internal/engine/model"
	"github.com/Faultbox/navscene/internal/scene"
	"github.com/Faultbox/navscene/pkg/formats"
)

// NavExtras is stored in the extras of navigation point nodes.
type NavExtras struct {
	Kind          string `json:"kind"`
	ID            string `json:"id"`
	Label         string `json:"label"`
	IsSource      bool   `json:"isSource"`
	IsDestination bool   `json:"isDestination"`
}

// ModelExtras is stored in the extras of imported model root nodes.
type ModelExtras struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	MeshKey string `json:"meshKey"`
	Hidden  bool   `json:"hidden,omitempty"`
}

type builder struct {
	doc       *gltf.Document
	materials map[string]uint32
}

// Build converts sc into a glTF document with one top-level node per object.
func Build(sc *scene.Scene) *gltf.Document {
	b := &builder{
		doc:       gltf.NewDocument(),
		materials: make(map[string]uint32),
	}

	for _, obj := range sc.Objects() {
		var idx uint32
		switch obj.Kind {
		case scene.KindNavigationPoint:
			idx = b.addNode(obj.Root, NavExtras{
				Kind:          obj.Kind.String(),
				ID:            obj.ID,
				Label:         obj.Nav.Label,
				IsSource:      obj.Nav.IsSource,
				IsDestination: obj.Nav.IsDestination,
			})
		default:
			idx = b.addNode(obj.Root, ModelExtras{
				Kind:    obj.Kind.String(),
				ID:      obj.ID,
				MeshKey: obj.MeshKey,
				Hidden:  obj.Hidden,
			})
		}
		b.doc.Scenes[0].Nodes = append(b.doc.Scenes[0].Nodes, idx)
	}

	return b.doc
}

// WriteGLTF writes sc as glTF JSON with embedded buffers, or as GLB when
// binary is set.
func WriteGLTF(w io.Writer, sc *scene.Scene, binary bool) error {
	doc := Build(sc)
	if !binary {
		for _, buf := range doc.Buffers {
			if buf.URI == "" {
				buf.EmbeddedResource()
			}
		}
	}

	enc := gltf.NewEncoder(w)
	enc.AsBinary = binary
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encoding glTF")
	}
	return nil
}

// addNode appends n and its subtree and returns n's node index.
func (b *builder) addNode(n *model.Node, extras any) uint32 {
	t := n.Transform
	q := t.Rotation.Normalize()
	node := &gltf.Node{
		Name:        n.Name,
		Translation: [3]float32(t.Position),
		Rotation:    [4]float32{q.V[0], q.V[1], q.V[2], q.W},
		Scale:       [3]float32(t.Scale),
	}
	if extras != nil {
		node.Extras = extras
	}
	if n.HasMesh() {
		if mesh, ok := b.addMesh(n.Name, n.Mesh); ok {
			node.Mesh = gltf.Index(mesh)
		}
	}

	idx := uint32(len(b.doc.Nodes))
	b.doc.Nodes = append(b.doc.Nodes, node)

	for _, child := range n.Children {
		node.Children = append(node.Children, b.addNode(child, nil))
	}
	return idx
}

// addMesh writes one primitive per non-empty submesh. Attributes are shared
// between primitives.
func (b *builder) addMesh(name string, m *formats.Mesh) (uint32, bool) {
	if len(m.Vertices) == 0 || m.Validate() != nil {
		return 0, false
	}

	attributes := map[string]uint32{
		gltf.POSITION: modeler.WritePosition(b.doc, m.Vertices),
	}
	if len(m.Normals) == len(m.Vertices) {
		normals := make([][3]float32, len(m.Normals))
		for i, n := range m.Normals {
			v := mgl32.Vec3(n)
			if v.Len() > 0 {
				v = v.Normalize()
			}
			normals[i] = v
		}
		attributes[gltf.NORMAL] = modeler.WriteNormal(b.doc, normals)
	}
	if len(m.TexCoords) == len(m.Vertices) {
		attributes[gltf.TEXCOORD_0] = modeler.WriteTextureCoord(b.doc, m.TexCoords)
	}

	mesh := &gltf.Mesh{Name: name}
	for _, sub := range m.Submeshes {
		if len(sub.Indices) == 0 {
			continue
		}
		indices := modeler.WriteIndices(b.doc, sub.Indices)
		mesh.Primitives = append(mesh.Primitives, &gltf.Primitive{
			Indices:    gltf.Index(indices),
			Attributes: attributes,
			Material:   gltf.Index(b.material(sub.Material)),
		})
	}
	if len(mesh.Primitives) == 0 {
		return 0, false
	}

	b.doc.Meshes = append(b.doc.Meshes, mesh)
	return uint32(len(b.doc.Meshes) - 1), true
}

func (b *builder) material(name string) uint32 {
	if name == "" {
		name = "default"
	}
	if idx, ok := b.materials[name]; ok {
		return idx
	}
	idx := uint32(len(b.doc.Materials))
	b.doc.Materials = append(b.doc.Materials, &gltf.Material{
		Name:        name,
		DoubleSided: true,
	})
	b.materials[name] = idx
	return idx
}
