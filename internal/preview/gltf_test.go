package preview

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/Faultbox/navscene/internal/engine/model"
	"github.com/Faultbox/navscene/internal/scene"
	"github.com/Faultbox/navscene/pkg/formats"
)

func testScene() *scene.Scene {
	mesh := &formats.Mesh{
		Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}},
		Normals:  [][3]float32{{0, 0, 2}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		Submeshes: []formats.Submesh{
			{Name: "front", Material: "paint", Indices: []uint32{0, 1, 2}},
			{Name: "back", Material: "paint", Indices: []uint32{2, 1, 3}},
			{Name: "empty"},
		},
	}
	root := model.FromMesh("crate", mesh)

	sc := scene.New()
	obj := scene.NewModel("crate", "model-1", root)
	obj.Transform().Position = mgl32.Vec3{1, 2, 3}
	sc.Add(obj)
	sc.Add(scene.NewNavigationPoint(scene.NavInfo{Label: "Gate", IsDestination: true}, mgl32.Vec3{4, 0, 0}))
	return sc
}

func TestBuild(t *testing.T) {
	doc := Build(testScene())

	if len(doc.Scenes[0].Nodes) != 2 {
		t.Fatalf("expected 2 scene roots, got %d", len(doc.Scenes[0].Nodes))
	}
	// crate root, its mesh part, navigation point
	if len(doc.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(doc.Nodes))
	}
	if len(doc.Meshes) != 1 || len(doc.Meshes[0].Primitives) != 2 {
		t.Fatalf("expected 1 mesh with 2 primitives")
	}
	if len(doc.Materials) != 1 || doc.Materials[0].Name != "paint" {
		t.Errorf("materials = %+v", doc.Materials)
	}

	part := doc.Nodes[1]
	if part.Mesh == nil || part.Translation != [3]float32{1, 2, 3} {
		t.Errorf("mesh part = %+v", part)
	}

	nav := doc.Nodes[doc.Scenes[0].Nodes[1]]
	extras, ok := nav.Extras.(NavExtras)
	if !ok || extras.Label != "Gate" || !extras.IsDestination || extras.Kind != "NavigationPoint" {
		t.Errorf("nav extras = %+v", nav.Extras)
	}
	if nav.Translation != [3]float32{4, 0, 0} || nav.Mesh != nil {
		t.Errorf("nav node = %+v", nav)
	}
}

func TestWriteGLTF(t *testing.T) {
	for _, binary := range []bool{false, true} {
		var buf bytes.Buffer
		if err := WriteGLTF(&buf, testScene(), binary); err != nil {
			t.Fatalf("binary=%v: WriteGLTF failed: %v", binary, err)
		}

		if binary && !bytes.HasPrefix(buf.Bytes(), []byte("glTF")) {
			t.Errorf("expected GLB magic")
		}
		if !binary && !strings.Contains(buf.String(), "data:application/octet-stream;base64") {
			t.Errorf("expected embedded buffer in JSON output")
		}

		var doc gltf.Document
		if err := gltf.NewDecoder(bytes.NewReader(buf.Bytes())).Decode(&doc); err != nil {
			t.Fatalf("binary=%v: decode failed: %v", binary, err)
		}
		if len(doc.Nodes) != 3 || len(doc.Meshes) != 1 {
			t.Errorf("binary=%v: decoded %d nodes, %d meshes", binary, len(doc.Nodes), len(doc.Meshes))
		}

		raw, err := json.Marshal(doc.Nodes[2].Extras)
		if err != nil {
			t.Fatal(err)
		}
		var extras NavExtras
		if err := json.Unmarshal(raw, &extras); err != nil || extras.Label != "Gate" {
			t.Errorf("binary=%v: nav extras = %s", binary, raw)
		}
	}
}

func TestBuild_EmptyScene(t *testing.T) {
	doc := Build(scene.New())
	if len(doc.Nodes) != 0 || len(doc.Scenes[0].Nodes) != 0 {
		t.Errorf("expected empty document")
	}
	if err := WriteGLTF(&bytes.Buffer{}, scene.New(), true); err != nil {
		t.Errorf("empty scene: %v", err)
	}
}
