package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	gomath "math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/navscene/internal/engine/model"
	"github.com/Faultbox/navscene/internal/importer"
	"github.com/Faultbox/navscene/internal/scene"
	"github.com/Faultbox/navscene/pkg/formats"
)

func vecNear(a, b mgl32.Vec3, eps float32) bool {
	for i := range a {
		if mgl32.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

const crateOBJ = `o crate
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vn 0 0 1
f 1 2 3
f 1 3 4
`

func testPipeline() *importer.Pipeline {
	return importer.New(importer.Config{
		Correction:      importer.Correction{Rotation: mgl32.QuatIdent()},
		DefaultMaterial: "default",
	})
}

type zipFile struct {
	name string
	body string
}

func makeZip(t *testing.T, files ...zipFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			t.Fatalf("create %s: %v", f.name, err)
		}
		if _, err := w.Write([]byte(f.body)); err != nil {
			t.Fatalf("write %s: %v", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func assertScratchEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read scratch dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch dir not cleaned up: %d entries left", len(entries))
	}
}

func near(a, b mgl32.Vec3) bool {
	return vecNear(a, b, 1e-4)
}

func sameRotation(a, b mgl32.Quat) bool {
	return gomath.Abs(float64(a.Dot(b))) > 1-1e-4
}

func buildScene(t *testing.T) *scene.Scene {
	t.Helper()
	sc := scene.New()

	lobby := scene.NewNavigationPoint(scene.NavInfo{Label: "Lobby", IsSource: true}, mgl32.Vec3{1, 0, 2})
	lobby.Transform().Rotation = mgl32.QuatRotate(mgl32.DegToRad(30), mgl32.Vec3{0, 1, 0})
	lobby.Transform().Scale = mgl32.Vec3{3.5, 1, 1}
	sc.Add(lobby)

	exit := scene.NewNavigationPoint(scene.NavInfo{Label: "Exit", IsDestination: true}, mgl32.Vec3{-4, 0.5, 7})
	sc.Add(exit)

	p := testPipeline()
	crate, err := p.ImportFromBytes("crate", []byte(crateOBJ))
	if err != nil {
		t.Fatalf("import crate: %v", err)
	}
	crate.Transform().Position = mgl32.Vec3{0.25, 1.5, -2}
	crate.Transform().Scale = mgl32.Vec3{-1, 2, 0.5}
	sc.Add(crate)

	unnamed, err := p.ImportFromBytes("", []byte(crateOBJ))
	if err != nil {
		t.Fatalf("import unnamed: %v", err)
	}
	unnamed.Transform().Rotation = mgl32.QuatRotate(mgl32.DegToRad(-75), mgl32.Vec3{1, 1, 0}.Normalize())
	sc.Add(unnamed)

	return sc
}

func TestExportImport_RoundTrip(t *testing.T) {
	sc := buildScene(t)

	data, report, err := Export(sc)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if report.Warnings != nil {
		t.Errorf("unexpected warnings: %v", report.Warnings)
	}
	if report.Entries != 4 || report.MeshFiles != 2 {
		t.Errorf("report: %d entries, %d mesh files", report.Entries, report.MeshFiles)
	}

	scratch := t.TempDir()
	res, err := Import(data, testPipeline(), scratch)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	assertScratchEmpty(t, scratch)

	if res.Warnings != nil {
		t.Errorf("unexpected import warnings: %v", res.Warnings)
	}

	got := scene.New()
	got.Replace(res.Objects)
	if got.Count(scene.KindNavigationPoint) != 2 || got.Count(scene.KindImportedModel) != 2 {
		t.Fatalf("got %d points and %d models", got.Count(scene.KindNavigationPoint), got.Count(scene.KindImportedModel))
	}

	for i, want := range sc.Objects() {
		obj := res.Objects[i]
		if obj.Kind != want.Kind {
			t.Fatalf("object %d kind = %v, want %v", i, obj.Kind, want.Kind)
		}
		wt, gt := want.Transform(), obj.Transform()
		if !near(gt.Position, wt.Position) {
			t.Errorf("object %d position = %v, want %v", i, gt.Position, wt.Position)
		}
		if !near(gt.Scale, wt.Scale) {
			t.Errorf("object %d scale = %v, want %v", i, gt.Scale, wt.Scale)
		}
		if !sameRotation(gt.Rotation, wt.Rotation) {
			t.Errorf("object %d rotation = %v, want %v", i, gt.Rotation, wt.Rotation)
		}
	}

	crate := res.Objects[2]
	if crate.Name != "crate" {
		t.Errorf("model name = %q, want crate", crate.Name)
	}
	if crate.Pivot == crate.Root {
		t.Error("manifest transform should land on the mesh part")
	}
	if crate.Collider.Kind != scene.ColliderConvexHull {
		t.Errorf("negative-scale model collider = %v, want convex hull", crate.Collider.Kind)
	}
	if len(crate.Pivot.Mesh.Vertices) != 4 || len(crate.Pivot.Mesh.Triangles()) != 6 {
		t.Errorf("mesh: %d vertices, %d indices", len(crate.Pivot.Mesh.Vertices), len(crate.Pivot.Mesh.Triangles()))
	}
	if res.Objects[3].Collider.Kind != scene.ColliderBox {
		t.Errorf("positive-scale model collider = %v, want box", res.Objects[3].Collider.Kind)
	}
}

func TestExportImport_MultiPartOffsets(t *testing.T) {
	tri := func() *formats.Mesh {
		return &formats.Mesh{
			Vertices:  [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			Submeshes: []formats.Submesh{{Indices: []uint32{0, 1, 2}}},
		}
	}
	root := model.NewNode("pair")
	a := root.AddChild(model.NewNode("a"))
	a.Mesh = tri()
	b := root.AddChild(model.NewNode("b"))
	b.Mesh = tri()
	b.Transform.Position = mgl32.Vec3{10, 0, 0}

	obj := scene.NewModel("pair", importer.NewMeshKey(), root)
	obj.Transform().Position = mgl32.Vec3{1, 2, 3}
	obj.Transform().Rotation = mgl32.QuatRotate(mgl32.DegToRad(45), mgl32.Vec3{0, 1, 0})
	sc := scene.New()
	sc.Add(obj)
	want := model.ComputeBounds(root)

	data, _, err := Export(sc)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	res, err := Import(data, testPipeline(), t.TempDir())
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(res.Objects) != 1 {
		t.Fatalf("got %d objects, want 1", len(res.Objects))
	}

	got := model.ComputeBounds(res.Objects[0].Root)
	if !near(got.Min, want.Min) || !near(got.Max, want.Max) {
		t.Errorf("bounds after round trip = %v, want %v", got, want)
	}
}

func TestExport_ManifestFirst(t *testing.T) {
	data, _, err := Export(buildScene(t))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	if r.File[0].Name != ManifestName {
		t.Errorf("first entry = %s, want %s", r.File[0].Name, ManifestName)
	}

	rc, err := r.File[0].Open()
	if err != nil {
		t.Fatalf("open manifest: %v", err)
	}
	defer rc.Close()

	var raw struct {
		Objects []map[string]any `json:"objects"`
	}
	if err := json.NewDecoder(rc).Decode(&raw); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if len(raw.Objects) != 4 {
		t.Fatalf("manifest has %d objects", len(raw.Objects))
	}
	if raw.Objects[0]["type"] != NavigationType || raw.Objects[0]["label"] != "Lobby" {
		t.Errorf("navigation entry = %v", raw.Objects[0])
	}
	if raw.Objects[3]["label"] != nil {
		t.Errorf("unnamed model label should be null, got %v", raw.Objects[3]["label"])
	}
	if rot, ok := raw.Objects[1]["rotation"].([]any); !ok || len(rot) != 4 {
		t.Errorf("rotation should be a quaternion, got %v", raw.Objects[1]["rotation"])
	}

	names := make(map[string]bool)
	for _, f := range r.File {
		names[f.Name] = true
	}
	for _, obj := range raw.Objects[2:] {
		if !names[obj["type"].(string)+MeshExt] {
			t.Errorf("no mesh file for %v", obj["type"])
		}
	}
}

func TestScenarioB_NavigationPointRoundTrip(t *testing.T) {
	sc := scene.New()
	sc.Add(scene.NewNavigationPoint(scene.NavInfo{Label: "Lobby", IsSource: true, IsDestination: false}, mgl32.Vec3{}))

	data, _, err := Export(sc)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	res, err := Import(data, testPipeline(), t.TempDir())
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(res.Objects) != 1 {
		t.Fatalf("got %d objects", len(res.Objects))
	}
	nav := res.Objects[0].Nav
	if nav.Label != "Lobby" || !nav.IsSource || nav.IsDestination {
		t.Errorf("nav info = %+v", nav)
	}
}

func TestScenarioD_NullMesh(t *testing.T) {
	sc := scene.New()
	root := model.NewNode("broken")
	root.AddChild(model.NewNode("empty-part"))
	sc.Add(scene.NewModel("broken", "model-broken", root))

	data, report, err := Export(sc)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if report.Entries != 1 || report.MeshFiles != 0 {
		t.Errorf("report: %d entries, %d mesh files", report.Entries, report.MeshFiles)
	}
	var pw *PartialExportWarning
	if !errors.As(report.Warnings, &pw) {
		t.Fatalf("expected PartialExportWarning, got %v", report.Warnings)
	}
	if !errors.Is(pw, model.ErrNoMesh) {
		t.Errorf("warning cause = %v", pw.Err)
	}

	scratch := t.TempDir()
	res, err := Import(data, testPipeline(), scratch)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	assertScratchEmpty(t, scratch)
	if len(res.Objects) != 0 {
		t.Errorf("expected no objects, got %d", len(res.Objects))
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != 0 {
		t.Errorf("skipped = %v, want [0]", res.Skipped)
	}
	if !errors.Is(res.Warnings, ErrMeshFileMissing) {
		t.Errorf("expected ErrMeshFileMissing warning, got %v", res.Warnings)
	}
}

func TestImport_ManifestFailures(t *testing.T) {
	emptyScene, _, err := Export(scene.New())
	if err != nil {
		t.Fatalf("Export of empty scene failed: %v", err)
	}

	tests := []struct {
		name       string
		data       []byte
		want       error
		wantFormat bool
	}{
		{
			name: "missing manifest",
			data: makeZip(t, zipFile{"model-a.obj", crateOBJ}),
			want: ErrManifestMissing,
		},
		{
			name: "empty manifest",
			data: emptyScene,
			want: ErrManifestEmpty,
		},
		{
			name:       "unparsable manifest",
			data:       makeZip(t, zipFile{ManifestName, `{"objects": [ {"position": "up"`}),
			wantFormat: true,
		},
		{
			name: "not an archive",
			data: []byte("definitely not a zip"),
			want: zip.ErrFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scratch := t.TempDir()
			res, err := Import(tt.data, testPipeline(), scratch)
			if res != nil {
				t.Error("expected no result on manifest failure")
			}
			var ie *importer.ImportError
			if !errors.As(err, &ie) {
				t.Fatalf("expected *importer.ImportError, got %T: %v", err, err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if tt.wantFormat {
				var fe *formats.FormatError
				if !errors.As(err, &fe) {
					t.Errorf("expected *formats.FormatError, got %v", err)
				}
			}
			assertScratchEmpty(t, scratch)
		})
	}
}

func TestImport_EntryHandling(t *testing.T) {
	manifest := `{"objects": [
		{"position": [1, 2, 3], "rotation": [0, 90, 0], "scale": [1, 1, 1], "type": "NavigationLine", "label": "A", "isSource": false, "isDestination": true},
		{"position": [0, 0, 0], "rotation": [0, 0, 0, 1], "scale": [2, 2, 2], "type": "model-ok", "label": null, "isSource": false, "isDestination": false},
		{"position": [0, 0, 0], "rotation": [0, 0, 0, 1], "scale": [1, 1, 1], "type": "model-gone", "label": "gone", "isSource": false, "isDestination": false},
		{"position": [0, 0, 0], "rotation": [0, 0], "scale": [1, 1, 1], "type": "NavigationLine", "label": "bad", "isSource": false, "isDestination": false},
		{"position": [0, 0, 0], "rotation": [0, 0, 0, 1], "scale": [1, 1, 1], "type": "model-junk", "label": "junk", "isSource": false, "isDestination": false}
	]}`
	data := makeZip(t,
		zipFile{ManifestName, manifest},
		zipFile{"model-ok.obj", crateOBJ},
		zipFile{"model-junk.obj", "not a mesh"},
		zipFile{"../escape.obj", crateOBJ},
	)

	scratch := t.TempDir()
	res, err := Import(data, testPipeline(), scratch)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	assertScratchEmpty(t, scratch)

	if len(res.Objects) != 2 {
		t.Fatalf("got %d objects, want 2", len(res.Objects))
	}
	wantSkipped := []int{2, 3, 4}
	if len(res.Skipped) != len(wantSkipped) {
		t.Fatalf("skipped = %v, want %v", res.Skipped, wantSkipped)
	}
	for i := range wantSkipped {
		if res.Skipped[i] != wantSkipped[i] {
			t.Errorf("skipped = %v, want %v", res.Skipped, wantSkipped)
		}
	}

	nav := res.Objects[0]
	turned := nav.Transform().Rotation.Rotate(mgl32.Vec3{1, 0, 0})
	if !near(turned, mgl32.Vec3{0, 0, -1}) {
		t.Errorf("Euler rotation not applied: +X maps to %v", turned)
	}
	if !nav.Nav.IsDestination || nav.Nav.Label != "A" {
		t.Errorf("nav info = %+v", nav.Nav)
	}

	m := res.Objects[1]
	if m.Name != "model-ok" || m.MeshKey != "model-ok" {
		t.Errorf("model name %q key %q", m.Name, m.MeshKey)
	}
	if m.Transform().Scale != (mgl32.Vec3{2, 2, 2}) {
		t.Errorf("scale = %v", m.Transform().Scale)
	}
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "scene.zip")

	report, err := ExportToFile(buildScene(t), path)
	if err != nil {
		t.Fatalf("ExportToFile failed: %v", err)
	}
	if report.Entries != 4 {
		t.Errorf("entries = %d", report.Entries)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "scene.zip" {
		t.Errorf("expected only scene.zip, found %v", entries)
	}

	res, err := ImportFile(path, testPipeline(), t.TempDir())
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if len(res.Objects) != 4 {
		t.Errorf("got %d objects", len(res.Objects))
	}
}

func TestExportToFile_Failure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	if _, err := ExportToFile(scene.New(), filepath.Join(blocker, "scene.zip")); err == nil {
		t.Fatal("expected error exporting under a regular file")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestContents(t *testing.T) {
	data, report, err := Export(buildScene(t))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	manifest, files, err := Contents(data)
	if err != nil {
		t.Fatalf("Contents failed: %v", err)
	}
	if len(manifest.Objects) != report.Entries {
		t.Errorf("manifest has %d objects, report says %d", len(manifest.Objects), report.Entries)
	}
	if len(files) != 1+report.MeshFiles || files[0].Name != ManifestName {
		t.Errorf("files = %+v", files)
	}
	for _, f := range files {
		if f.Size == 0 {
			t.Errorf("%s: zero size", f.Name)
		}
	}

	_, files, err = Contents(makeZip(t, zipFile{"crate.obj", crateOBJ}))
	if !errors.Is(err, ErrManifestMissing) || len(files) != 1 {
		t.Errorf("no manifest: files=%v err=%v", files, err)
	}
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	data := makeZip(t,
		zipFile{ManifestName, `{"objects": []}`},
		zipFile{"meshes/crate.obj", crateOBJ},
	)
	if err := Extract(data, dir); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "meshes", "crate.obj"))
	if err != nil || string(got) != crateOBJ {
		t.Errorf("extracted mesh = %q, err %v", got, err)
	}
}
