package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/navscene/internal/importer"
	"github.com/Faultbox/navscene/internal/logger"
	"github.com/Faultbox/navscene/internal/scene"
	"github.com/Faultbox/navscene/pkg/formats"
)

// Archive import errors.
var (
	ErrManifestMissing = errors.New("manifest missing")
	ErrManifestEmpty   = errors.New("manifest has no objects")
	ErrMeshFileMissing = errors.New("mesh file missing")
)

// EntryWarning reports a manifest entry that was skipped during import.
type EntryWarning struct {
	Index int
	Type  string
	Err   error
}

func (w *EntryWarning) Error() string {
	return fmt.Sprintf("entry %d (%s) skipped: %v", w.Index, w.Type, w.Err)
}

// Unwrap returns the underlying cause.
func (w *EntryWarning) Unwrap() error {
	return w.Err
}

// Result is a reconstructed scene.
type Result struct {
	Objects  []*scene.Object
	Skipped  []int // Manifest indices that were skipped
	Warnings error // Combined *EntryWarning values, nil when clean
}

// Import reconstructs scene objects from archive bytes. The archive is
// extracted into a fresh directory under scratchDir (the OS temp directory
// when empty) that is removed before Import returns. Manifest-level failures
// return an *importer.ImportError and no objects; a bad entry is skipped and
// recorded in the result.
func Import(data []byte, p *importer.Pipeline, scratchDir string) (*Result, error) {
	if scratchDir != "" {
		if err := os.MkdirAll(scratchDir, 0755); err != nil {
			return nil, &importer.ImportError{Source: scratchDir, Err: err}
		}
	}
	dir, err := os.MkdirTemp(scratchDir, "navscene-import-*")
	if err != nil {
		return nil, &importer.ImportError{Source: "archive", Err: errors.Wrap(err, "creating scratch directory")}
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("removing scratch directory", zap.String("dir", dir), zap.Error(err))
		}
	}()

	if err := Extract(data, dir); err != nil {
		return nil, &importer.ImportError{Source: "archive", Err: err}
	}

	manifest, err := readManifest(dir)
	if err != nil {
		return nil, &importer.ImportError{Source: ManifestName, Err: err}
	}

	res := &Result{}
	for i := range manifest.Objects {
		entry := &manifest.Objects[i]
		obj, err := rebuild(entry, dir, p)
		if err != nil {
			w := &EntryWarning{Index: i, Type: entry.Type, Err: err}
			logger.Warn("skipping manifest entry", zap.Int("index", i), zap.String("type", entry.Type), zap.Error(err))
			res.Skipped = append(res.Skipped, i)
			res.Warnings = multierr.Append(res.Warnings, w)
			continue
		}
		res.Objects = append(res.Objects, obj)
	}

	logger.Info("scene imported",
		zap.Int("objects", len(res.Objects)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

// ImportFile reads an archive from disk and imports it.
func ImportFile(path string, p *importer.Pipeline, scratchDir string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &importer.ImportError{Source: path, Err: err}
	}
	return Import(data, p, scratchDir)
}

func readManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrManifestMissing
		}
		return nil, err
	}
	manifest, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	if len(manifest.Objects) == 0 {
		return nil, ErrManifestEmpty
	}
	return manifest, nil
}

// rebuild instantiates one manifest entry.
func rebuild(e *Entry, dir string, p *importer.Pipeline) (*scene.Object, error) {
	t, err := e.Transform()
	if err != nil {
		return nil, &formats.FormatError{Record: ManifestName, Err: err}
	}

	if e.IsNavigation() {
		obj := scene.NewNavigationPoint(scene.NavInfo{
			Label:         e.LabelString(),
			IsSource:      e.IsSource,
			IsDestination: e.IsDestination,
		}, t.Position)
		*obj.Transform() = t
		return obj, nil
	}

	if e.Type == "" || strings.ContainsAny(e.Type, `/\`) {
		return nil, errors.Wrapf(ErrMeshFileMissing, "invalid mesh key %q", e.Type)
	}
	meshData, err := os.ReadFile(filepath.Join(dir, e.MeshFile()))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrMeshFileMissing, e.MeshFile())
		}
		return nil, err
	}

	root, err := p.Decode(e.Type, meshData)
	if err != nil {
		return nil, err
	}

	name := e.LabelString()
	if name == "" {
		name = e.Type
	}
	obj := scene.NewModel(name, e.Type, root)
	// The manifest transform belongs to the mesh part, not the wrapper root.
	*obj.Transform() = t
	importer.AttachCollider(obj)
	return obj, nil
}

// Extract unpacks a ZIP container into dir, skipping entries that would
// land outside it.
func Extract(data []byte, dir string) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return errors.Wrap(err, "opening archive")
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	for _, f := range r.File {
		dest, err := filepath.Abs(filepath.Join(dir, f.Name))
		if err != nil {
			return err
		}
		if !strings.HasPrefix(dest, absDir+string(os.PathSeparator)) {
			logger.Warn("skipping archive entry outside scratch directory", zap.String("name", f.Name))
			continue
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(f, dest); err != nil {
			return errors.Wrapf(err, "extracting %s", f.Name)
		}
	}
	return nil
}

func extractFile(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
