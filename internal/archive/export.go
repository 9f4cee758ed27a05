package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/navscene/internal/engine/model"
	"github.com/Faultbox/navscene/internal/importer"
	"github.com/Faultbox/navscene/internal/logger"
	"github.com/Faultbox/navscene/internal/scene"
)

// PartialExportWarning reports an object whose mesh could not be encoded.
// Its manifest entry is still written; its mesh file is not.
type PartialExportWarning struct {
	ObjectID string
	MeshKey  string
	Err      error
}

func (w *PartialExportWarning) Error() string {
	return fmt.Sprintf("object %s (%s): mesh not exported: %v", w.ObjectID, w.MeshKey, w.Err)
}

// Unwrap returns the underlying cause.
func (w *PartialExportWarning) Unwrap() error {
	return w.Err
}

// Report summarizes an export.
type Report struct {
	Entries      int      // Manifest entries written
	MeshFiles    int      // Mesh files written
	Skipped      []string // Object IDs whose mesh was not written
	SkippedParts []string // Mesh-less parts left out of written meshes
	Warnings     error    // Combined *PartialExportWarning values, nil when clean
}

type meshFile struct {
	name string
	data []byte
}

// Export builds a scene archive. The manifest is always the first entry and
// is written even for an empty scene. Objects whose mesh cannot be encoded
// are recorded in the report instead of failing the export.
func Export(sc *scene.Scene) ([]byte, *Report, error) {
	report := &Report{}
	manifest := &Manifest{Objects: []Entry{}}
	var meshes []meshFile
	used := make(map[string]bool)

	for _, obj := range sc.Objects() {
		key := obj.MeshKey
		if obj.Kind == scene.KindImportedModel {
			if key == "" || key == NavigationType || used[key] {
				key = importer.NewMeshKey()
			}
			used[key] = true

			var buf bytes.Buffer
			skippedParts, err := model.EncodeOBJ(&buf, obj.Root, obj.Pivot)
			report.SkippedParts = append(report.SkippedParts, skippedParts...)
			if err != nil {
				w := &PartialExportWarning{ObjectID: obj.ID, MeshKey: key, Err: err}
				logger.Warn("skipping mesh export", zap.String("id", obj.ID), zap.Error(err))
				report.Skipped = append(report.Skipped, obj.ID)
				report.Warnings = multierr.Append(report.Warnings, w)
			} else {
				meshes = append(meshes, meshFile{name: key + MeshExt, data: buf.Bytes()})
			}
		}
		manifest.Objects = append(manifest.Objects, entryFor(obj, key))
	}

	manifestData, err := manifest.Encode()
	if err != nil {
		return nil, report, errors.Wrap(err, "encoding manifest")
	}

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	if err := writeEntry(zw, ManifestName, manifestData); err != nil {
		return nil, report, err
	}
	for _, m := range meshes {
		if err := writeEntry(zw, m.name, m.data); err != nil {
			return nil, report, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, report, errors.Wrap(err, "closing archive")
	}

	report.Entries = len(manifest.Objects)
	report.MeshFiles = len(meshes)

	logger.Info("scene exported",
		zap.Int("entries", report.Entries),
		zap.Int("mesh_files", report.MeshFiles),
		zap.Int("skipped", len(report.Skipped)),
	)
	return out.Bytes(), report, nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return errors.Wrapf(err, "creating %s", name)
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrapf(err, "writing %s", name)
	}
	return nil
}

// ExportToFile writes the archive to path through a temporary file in the
// same directory, so path is either fully written or left untouched.
func ExportToFile(sc *scene.Scene, path string) (report *Report, err error) {
	data, report, err := Export(sc)
	if err != nil {
		return report, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return report, errors.Wrap(err, "creating export directory")
	}

	tmp, err := os.CreateTemp(dir, ".navscene-*.zip")
	if err != nil {
		return report, errors.Wrap(err, "creating temp file")
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return report, errors.Wrap(err, "writing archive")
	}
	if err = tmp.Close(); err != nil {
		return report, errors.Wrap(err, "closing archive")
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return report, errors.Wrap(err, "moving archive into place")
	}
	return report, nil
}
