package archive

import (
	"archive/zip"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// FileInfo describes one archive member.
type FileInfo struct {
	Name string
	Size uint64
}

// Contents lists the archive members and parses the manifest without
// extracting anything. A missing manifest yields ErrManifestMissing along
// with the member list.
func Contents(data []byte) (*Manifest, []FileInfo, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, nil, errors.Wrap(err, "opening archive")
	}

	files := make([]FileInfo, 0, len(r.File))
	var manifestFile *zip.File
	for _, f := range r.File {
		files = append(files, FileInfo{Name: f.Name, Size: f.UncompressedSize64})
		if f.Name == ManifestName {
			manifestFile = f
		}
	}
	if manifestFile == nil {
		return nil, files, ErrManifestMissing
	}

	rc, err := manifestFile.Open()
	if err != nil {
		return nil, files, errors.Wrap(err, "opening manifest")
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, files, errors.Wrap(err, "reading manifest")
	}
	manifest, err := ParseManifest(raw)
	if err != nil {
		return nil, files, err
	}
	return manifest, files, nil
}
