package source

import (
	"archive/zip"
	"context"
	"io"
	"sort"

	"github.com/rotisserie/eris"
)

// maxZipEntry bounds the decompressed size of a single document.
const maxZipEntry = 32 << 20

// Zip reads documents from the files of a ZIP archive without extracting them
// to disk. Directory entries are skipped.
type Zip struct {
	r     *zip.ReadCloser
	files map[string]*zip.File
}

// OpenZip opens the archive at zipPath.
func OpenZip(zipPath string) (*Zip, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}

	files := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		files[f.Name] = f
	}
	return &Zip{r: r, files: files}, nil
}

func (z *Zip) List(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(z.files))
	for name := range z.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (z *Zip) Read(_ context.Context, name string) ([]byte, error) {
	f, ok := z.files[name]
	if !ok {
		return nil, eris.Errorf("zip: file %q not found in archive", name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, eris.Wrapf(err, "zip: open entry %s", name)
	}
	defer rc.Close() //nolint:errcheck

	b, err := io.ReadAll(io.LimitReader(rc, maxZipEntry+1))
	if err != nil {
		return nil, eris.Wrapf(err, "zip: read entry %s", name)
	}
	if len(b) > maxZipEntry {
		return nil, eris.Errorf("zip: entry %s exceeds %d bytes", name, maxZipEntry)
	}
	return b, nil
}

func (z *Zip) Close() error {
	return z.r.Close()
}
