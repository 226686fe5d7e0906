package source

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
)

// Dir reads documents from the regular files of one directory. Subdirectories
// are ignored.
type Dir struct {
	root string
}

// NewDir returns a Dir source rooted at root.
func NewDir(root string) (*Dir, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, eris.Wrapf(err, "source: stat %s", root)
	}
	if !info.IsDir() {
		return nil, eris.Errorf("source: %s is not a directory", root)
	}
	return &Dir{root: root}, nil
}

func (d *Dir) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read dir %s", d.root)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (d *Dir) Read(_ context.Context, name string) ([]byte, error) {
	if name != filepath.Base(name) {
		return nil, eris.Errorf("source: illegal document name %q", name)
	}
	b, err := os.ReadFile(filepath.Join(d.root, name))
	if err != nil {
		return nil, eris.Wrapf(err, "source: read %s", name)
	}
	return b, nil
}

func (d *Dir) Close() error { return nil }
