package file

import (
	"context"
	"os"
	"path/filepath"
)

// Persist implements the crmap.Persist interface for storing and loading
// snapshots and updates as files.
type Persist struct {
	basepath string
}

// Load loads the bytes persisted in the named file.
func (p Persist) Load(ctx context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(p.basepath, name))
}

// Store persists the given bytes in a file of the given name, replacing
// any previous content. The file is written under a temporary name and
// renamed, so readers never see a partial snapshot.
func (p Persist) Store(ctx context.Context, name string, bytes []byte) error {
	path := filepath.Join(p.basepath, name)
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(name)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(bytes); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// NewPersistForPath returns a Persist that loads and stores blobs as
// files in the directory at the given path.
//
//	p := NewPersistForPath("/var/db/docs")
//	blob, err := p.Load(ctx, "old_doc.bin")
func NewPersistForPath(path string) Persist {
	return Persist{path}
}
