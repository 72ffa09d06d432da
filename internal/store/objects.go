package store

import (
	"errors"
	"fmt"
	"io"
	"os"

	billy "github.com/go-git/go-billy/v5"
)

// Blobs is the object store: encoded image bytes on a rooted filesystem.
// Production uses osfs rooted at the configured image directory; tests use
// memfs. Names come from Filename, so every path is a flat hex32.ext entry
// directly under the root.
type Blobs struct {
	fs billy.Filesystem
}

func NewBlobs(fs billy.Filesystem) *Blobs {
	return &Blobs{fs: fs}
}

// Write stores data under name atomically: the bytes go to a temp sibling
// first and are renamed into place, so a concurrent reader of name sees
// either the old content or the new, never a partial write.
func (b *Blobs) Write(name string, data []byte) error {
	tmp, err := b.fs.TempFile("", name+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = b.fs.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = b.fs.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := b.fs.Rename(tmpName, name); err != nil {
		_ = b.fs.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// Read returns the full contents stored under name.
func (b *Blobs) Read(name string) ([]byte, error) {
	f, err := b.fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// Remove deletes the file under name. A missing file is not an error: the
// sweeper treats "already gone" as done.
func (b *Blobs) Remove(name string) error {
	if err := b.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a file is present under name.
func (b *Blobs) Exists(name string) (bool, error) {
	_, err := b.fs.Stat(name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", name, err)
}
