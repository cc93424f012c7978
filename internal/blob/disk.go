package blob

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DiskStore keeps objects as flat files under a root directory. Object names
// are prefixed with a uuid so two uploads of the same filename never collide.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) Save(name string, r io.Reader) (string, error) {
	key := uuid.NewString() + "_" + filepath.Base(name)
	full := filepath.Join(s.root, key)

	f, err := os.Create(full)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", err
	}
	return key, nil
}

func (s *DiskStore) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, filepath.Base(path)))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *DiskStore) Delete(path string) error {
	err := os.Remove(filepath.Join(s.root, filepath.Base(path)))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}
