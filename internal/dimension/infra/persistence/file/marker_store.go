package file

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"WorldShift/internal/dimension/marker"
	"WorldShift/modules/kit/errx"

	"github.com/spf13/afero"
)

// MarkerStore 把标记写在 <root>/<worldUID>/dimension.state。
type MarkerStore struct {
	fs   afero.Fs
	root string
}

func NewMarkerStore(fsys afero.Fs, root string) *MarkerStore {
	return &MarkerStore{fs: fsys, root: root}
}

func (s *MarkerStore) Path(worldUID string) string {
	return filepath.Join(s.root, worldUID, marker.FileName)
}

func (s *MarkerStore) Load(ctx context.Context, worldUID string) ([]byte, error) {
	_ = ctx
	raw, err := afero.ReadFile(s.fs, s.Path(worldUID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, marker.ErrNotFound
	}
	if err != nil {
		return nil, errx.ErrStorageUnavailable.WithCause(err).WithData("path", s.Path(worldUID))
	}
	return raw, nil
}

// Save 先写临时文件再改名，避免进程在写一半时退出留下半个文件。
func (s *MarkerStore) Save(ctx context.Context, worldUID string, data []byte) error {
	_ = ctx
	path := s.Path(worldUID)
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errx.ErrStorageUnavailable.WithCause(err).WithData("path", path)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return errx.ErrStorageUnavailable.WithCause(err).WithData("path", tmp)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		return errx.ErrStorageUnavailable.WithCause(err).WithData("path", path)
	}
	return nil
}
