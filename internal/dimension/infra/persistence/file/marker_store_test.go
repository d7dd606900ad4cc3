package file

import (
	"context"
	"errors"
	"testing"

	"WorldShift/internal/dimension/marker"

	"github.com/spf13/afero"
)

func TestMarkerStore_读写(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s := NewMarkerStore(fs, "data/worlds")

	if _, err := s.Load(ctx, "w1"); !errors.Is(err, marker.ErrNotFound) {
		t.Fatalf("期望 ErrNotFound, got=%v", err)
	}
	if err := s.Save(ctx, "w1", []byte{1, 2, 3}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ok, _ := afero.Exists(fs, "data/worlds/w1/dimension.state"); !ok {
		t.Fatalf("期望标记文件存在于 %s", s.Path("w1"))
	}
	if ok, _ := afero.Exists(fs, "data/worlds/w1/dimension.state.tmp"); ok {
		t.Fatalf("临时文件期望被改名")
	}
	raw, err := s.Load(ctx, "w1")
	if err != nil || string(raw) != string([]byte{1, 2, 3}) {
		t.Fatalf("期望读回写入内容, got=%v err=%v", raw, err)
	}
}

func TestMarkerStore_只读文件系统(t *testing.T) {
	s := NewMarkerStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), "data")
	if err := s.Save(context.Background(), "w1", []byte{1}); err == nil {
		t.Fatalf("只读文件系统期望写失败")
	}
}
