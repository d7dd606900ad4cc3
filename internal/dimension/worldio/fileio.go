package worldio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"WorldShift/modules/kit/errx"
	"WorldShift/modules/kit/logx"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// MaxAttempts 是一次加载最多尝试的次数（含备份重试）。
const MaxAttempts = 3

var (
	ErrLoadFailed = errx.NewSys(errx.CodeWorldLoadFailed, "world load failed")
	ErrSaveFailed = errx.NewSys(errx.CodeWorldSaveFailed, "world save failed")
)

// LoadResult 描述一次加载实际走过的路径。
type LoadResult struct {
	Attempts int
	Rotated  bool
}

// FileIO 在 afero.Fs 上读写世界文件，加载失败时用 .bak 轮换重试。
type FileIO struct {
	fs  afero.Fs
	log logx.Logger
}

func New(fsys afero.Fs, l logx.Logger) *FileIO {
	return &FileIO{fs: fsys, log: logx.OrNop(l)}
}

func (f *FileIO) Fs() afero.Fs { return f.fs }

func (f *FileIO) Exists(path string) bool {
	ok, err := afero.Exists(f.fs, path)
	return err == nil && ok
}

// Load 读取 path：
//   - 第一次失败且有 .bak：主文件改名 .bad，.bak 提升为主文件，伴随文件同样处理，然后重试
//   - 没有 .bak：直接失败，不做轮换
//   - 轮换后仍失败到第 3 次：撤销轮换，恢复原来的文件布局
func (f *FileIO) Load(ctx context.Context, path string, c Codec) (LoadResult, error) {
	var (
		res     LoadResult
		rot     *rotation
		lastErr error
	)
	for {
		res.Attempts++
		lastErr = f.loadOnce(path, c)
		if lastErr == nil {
			res.Rotated = rot != nil
			if rot != nil {
				f.commit(rot)
			}
			return res, nil
		}
		f.log.WithContext(ctx).Warn("world load attempt failed",
			zap.String("path", path), zap.Int("attempt", res.Attempts), zap.Error(lastErr))

		if rot == nil {
			if !f.Exists(BackupPath(path)) {
				break
			}
			r, err := f.rotate(path)
			if err != nil {
				lastErr = err
				break
			}
			rot = r
			continue
		}
		if res.Attempts >= MaxAttempts {
			if err := f.restore(rot); err != nil {
				logx.ReportSysErrorWithLoggerContext(ctx, f.log, logx.NewSysLog("worldio.restore", err),
					zap.String("path", path))
			}
			break
		}
	}
	return res, ErrLoadFailed.WithCause(lastErr).WithData("path", path).WithData("attempts", res.Attempts)
}

func (f *FileIO) loadOnce(path string, c Codec) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("codec panic: %v", r)
		}
	}()

	file, err := f.fs.Open(path)
	if err != nil {
		return err
	}
	status := c.ReadFile(file)
	_ = file.Close()
	if status != 0 {
		return fmt.Errorf("read %s: status %d", path, status)
	}

	cc, ok := c.(CompanionCodec)
	if !ok {
		return nil
	}
	comp, err := f.fs.Open(CompanionPath(path))
	if errors.Is(err, fs.ErrNotExist) {
		// 旧存档可能没有伴随文件。
		return nil
	}
	if err != nil {
		return err
	}
	defer comp.Close()
	return cc.ReadCompanion(comp)
}

// rotation 记录一次轮换做过的改名，用于撤销。
type rotation struct {
	moves  [][2]string // {from, to}，按执行顺序
	asides []string    // 被让位的旧 .bad，加载成功后才删除
}

func (f *FileIO) rotate(path string) (*rotation, error) {
	rot := &rotation{}
	for _, p := range []string{path, CompanionPath(path)} {
		if !f.Exists(BackupPath(p)) {
			continue
		}
		if f.Exists(p) {
			// 旧的 .bad 先让位，撤销轮换时要能放回去
			if bad := BadPath(p); f.Exists(bad) {
				aside := bad + prevSuffix
				_ = f.fs.Remove(aside)
				if err := f.move(rot, bad, aside); err != nil {
					_ = f.restore(rot)
					return nil, err
				}
				rot.asides = append(rot.asides, aside)
			}
			if err := f.move(rot, p, BadPath(p)); err != nil {
				_ = f.restore(rot)
				return nil, err
			}
		}
		if err := f.move(rot, BackupPath(p), p); err != nil {
			_ = f.restore(rot)
			return nil, err
		}
	}
	return rot, nil
}

func (f *FileIO) move(rot *rotation, from, to string) error {
	if err := f.fs.Rename(from, to); err != nil {
		return err
	}
	rot.moves = append(rot.moves, [2]string{from, to})
	return nil
}

func (f *FileIO) restore(rot *rotation) error {
	var errs []error
	for i := len(rot.moves) - 1; i >= 0; i-- {
		m := rot.moves[i]
		if err := f.fs.Rename(m[1], m[0]); err != nil {
			errs = append(errs, err)
		}
	}
	rot.moves = nil
	rot.asides = nil
	return errors.Join(errs...)
}

// commit 在轮换后加载成功时调用，丢弃让位的旧 .bad。
func (f *FileIO) commit(rot *rotation) {
	for _, p := range rot.asides {
		_ = f.fs.Remove(p)
	}
	rot.asides = nil
}

// Save 写临时文件，把现有主文件挪到 .bak，再把临时文件改名为主文件。伴随文件同样处理。
func (f *FileIO) Save(ctx context.Context, path string, c Codec) error {
	if err := f.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ErrSaveFailed.WithCause(err).WithData("path", path)
	}
	if err := f.saveOne(path, c.WriteFile); err != nil {
		return ErrSaveFailed.WithCause(err).WithData("path", path)
	}
	if cc, ok := c.(CompanionCodec); ok {
		comp := CompanionPath(path)
		if err := f.saveOne(comp, cc.WriteCompanion); err != nil {
			return ErrSaveFailed.WithCause(err).WithData("path", comp)
		}
	}
	f.log.WithContext(ctx).Debug("world saved", zap.String("path", path))
	return nil
}

func (f *FileIO) saveOne(path string, write func(w io.Writer) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("codec panic: %v", r)
		}
	}()

	tmp := path + tmpSuffix
	file, err := f.fs.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		_ = file.Close()
		_ = f.fs.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		_ = f.fs.Remove(tmp)
		return err
	}
	if f.Exists(path) {
		_ = f.fs.Remove(BackupPath(path))
		if err := f.fs.Rename(path, BackupPath(path)); err != nil {
			return err
		}
	}
	return f.fs.Rename(tmp, path)
}
