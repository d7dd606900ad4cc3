package worldio

import (
	"io"
	"path/filepath"
	"strings"
)

const (
	WorldExt     = ".wld"
	CompanionExt = ".twld"
	backupSuffix = ".bak"
	badSuffix    = ".bad"
	prevSuffix   = ".prev"
	tmpSuffix    = ".tmp"
)

// Codec 是世界文件的读写原语，ReadFile 返回 0 表示成功，其余是状态码。
type Codec interface {
	ReadFile(r io.Reader) int
	WriteFile(w io.Writer) error
}

// CompanionCodec 是可选的伴随元数据（.twld），Codec 同时实现时一起读写。
type CompanionCodec interface {
	ReadCompanion(r io.Reader) error
	WriteCompanion(w io.Writer) error
}

// CompanionPath 把 .wld 换成 .twld。
func CompanionPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + CompanionExt
}

func BackupPath(path string) string { return path + backupSuffix }

func BadPath(path string) string { return path + badSuffix }

// DimensionPath 是主世界目录下某个维度的存档：<dir>/<uid>/<Mod>/<Name>.wld。
func DimensionPath(root, worldUID, fullName string) string {
	return filepath.Join(root, worldUID, filepath.FromSlash(fullName)+WorldExt)
}
