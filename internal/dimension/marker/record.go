package marker

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"WorldShift/modules/kit/errx"
)

const (
	FormatVersion int32 = 1
	FileName            = "dimension.state"

	// 名字长度上限，防止损坏文件把长度读成一个巨大的值。
	maxNameLen = 1 << 12
)

var ErrCorrupt = errx.NewSys(errx.CodeMarkerCorrupt, "dimension marker corrupt")

// Record 是标记文件的内容。AdvisoryIndex 只是写入时的 ID，读取时不可信。
type Record struct {
	Version       int32
	AdvisoryIndex int32
	FullName      string
}

// Encode: int32 版本、int32 下标、uvarint 长度前缀 + UTF-8 名字，小端。
func (r Record) Encode() []byte {
	buf := make([]byte, 0, 8+binary.MaxVarintLen64+len(r.FullName))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(r.Version))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(r.AdvisoryIndex))
	buf = binary.AppendUvarint(buf, uint64(len(r.FullName)))
	return append(buf, r.FullName...)
}

// Decode 任何格式问题都返回 ErrCorrupt，版本不一致也算。
func Decode(data []byte) (Record, error) {
	rd := bytes.NewReader(data)
	var head struct {
		Version       int32
		AdvisoryIndex int32
	}
	if err := binary.Read(rd, binary.LittleEndian, &head); err != nil {
		return Record{}, ErrCorrupt.WithCause(err)
	}
	if head.Version != FormatVersion {
		return Record{}, ErrCorrupt.WithReason(fmt.Sprintf("version %d, want %d", head.Version, FormatVersion))
	}
	n, err := binary.ReadUvarint(rd)
	if err != nil {
		return Record{}, ErrCorrupt.WithCause(err)
	}
	if n > maxNameLen || n > uint64(rd.Len()) {
		return Record{}, ErrCorrupt.WithReason(fmt.Sprintf("name length %d out of range", n))
	}
	name := make([]byte, n)
	if _, err := io.ReadFull(rd, name); err != nil {
		return Record{}, ErrCorrupt.WithCause(err)
	}
	return Record{Version: head.Version, AdvisoryIndex: head.AdvisoryIndex, FullName: string(name)}, nil
}
