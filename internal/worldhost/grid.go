package worldhost

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

const gridMagic uint32 = 0x44475357 // "WSGD"

// 读文件的状态码，0 为成功。
const (
	statusOK = iota
	statusBadHeader
	statusBadSize
	statusBadTiles
)

var errBadGrid = errors.New("grid size out of range")

const maxSide = 1 << 14

// Grid 是活动世界的方块数据。
type Grid struct {
	Width  int
	Height int
	Tiles  []byte
}

func NewGrid(w, h int) *Grid {
	return &Grid{Width: w, Height: h, Tiles: make([]byte, w*h)}
}

func (g *Grid) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

func (g *Grid) At(x, y int) byte {
	if !g.In(x, y) {
		return 0
	}
	return g.Tiles[y*g.Width+x]
}

func (g *Grid) Set(x, y int, t byte) {
	if g.In(x, y) {
		g.Tiles[y*g.Width+x] = t
	}
}

// Count 统计某种方块数量。
func (g *Grid) Count(t byte) int {
	n := 0
	for _, v := range g.Tiles {
		if v == t {
			n++
		}
	}
	return n
}

type gridHeader struct {
	Magic  uint32
	Width  int32
	Height int32
}

// writeGrid: 小端头 + zlib 压缩的方块。
func writeGrid(w io.Writer, g *Grid) error {
	h := gridHeader{Magic: gridMagic, Width: int32(g.Width), Height: int32(g.Height)}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return err
	}
	zw := zlib.NewWriter(w)
	if _, err := zw.Write(g.Tiles); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

func readGrid(r io.Reader) (*Grid, int, error) {
	var h gridHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil || h.Magic != gridMagic {
		return nil, statusBadHeader, fmt.Errorf("grid header: %v", err)
	}
	if h.Width <= 0 || h.Height <= 0 || h.Width > maxSide || h.Height > maxSide {
		return nil, statusBadSize, errBadGrid
	}
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, statusBadTiles, err
	}
	defer zr.Close()

	g := NewGrid(int(h.Width), int(h.Height))
	if _, err := io.ReadFull(zr, g.Tiles); err != nil {
		return nil, statusBadTiles, err
	}
	// 读到 EOF 才会校验 adler32；多出来的数据也算损坏
	var extra [1]byte
	if n, err := zr.Read(extra[:]); n > 0 || err != io.EOF {
		if err == nil || err == io.EOF {
			err = errors.New("trailing tile data")
		}
		return nil, statusBadTiles, err
	}
	return g, statusOK, nil
}

func encodeGrid(g *Grid) []byte {
	var buf bytes.Buffer
	_ = writeGrid(&buf, g)
	return buf.Bytes()
}
