package marker

import (
	"errors"
	"testing"

	"WorldShift/modules/kit/errx"
)

func TestRecord_EncodeDecode(t *testing.T) {
	in := Record{Version: FormatVersion, AdvisoryIndex: 3, FullName: "core/洞穴"}
	out, err := Decode(in.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("期望 %+v, got=%+v", in, out)
	}
}

func TestRecord_布局(t *testing.T) {
	raw := Record{Version: 1, AdvisoryIndex: 2, FullName: "a/b"}.Encode()
	want := []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 'a', '/', 'b'}
	if string(raw) != string(want) {
		t.Fatalf("期望 %v, got=%v", want, raw)
	}
}

func TestDecode_损坏数据(t *testing.T) {
	good := Record{Version: FormatVersion, FullName: "core/caves"}.Encode()
	cases := map[string][]byte{
		"empty":     nil,
		"short":     good[:5],
		"truncated": good[:len(good)-2],
		"version":   Record{Version: 9, FullName: "core/caves"}.Encode(),
		"length":    append(append([]byte(nil), good[:8]...), 0xff, 0xff, 0x03),
	}
	for name, raw := range cases {
		if _, err := Decode(raw); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("%s: 期望 ErrCorrupt, got=%v", name, err)
		}
		var xe *errx.Error
		_, err := Decode(raw)
		if !errors.As(err, &xe) || xe.Code() != errx.CodeMarkerCorrupt {
			t.Fatalf("%s: 期望 code=%s, got=%v", name, errx.CodeMarkerCorrupt, err)
		}
	}
}
