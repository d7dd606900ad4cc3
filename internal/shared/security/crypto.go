package security

import (
	"bytes"
	"errors"
	"io"

	"github.com/go-think/openssl"
	"github.com/klauspost/compress/zlib"
)

var ErrKeyLength = errors.New("aes key must be 16, 24 or 32 bytes")

// Zip 用 zlib 压缩 relay 帧。
func Zip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func UnZip(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Seal 先 AES-CBC 加密再压缩，key 同时作为 iv 的来源（取前 16 字节）。
func Seal(plain, key []byte) ([]byte, error) {
	if !validKey(key) {
		return nil, ErrKeyLength
	}
	enc, err := openssl.AesCBCEncrypt(plain, key, key[:16], openssl.PKCS7_PADDING)
	if err != nil {
		return nil, err
	}
	return Zip(enc)
}

// Open 是 Seal 的逆过程。
func Open(sealed, key []byte) ([]byte, error) {
	if !validKey(key) {
		return nil, ErrKeyLength
	}
	enc, err := UnZip(sealed)
	if err != nil {
		return nil, err
	}
	return openssl.AesCBCDecrypt(enc, key, key[:16], openssl.PKCS7_PADDING)
}

func validKey(key []byte) bool {
	switch len(key) {
	case 16, 24, 32:
		return true
	}
	return false
}
