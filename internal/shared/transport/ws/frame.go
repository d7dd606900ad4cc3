package ws

import (
	"encoding/json"
	"errors"

	"WorldShift/internal/shared/security"
)

// ReqBody 是请求帧，Name 形如 "<group>.<handler>"。
type ReqBody struct {
	Seq  int64  `json:"seq"`
	Name string `json:"name"`
	Msg  any    `json:"msg"`
}

// RespBody 是响应帧；Seq 为 0 表示服务端主动推送。
type RespBody struct {
	Seq  int64  `json:"seq"`
	Name string `json:"name"`
	Code int    `json:"code"`
	Msg  any    `json:"msg"`
}

type WsMsgReq struct {
	Body *ReqBody
	Conn WSConn
}

type WsMsgResp struct {
	Body *RespBody
}

// WSConn 是 handler 能看到的连接。
type WSConn interface {
	SetProperty(key string, value any)
	GetProperty(key string) any
	RemoveProperty(key string)
	Addr() string
	Push(name string, data any)
	Close()
	// Done 在连接关闭时被关闭。
	Done() <-chan struct{}
}

type Handshake struct {
	Key string `json:"key"`
}

type Heartbeat struct {
	CTime int64 `json:"ctime"`
	STime int64 `json:"stime"`
}

const (
	HandshakeMsg = "handshake"
	HeartbeatMsg = "heartbeat"
	SecretKey    = "secretKey"
	ConnKeyPeer  = "peer_id"

	// KeyLen 是握手下发的 AES 密钥长度。
	KeyLen = 16
)

var ErrNoSecret = errors.New("ws: handshake key not negotiated")

// SealFrame 把帧编码为 JSON 后加密压缩。
func SealFrame(v any, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrNoSecret
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return security.Seal(raw, []byte(key))
}

// OpenFrame 是 SealFrame 的逆过程。
func OpenFrame(data []byte, key string, dst any) error {
	if key == "" {
		return ErrNoSecret
	}
	raw, err := security.Open(data, []byte(key))
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// EncodeHandshake 握手帧只压缩不加密，对端此时还没有密钥。
func EncodeHandshake(key string) ([]byte, error) {
	raw, err := json.Marshal(&RespBody{Name: HandshakeMsg, Msg: &Handshake{Key: key}})
	if err != nil {
		return nil, err
	}
	return security.Zip(raw)
}

func DecodeHandshake(data []byte) (string, error) {
	raw, err := security.UnZip(data)
	if err != nil {
		return "", err
	}
	var body RespBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", err
	}
	if body.Name != HandshakeMsg {
		return "", errors.New("ws: expected handshake, got " + body.Name)
	}
	var h Handshake
	if err := BindMsg(body.Msg, &h); err != nil {
		return "", err
	}
	if len(h.Key) != KeyLen {
		return "", security.ErrKeyLength
	}
	return h.Key, nil
}
