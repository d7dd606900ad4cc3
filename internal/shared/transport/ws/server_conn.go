package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"WorldShift/internal/shared/utils"
	"WorldShift/modules/kit/logx"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const outQueueSize = 256

// ServerConn 是服务端的一条连接：读循环解密分发，写循环加密发送。
type ServerConn struct {
	conn     *websocket.Conn
	router   *Router
	outChan  chan *WsMsgResp
	property map[string]any
	sync.RWMutex
	writeMu   sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	log       logx.Logger
}

func NewServerConn(wsConn *websocket.Conn, router *Router, l logx.Logger) *ServerConn {
	// ctx 在连接关闭时取消，handler 里的阻塞调用可以感知
	ctx, cancel := context.WithCancel(context.Background())
	return &ServerConn{
		ctx:      ctx,
		cancel:   cancel,
		conn:     wsConn,
		router:   router,
		outChan:  make(chan *WsMsgResp, outQueueSize),
		property: make(map[string]any),
		done:     make(chan struct{}),
		log:      logx.OrNop(l),
	}
}

func (s *ServerConn) SetProperty(key string, value any) {
	s.Lock()
	defer s.Unlock()
	s.property[key] = value
}

func (s *ServerConn) GetProperty(key string) any {
	s.RLock()
	defer s.RUnlock()
	return s.property[key]
}

func (s *ServerConn) RemoveProperty(key string) {
	s.Lock()
	defer s.Unlock()
	delete(s.property, key)
}

func (s *ServerConn) Addr() string {
	return s.conn.RemoteAddr().String()
}

func (s *ServerConn) Push(name string, data any) {
	s.enqueue(&WsMsgResp{Body: &RespBody{Name: name, Msg: data}})
}

func (s *ServerConn) enqueue(msg *WsMsgResp) {
	select {
	case s.outChan <- msg:
	case <-s.done:
	}
}

// Run 先下发握手，再启动读写循环。
func (s *ServerConn) Run() error {
	if err := s.handshake(); err != nil {
		s.Close()
		return err
	}
	go s.readMsgLoop()
	go s.writeMsgLoop()
	return nil
}

func (s *ServerConn) key() string {
	k, _ := s.GetProperty(SecretKey).(string)
	return k
}

func (s *ServerConn) readMsgLoop() {
	defer func() {
		if err := recover(); err != nil {
			s.log.Error("ws readMsgLoop panic", zap.String("err", fmt.Sprintf("%v", err)))
		}
		s.Close()
	}()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("ws read msg", zap.Error(err))
			}
			return
		}

		reqBody := ReqBody{}
		if err := OpenFrame(data, s.key(), &reqBody); err != nil {
			s.log.Error("ws open frame", zap.Error(err))
			// 解不开说明对端密钥不对，重新握手
			if err := s.handshake(); err != nil {
				return
			}
			continue
		}

		req := WsMsgReq{Body: &reqBody, Conn: s}
		// req 和 resp 的 Seq 必须一致
		resp := WsMsgResp{Body: &RespBody{Seq: reqBody.Seq, Name: reqBody.Name}}
		if reqBody.Name == HeartbeatMsg {
			h := &Heartbeat{}
			_ = BindMsg(reqBody.Msg, h)
			h.STime = time.Now().UnixMilli()
			resp.Body.Msg = h
		} else {
			s.log.Debug("ws read msg", zap.String("name", reqBody.Name), zap.Int64("seq", reqBody.Seq))
			s.router.Dispatch(s.ctx, &req, &resp)
		}
		s.enqueue(&resp)
	}
}

func (s *ServerConn) writeMsgLoop() {
	for {
		select {
		case msg := <-s.outChan:
			s.write(msg)
		case <-s.done:
			return
		}
	}
}

func (s *ServerConn) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.conn.Close()
		close(s.done)
	})
}

func (s *ServerConn) Done() <-chan struct{} {
	return s.done
}

func (s *ServerConn) write(msg *WsMsgResp) {
	data, err := SealFrame(msg.Body, s.key())
	if err != nil {
		s.log.Error("ws seal frame", zap.String("name", msg.Body.Name), zap.Error(err))
		return
	}
	s.writeRaw(data)
}

// 压缩后的密文是二进制字节流，必须走 BinaryMessage。
func (s *ServerConn) writeRaw(data []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		s.log.Warn("ws write", zap.Error(err))
	}
}

func (s *ServerConn) handshake() error {
	key := s.key()
	if key == "" {
		key = utils.RandSeq(KeyLen)
		s.SetProperty(SecretKey, key)
	}
	data, err := EncodeHandshake(key)
	if err != nil {
		s.log.Error("ws handshake encode", zap.Error(err))
		return err
	}
	s.writeRaw(data)
	return nil
}
