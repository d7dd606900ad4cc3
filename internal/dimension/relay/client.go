package relay

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"WorldShift/internal/dimension/coordinator"
	"WorldShift/internal/shared/transport"
	"WorldShift/internal/shared/transport/ws"
	"WorldShift/modules/kit/errx"
	"WorldShift/modules/kit/logx"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const defaultCallTimeout = 5 * time.Second

var _ coordinator.Forwarder = (*Client)(nil)

// Client 连到 relay 服务端，实现 coordinator.Forwarder。
type Client struct {
	conn      *websocket.Conn
	key       atomic.Pointer[string]
	log       logx.Logger
	onSettled func(SettledMsg)

	seq     atomic.Int64
	mu      sync.Mutex
	pending map[int64]chan *ws.RespBody
	writeMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

// Dial 建立连接并完成握手，onSettled 在收到服务端广播时调用（读循环 goroutine 上）。
func Dial(ctx context.Context, url, token string, onSettled func(SettledMsg), l logx.Logger) (*Client, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, errx.ErrRelayUnavailable.WithCause(err).WithData("url", url)
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, errx.ErrRelayUnavailable.WithCause(err).WithReason("handshake read")
	}
	key, err := ws.DecodeHandshake(data)
	if err != nil {
		_ = conn.Close()
		return nil, errx.ErrRelayUnavailable.WithCause(err).WithReason("handshake decode")
	}

	c := &Client{
		conn:      conn,
		log:       logx.OrNop(l),
		onSettled: onSettled,
		pending:   make(map[int64]chan *ws.RespBody),
		done:      make(chan struct{}),
	}
	c.key.Store(&key)
	go c.readLoop()
	return c, nil
}

func (c *Client) ForwardEnter(ctx context.Context, fullName string) error {
	return c.expectAccepted(c.Call(ctx, RouteEnter, EnterReq{Name: fullName}))
}

func (c *Client) ForwardExit(ctx context.Context) error {
	return c.expectAccepted(c.Call(ctx, RouteExit, nil))
}

func (c *Client) expectAccepted(resp *ws.RespBody, err error) error {
	if err != nil {
		return err
	}
	switch resp.Code {
	case transport.OK:
		return nil
	case transport.Rejected:
		return ErrRejected
	}
	return errx.ErrRelayUnavailable.WithReason(fmt.Sprintf("relay code %d: %v", resp.Code, resp.Msg))
}

// Heartbeat 返回服务端时间（毫秒）。
func (c *Client) Heartbeat(ctx context.Context) (int64, error) {
	resp, err := c.Call(ctx, ws.HeartbeatMsg, &ws.Heartbeat{CTime: time.Now().UnixMilli()})
	if err != nil {
		return 0, err
	}
	var h ws.Heartbeat
	if err := ws.BindMsg(resp.Msg, &h); err != nil {
		return 0, err
	}
	return h.STime, nil
}

// Call 发送请求并等待同 seq 的响应。
func (c *Client) Call(ctx context.Context, name string, msg any) (*ws.RespBody, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultCallTimeout)
		defer cancel()
	}

	seq := c.seq.Add(1)
	ch := make(chan *ws.RespBody, 1)
	c.mu.Lock()
	c.pending[seq] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, seq)
		c.mu.Unlock()
	}()

	data, err := ws.SealFrame(&ws.ReqBody{Seq: seq, Name: name, Msg: msg}, *c.key.Load())
	if err != nil {
		return nil, err
	}
	c.writeMu.Lock()
	err = c.conn.WriteMessage(websocket.BinaryMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		return nil, errx.ErrRelayUnavailable.WithCause(err)
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-c.done:
		return nil, errx.ErrRelayUnavailable.WithReason("connection closed")
	case <-ctx.Done():
		return nil, errx.ErrRelayUnavailable.WithCause(ctx.Err())
	}
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.log.Warn("relay client read", zap.Error(err))
			}
			return
		}
		var body ws.RespBody
		if err := ws.OpenFrame(data, *c.key.Load(), &body); err != nil {
			// 服务端重新握手
			if key, herr := ws.DecodeHandshake(data); herr == nil {
				c.key.Store(&key)
				continue
			}
			c.log.Error("relay client open frame", zap.Error(err))
			continue
		}
		if body.Seq == 0 {
			c.handlePush(&body)
			continue
		}
		c.mu.Lock()
		ch := c.pending[body.Seq]
		c.mu.Unlock()
		if ch != nil {
			ch <- &body
		}
	}
}

func (c *Client) handlePush(body *ws.RespBody) {
	if body.Name != PushSettled || c.onSettled == nil {
		return
	}
	var msg SettledMsg
	if err := ws.BindMsg(body.Msg, &msg); err != nil {
		c.log.Warn("relay settled decode", zap.Error(err))
		return
	}
	c.onSettled(msg)
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}
