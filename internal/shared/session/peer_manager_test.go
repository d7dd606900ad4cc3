package session

import (
	"sync"
	"testing"
	"time"

	"WorldShift/internal/shared/transport/ws"
)

type fakeConn struct {
	mu     sync.Mutex
	pushed []string
	done   chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn { return &fakeConn{done: make(chan struct{})} }

func (c *fakeConn) SetProperty(string, any) {}
func (c *fakeConn) GetProperty(string) any  { return nil }
func (c *fakeConn) RemoveProperty(string)   {}
func (c *fakeConn) Addr() string            { return "fake" }
func (c *fakeConn) Push(name string, _ any) {
	c.mu.Lock()
	c.pushed = append(c.pushed, name)
	c.mu.Unlock()
}
func (c *fakeConn) Close()                { c.once.Do(func() { close(c.done) }) }
func (c *fakeConn) Done() <-chan struct{} { return c.done }

func TestPeerMgr_重连踢掉旧连接(t *testing.T) {
	m := NewPeerMgr()
	a, b := newFakeConn(), newFakeConn()
	m.Bind(1, a)
	m.Bind(1, b)

	select {
	case <-a.Done():
	default:
		t.Fatalf("旧连接期望被关闭")
	}
	if len(a.pushed) != 1 || a.pushed[0] != "peer.replaced" {
		t.Fatalf("旧连接期望收到 peer.replaced, got=%v", a.pushed)
	}
	conn, ok := m.GetConn(1)
	if !ok || conn != b {
		t.Fatalf("期望绑定到新连接")
	}
	if _, ok := m.GetPeer(a); ok {
		t.Fatalf("旧连接期望已解绑")
	}
}

func TestPeerMgr_连接关闭自动解绑(t *testing.T) {
	m := NewPeerMgr()
	a := newFakeConn()
	m.Bind(7, a)
	a.Close()

	deadline := time.Now().Add(2 * time.Second)
	for m.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("连接关闭后期望自动解绑")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPeerMgr_Each按ID升序(t *testing.T) {
	m := NewPeerMgr()
	for _, id := range []int{3, 1, 2} {
		m.Bind(id, newFakeConn())
	}
	var got []int
	m.Each(func(id int, _ ws.WSConn) { got = append(got, id) })
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("期望 [1 2 3], got=%v", got)
	}
}
