package session

import (
	"sort"
	"sync"

	"WorldShift/internal/shared/transport/ws"
)

// Manager 维护 relay 对端 ID 与连接的绑定。
type Manager interface {
	Bind(peerID int, conn ws.WSConn)
	UnbindConn(conn ws.WSConn)
	GetConn(peerID int) (ws.WSConn, bool)
	GetPeer(conn ws.WSConn) (int, bool)
	// Each 按 peerID 升序遍历当前连接。
	Each(fn func(peerID int, conn ws.WSConn))
	Len() int
}

type PeerMgr struct {
	sync.RWMutex
	peer2conn map[int]ws.WSConn
	conn2peer map[ws.WSConn]int
	watched   map[ws.WSConn]struct{}
}

func NewPeerMgr() *PeerMgr {
	return &PeerMgr{
		peer2conn: make(map[int]ws.WSConn),
		conn2peer: make(map[ws.WSConn]int),
		watched:   make(map[ws.WSConn]struct{}),
	}
}

func (s *PeerMgr) Bind(peerID int, conn ws.WSConn) {
	if conn == nil {
		return
	}
	s.Lock()
	defer s.Unlock()

	// 每条连接只启动一次 watcher：连接关闭后自动解绑
	if _, ok := s.watched[conn]; !ok {
		s.watched[conn] = struct{}{}
		go s.watchConnDone(conn)
	}

	old := s.peer2conn[peerID]
	// 同一个对端重连时踢掉旧连接
	if old != nil && old != conn {
		old.Push("peer.replaced", nil)
		old.Close()
		delete(s.conn2peer, old)
	}
	s.peer2conn[peerID] = conn
	s.conn2peer[conn] = peerID
}

func (s *PeerMgr) watchConnDone(conn ws.WSConn) {
	<-conn.Done()
	s.UnbindConn(conn)
}

func (s *PeerMgr) UnbindConn(conn ws.WSConn) {
	s.Lock()
	defer s.Unlock()
	delete(s.watched, conn)
	peerID, ok := s.conn2peer[conn]
	if !ok {
		return
	}
	delete(s.conn2peer, conn)
	if s.peer2conn[peerID] == conn {
		delete(s.peer2conn, peerID)
	}
}

func (s *PeerMgr) GetConn(peerID int) (ws.WSConn, bool) {
	s.RLock()
	defer s.RUnlock()
	conn, ok := s.peer2conn[peerID]
	return conn, ok
}

func (s *PeerMgr) GetPeer(conn ws.WSConn) (int, bool) {
	s.RLock()
	defer s.RUnlock()
	peerID, ok := s.conn2peer[conn]
	return peerID, ok
}

func (s *PeerMgr) Each(fn func(peerID int, conn ws.WSConn)) {
	s.RLock()
	ids := make([]int, 0, len(s.peer2conn))
	conns := make(map[int]ws.WSConn, len(s.peer2conn))
	for id, c := range s.peer2conn {
		ids = append(ids, id)
		conns[id] = c
	}
	s.RUnlock()

	sort.Ints(ids)
	for _, id := range ids {
		fn(id, conns[id])
	}
}

func (s *PeerMgr) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.peer2conn)
}
