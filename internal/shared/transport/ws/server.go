package ws

import (
	"net/http"

	"WorldShift/modules/kit/logx"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Authenticator 在升级前校验请求，返回对端 ID。
type Authenticator func(r *http.Request) (int, error)

// Server 是 websocket 升级入口。
type Server struct {
	router    *Router
	log       logx.Logger
	auth      Authenticator
	onConnect func(conn *ServerConn, peerID int)
	upgrader  websocket.Upgrader
}

func NewServer(r *Router, auth Authenticator, onConnect func(conn *ServerConn, peerID int), l logx.Logger) *Server {
	return &Server{
		router:    r,
		log:       logx.OrNop(l),
		auth:      auth,
		onConnect: onConnect,
		upgrader: websocket.Upgrader{
			// relay 只在内网使用，不校验 Origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	peerID := 0
	if s.auth != nil {
		id, err := s.auth(req)
		if err != nil {
			s.log.Warn("websocket auth rejected", zap.String("addr", req.RemoteAddr), zap.Error(err))
			http.Error(resp, "unauthorized", http.StatusUnauthorized)
			return
		}
		peerID = id
	}

	wsConn, err := s.upgrader.Upgrade(resp, req, nil)
	if err != nil {
		s.log.Error("websocket upgrade error", zap.Error(err))
		return
	}

	conn := NewServerConn(wsConn, s.router, s.log)
	conn.SetProperty(ConnKeyPeer, peerID)
	if err := conn.Run(); err != nil {
		return
	}
	s.log.Info("websocket peer connected", zap.Int("peer_id", peerID), zap.String("addr", conn.Addr()))
	if s.onConnect != nil {
		s.onConnect(conn, peerID)
	}
}
