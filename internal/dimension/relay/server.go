package relay

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"WorldShift/internal/dimension/entity"
	"WorldShift/internal/shared/security"
	"WorldShift/internal/shared/session"
	"WorldShift/internal/shared/transport"
	"WorldShift/internal/shared/transport/ws"
	"WorldShift/modules/kit/logx"

	"go.uber.org/zap"
)

// Transitions 是服务端能调用的协调器能力。
type Transitions interface {
	RequestEnterByName(fullName string) bool
	RequestExit() bool
	Status() entity.Status
}

var errTokenMissing = errors.New("relay token missing")

// Server 接收对端的切换请求，并把稳定后的状态广播给所有对端。
type Server struct {
	coord  Transitions
	secret string
	peers  session.Manager
	router *ws.Router
	ws     *ws.Server
	log    logx.Logger
}

func NewServer(coord Transitions, jwtSecret string, l logx.Logger) *Server {
	l = logx.OrNop(l)
	s := &Server{
		coord:  coord,
		secret: jwtSecret,
		peers:  session.NewPeerMgr(),
		router: ws.NewRouter(l),
		log:    l,
	}
	g := s.router.Group(group)
	g.Handle(handleEnter, s.enter)
	g.Handle(handleExit, s.exit)
	g.Handle(handleStatus, s.status)
	s.ws = ws.NewServer(s.router, s.authenticate, func(conn *ws.ServerConn, peerID int) {
		s.peers.Bind(peerID, conn)
	}, l)
	return s
}

// Handler 挂到 HTTP 路由上，例如 /relay。
func (s *Server) Handler() http.Handler {
	return s.ws
}

func (s *Server) Peers() int {
	return s.peers.Len()
}

// BroadcastSettled 把状态推给所有已连接的对端。
func (s *Server) BroadcastSettled(msg SettledMsg) {
	s.peers.Each(func(peerID int, conn ws.WSConn) {
		conn.Push(PushSettled, msg)
	})
	s.log.Debug("relay settled broadcast", zap.String("current", msg.Current), zap.Int("peers", s.peers.Len()))
}

func (s *Server) authenticate(r *http.Request) (int, error) {
	token := r.URL.Query().Get("token")
	if h := r.Header.Get("Authorization"); h != "" {
		token = strings.TrimPrefix(h, "Bearer ")
	}
	if token == "" {
		return 0, errTokenMissing
	}
	claims, err := security.ParseToken(s.secret, token)
	if err != nil {
		return 0, err
	}
	return claims.PeerID, nil
}

func (s *Server) enter(ctx context.Context, req *ws.WsMsgReq, resp *ws.WsMsgResp) {
	var in EnterReq
	if err := ws.BindJSON(req, &in); err != nil || !entity.ValidFullName(in.Name) {
		resp.Body.Code = transport.InvalidParam
		resp.Body.Msg = "参数有误"
		transport.SetErrorReason(ctx, "bad_name")
		return
	}
	s.reply(ctx, resp, s.coord.RequestEnterByName(in.Name))
}

func (s *Server) exit(ctx context.Context, _ *ws.WsMsgReq, resp *ws.WsMsgResp) {
	s.reply(ctx, resp, s.coord.RequestExit())
}

func (s *Server) status(_ context.Context, _ *ws.WsMsgReq, resp *ws.WsMsgResp) {
	resp.Body.Code = transport.OK
	resp.Body.Msg = s.coord.Status()
}

func (s *Server) reply(ctx context.Context, resp *ws.WsMsgResp, accepted bool) {
	resp.Body.Msg = EnterResp{Accepted: accepted}
	if accepted {
		resp.Body.Code = transport.OK
		return
	}
	resp.Body.Code = transport.Rejected
	transport.SetErrorReason(ctx, "rejected")
}
