package relay

import (
	"WorldShift/internal/dimension/coordinator"
	"WorldShift/modules/kit/errx"
)

const (
	group        = "dimension"
	RouteEnter   = group + ".enter"
	RouteExit    = group + ".exit"
	RouteStatus  = group + ".status"
	PushSettled  = group + ".settled"
	handleEnter  = "enter"
	handleExit   = "exit"
	handleStatus = "status"
)

// CodeRejected 是服务端拒绝切换请求时客户端看到的错误码。
const CodeRejected errx.Code = "TRANSITION_REJECTED"

var ErrRejected = errx.NewBiz(CodeRejected, "transition rejected by relay server")

type EnterReq struct {
	Name string `json:"name"`
}

type EnterResp struct {
	Accepted bool `json:"accepted"`
}

// SettledMsg 是服务端广播的当前活动维度，Current 为空表示主世界。
type SettledMsg struct {
	Current string `json:"current"`
	InMenu  bool   `json:"in_menu"`
}

func Settled(st coordinator.SessionState) SettledMsg {
	msg := SettledMsg{InMenu: st.InMenu}
	if st.Current != nil {
		msg.Current = st.Current.FullName
	}
	return msg
}
