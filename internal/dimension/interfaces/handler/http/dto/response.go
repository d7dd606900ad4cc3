package dto

type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg,omitempty"`
	Data any    `json:"data,omitempty"`
}

func Success(code int, data any) Response {
	return Response{Code: code, Data: data}
}

func Error(code int, msg string) Response {
	return Response{Code: code, Msg: msg}
}

type EnterReq struct {
	Name string `json:"name" binding:"required"`
}

type EnterResp struct {
	Accepted bool `json:"accepted"`
}

type Dimension struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	Width         int      `json:"width"`
	Height        int      `json:"height"`
	Passes        []string `json:"passes"`
	ReturnTarget  string   `json:"return_target"`
	ShouldPersist bool     `json:"should_persist"`
}
