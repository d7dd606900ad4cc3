package transport

// BizCode 是管理接口/relay 回包里的业务码。
type BizCode int

const (
	OK           = 0
	Rejected     = 1 // 切换请求被拒绝（未稳定、目标未知等），不是错误
	InvalidParam = 400
	NotFound     = 404
	SystemError  = 500
)
