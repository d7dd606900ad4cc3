package errx

// 跨模块共享的错误码。各模块自己的拒绝类错误码在模块内定义。
const (
	// CodeInternal 兜底：流水线内不可预期的错误（包括 panic）。
	CodeInternal Code = "INTERNAL_ERROR"
	// CodeStorageUnavailable 存储（文件系统/mongodb/mysql）不可用。
	CodeStorageUnavailable Code = "STORAGE_UNAVAILABLE"
	CodeWorldLoadFailed    Code = "WORLD_LOAD_FAILED"
	CodeWorldSaveFailed    Code = "WORLD_SAVE_FAILED"
	CodeGenerationFailed   Code = "GENERATION_FAILED"
	CodeMarkerCorrupt      Code = "MARKER_CORRUPT"
	CodeDimensionNotFound  Code = "DIMENSION_NOT_FOUND"
	CodeRelayUnavailable   Code = "RELAY_UNAVAILABLE"
)

var (
	ErrInternal           = NewSys(CodeInternal, "internal error")
	ErrStorageUnavailable = NewSys(CodeStorageUnavailable, "storage unavailable")
	ErrDimensionNotFound  = NewBiz(CodeDimensionNotFound, "dimension not registered")
	ErrRelayUnavailable   = NewSys(CodeRelayUnavailable, "relay unavailable")
)
