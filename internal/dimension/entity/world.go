package entity

import "github.com/google/uuid"

// WorldInfo 是主世界的身份信息，标记文件按 UID 分目录。
type WorldInfo struct {
	UID  string
	Name string
	Seed int64
	// Path 是主世界 .wld 的完整路径。
	Path string
}

func NewWorldUID() string {
	return uuid.NewString()
}

// Status 是切换状态的快照，给管理接口和 UI 用。
type Status struct {
	Current    string  `json:"current"`
	Cached     string  `json:"cached"`
	InMenu     bool    `json:"in_menu"`
	Settled    bool    `json:"settled"`
	InFlight   bool    `json:"in_flight"`
	Phase      string  `json:"phase"`
	Progress   float64 `json:"progress"`
	Message    string  `json:"message"`
	Transition string  `json:"transition_id,omitempty"`
}
