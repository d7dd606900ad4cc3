package entity

import "WorldShift/internal/dimension/bag"

// Session 是维度运行期的生命周期钩子，panic 会被协调器捕获。
type Session interface {
	OnEnter()
	OnExit()
	OnLoad()
	OnUnload()
	Update()
}

// Copier 在切换时把状态搬进/搬出 bag，会话和外部参与方都可以实现。
type Copier interface {
	CopyOut(dir Direction, b bag.Store)
	ReadIn(dir Direction, b bag.Store)
}

// BaseSession 给只关心部分钩子的实现嵌入用。
type BaseSession struct{}

func (BaseSession) OnEnter()                     {}
func (BaseSession) OnExit()                      {}
func (BaseSession) OnLoad()                      {}
func (BaseSession) OnUnload()                    {}
func (BaseSession) Update()                      {}
func (BaseSession) CopyOut(Direction, bag.Store) {}
func (BaseSession) ReadIn(Direction, bag.Store)  {}
