package entity

import (
	"math"
	"strconv"
)

// Target 是切换目标：>= 0 为维度下标，其余为哨兵值。
type Target int

const (
	TargetPrimary Target = -1
	TargetMenu    Target = math.MinInt32
)

func (t Target) IsDimension() bool { return t >= 0 }

func (t Target) String() string {
	switch {
	case t == TargetPrimary:
		return "primary"
	case t == TargetMenu:
		return "menu"
	case t >= 0:
		return "dimension#" + strconv.Itoa(int(t))
	default:
		return "invalid#" + strconv.Itoa(int(t))
	}
}

// Direction 告诉参与方这次拷贝是从哪边离开。
type Direction uint8

const (
	LeavingPrimary Direction = iota + 1
	LeavingDimension
)

func (d Direction) String() string {
	switch d {
	case LeavingPrimary:
		return "leaving_primary"
	case LeavingDimension:
		return "leaving_dimension"
	}
	return "unknown"
}
