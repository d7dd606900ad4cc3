package utils

import "testing"

func TestSnowflake_单调递增(t *testing.T) {
	s, err := NewSnowflake(3)
	if err != nil {
		t.Fatalf("NewSnowflake err=%v", err)
	}
	prev := s.NextID()
	for i := 0; i < 5000; i++ {
		next := s.NextID()
		if next <= prev {
			t.Fatalf("期望编号单调递增, prev=%d next=%d", prev, next)
		}
		prev = next
	}
}

func TestSnowflake_时钟回拨不回退(t *testing.T) {
	s, _ := NewSnowflake(1)
	clock := int64(1704067300000)
	s.now = func() int64 { return clock }
	a := s.NextID()
	clock -= 50
	b := s.NextID()
	if b <= a {
		t.Fatalf("期望回拨后仍递增, a=%d b=%d", a, b)
	}
}

func TestNewSnowflake_节点越界(t *testing.T) {
	if _, err := NewSnowflake(maxNodeID + 1); err == nil {
		t.Fatalf("期望节点号越界时报错")
	}
}

func TestRandSeq(t *testing.T) {
	a, b := RandSeq(16), RandSeq(16)
	if len(a) != 16 || len(b) != 16 {
		t.Fatalf("期望长度 16, got=%d/%d", len(a), len(b))
	}
	if a == b {
		t.Fatalf("两次生成期望不同")
	}
	if RandSeq(0) != "" {
		t.Fatalf("n=0 期望空串")
	}
}
