package utils

import "testing"

func TestSnowflake_单调且带节点号(t *testing.T) {
	s, err := NewSnowflake(7)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	var ts int64 = 1735689600000 + 1000
	s.now = func() int64 { return ts }

	prev := s.NextID()
	for i := 0; i < 100; i++ {
		id := s.NextID()
		if id <= prev {
			t.Fatalf("ID 应递增: %d <= %d", id, prev)
		}
		prev = id
	}
	ts -= 500
	if id := s.NextID(); id <= prev {
		t.Fatalf("时钟回拨后 ID 不应回退")
	}
	if NodeOf(prev) != 7 {
		t.Fatalf("node=%d", NodeOf(prev))
	}
	if _, err := NewSnowflake(MaxNodeID + 1); err == nil {
		t.Fatalf("越界节点号应报错")
	}
}
