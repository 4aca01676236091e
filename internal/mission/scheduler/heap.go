package scheduler

import "Vikings/internal/mission/entity/domain"

// timerHeap 按 EndTime 排序的小顶堆，EndTime 相同按 ID。
type timerHeap []*domain.Timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].EndTime != h[j].EndTime {
		return h[i].EndTime < h[j].EndTime
	}
	return h[i].ID < h[j].ID
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)   { *h = append(*h, x.(*domain.Timer)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}
