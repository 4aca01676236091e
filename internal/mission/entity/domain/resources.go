package domain

import "Vikings/internal/shared/gameconfig/catalog"

type Resource = catalog.Resource

// Resources 资源 -> 数量。
type Resources map[Resource]int64

func (r Resources) Clone() Resources {
	out := make(Resources, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (r Resources) Total() int64 {
	var n int64
	for _, v := range r {
		n += v
	}
	return n
}

// Covers 负数条目视为非法开销，一律不满足。
func (r Resources) Covers(cost catalog.Cost) bool {
	for k, v := range cost {
		if v < 0 || r[k] < v {
			return false
		}
	}
	return true
}

// Pay 全部足够才扣。
func (r Resources) Pay(cost catalog.Cost) bool {
	if !r.Covers(cost) {
		return false
	}
	for k, v := range cost {
		r[k] -= v
	}
	return true
}

func (r Resources) Add(delta Resources) {
	for k, v := range delta {
		r[k] += v
	}
}

// Shortage 返回不足的部分，用于错误提示。
func (r Resources) Shortage(cost catalog.Cost) Resources {
	out := Resources{}
	for k, v := range cost {
		if r[k] < v {
			out[k] = v - r[k]
		}
	}
	return out
}
