package domain

import (
	"fmt"
	"sort"
)

// Army 兵种 -> 数量，数量不为负。
type Army map[string]int64

func (a Army) Clone() Army {
	out := make(Army, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

func (a Army) Total() int64 {
	var n int64
	for _, v := range a {
		n += v
	}
	return n
}

// Compact 去掉数量为 0 的条目。
func (a Army) Compact() Army {
	out := make(Army, len(a))
	for k, v := range a {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

func (a Army) Validate() error {
	for k, v := range a {
		if v < 0 {
			return fmt.Errorf("negative count %d for unit %q", v, k)
		}
	}
	return nil
}

// Covers 判断 a 是否足够扣除 need。
func (a Army) Covers(need Army) bool {
	for k, v := range need {
		if v > 0 && a[k] < v {
			return false
		}
	}
	return true
}

// Deduct 全部足够才扣，不足时不做任何修改。
func (a Army) Deduct(need Army) bool {
	if !a.Covers(need) {
		return false
	}
	for k, v := range need {
		if v > 0 {
			a[k] -= v
		}
	}
	return true
}

func (a Army) Add(other Army) {
	for k, v := range other {
		if v > 0 {
			a[k] += v
		}
	}
}

// Kinds 按字典序返回有兵的兵种，保证遍历顺序稳定。
func (a Army) Kinds() []string {
	keys := make([]string, 0, len(a))
	for k, v := range a {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
