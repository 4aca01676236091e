package domain

import "math"

const (
	// MinTravelSeconds / MaxTravelSeconds 普通出征单程时间的上下限。
	MinTravelSeconds = 1
	MaxTravelSeconds = 120
	// GatherSeconds 采集任务固定耗时。
	GatherSeconds = 10
	// BattleSeconds 往返之间的战斗时间。
	BattleSeconds = 5
)

// TravelSeconds 单程：clamp(floor(dist×2), 1, 120)。
func TravelSeconds(from, to Coord) int64 {
	t := int64(math.Floor(Distance(from, to) * 2))
	return min(max(t, MinTravelSeconds), MaxTravelSeconds)
}

// AttackSeconds 往返加战斗。
func AttackSeconds(from, to Coord) int64 {
	return TravelSeconds(from, to)*2 + BattleSeconds
}

// ConquestSeconds 只算单程，胜利后部队驻守不返回。
func ConquestSeconds(from, to Coord) int64 {
	return TravelSeconds(from, to)
}

// FortressAttackMillis 要塞出征不设上限也不取整：(dist×2)×2+5 秒，按毫秒向下取整。
func FortressAttackMillis(from, to Coord) int64 {
	travel := Distance(from, to) * 2
	return int64(math.Floor((travel*2 + BattleSeconds) * 1000))
}
