package domain

import (
	"math"

	"Vikings/internal/shared/gameconfig/catalog"
)

const (
	// WorldSize 地图边长，坐标范围 [0, WorldSize)。
	WorldSize = 1000
	// resourceChance 约 15% 的格子有资源点
	resourceChance = 0.15
)

var WorldCenter = Coord{X: WorldSize / 2, Y: WorldSize / 2}

type Terrain string

const (
	TerrainGrass    Terrain = "grass"
	TerrainForest   Terrain = "forest"
	TerrainMountain Terrain = "mountain"
	TerrainDesert   Terrain = "desert"
)

func InBounds(c Coord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < WorldSize && c.Y < WorldSize
}

func fract(v float64) float64 {
	return v - math.Floor(v)
}

// TerrainAt 由坐标确定的地形，同一坐标永远相同。
func TerrainAt(c Coord) Terrain {
	h := fract(math.Sin(float64(c.X)*12.9898+float64(c.Y)*78.233) * 43758.5453)
	switch {
	case h > 0.8:
		return TerrainMountain
	case h > 0.7:
		return TerrainForest
	case h > 0.6:
		return TerrainDesert
	default:
		return TerrainGrass
	}
}

func cellHash(c Coord) float64 {
	s1 := math.Sin(float64(c.X)*127.1+float64(c.Y)*311.7) * 43758.5453123
	s2 := math.Cos(float64(c.X)*269.5+float64(c.Y)*183.3) * 12345.6789
	return math.Abs(fract(s1 + s2))
}

type nodeKind struct {
	res    Resource
	name   string
	levels int
}

var (
	goldMine     = nodeKind{catalog.Gold, "Gold Mine", 5}
	marbleQuarry = nodeKind{catalog.Marble, "Marble Quarry", 4}
	woodCamp     = nodeKind{catalog.Wood, "Lumber Camp", 5}
	sulfurMine   = nodeKind{catalog.Sulfur, "Sulfur Mine", 3}
	crystalCave  = nodeKind{catalog.Crystal, "Crystal Cave", 3}
	wheatField   = nodeKind{catalog.Food, "Wheat Field", 5}
	vineyard     = nodeKind{catalog.Wine, "Vineyard", 4}

	fallbackNodes = []nodeKind{wheatField, woodCamp, goldMine, vineyard, marbleQuarry, crystalCave}
)

func (k nodeKind) entity(h float64, level int) *MapEntity {
	if level == 0 {
		level = int(math.Floor(h*100))%k.levels + 1
	}
	return &MapEntity{Kind: KindResource, Name: k.name, Resource: k.res, Level: level}
}

// VirtualEntity 未持久化格子上按坐标生成的资源点，没有则返回 nil。
func VirtualEntity(c Coord) *MapEntity {
	if !InBounds(c) || c == WorldCenter {
		return nil
	}
	h := cellHash(c)
	if h >= resourceChance {
		return nil
	}
	switch TerrainAt(c) {
	case TerrainMountain:
		if h < 0.06 {
			return goldMine.entity(h, 0)
		}
		if h < 0.09 {
			return marbleQuarry.entity(h, 0)
		}
	case TerrainForest:
		if h < 0.08 {
			return woodCamp.entity(h, 0)
		}
	case TerrainDesert:
		if h < 0.05 {
			return sulfurMine.entity(h, 0)
		}
		if h < 0.06 {
			return crystalCave.entity(h, 0)
		}
	case TerrainGrass:
		if h < 0.09 {
			return wheatField.entity(h, 0)
		}
		if h < 0.12 {
			return vineyard.entity(h, 0)
		}
	}
	idx := min(int(h/resourceChance*float64(len(fallbackNodes))), len(fallbackNodes)-1)
	return fallbackNodes[idx].entity(h, 1)
}

// SpiralFrom 从 origin 开始按环向外枚举格子，fn 返回 true 时停止。
func SpiralFrom(origin Coord, maxRadius int, fn func(Coord) bool) bool {
	if InBounds(origin) && fn(origin) {
		return true
	}
	for r := 1; r <= maxRadius; r++ {
		for dx := -r; dx <= r; dx++ {
			for _, dy := range []int{-r, r} {
				c := Coord{X: origin.X + dx, Y: origin.Y + dy}
				if InBounds(c) && fn(c) {
					return true
				}
			}
		}
		for dy := -r + 1; dy <= r-1; dy++ {
			for _, dx := range []int{-r, r} {
				c := Coord{X: origin.X + dx, Y: origin.Y + dy}
				if InBounds(c) && fn(c) {
					return true
				}
			}
		}
	}
	return false
}
