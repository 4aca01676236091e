package domain

import "fmt"

// EntityKind 地图实体类型。
type EntityKind string

const (
	KindCity     EntityKind = "city"
	KindFortress EntityKind = "fortress"
	KindResource EntityKind = "resource"
	KindMonster  EntityKind = "monster"
)

// NPCUser 是非玩家城市的 user 标记。
const NPCUser = "NPC"

type Garrison struct {
	Units Army  `json:"units" bson:"units"`
	Total int64 `json:"total" bson:"total"`
}

func NewGarrison(units Army) *Garrison {
	u := units.Compact()
	return &Garrison{Units: u, Total: u.Total()}
}

// MapEntity 占据一个格子的实体。Owner 只对被占领的资源点有意义。
type MapEntity struct {
	Kind       EntityKind `json:"type" bson:"type"`
	Name       string     `json:"name" bson:"name"`
	User       string     `json:"user,omitempty" bson:"user,omitempty"`
	Owner      string     `json:"owner,omitempty" bson:"owner,omitempty"`
	Level      int        `json:"level" bson:"level"`
	Resource   Resource   `json:"resource,omitempty" bson:"resource,omitempty"`
	Garrison   *Garrison  `json:"garrison,omitempty" bson:"garrison,omitempty"`
	CapturedAt int64      `json:"capturedAt,omitempty" bson:"captured_at,omitempty"`
	FortressID string     `json:"fortressId,omitempty" bson:"fortress_id,omitempty"`
	ClanID     string     `json:"clanId,omitempty" bson:"clan_id,omitempty"`
	Center     bool       `json:"isCenter,omitempty" bson:"center,omitempty"`
}

// IsPlayerCity 真实玩家的城市（不含 NPC）。
func (e *MapEntity) IsPlayerCity() bool {
	return e != nil && e.Kind == KindCity && e.User != "" && e.User != NPCUser
}

// EffectiveLevel 等级缺省为 1。
func (e *MapEntity) EffectiveLevel() int {
	if e == nil || e.Level <= 0 {
		return 1
	}
	return e.Level
}

func (e *MapEntity) Clone() *MapEntity {
	if e == nil {
		return nil
	}
	out := *e
	if e.Garrison != nil {
		g := Garrison{Units: e.Garrison.Units.Clone(), Total: e.Garrison.Total}
		out.Garrison = &g
	}
	return &out
}

// WorldMap 坐标 key -> 实体，一个格子最多一个实体。
type WorldMap struct {
	cells map[string]*MapEntity
}

func NewWorldMap() *WorldMap {
	return &WorldMap{cells: make(map[string]*MapEntity)}
}

func (w *WorldMap) Get(key string) (*MapEntity, bool) {
	e, ok := w.cells[key]
	return e, ok
}

func (w *WorldMap) Place(c Coord, e *MapEntity) error {
	if e == nil {
		return fmt.Errorf("nil entity at %s", c.Key())
	}
	if _, taken := w.cells[c.Key()]; taken {
		return fmt.Errorf("cell %s occupied", c.Key())
	}
	w.cells[c.Key()] = e
	return nil
}

// PlaceFortress 要塞占 2×2：四格共享 FortressID，左上角为中心格。
func (w *WorldMap) PlaceFortress(topLeft Coord, fortressID string, proto MapEntity) error {
	cells := FortressCells(topLeft)
	for _, c := range cells {
		if _, taken := w.cells[c.Key()]; taken {
			return fmt.Errorf("fortress %s: cell %s occupied", fortressID, c.Key())
		}
	}
	for i, c := range cells {
		e := proto
		e.Kind = KindFortress
		e.FortressID = fortressID
		e.Center = i == 0
		w.cells[c.Key()] = &e
	}
	return nil
}

func (w *WorldMap) Remove(key string) {
	delete(w.cells, key)
}

// Entries 返回全部格子，供持久化遍历。
func (w *WorldMap) Entries() map[string]*MapEntity {
	out := make(map[string]*MapEntity, len(w.cells))
	for k, v := range w.cells {
		out[k] = v
	}
	return out
}

// FortressCells 左上角起的 2×2 格子，第一个为中心。
func FortressCells(topLeft Coord) []Coord {
	return []Coord{
		topLeft,
		{X: topLeft.X + 1, Y: topLeft.Y},
		{X: topLeft.X, Y: topLeft.Y + 1},
		{X: topLeft.X + 1, Y: topLeft.Y + 1},
	}
}
