package domain

import "github.com/shopspring/decimal"

// DefenderData 是发起方能拿到的守方信息。
// 明确区分“确认无兵”（Known 且 Army 为空）和“拿不到数据”（Unknown）。
type DefenderData struct {
	known     bool
	Army      Army
	Resources Resources
}

// UnknownDefender 表示查询失败或没有查询。
func UnknownDefender() DefenderData {
	return DefenderData{}
}

// KnownDefender 权威方返回的快照；army 为空即确认无兵。
func KnownDefender(army Army, res Resources) DefenderData {
	if army == nil {
		army = Army{}
	}
	if res == nil {
		res = Resources{}
	}
	return DefenderData{known: true, Army: army, Resources: res}
}

func (d DefenderData) Known() bool {
	return d.known
}

// Outcome 是一次战斗的纯计算结果，不含任何状态修改。
type Outcome struct {
	Won           bool            `json:"won"`
	Loot          Resources       `json:"loot"`
	AttackPower   decimal.Decimal `json:"attackPower"`
	Cargo         int64           `json:"cargo"`
	TargetPower   int64           `json:"targetPower"`
	DefenderArmy  Army            `json:"defenderArmy"`
	DefenderLevel int             `json:"defenderLevel"`
	// DefenderUnknown 为 true 表示玩家城市的守军数据缺失，按无人防守处理。
	DefenderUnknown bool `json:"defenderUnknown,omitempty"`
}

// AttackParams 是提交给权威方的攻击请求，要塞攻击会原样保存到结算时。
type AttackParams struct {
	Attacker  string `json:"attacker" bson:"attacker"`
	TargetX   int    `json:"targetX" bson:"target_x"`
	TargetY   int    `json:"targetY" bson:"target_y"`
	Troops    Army   `json:"troops" bson:"troops"`
	Source    string `json:"source,omitempty" bson:"source,omitempty"`
	RequestID string `json:"requestId,omitempty" bson:"request_id,omitempty"`
}

const SourceFortress = "fortress"

// AuthorityResult 权威方的攻击结算结果。
type AuthorityResult struct {
	Success    bool          `json:"success" bson:"success"`
	Message    string        `json:"message,omitempty" bson:"message,omitempty"`
	Victory    bool          `json:"victory" bson:"victory"`
	Loot       Resources     `json:"loot,omitempty" bson:"loot,omitempty"`
	Casualties Army          `json:"casualties,omitempty" bson:"casualties,omitempty"`
	Report     *BattleReport `json:"report,omitempty" bson:"report,omitempty"`
	Deferred   bool          `json:"deferred,omitempty" bson:"deferred,omitempty"`
}

// BattleReport 写入战报箱的内容。
type BattleReport struct {
	ID        string     `json:"id,omitempty" bson:"id,omitempty"`
	Owner     string     `json:"owner,omitempty" bson:"owner,omitempty"`
	Kind      string     `json:"kind" bson:"kind"`
	Title     string     `json:"title" bson:"title"`
	CreatedAt int64      `json:"createdAt" bson:"created_at"`
	Data      ReportData `json:"data" bson:"data"`
}

type ReportData struct {
	Winner          bool      `json:"winner" bson:"winner"`
	Attacker        string    `json:"attacker,omitempty" bson:"attacker,omitempty"`
	Enemy           string    `json:"enemy,omitempty" bson:"enemy,omitempty"`
	EnemyLevel      int       `json:"enemyLevel,omitempty" bson:"enemy_level,omitempty"`
	Target          string    `json:"target,omitempty" bson:"target,omitempty"`
	AttackPower     string    `json:"attackPower,omitempty" bson:"attack_power,omitempty"`
	DefensePower    int64     `json:"defenderPower" bson:"defender_power"`
	DefenderArmy    Army      `json:"defenderArmy,omitempty" bson:"defender_army,omitempty"`
	// DefenderUnknown 守军数据缺失，按无人防守结算
	DefenderUnknown bool      `json:"defenderUnknown,omitempty" bson:"defender_unknown,omitempty"`
	Loot            Resources `json:"loot,omitempty" bson:"loot,omitempty"`
	UnitsSent       Army      `json:"unitsSent,omitempty" bson:"units_sent,omitempty"`
	UnitsLost       Army      `json:"unitsLost,omitempty" bson:"units_lost,omitempty"`
	UnitsReturned   Army      `json:"unitsReturned,omitempty" bson:"units_returned,omitempty"`
}

const (
	ReportAttack   = "attack"
	ReportDefense  = "defense"
	ReportConquest = "conquest"
)
