package entity

import (
	"errors"
	"fmt"
	"slices"

	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/shared/gameconfig/catalog"
)

// QuestKind 推进任务进度的事件。
type QuestKind string

const (
	QuestGather QuestKind = "gather"
	QuestTrain  QuestKind = "train"
	QuestBuild  QuestKind = "build"
	QuestAttack QuestKind = "attack"
)

const (
	questDayMs  = 24 * 60 * 60 * 1000
	questWeekMs = 7 * questDayMs

	dailyQuestCount  = 3
	weeklyQuestCount = 2
)

var (
	ErrQuestNotFound = errors.New("quest not found")
	ErrQuestNotDone  = errors.New("quest not completed")
	ErrQuestClaimed  = errors.New("quest reward already claimed")
)

type Quest struct {
	ID      string           `json:"id" bson:"id"`
	Title   string           `json:"title" bson:"title"`
	Kind    QuestKind        `json:"type" bson:"kind"`
	Target  int64            `json:"target" bson:"target"`
	Current int64            `json:"current" bson:"current"`
	Reward  domain.Resources `json:"reward" bson:"reward"`
	Claimed bool             `json:"claimed" bson:"claimed"`
}

func (q Quest) Done() bool {
	return q.Current >= q.Target
}

// QuestBoard 每日三个、每周两个任务，到期整批替换。
type QuestBoard struct {
	Daily       []Quest `json:"daily" bson:"daily"`
	Weekly      []Quest `json:"weekly" bson:"weekly"`
	DailyReset  int64   `json:"dailyReset" bson:"daily_reset"`
	WeeklyReset int64   `json:"weeklyReset" bson:"weekly_reset"`
}

func (b QuestBoard) Clone() QuestBoard {
	out := b
	out.Daily = cloneQuests(b.Daily)
	out.Weekly = cloneQuests(b.Weekly)
	return out
}

func cloneQuests(qs []Quest) []Quest {
	if qs == nil {
		return nil
	}
	out := slices.Clone(qs)
	for i := range out {
		out[i].Reward = out[i].Reward.Clone()
	}
	return out
}

// QuestRand 只用到 Intn。
type QuestRand interface {
	Intn(n int) int
}

type questTemplate struct {
	kind     QuestKind
	label    string
	min, max int64
	reward   func(target int64) domain.Resources
}

func dailyReward(target int64) domain.Resources {
	return domain.Resources{catalog.Gold: target * 2, catalog.Wood: target}
}

func weeklyReward(target int64) domain.Resources {
	return domain.Resources{catalog.Gold: target * 3, catalog.Wine: target / 10}
}

var dailyPool = []questTemplate{
	{kind: QuestGather, label: "采集资源", min: 100, max: 500, reward: dailyReward},
	{kind: QuestTrain, label: "训练士兵", min: 5, max: 20, reward: dailyReward},
	{kind: QuestBuild, label: "升级建筑", min: 1, max: 3, reward: dailyReward},
}

var weeklyPool = []questTemplate{
	{kind: QuestAttack, label: "击败敌人", min: 5, max: 10, reward: weeklyReward},
	{kind: QuestGather, label: "大量采集", min: 5000, max: 20000, reward: weeklyReward},
}

func generateQuests(prefix string, pool []questTemplate, n int, now int64, rnd QuestRand) []Quest {
	out := make([]Quest, 0, n)
	for i := 0; i < n; i++ {
		t := pool[rnd.Intn(len(pool))]
		target := t.min + int64(rnd.Intn(int(t.max-t.min+1)))
		out = append(out, Quest{
			ID:     fmt.Sprintf("%s_%d_%d", prefix, now, i),
			Title:  fmt.Sprintf("%s (%d)", t.label, target),
			Kind:   t.kind,
			Target: target,
			Reward: t.reward(target),
		})
	}
	return out
}

func (p *PlayerState) Quests() QuestBoard {
	return p.quests.Clone()
}

// RefreshQuests 从未生成或距上次生成超过一天/一周时重新生成。
func (p *PlayerState) RefreshQuests(now int64, rnd QuestRand) (daily, weekly bool) {
	if p.quests.DailyReset == 0 || now-p.quests.DailyReset > questDayMs {
		p.quests.Daily = generateQuests("d", dailyPool, dailyQuestCount, now, rnd)
		p.quests.DailyReset = now
		daily = true
	}
	if p.quests.WeeklyReset == 0 || now-p.quests.WeeklyReset > questWeekMs {
		p.quests.Weekly = generateQuests("w", weeklyPool, weeklyQuestCount, now, rnd)
		p.quests.WeeklyReset = now
		weekly = true
	}
	if daily || weekly {
		p.dirty = true
	}
	return daily, weekly
}

// QuestProgress 累加同类未完成任务的进度（封顶到目标值），返回本次刚完成的任务。
func (p *PlayerState) QuestProgress(kind QuestKind, amount int64) []Quest {
	if amount <= 0 {
		return nil
	}
	var done []Quest
	for _, list := range [][]Quest{p.quests.Daily, p.quests.Weekly} {
		for i := range list {
			q := &list[i]
			if q.Kind != kind || q.Claimed || q.Done() {
				continue
			}
			q.Current = min(q.Current+amount, q.Target)
			p.dirty = true
			if q.Done() {
				done = append(done, *q)
			}
		}
	}
	return done
}

// ClaimQuest 领取已完成任务的奖励并入账。
func (p *PlayerState) ClaimQuest(id string) (domain.Resources, error) {
	q := p.findQuest(id)
	if q == nil {
		return nil, ErrQuestNotFound
	}
	if q.Claimed {
		return nil, ErrQuestClaimed
	}
	if !q.Done() {
		return nil, ErrQuestNotDone
	}
	q.Claimed = true
	reward := q.Reward.Clone()
	p.AddResources(reward)
	p.dirty = true
	return reward, nil
}

func (p *PlayerState) findQuest(id string) *Quest {
	for _, list := range [][]Quest{p.quests.Daily, p.quests.Weekly} {
		for i := range list {
			if list[i].ID == id {
				return &list[i]
			}
		}
	}
	return nil
}
