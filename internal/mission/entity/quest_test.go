package entity

import (
	"errors"
	"testing"

	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/shared/gameconfig/catalog"
)

// firstRand 总是取第一项和最小目标值。
type firstRand struct{}

func (firstRand) Intn(n int) int { return 0 }

func TestRefreshQuests_按天按周生成(t *testing.T) {
	p := NewPlayerState("alice", domain.Coord{})
	const now = 10 * questWeekMs

	daily, weekly := p.RefreshQuests(now, firstRand{})
	if !daily || !weekly {
		t.Fatalf("首次应同时生成, daily=%v weekly=%v", daily, weekly)
	}
	b := p.Quests()
	if len(b.Daily) != dailyQuestCount || len(b.Weekly) != weeklyQuestCount {
		t.Fatalf("数量错误 %+v", b)
	}
	d := b.Daily[0]
	if d.Kind != QuestGather || d.Target != 100 || d.Reward[catalog.Gold] != 200 || d.Reward[catalog.Wood] != 100 {
		t.Fatalf("每日任务错误 %+v", d)
	}
	w := b.Weekly[0]
	if w.Kind != QuestAttack || w.Target != 5 || w.Reward[catalog.Gold] != 15 || w.Reward[catalog.Wine] != 0 {
		t.Fatalf("每周任务错误 %+v", w)
	}

	if daily, weekly := p.RefreshQuests(now+questDayMs, firstRand{}); daily || weekly {
		t.Fatalf("刚好一天不应刷新")
	}
	if daily, weekly := p.RefreshQuests(now+questDayMs+1, firstRand{}); !daily || weekly {
		t.Fatalf("超过一天只刷新每日, daily=%v weekly=%v", daily, weekly)
	}
	if p.Quests().Weekly[0].ID != w.ID {
		t.Fatalf("每周任务不应被替换")
	}
}

func TestQuestProgress_封顶并只报告一次(t *testing.T) {
	p := NewPlayerState("alice", domain.Coord{})
	p.RefreshQuests(questWeekMs+1, firstRand{})

	if done := p.QuestProgress(QuestGather, 60); len(done) != 0 {
		t.Fatalf("未到目标不应完成 %v", done)
	}
	done := p.QuestProgress(QuestGather, 500)
	if len(done) != dailyQuestCount {
		t.Fatalf("三个采集任务都应完成, got=%d", len(done))
	}
	if q := p.Quests().Daily[0]; q.Current != q.Target {
		t.Fatalf("进度应封顶 %+v", q)
	}
	if done := p.QuestProgress(QuestGather, 10); len(done) != 0 {
		t.Fatalf("已完成的任务不应重复报告")
	}
	if done := p.QuestProgress(QuestTrain, 10); len(done) != 0 {
		t.Fatalf("类型不符不应推进")
	}
}

func TestClaimQuest(t *testing.T) {
	p := NewPlayerState("alice", domain.Coord{})
	p.RefreshQuests(questWeekMs+1, firstRand{})
	id := p.Quests().Daily[0].ID
	gold := p.Resource(catalog.Gold)

	if _, err := p.ClaimQuest(id); !errors.Is(err, ErrQuestNotDone) {
		t.Fatalf("未完成应拒绝, got=%v", err)
	}
	p.QuestProgress(QuestGather, 100)
	reward, err := p.ClaimQuest(id)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if reward[catalog.Gold] != 200 || p.Resource(catalog.Gold) != gold+200 {
		t.Fatalf("奖励未入账 reward=%v gold=%d", reward, p.Resource(catalog.Gold))
	}
	if _, err := p.ClaimQuest(id); !errors.Is(err, ErrQuestClaimed) {
		t.Fatalf("重复领取应拒绝, got=%v", err)
	}
	if _, err := p.ClaimQuest("nope"); !errors.Is(err, ErrQuestNotFound) {
		t.Fatalf("未知任务, got=%v", err)
	}
}

func TestQuests_随快照保存(t *testing.T) {
	p := NewPlayerState("alice", domain.Coord{})
	p.RefreshQuests(questWeekMs+1, firstRand{})
	p.QuestProgress(QuestAttack, 2)

	back := FromSnapshot(p.BuildPersistSnapshot(1, nil))
	if got := back.Quests().Weekly[0]; got.Current != 2 || got.Kind != QuestAttack {
		t.Fatalf("快照恢复错误 %+v", got)
	}
	// 恢复后的状态与原状态互不影响
	back.QuestProgress(QuestAttack, 1)
	if p.Quests().Weekly[0].Current != 2 {
		t.Fatalf("快照应深拷贝")
	}
}
