package report

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/mission/errs"
)

const (
	OpSaveReport = "repo.report.SaveReport"
	OpListReport = "repo.report.List"
)

// reportRow 战报箱表，data 列存 JSON。
type reportRow struct {
	ID        string `gorm:"primaryKey;size:36"`
	Owner     string `gorm:"size:64;index:idx_owner_created,priority:1"`
	Kind      string `gorm:"size:16"`
	Title     string `gorm:"size:128"`
	CreatedAt int64  `gorm:"autoCreateTime:false;index:idx_owner_created,priority:2"`
	Data      string `gorm:"type:text"`
}

func (reportRow) TableName() string { return "battle_reports" }

func toRow(r domain.BattleReport) (reportRow, error) {
	data, err := json.Marshal(r.Data)
	if err != nil {
		return reportRow{}, err
	}
	return reportRow{
		ID:        r.ID,
		Owner:     r.Owner,
		Kind:      r.Kind,
		Title:     r.Title,
		CreatedAt: r.CreatedAt,
		Data:      string(data),
	}, nil
}

func fromRow(m reportRow) (domain.BattleReport, error) {
	r := domain.BattleReport{ID: m.ID, Owner: m.Owner, Kind: m.Kind, Title: m.Title, CreatedAt: m.CreatedAt}
	if m.Data != "" {
		if err := json.Unmarshal([]byte(m.Data), &r.Data); err != nil {
			return domain.BattleReport{}, err
		}
	}
	return r, nil
}

type Mailbox struct {
	db *gorm.DB
}

// NewMailbox 建表并返回战报箱。
func NewMailbox(db *gorm.DB) (*Mailbox, error) {
	if err := db.AutoMigrate(&reportRow{}); err != nil {
		return nil, err
	}
	return &Mailbox{db: db}, nil
}

func (m *Mailbox) SaveReport(ctx context.Context, r domain.BattleReport) error {
	row, err := toRow(r)
	if err != nil {
		return errs.Wrap(OpSaveReport, errs.KindUnknown, err, map[string]any{"owner": r.Owner})
	}
	if err := m.db.WithContext(ctx).Create(&row).Error; err != nil {
		return errs.Wrap(OpSaveReport, errs.KindInfra, err, map[string]any{"owner": r.Owner, "id": r.ID})
	}
	return nil
}

// List 最新的在前。
func (m *Mailbox) List(ctx context.Context, owner string, limit int) ([]domain.BattleReport, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []reportRow
	err := m.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errs.Wrap(OpListReport, errs.KindInfra, err, map[string]any{"owner": owner})
	}
	out := make([]domain.BattleReport, 0, len(rows))
	for _, row := range rows {
		r, err := fromRow(row)
		if err != nil {
			return nil, errs.Wrap(OpListReport, errs.KindUnknown, err, map[string]any{"id": row.ID})
		}
		out = append(out, r)
	}
	return out, nil
}
