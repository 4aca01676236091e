package report

import (
	"context"

	"go.uber.org/zap"

	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/entity/domain"
	"Vikings/modules/kit/logx"
)

// Fanout 先写主战报箱，再尽力写各个镜像；镜像失败只记日志。
type Fanout struct {
	primary port.ReportSink
	mirrors []port.ReportSink
	log     logx.Logger
}

func NewFanout(log logx.Logger, primary port.ReportSink, mirrors ...port.ReportSink) *Fanout {
	if log == nil {
		log = logx.Nop()
	}
	return &Fanout{primary: primary, mirrors: mirrors, log: log}
}

func (f *Fanout) SaveReport(ctx context.Context, r domain.BattleReport) error {
	if err := f.primary.SaveReport(ctx, r); err != nil {
		return err
	}
	for _, m := range f.mirrors {
		if err := m.SaveReport(ctx, r); err != nil {
			f.log.WithContext(ctx).Warn("mirror report failed",
				zap.String("owner", r.Owner), zap.String("id", r.ID), zap.Error(err))
		}
	}
	return nil
}
