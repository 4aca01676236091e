package report

import (
	"fmt"
	"strings"

	"Vikings/internal/mission/app/port"
	"Vikings/internal/shared/infrastructure/db"
	"Vikings/internal/shared/serverconfig"
	"Vikings/modules/kit/logx"
)

// Open 按配置组装战报箱：mysql 或调用方给的内存兜底，配置了归档目录时再镜像一份。
func Open(cfg serverconfig.ReportConfig, mysql serverconfig.MySQLConfig, fallback port.ReportSink, log logx.Logger) (port.ReportSink, func() error, error) {
	var primary port.ReportSink
	switch strings.ToLower(strings.TrimSpace(cfg.Store)) {
	case "", "memory":
		if fallback == nil {
			return nil, nil, fmt.Errorf("report store memory requires a fallback sink")
		}
		primary = fallback
	case "mysql":
		gdb, err := db.Open(mysql)
		if err != nil {
			return nil, nil, fmt.Errorf("open report mysql: %w", err)
		}
		mb, err := NewMailbox(gdb)
		if err != nil {
			return nil, nil, fmt.Errorf("migrate report table: %w", err)
		}
		primary = mb
	default:
		return nil, nil, fmt.Errorf("unsupported report store %q", cfg.Store)
	}

	if cfg.ArchiveDir == "" {
		return primary, func() error { return nil }, nil
	}
	archive := NewArchive(cfg.ArchiveDir)
	return NewFanout(log, primary, archive), archive.Close, nil
}
