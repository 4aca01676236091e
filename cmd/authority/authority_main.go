package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	nethttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"Vikings/internal/authority/app"
	"Vikings/internal/authority/infra/ledger"
	authorityhttp "Vikings/internal/authority/interfaces/handler"
	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/combat"
	"Vikings/internal/mission/infra/persistence"
	"Vikings/internal/mission/infra/report"
	"Vikings/internal/shared/gameconfig/catalog"
	"Vikings/internal/shared/logs"
	"Vikings/internal/shared/serverconfig"
	transporthttp "Vikings/internal/shared/transport/http"
)

const purgeAfter = 7 * 24 * time.Hour

func main() {
	cfgPath := flag.String("config", "", "配置文件路径，默认向上查找 configs/conf.yml")
	flag.Parse()

	conf := serverconfig.Load(*cfgPath)
	if err := logs.Init("authority", conf.Log); err != nil {
		panic(err)
	}
	defer logs.Sync()
	logger := logs.L()

	cat := catalog.Default()
	if conf.Catalog.Path != "" {
		c, err := catalog.Load(conf.Catalog.Path)
		if err != nil {
			logs.Fatal("load catalog failed", zap.Error(err), zap.String("path", conf.Catalog.Path))
		}
		cat = c
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := persistence.Open(ctx, conf.Mission.Storage, conf.MongoDB, logs.Zap())
	if err != nil {
		logs.Fatal("open storage failed", zap.Error(err))
	}
	defer func() { _ = stores.Close(context.Background()) }()

	var fallback port.ReportSink
	if stores.Memory != nil {
		fallback = stores.Memory
	}
	reports, closeReports, err := report.Open(conf.Report, conf.MySQL, fallback, logger)
	if err != nil {
		logs.Fatal("open report sink failed", zap.Error(err))
	}
	defer func() { _ = closeReports() }()

	requests, err := ledger.Open(ctx, conf.Ledger, logs.Zap())
	if err != nil {
		logs.Fatal("open request ledger failed", zap.Error(err))
	}
	defer func() { _ = requests.Close() }()
	go purgeLoop(ctx, requests)

	seed := conf.Authority.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	svc := app.NewBattleService(app.Deps{
		World:    stores.World,
		Players:  stores.Players,
		Clans:    stores.Clans,
		Reports:  reports,
		Requests: requests,
		Catalog:  cat,
		Rand:     combat.NewRand(seed),
		Log:      logger,
	})

	host := conf.Authority.Host
	if host == "" {
		host = "0.0.0.0"
	}
	addr := fmt.Sprintf("%s:%d", host, conf.Authority.Port)
	server := transporthttp.NewHttpServer(addr, "authority", logger)
	authorityhttp.NewBattle(svc, logger).Register(server.Engine())

	errCh := make(chan error, 1)
	go func() {
		logs.Info("authority http server started", zap.String("addr", addr))
		if err := server.Start(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logs.Info("收到退出信号，准备优雅退出")
	case err := <-errCh:
		logs.Error("服务异常退出", zap.Error(err))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logs.Warn("http shutdown", zap.Error(err))
	}
}

// purgeLoop 每小时清理一次过期的去重记录。
func purgeLoop(ctx context.Context, s *ledger.Store) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Purge(ctx, time.Now().Add(-purgeAfter))
			if err != nil {
				logs.Warn("purge request ledger", zap.Error(err))
				continue
			}
			if n > 0 {
				logs.Info("purged request ledger", zap.Int64("rows", n))
			}
		}
	}
}
