package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	nethttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	authorityapp "Vikings/internal/authority/app"
	authledger "Vikings/internal/authority/infra/ledger"
	missionactor "Vikings/internal/mission/actor"
	"Vikings/internal/mission/actors"
	"Vikings/internal/mission/app"
	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/combat"
	"Vikings/internal/mission/handler"
	authclient "Vikings/internal/mission/infra/authority"
	"Vikings/internal/mission/infra/persistence"
	"Vikings/internal/mission/infra/report"
	missionhttp "Vikings/internal/mission/interfaces/handler"
	"Vikings/internal/mission/notify"
	"Vikings/internal/shared/gameconfig/catalog"
	"Vikings/internal/shared/logs"
	"Vikings/internal/shared/security"
	"Vikings/internal/shared/serverconfig"
	"Vikings/internal/shared/session"
	transportgrpc "Vikings/internal/shared/transport/grpc"
	transporthttp "Vikings/internal/shared/transport/http"
	"Vikings/internal/shared/transport/http/middleware"
	"Vikings/internal/shared/utils"
)

func main() {
	cfgPath := flag.String("config", "", "配置文件路径，默认向上查找 configs/conf.yml")
	issue := flag.String("issue-token", "", "为指定用户签发令牌后退出")
	flag.Parse()

	conf := serverconfig.Load(*cfgPath)
	if err := logs.Init("mission", conf.Log); err != nil {
		panic(err)
	}
	defer logs.Sync()

	if *issue != "" {
		token, err := security.Award(*issue, 0)
		if err != nil {
			logs.Fatal("issue token failed", zap.Error(err))
		}
		fmt.Println(token)
		return
	}
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

	ids, err := utils.NewSnowflake(1)
	if err != nil {
		logs.Fatal("snowflake init failed", zap.Error(err))
	}
	seed := conf.Authority.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	hub := notify.NewHub(session.NewSessMgr(), logger)

	// base_url 为空时权威方与任务服务同进程部署
	var (
		authority port.Authority
		defenders port.DefenderFetcher
		ledger    *missionactor.Ledger
	)
	if conf.Authority.BaseURL != "" {
		client, err := authclient.NewClient(conf.Authority, logger)
		if err != nil {
			logs.Fatal("authority client init failed", zap.Error(err))
		}
		defer client.Close()
		authority, defenders = client, client
	} else {
		requests, err := authledger.Open(ctx, conf.Ledger, logs.Zap())
		if err != nil {
			logs.Fatal("open request ledger failed", zap.Error(err))
		}
		defer func() { _ = requests.Close() }()
		ledger = missionactor.NewLedger(nil, stores.State)
		local := authorityapp.NewLocal(authorityapp.NewBattleService(authorityapp.Deps{
			World:    stores.World,
			Players:  ledger,
			Clans:    stores.Clans,
			Reports:  reports,
			Requests: requests,
			Catalog:  cat,
			Rand:     combat.NewRand(seed + 1),
			Log:      logger,
		}))
		authority, defenders = local, local
	}

	tick := time.Duration(conf.Scheduler.TickMs) * time.Millisecond
	flush := time.Duration(conf.Scheduler.FlushMs) * time.Millisecond
	rt := missionactor.NewRuntime(actors.Deps{
		Repo: stores.State,
		Handler: handler.Deps{
			Catalog:   cat,
			Resolver:  combat.NewResolver(cat, combat.NewRand(seed)),
			World:     stores.World,
			Clans:     stores.Clans,
			Authority: authority,
			Defenders: defenders,
			Notifier:  hub,
			Reports:   reports,
			Log:       logger,
		},
		Service:    app.NewMissionService(ids, logger),
		IDs:        ids,
		Log:        logger,
		Tick:       tick,
		FlushEvery: flush,
	}, time.Duration(conf.Mission.AskTimeoutMs)*time.Millisecond)
	defer rt.Shutdown()
	if ledger != nil {
		ledger.Attach(rt)
	}

	host := conf.Mission.Host
	if host == "" {
		host = "0.0.0.0"
	}
	httpAddr := fmt.Sprintf("%s:%d", host, conf.Mission.Port)
	httpServer := transporthttp.NewHttpServer(httpAddr, "mission", logger)
	limiter := middleware.NewUserLimiter(conf.Mission.RatePerSec, conf.Mission.RateBurst)
	missionhttp.NewHttpHandler(rt, hub, limiter, logger).RegisterRoutes(httpServer.Engine())

	errCh := make(chan error, 2)
	go func() {
		logs.Info("mission http server started", zap.String("addr", httpAddr))
		if err := httpServer.Start(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- fmt.Errorf("mission http serve failed: %w", err)
		}
	}()

	grpcServer, health := transportgrpc.NewServer(logger, "mission")
	if conf.Mission.GrpcPort > 0 {
		grpcAddr := fmt.Sprintf("%s:%d", host, conf.Mission.GrpcPort)
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			logs.Fatal("listen mission grpc failed", zap.Error(err))
		}
		go func() {
			logs.Info("mission grpc health server started", zap.String("addr", grpcAddr))
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("mission grpc serve failed: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logs.Info("收到退出信号，准备优雅退出")
	case err := <-errCh:
		logs.Error("服务异常退出", zap.Error(err))
	}

	health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logs.Warn("http shutdown", zap.Error(err))
	}
	stopCh := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopCh)
	}()
	select {
	case <-stopCh:
	case <-shutdownCtx.Done():
		grpcServer.Stop()
	}
}
