package handler

import (
	"context"
	"errors"
	nethttp "net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"Vikings/internal/mission/app/model"
	"Vikings/internal/mission/entity"
	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/mission/notify"
	"Vikings/internal/shared/transport"
	"Vikings/internal/shared/transport/http/middleware"
	"Vikings/internal/shared/transport/ws"
	"Vikings/modules/kit/errx"
	"Vikings/modules/kit/logx"
)

// Runtime 会话 actor 的请求入口。
type Runtime interface {
	SendMission(ctx context.Context, user string, mission domain.MissionType, req model.MissionReq) (model.TimerView, error)
	Train(ctx context.Context, user string, req model.TrainReq) (model.TimerView, error)
	Build(ctx context.Context, user string, req model.BuildReq) (model.TimerView, error)
	Research(ctx context.Context, user string, req model.ResearchReq) (model.TimerView, error)
	UpgradeTerritory(ctx context.Context, user string, req model.TerritoryUpgradeReq) (int, error)
	State(ctx context.Context, user string) (model.StateView, error)
	Timers(ctx context.Context, user string) ([]model.TimerView, error)
	Quests(ctx context.Context, user string) (entity.QuestBoard, error)
	ClaimQuest(ctx context.Context, user string, req model.QuestClaimReq) (model.QuestClaimView, error)
}

type HttpHandler struct {
	rt      Runtime
	hub     *notify.Hub
	limiter *middleware.UserLimiter
	log     logx.Logger
}

func NewHttpHandler(rt Runtime, hub *notify.Hub, limiter *middleware.UserLimiter, log logx.Logger) *HttpHandler {
	if log == nil {
		log = logx.Nop()
	}
	return &HttpHandler{rt: rt, hub: hub, limiter: limiter, log: log}
}

func (h *HttpHandler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api", middleware.Auth())
	if h.limiter != nil {
		api.Use(middleware.RateLimit(h.limiter))
	}
	missions := api.Group("/missions")
	missions.POST("/attack", h.mission(domain.MissionAttack))
	missions.POST("/conquest", h.mission(domain.MissionConquest))
	missions.POST("/gather", h.mission(domain.MissionGather))
	missions.POST("/fortress-attack", h.mission(domain.MissionFortressAttack))

	api.POST("/train", h.Train)
	api.POST("/build", h.Build)
	api.POST("/research", h.Research)
	api.POST("/territory/upgrade", h.UpgradeTerritory)
	api.GET("/timers", h.Timers)
	api.GET("/state", h.State)
	api.GET("/quests", h.Quests)
	api.POST("/quests/claim", h.ClaimQuest)

	if h.hub != nil {
		r.GET("/ws", middleware.Auth(), h.Notifications)
	}
}

func (h *HttpHandler) mission(kind domain.MissionType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.MissionReq
		if !h.bind(c, &req) {
			return
		}
		v, err := h.rt.SendMission(c.Request.Context(), middleware.Username(c), kind, req)
		h.reply(c, v, err)
	}
}

func (h *HttpHandler) Train(c *gin.Context) {
	var req model.TrainReq
	if !h.bind(c, &req) {
		return
	}
	v, err := h.rt.Train(c.Request.Context(), middleware.Username(c), req)
	h.reply(c, v, err)
}

func (h *HttpHandler) Build(c *gin.Context) {
	var req model.BuildReq
	if !h.bind(c, &req) {
		return
	}
	v, err := h.rt.Build(c.Request.Context(), middleware.Username(c), req)
	h.reply(c, v, err)
}

func (h *HttpHandler) Research(c *gin.Context) {
	var req model.ResearchReq
	if !h.bind(c, &req) {
		return
	}
	v, err := h.rt.Research(c.Request.Context(), middleware.Username(c), req)
	h.reply(c, v, err)
}

func (h *HttpHandler) UpgradeTerritory(c *gin.Context) {
	var req model.TerritoryUpgradeReq
	if !h.bind(c, &req) {
		return
	}
	level, err := h.rt.UpgradeTerritory(c.Request.Context(), middleware.Username(c), req)
	h.reply(c, gin.H{"level": level}, err)
}

func (h *HttpHandler) Timers(c *gin.Context) {
	v, err := h.rt.Timers(c.Request.Context(), middleware.Username(c))
	h.reply(c, v, err)
}

func (h *HttpHandler) State(c *gin.Context) {
	v, err := h.rt.State(c.Request.Context(), middleware.Username(c))
	h.reply(c, v, err)
}

func (h *HttpHandler) Quests(c *gin.Context) {
	v, err := h.rt.Quests(c.Request.Context(), middleware.Username(c))
	h.reply(c, v, err)
}

func (h *HttpHandler) ClaimQuest(c *gin.Context) {
	var req model.QuestClaimReq
	if !h.bind(c, &req) {
		return
	}
	v, err := h.rt.ClaimQuest(c.Request.Context(), middleware.Username(c), req)
	h.reply(c, v, err)
}

// Notifications 升级为 websocket，只下行通知。
func (h *HttpHandler) Notifications(c *gin.Context) {
	user := middleware.Username(c)
	srv := ws.NewServer(func(_ *nethttp.Request, conn ws.WSConn) {
		h.hub.Attach(user, conn)
	}, h.log)
	srv.ServeHTTP(c.Writer, c.Request)
}

func (h *HttpHandler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(nethttp.StatusOK, transport.Response{Code: transport.InvalidParam, Msg: "参数有误"})
		return false
	}
	return true
}

func (h *HttpHandler) reply(c *gin.Context, data any, err error) {
	if err == nil {
		c.JSON(nethttp.StatusOK, transport.Success(data))
		return
	}
	ctx := c.Request.Context()
	user := zap.String("username", middleware.Username(c))
	var e *errx.Error
	if errors.As(err, &e) && e.IsBiz() {
		logx.ReportBiz(ctx, h.log, logx.NewBizLog(c.FullPath(), e.Reason(), e.Msg()), user)
	} else {
		logx.ReportSysError(ctx, h.log, logx.NewSysLog(c.FullPath(), err), user)
	}
	c.JSON(nethttp.StatusOK, transport.Failure(err))
}
