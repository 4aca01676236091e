package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"Vikings/internal/authority/app"
	"Vikings/internal/mission/entity/domain"
	"Vikings/modules/kit/errx"
	"Vikings/modules/kit/logx"
	"Vikings/modules/kit/tracex"
)

// failureBody 与成功结果同形，调用方只需看 success。
type failureBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type snapshotBody struct {
	Username  string           `json:"username"`
	Army      domain.Army      `json:"army"`
	Resources domain.Resources `json:"resources"`
}

type Battle struct {
	svc *app.BattleService
	log logx.Logger
}

func NewBattle(svc *app.BattleService, log logx.Logger) *Battle {
	if log == nil {
		log = logx.Nop()
	}
	return &Battle{svc: svc, log: log}
}

func (b *Battle) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.POST("/attack", b.Attack)
	api.GET("/user/:username/snapshot", b.Snapshot)
}

func (b *Battle) Attack(c *gin.Context) {
	ctx := tracex.WithSpanID(c.Request.Context(), "authority")
	var req app.AttackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		b.fail(c, app.ErrMissingFields.WithCause(err))
		return
	}
	res, err := b.svc.Attack(ctx, req)
	if err != nil {
		b.fail(c, err, zap.String("attacker", req.Attacker), zap.String("request_id", req.RequestID))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (b *Battle) Snapshot(c *gin.Context) {
	ctx := tracex.WithSpanID(c.Request.Context(), "authority")
	username := c.Param("username")
	army, res, err := b.svc.Snapshot(ctx, username)
	if err != nil {
		b.fail(c, err, zap.String("username", username))
		return
	}
	c.JSON(http.StatusOK, snapshotBody{Username: username, Army: army, Resources: res})
}

func (b *Battle) fail(c *gin.Context, err error, fields ...zap.Field) {
	ctx := c.Request.Context()
	var e *errx.Error
	msg := "Battle Error"
	if errors.As(err, &e) && e.IsBiz() {
		msg = e.Msg()
		logx.ReportBiz(ctx, b.log, logx.NewBizLog("authority reject", string(e.Code()), msg), fields...)
	} else {
		logx.ReportSysError(ctx, b.log, logx.NewSysLog("authority tech error", err), fields...)
	}
	c.JSON(httpStatus(err), failureBody{Success: false, Message: msg})
}
