package app

type Reason struct {
	Code    string
	Message string
}

func (r Reason) ReasonCode() string {
	return r.Code
}

func NewReason(c, m string) Reason {
	return Reason{Code: c, Message: m}
}

var (
	// 技术错误 reason，用于日志与排障。
	ReasonAuthorityUnavailable = NewReason("AUTHORITY_UNAVAILABLE", "战斗权威服务不可用")
	ReasonWorldUnavailable     = NewReason("WORLD_STORE_UNAVAILABLE", "地图存储不可用")
	ReasonClanUnavailable      = NewReason("CLAN_STORE_UNAVAILABLE", "部落存储不可用")
	ReasonScheduleFail         = NewReason("TIMER_SCHEDULE_FAIL", "定时器创建失败")
	ReasonRefundFail           = NewReason("REFUND_FAIL", "退回驻军失败")
)
