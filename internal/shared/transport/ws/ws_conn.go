package ws

// RespBody 服务端推送的消息体。
type RespBody struct {
	Seq  int64  `json:"seq"`
	Name string `json:"name"`
	Code int    `json:"code"`
	Msg  any    `json:"msg"`
}

// ReqBody 客户端上行消息，目前只有心跳。
type ReqBody struct {
	Seq  int64  `json:"seq"`
	Name string `json:"name"`
	Msg  any    `json:"msg"`
}

// WSConn 一条已升级的连接。
type WSConn interface {
	Addr() string
	// Push 不阻塞；发送队列满时丢弃并返回 false。
	Push(name string, data any) bool
	Close()
	// Done 连接关闭时被关闭。
	Done() <-chan struct{}
}

type Heartbeat struct {
	CTime int64 `json:"ctime" mapstructure:"ctime"`
	STime int64 `json:"stime" mapstructure:"stime"`
}

const (
	HeartbeatMsg = "heartbeat"
	RobLoginMsg  = "robLogin"
)
