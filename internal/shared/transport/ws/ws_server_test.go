package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, onConn OnConnect) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(NewServer(onConn, nil))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial err=%v", err)
	}
	return c, func() {
		_ = c.Close()
		srv.Close()
	}
}

func TestWsServer_心跳回填服务端时间(t *testing.T) {
	c, stop := dial(t, nil)
	defer stop()

	if err := c.WriteJSON(ReqBody{Seq: 7, Name: HeartbeatMsg, Msg: map[string]any{"ctime": 123}}); err != nil {
		t.Fatalf("write err=%v", err)
	}
	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	var resp struct {
		Seq  int64     `json:"seq"`
		Name string    `json:"name"`
		Msg  Heartbeat `json:"msg"`
	}
	if err := c.ReadJSON(&resp); err != nil {
		t.Fatalf("read err=%v", err)
	}
	if resp.Seq != 7 || resp.Name != HeartbeatMsg || resp.Msg.CTime != 123 || resp.Msg.STime == 0 {
		t.Fatalf("心跳回复错误 %+v", resp)
	}
}

func TestWsServer_推送与关闭(t *testing.T) {
	got := make(chan WSConn, 1)
	c, stop := dial(t, func(r *http.Request, conn WSConn) {
		conn.Push("notification", map[string]string{"message": "raid returned"})
		got <- conn
	})
	defer stop()

	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	var body RespBody
	if err := c.ReadJSON(&body); err != nil {
		t.Fatalf("read err=%v", err)
	}
	if body.Name != "notification" || body.Seq != 1 {
		t.Fatalf("推送错误 %+v", body)
	}

	var conn WSConn
	select {
	case conn = <-got:
	case <-time.After(3 * time.Second):
		t.Fatalf("onConn 未被调用")
	}
	_ = c.Close()
	select {
	case <-conn.Done():
	case <-time.After(3 * time.Second):
		t.Fatalf("客户端断开后服务端应关闭")
	}
	if conn.Push("notification", nil) {
		t.Fatalf("关闭后推送应返回 false")
	}
}
