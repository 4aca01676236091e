package session

import (
	"sync"
	"testing"
	"time"

	"Vikings/internal/shared/transport/ws"
)

type stubConn struct {
	mu    sync.Mutex
	names []string
	done  chan struct{}
	once  sync.Once
}

func newStubConn() *stubConn { return &stubConn{done: make(chan struct{})} }

func (c *stubConn) Addr() string { return "stub" }

func (c *stubConn) Push(name string, data any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, name)
	return true
}

func (c *stubConn) Close()                { c.once.Do(func() { close(c.done) }) }
func (c *stubConn) Done() <-chan struct{} { return c.done }

func (c *stubConn) pushed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.names...)
}

// waitUnbound 解绑在 watcher 协程里进行，轮询等待。
func waitUnbound(t *testing.T, m *SessMgr, conn ws.WSConn) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := m.GetUser(conn); !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("连接关闭后应自动解绑")
}

func TestBind_重复登录踢掉旧连接(t *testing.T) {
	m := NewSessMgr()
	old, cur := newStubConn(), newStubConn()

	m.Bind("alice", old)
	m.Bind("alice", cur)

	if got := old.pushed(); len(got) != 1 || got[0] != ws.RobLoginMsg {
		t.Fatalf("旧连接应收到 robLogin, got=%v", got)
	}
	select {
	case <-old.Done():
	default:
		t.Fatalf("旧连接应被关闭")
	}
	waitUnbound(t, m, old)
	if c, ok := m.GetConn("alice"); !ok || c != cur {
		t.Fatalf("应只保留新连接")
	}
	if u, ok := m.GetUser(cur); !ok || u != "alice" {
		t.Fatalf("GetUser=%q ok=%v", u, ok)
	}
}

func TestBind_连接关闭自动解绑(t *testing.T) {
	m := NewSessMgr()
	conn := newStubConn()
	m.Bind("bob", conn)
	// 同一连接重复绑定不应重复推送
	m.Bind("bob", conn)
	if len(conn.pushed()) != 0 {
		t.Fatalf("同一连接不应被踢")
	}

	conn.Close()
	waitUnbound(t, m, conn)
	if _, ok := m.GetConn("bob"); ok {
		t.Fatalf("关闭后不应再能找到连接")
	}
}

func TestBind_空连接忽略(t *testing.T) {
	m := NewSessMgr()
	m.Bind("carol", nil)
	if _, ok := m.GetConn("carol"); ok {
		t.Fatalf("nil 连接不应绑定")
	}
}
