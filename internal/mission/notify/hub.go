package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"Vikings/internal/mission/app/port"
	"Vikings/internal/shared/session"
	"Vikings/internal/shared/transport/ws"
	"Vikings/modules/kit/logx"
)

const (
	PushName       = "notification"
	defaultBacklog = 20
)

// Hub 把通知推给在线连接；离线时暂存最近几条，下次连上时补发。
type Hub struct {
	sessions session.Manager
	log      logx.Logger
	now      func() time.Time
	keep     int

	mu      sync.Mutex
	backlog map[string][]port.Notification
}

func NewHub(sessions session.Manager, log logx.Logger) *Hub {
	if sessions == nil {
		sessions = session.NewSessMgr()
	}
	if log == nil {
		log = logx.Nop()
	}
	return &Hub{
		sessions: sessions,
		log:      log,
		now:      time.Now,
		keep:     defaultBacklog,
		backlog:  make(map[string][]port.Notification),
	}
}

func (h *Hub) Notify(username string, n port.Notification) {
	if n.At == 0 {
		n.At = h.now().UnixMilli()
	}
	if conn, ok := h.sessions.GetConn(username); ok && conn.Push(PushName, n) {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	q := append(h.backlog[username], n)
	if len(q) > h.keep {
		q = q[len(q)-h.keep:]
	}
	h.backlog[username] = q
	h.log.Debug("notification queued offline",
		zap.String("username", username), zap.String("level", string(n.Level)), zap.Int("backlog", len(q)))
}

// Attach 绑定连接并补发暂存的通知。
func (h *Hub) Attach(username string, conn ws.WSConn) {
	h.sessions.Bind(username, conn)
	h.mu.Lock()
	q := h.backlog[username]
	delete(h.backlog, username)
	h.mu.Unlock()

	for i, n := range q {
		if !conn.Push(PushName, n) {
			h.mu.Lock()
			h.backlog[username] = append(q[i:], h.backlog[username]...)
			h.mu.Unlock()
			return
		}
	}
}

// Pending 离线暂存条数。
func (h *Hub) Pending(username string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.backlog[username])
}

var _ port.Notifier = (*Hub)(nil)
