package session

import (
	"sync"

	"Vikings/internal/shared/transport/ws"
)

type Manager interface {
	Bind(username string, conn ws.WSConn)
	UnbindConn(conn ws.WSConn)
	GetConn(username string) (ws.WSConn, bool)
	GetUser(conn ws.WSConn) (string, bool)
}

type SessMgr struct {
	sync.RWMutex
	user2conn map[string]ws.WSConn
	conn2user map[ws.WSConn]string
	watched   map[ws.WSConn]struct{}
}

func NewSessMgr() *SessMgr {
	return &SessMgr{
		user2conn: make(map[string]ws.WSConn),
		conn2user: make(map[ws.WSConn]string),
		watched:   make(map[ws.WSConn]struct{}),
	}
}

// Bind 同一用户只保留最新连接，旧连接收到 robLogin 后关闭。
func (s *SessMgr) Bind(username string, conn ws.WSConn) {
	if conn == nil {
		return
	}
	s.Lock()
	defer s.Unlock()

	// 每条连接只启动一次 watcher，关闭后自动解绑
	if _, ok := s.watched[conn]; !ok {
		s.watched[conn] = struct{}{}
		go s.watchConnDone(conn)
	}

	old := s.user2conn[username]
	if old != nil && old != conn {
		old.Push(ws.RobLoginMsg, nil)
		old.Close()
	}
	s.user2conn[username] = conn
	s.conn2user[conn] = username
}

func (s *SessMgr) watchConnDone(conn ws.WSConn) {
	<-conn.Done()
	s.UnbindConn(conn)
}

func (s *SessMgr) UnbindConn(conn ws.WSConn) {
	s.Lock()
	defer s.Unlock()
	user, ok := s.conn2user[conn]
	delete(s.watched, conn)
	delete(s.conn2user, conn)
	if ok && s.user2conn[user] == conn {
		delete(s.user2conn, user)
	}
}

func (s *SessMgr) GetConn(username string) (ws.WSConn, bool) {
	s.RLock()
	defer s.RUnlock()
	conn, ok := s.user2conn[username]
	return conn, ok
}

func (s *SessMgr) GetUser(conn ws.WSConn) (string, bool) {
	s.RLock()
	defer s.RUnlock()
	u, ok := s.conn2user[conn]
	return u, ok
}
