package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"Vikings/modules/kit/logx"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 4096
	outBuffer  = 256
)

type WsServer struct {
	conn    *websocket.Conn
	outChan chan *RespBody
	seq     int64
	seqMu   sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
	log       logx.Logger
}

func NewWsServer(wsConn *websocket.Conn, l logx.Logger) *WsServer {
	if l == nil {
		l = logx.Nop()
	}
	return &WsServer{
		conn:    wsConn,
		outChan: make(chan *RespBody, outBuffer),
		done:    make(chan struct{}),
		log:     l,
	}
}

func (s *WsServer) Addr() string {
	return s.conn.RemoteAddr().String()
}

func (s *WsServer) Push(name string, data any) bool {
	s.seqMu.Lock()
	s.seq++
	body := &RespBody{Seq: s.seq, Name: name, Msg: data}
	s.seqMu.Unlock()

	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.outChan <- body:
		return true
	default:
		s.log.Warn("ws push dropped, queue full", zap.String("addr", s.Addr()), zap.String("name", name))
		return false
	}
}

func (s *WsServer) Run() {
	go s.readMsgLoop()
	go s.writeMsgLoop()
}

func (s *WsServer) readMsgLoop() {
	defer func() {
		if err := recover(); err != nil {
			s.log.Error("ws readMsgLoop panic", zap.String("err", fmt.Sprintf("%v", err)))
		}
		s.Close()
	}()
	s.conn.SetReadLimit(maxMessage)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("ws read msg", zap.Error(err))
			}
			return
		}
		var req ReqBody
		if err := json.Unmarshal(data, &req); err != nil {
			s.log.Debug("ws unmarshal msg", zap.Error(err))
			continue
		}
		if req.Name != HeartbeatMsg {
			continue
		}
		h := &Heartbeat{}
		_ = mapstructure.Decode(req.Msg, h)
		h.STime = time.Now().UnixMilli()
		select {
		case s.outChan <- &RespBody{Seq: req.Seq, Name: HeartbeatMsg, Msg: h}:
		default:
		}
	}
}

func (s *WsServer) writeMsgLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()
	for {
		select {
		case msg := <-s.outChan:
			if err := s.write(msg); err != nil {
				s.log.Warn("ws write msg", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *WsServer) write(msg *RespBody) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("ws marshal msg", zap.Error(err), zap.String("name", msg.Name))
		return nil
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, raw)
}

func (s *WsServer) Close() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
		close(s.done)
	})
}

func (s *WsServer) Done() <-chan struct{} {
	return s.done
}
