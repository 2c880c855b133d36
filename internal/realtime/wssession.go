package realtime

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aurora92101/BetLicense/internal/stats"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
)

// WsSession forwards room events over a WebSocket connection. It is a
// push-only transport: frames from the client are read and discarded, the
// read pump exists to detect disconnects and enforce the pong deadline.
type WsSession struct {
	conn    *websocket.Conn
	bus     *EventBus
	sub     *Subscription
	log     *log.Logger
	stats   stats.StatsProvider
	stop    chan struct{}
	cleanup sync.Once
}

func NewWsSession(bus *EventBus, channel string, conn *websocket.Conn, logger *log.Logger, sp stats.StatsProvider) *WsSession {
	sp.Incr(stats.ActiveStreams)

	return &WsSession{
		conn:  conn,
		bus:   bus,
		sub:   bus.Subscribe(channel),
		log:   logger,
		stats: sp,
		stop:  make(chan struct{}),
	}
}

func (s *WsSession) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
		s.Close()
	}()

	for {
		select {
		case ev, ok := <-s.sub.C:
			if !ok {
				return
			}

			data, err := EncodeEvent(ev)
			if err != nil {
				s.log.Printf("encode %s event: %v", ev.Kind(), err)
				continue
			}

			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
					websocket.CloseNormalClosure) {
					s.log.Printf("ws %q: write: %v", s.sub.channel, err)
				}
				return
			}
		case <-s.stop:
			return
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *WsSession) Read() {
	defer func() {
		s.conn.Close()
		s.Close()
	}()

	s.conn.SetReadLimit(1024)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(appData string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.log.Printf("ws %q: read: %v", s.sub.channel, err)
			}
			return
		}
	}
}

// Close unsubscribes and stops the write pump. Idempotent: both pumps
// call it on exit and only the first has any effect.
func (s *WsSession) Close() {
	s.cleanup.Do(func() {
		s.bus.Unsubscribe(s.sub)
		close(s.stop)
		s.stats.Decr(stats.ActiveStreams)
	})
}
