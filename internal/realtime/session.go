package realtime

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/aurora92101/BetLicense/internal/stats"
)

// DefaultKeepAliveInterval is how often an idle stream emits a comment
// frame so intermediary proxies don't time out the connection.
const DefaultKeepAliveInterval = 15 * time.Second

// StreamSession is one long-lived server-push connection. It subscribes to
// a room channel on construction and forwards bus events to the transport
// as SSE frames until the context is cancelled, the bus closes the
// subscription, or a write fails. Cleanup runs exactly once regardless of
// which exit path fires first.
type StreamSession struct {
	bus       *EventBus
	sub       *Subscription
	w         io.Writer
	flusher   http.Flusher
	keepAlive time.Duration
	log       *log.Logger
	stats     stats.StatsProvider
	cleanup   sync.Once
}

// NewStreamSession registers a subscriber on channel and returns the
// session. The caller must call Run or Close; otherwise the subscriber
// slot leaks.
func NewStreamSession(bus *EventBus, channel string, w io.Writer, keepAlive time.Duration, logger *log.Logger, sp stats.StatsProvider) *StreamSession {
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAliveInterval
	}

	flusher, _ := w.(http.Flusher)
	sp.Incr(stats.ActiveStreams)

	return &StreamSession{
		bus:       bus,
		sub:       bus.Subscribe(channel),
		w:         w,
		flusher:   flusher,
		keepAlive: keepAlive,
		log:       logger,
		stats:     sp,
	}
}

// Run forwards events until ctx is done or the transport fails. It always
// releases the subscription before returning.
func (s *StreamSession) Run(ctx context.Context) {
	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()
	defer s.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.sub.C:
			if !ok {
				return
			}

			data, err := EncodeEvent(ev)
			if err != nil {
				s.log.Printf("encode %s event: %v", ev.Kind(), err)
				continue
			}

			if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
				s.log.Printf("stream %q: write: %v", s.sub.channel, err)
				return
			}
			s.flush()
		case t := <-ticker.C:
			if _, err := fmt.Fprintf(s.w, ": keep-alive %d\n\n", t.UnixMilli()); err != nil {
				s.log.Printf("stream %q: keep-alive write: %v", s.sub.channel, err)
				return
			}
			s.flush()
		}
	}
}

// Close unsubscribes from the bus. Safe to call more than once and
// concurrently with Run.
func (s *StreamSession) Close() {
	s.cleanup.Do(func() {
		s.bus.Unsubscribe(s.sub)
		s.stats.Decr(stats.ActiveStreams)
	})
}

func (s *StreamSession) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}
