package httpws

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/leapstack-labs/leapbind/internal/dispatch"
	"github.com/leapstack-labs/leapbind/pkg/spi"
)

// socket is the handle of one duplex channel. A nil entry in the outgoing
// queue requests a normal close.
type socket struct {
	t    *Transport
	url  string
	rcvr spi.SocketReceiver
	out  *dispatch.Queue[[]byte]

	ctx    context.Context
	cancel context.CancelFunc

	closing atomic.Bool

	mu       sync.Mutex
	conn     *websocket.Conn
	writeErr error
}

// OpenWS implements spi.Transport. Dialing happens in the background; the
// initial payload, when set, is the first frame written after the
// connection opens.
func (t *Transport) OpenWS(url string, payload []byte, rcvr spi.SocketReceiver) any {
	ctx, cancel := context.WithCancel(t.ctx)
	s := &socket{
		t:      t,
		url:    url,
		rcvr:   rcvr,
		out:    dispatch.NewQueue[[]byte](),
		ctx:    ctx,
		cancel: cancel,
	}
	if payload != nil {
		s.out.Push(payload)
	}

	t.track(s)
	t.wg.Add(1)
	go s.run()
	return s
}

// Send implements spi.Transport.
func (t *Transport) Send(handle any, url string, payload []byte) {
	s, ok := handle.(*socket)
	if !ok || s == nil {
		t.logger.Warn("send on unknown channel", "url", url)
		return
	}
	s.out.Push(payload)
}

func (s *socket) run() {
	t := s.t
	defer t.wg.Done()
	defer t.untrack(s)
	defer s.cancel()

	conn, resp, err := t.dialer.DialContext(s.ctx, s.url, t.header())
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if s.closing.Load() {
			s.rcvr.Closed()
			return
		}
		t.logger.Debug("websocket dial failed", "url", s.url, "error", err)
		s.rcvr.Failed(err)
		return
	}
	defer func() { _ = conn.Close() }()

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	conn.SetReadLimit(t.opts.ReadLimit)
	t.logger.Debug("websocket open", "url", s.url)
	s.rcvr.Opened()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		s.write(conn)
	}()
	s.read(conn)
}

func (s *socket) write(conn *websocket.Conn) {
	timeout := s.t.opts.WriteTimeout
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.out.Ready():
		}

		for {
			msg, ok := s.out.Pop()
			if !ok {
				break
			}
			_ = conn.SetWriteDeadline(time.Now().Add(timeout))

			if msg == nil {
				s.closing.Store(true)
				closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				if err := conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
					s.fail(conn, err)
				}
				// The peer answers with its own close frame, which ends the
				// read loop.
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				// a write deadline cannot be recovered on a websocket
				s.fail(conn, err)
				return
			}
		}
	}
}

func (s *socket) read(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.finish(err)
			return
		}
		values, err := decodeValues(data)
		if err != nil {
			values = []any{string(data)}
		}
		s.rcvr.Message(values)
	}
}

// finish reports the terminal event once the read loop ends.
func (s *socket) finish(err error) {
	s.mu.Lock()
	writeErr := s.writeErr
	s.mu.Unlock()

	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		s.t.logger.Debug("websocket closed", "url", s.url)
		s.rcvr.Closed()
	case writeErr != nil:
		s.rcvr.Failed(writeErr)
	case s.closing.Load():
		s.t.logger.Debug("websocket closed locally", "url", s.url, "error", err)
		s.rcvr.Closed()
	default:
		s.t.logger.Debug("websocket read failed", "url", s.url, "error", err)
		s.rcvr.Failed(err)
	}
}

func (s *socket) fail(conn *websocket.Conn, err error) {
	s.mu.Lock()
	if s.writeErr == nil {
		s.writeErr = err
	}
	s.mu.Unlock()
	_ = conn.Close()
}

// abort tears the channel down without a close handshake.
func (s *socket) abort() {
	s.closing.Store(true)
	s.cancel()

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}
