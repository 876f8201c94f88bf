package bind

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/leapstack-labs/leapbind/pkg/spi"
)

// ChannelState is the lifecycle position of a communication channel.
type ChannelState int

// Channel states. Request channels go Created, Pending, Completed. Duplex
// channels go Created, Open, then Closed or Failed.
const (
	StateCreated ChannelState = iota
	StatePending
	StateCompleted
	StateOpen
	StateClosed
	StateFailed
)

func (s ChannelState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StatePending:
		return "pending"
	case StateCompleted:
		return "completed"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("ChannelState(%d)", int(s))
	}
}

// Terminal reports whether no further message can be dispatched.
func (s ChannelState) Terminal() bool {
	return s == StateCompleted || s == StateClosed || s == StateFailed
}

// dispatch hands a channel event to the model's OnMessage on the dispatch
// context. Events of one channel keep their production order.
func (p *Proto) dispatch(index int, k MessageKind, data any) {
	p.context.Execute(context.Background(), func(context.Context) {
		p.kind.onMessage(p.obj, index, k, data)
	})
}

// LoadJSON starts a request-style call. It never blocks and never fails
// directly: the outcome arrives as exactly one KindMessage or KindError
// message tagged with index.
//
// When urlAfter is not nil the call is callback-wrapped (JSONP) and the
// final URL is urlBefore + callback id + *urlAfter. Otherwise urlBefore is
// requested as is. An empty method means GET, or POST when data is set.
func (p *Proto) LoadJSON(index int, urlBefore string, urlAfter *string, method string, data any) {
	req := &request{proto: p, index: index, url: urlBefore, state: StatePending}

	payload, err := payloadOf(data)
	if err != nil {
		req.Fail(&TransportError{Op: "encode request", URL: urlBefore, Err: err})
		return
	}

	call := &spi.JSONCall{
		URL:      urlBefore,
		Method:   requestMethod(method, payload),
		Payload:  payload,
		Receiver: req,
	}
	if urlAfter != nil {
		call.Callback = "jsonp" + ulid.Make().String()
		call.URL = urlBefore + call.Callback + *urlAfter
		req.url = call.URL
	}

	defer func() {
		if r := recover(); r != nil {
			req.Fail(fmt.Errorf("transport panic: %v", r))
		}
	}()
	p.context.transport.LoadJSON(call)
}

func requestMethod(method string, payload []byte) string {
	switch {
	case method != "":
		return method
	case payload != nil:
		return http.MethodPost
	default:
		return http.MethodGet
	}
}

// request is the spi.Receiver of one LoadJSON call.
type request struct {
	proto *Proto
	index int
	url   string

	mu    sync.Mutex
	state ChannelState
}

// complete moves the request to Completed and reports whether this call
// did so.
func (r *request) complete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StatePending {
		return false
	}
	r.state = StateCompleted
	return true
}

func (r *request) Succeed(values []any) {
	if !r.complete() {
		r.proto.context.logger.Debug("dropping response of completed request", "url", r.url, "index", r.index)
		return
	}
	r.proto.dispatch(r.index, KindMessage, values)
}

func (r *request) Fail(err error) {
	if !r.complete() {
		r.proto.context.logger.Debug("dropping failure of completed request", "url", r.url, "index", r.index, "error", err)
		return
	}
	te := asTransportError("load", r.url, err)
	r.proto.context.logger.Warn("request failed", "url", r.url, "index", r.index, "error", te)
	r.proto.dispatch(r.index, KindError, te)
}

// Socket is a duplex channel opened with WSOpen. It doubles as the
// spi.SocketReceiver handed to the transport.
//
// Events reported before OpenWS has returned the transport handle are held
// back and dispatched, in order, once the handle is published.
type Socket struct {
	proto *Proto
	index int
	url   string

	mu        sync.Mutex
	state     ChannelState
	handle    any
	published bool
	pending   []func()
}

// Index returns the index the channel dispatches with.
func (s *Socket) Index() int {
	return s.index
}

// URL returns the URL the channel was opened with.
func (s *Socket) URL() string {
	return s.url
}

// State returns the current lifecycle state.
func (s *Socket) State() ChannelState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// publish records the transport handle and releases held-back events.
func (s *Socket) publish(handle any) {
	s.mu.Lock()
	s.handle = handle
	s.mu.Unlock()
	for {
		s.mu.Lock()
		pending := s.pending
		s.pending = nil
		if len(pending) == 0 {
			s.published = true
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		for _, fn := range pending {
			fn()
		}
	}
}

// emit dispatches fn now, or after publish when the handle is not known yet.
func (s *Socket) emit(fn func()) {
	s.mu.Lock()
	if !s.published {
		s.pending = append(s.pending, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn()
}

func (s *Socket) transportHandle() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// WSOpen opens a duplex channel. OPEN is dispatched once the transport
// reports the connection, followed by any number of MESSAGE and exactly one
// terminal CLOSE or ERROR, all tagged with index.
func (p *Proto) WSOpen(index int, url string, data any) *Socket {
	s := &Socket{proto: p, index: index, url: url}

	payload, err := payloadOf(data)
	if err != nil {
		s.publish(nil)
		s.Failed(&TransportError{Op: "encode open", URL: url, Err: err})
		return s
	}

	handle, err := p.openWS(url, payload, s)
	s.publish(handle)
	if err != nil {
		s.Failed(err)
	}
	return s
}

func (p *Proto) openWS(url string, payload []byte, s *Socket) (handle any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport panic: %v", r)
		}
	}()
	return p.context.transport.OpenWS(url, payload, s), nil
}

// WSSend sends data on an open channel. A nil data asks the transport to
// close the channel; CLOSE still arrives asynchronously.
func (p *Proto) WSSend(s *Socket, url string, data any) {
	if s == nil {
		return
	}
	if s.State().Terminal() {
		p.context.logger.Debug("send on terminated channel", "url", s.url, "index", s.index)
		return
	}

	payload, err := payloadOf(data)
	if err != nil {
		s.Failed(&TransportError{Op: "encode send", URL: url, Err: err})
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.Failed(fmt.Errorf("transport panic: %v", r))
		}
	}()
	p.context.transport.Send(s.transportHandle(), url, payload)
}

// transition applies a state change and reports whether it was legal.
func (s *Socket) transition(to ChannelState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch to {
	case StateOpen:
		if s.state != StateCreated {
			return false
		}
	case StateClosed, StateFailed:
		if s.state.Terminal() {
			return false
		}
	}
	s.state = to
	return true
}

func (s *Socket) Opened() {
	if !s.transition(StateOpen) {
		s.proto.context.logger.Debug("dropping duplicate open", "url", s.url, "index", s.index)
		return
	}
	s.emit(func() { s.proto.dispatch(s.index, KindOpen, nil) })
}

func (s *Socket) Message(values []any) {
	if st := s.State(); st != StateOpen {
		s.proto.context.logger.Debug("dropping message", "url", s.url, "index", s.index, "state", st)
		return
	}
	s.emit(func() { s.proto.dispatch(s.index, KindMessage, values) })
}

func (s *Socket) Failed(err error) {
	if !s.transition(StateFailed) {
		s.proto.context.logger.Debug("dropping failure of terminated channel", "url", s.url, "index", s.index, "error", err)
		return
	}
	te := asTransportError("websocket", s.url, err)
	s.proto.context.logger.Warn("channel failed", "url", s.url, "index", s.index, "error", te)
	s.emit(func() { s.proto.dispatch(s.index, KindError, te) })
}

func (s *Socket) Closed() {
	if !s.transition(StateClosed) {
		s.proto.context.logger.Debug("dropping close of terminated channel", "url", s.url, "index", s.index)
		return
	}
	s.emit(func() { s.proto.dispatch(s.index, KindClose, nil) })
}
