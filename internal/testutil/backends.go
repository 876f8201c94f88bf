package testutil

import (
	"fmt"
	"sync"

	"github.com/leapstack-labs/leapbind/pkg/spi"
)

// Observable is the handle RecordingTechnology returns from WrapModel.
type Observable struct {
	ID         int
	Model      any
	Properties map[string]spi.PropertyBinding
	Functions  map[string]spi.FunctionBinding
}

// Get reads a bound property.
func (o *Observable) Get(name string) any {
	return o.Properties[name].Value()
}

// RecordingTechnology is a rendering capability that records every call it
// receives, in order.
type RecordingTechnology struct {
	mu     sync.Mutex
	calls  []string
	nextID int
}

func (r *RecordingTechnology) record(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

// Calls returns the recorded calls as "op" or "op:name" strings.
func (r *RecordingTechnology) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Reset forgets recorded calls.
func (r *RecordingTechnology) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *RecordingTechnology) WrapModel(model any) any {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.mu.Unlock()

	r.record("wrap")
	return &Observable{
		ID:         id,
		Model:      model,
		Properties: make(map[string]spi.PropertyBinding),
		Functions:  make(map[string]spi.FunctionBinding),
	}
}

func (r *RecordingTechnology) Bind(b spi.PropertyBinding, _ any, data any) {
	data.(*Observable).Properties[b.Name()] = b
	r.record("bind:%s", b.Name())
}

func (r *RecordingTechnology) ValueHasMutated(_ any, propertyName string) {
	r.record("mutated:%s", propertyName)
}

func (r *RecordingTechnology) Expose(fb spi.FunctionBinding, _ any, data any) {
	data.(*Observable).Functions[fb.Name()] = fb
	r.record("expose:%s", fb.Name())
}

func (r *RecordingTechnology) ApplyBindings(any) {
	r.record("apply")
}

func (r *RecordingTechnology) WrapArray(values []any) any {
	return append([]any(nil), values...)
}

// ScriptedTransport is a transport capability that records requests and
// lets the test play the server side.
type ScriptedTransport struct {
	mu      sync.Mutex
	calls   []*spi.JSONCall
	sockets []*ScriptedSocket

	// OnLoad, when set, runs for every LoadJSON call.
	OnLoad func(call *spi.JSONCall)
	// OnOpen, when set, runs inside OpenWS before the handle is returned.
	OnOpen func(s *ScriptedSocket)
}

// ScriptedSocket is the handle ScriptedTransport returns from OpenWS.
type ScriptedSocket struct {
	URL      string
	Payload  []byte
	Receiver spi.SocketReceiver

	mu             sync.Mutex
	sent           [][]byte
	closeRequested bool
}

// Sent returns the payloads sent on the socket.
func (s *ScriptedSocket) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.sent...)
}

// CloseRequested reports whether a nil payload was sent.
func (s *ScriptedSocket) CloseRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeRequested
}

// SocketEvent is one server-side event played by Play.
type SocketEvent struct {
	Kind   string // open, message, error, close
	Values []any
	Err    error
}

// Play delivers events to the receiver in order.
func (s *ScriptedSocket) Play(events ...SocketEvent) {
	for _, e := range events {
		switch e.Kind {
		case "open":
			s.Receiver.Opened()
		case "message":
			s.Receiver.Message(e.Values)
		case "error":
			s.Receiver.Failed(e.Err)
		case "close":
			s.Receiver.Closed()
		default:
			panic("unknown socket event " + e.Kind)
		}
	}
}

func (t *ScriptedTransport) LoadJSON(call *spi.JSONCall) {
	t.mu.Lock()
	t.calls = append(t.calls, call)
	onLoad := t.OnLoad
	t.mu.Unlock()

	if onLoad != nil {
		onLoad(call)
	}
}

func (t *ScriptedTransport) OpenWS(url string, payload []byte, rcvr spi.SocketReceiver) any {
	s := &ScriptedSocket{URL: url, Payload: payload, Receiver: rcvr}
	t.mu.Lock()
	t.sockets = append(t.sockets, s)
	onOpen := t.OnOpen
	t.mu.Unlock()

	if onOpen != nil {
		onOpen(s)
	}
	return s
}

func (t *ScriptedTransport) Send(socket any, _ string, payload []byte) {
	s := socket.(*ScriptedSocket)
	s.mu.Lock()
	defer s.mu.Unlock()
	if payload == nil {
		s.closeRequested = true
		return
	}
	s.sent = append(s.sent, payload)
}

// Calls returns the recorded requests.
func (t *ScriptedTransport) Calls() []*spi.JSONCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*spi.JSONCall(nil), t.calls...)
}

// LastCall returns the most recent request or nil.
func (t *ScriptedTransport) LastCall() *spi.JSONCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.calls) == 0 {
		return nil
	}
	return t.calls[len(t.calls)-1]
}

// Sockets returns the opened sockets.
func (t *ScriptedTransport) Sockets() []*ScriptedSocket {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*ScriptedSocket(nil), t.sockets...)
}
