package contacts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapbind/internal/testutil"
	"github.com/leapstack-labs/leapbind/pkg/bind"
)

type env struct {
	ctx       *bind.Context
	tech      *testutil.RecordingTechnology
	transport *testutil.ScriptedTransport
}

func newEnv(t *testing.T) *env {
	t.Helper()
	tech := &testutil.RecordingTechnology{}
	transport := &testutil.ScriptedTransport{}
	ctx, err := bind.NewBuilder().
		WithTechnology("recording", tech).
		WithTransport("scripted", transport).
		WithLogger(testutil.NewTestLogger(t)).
		Build()
	require.NoError(t, err)
	return &env{ctx: ctx, tech: tech, transport: transport}
}

func TestTypesRegistered(t *testing.T) {
	pt, ok := bind.TypeOf[*Person]()
	require.True(t, ok)
	assert.Same(t, personType, pt)
	assert.ElementsMatch(t, []string{"firstName", "lastName", "fullName", "addresses", "mainAddress", "status", "inbox"}, pt.PropertyNames())
	assert.ElementsMatch(t, []string{"addAddress", "removeAddress", "refresh", "connect", "send", "disconnect"}, pt.FunctionNames())

	at, ok := bind.TypeOf[*Address]()
	require.True(t, ok)
	assert.Same(t, addressType, at)
	assert.ElementsMatch(t, []string{"street", "town"}, at.PropertyNames())
}

func TestPerson_FullName(t *testing.T) {
	e := newEnv(t)
	p := NewPerson(e.ctx, Endpoints{})

	p.SetFirstName("Jane")
	assert.Equal(t, "Jane", p.FullName())
	p.SetLastName("Doe")
	assert.Equal(t, "Jane Doe", p.FullName())
	assert.Empty(t, e.tech.Calls())
}

func TestPerson_SetterNotifiesComputed(t *testing.T) {
	e := newEnv(t)
	p := NewPerson(e.ctx, Endpoints{})
	require.NoError(t, p.Proto().ApplyBindings())
	e.tech.Reset()

	p.SetFirstName("Jane")
	p.SetFirstName("Jane")

	assert.Equal(t, []string{"mutated:firstName", "mutated:fullName"}, e.tech.Calls())
}

func TestPerson_LockedReadsPanic(t *testing.T) {
	e := newEnv(t)
	p := NewPerson(e.ctx, Endpoints{})

	require.NoError(t, p.Proto().AcquireLock())
	assert.Panics(t, func() { _ = p.FirstName() })
	assert.Panics(t, func() { p.SetLastName("x") })
	p.Proto().ReleaseLock()
	assert.NotPanics(t, func() { _ = p.FirstName() })
}

func TestReadPerson(t *testing.T) {
	e := newEnv(t)
	p, err := ReadPerson(e.ctx, `{
		"firstName": "Jane",
		"lastName": "Doe",
		"addresses": [{"street": "Main St 1", "town": "Springfield"}]
	}`)
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", p.FullName())
	require.NotNil(t, p.MainAddress())
	assert.Equal(t, "Main St 1, Springfield", p.MainAddress().String())
}

func TestPerson_Bindings(t *testing.T) {
	e := newEnv(t)
	p := NewPerson(e.ctx, Endpoints{})
	p.Addresses().Append(NewAddress(e.ctx, "Main St 1", "Springfield"))
	require.NoError(t, p.Proto().ApplyBindings())

	obs := e.tech.Calls()
	assert.Contains(t, obs, "bind:fullName")
	assert.Contains(t, obs, "expose:refresh")
	assert.Contains(t, obs, "apply")
}

func TestPerson_AddRemoveAddress(t *testing.T) {
	e := newEnv(t)
	p := NewPerson(e.ctx, Endpoints{})
	require.NoError(t, p.Proto().ApplyBindings())
	e.tech.Reset()

	PersonType().Call(p, FuncAddAddress, map[string]any{"street": "Main St 1"}, nil)
	require.Equal(t, 1, p.Addresses().Len())
	assert.Equal(t, []string{"mutated:addresses", "mutated:mainAddress"}, e.tech.Calls())

	PersonType().Call(p, FuncAddAddress, map[string]any{"street": "Side St 2"}, nil)
	PersonType().Call(p, FuncRemoveAddress, p.Addresses().Get(0), nil)
	require.Equal(t, 1, p.Addresses().Len())
	assert.Equal(t, "Side St 2", p.MainAddress().Street())

	PersonType().Call(p, FuncRemoveAddress, 0.0, nil)
	assert.Nil(t, p.MainAddress())
}

func TestPerson_Refresh(t *testing.T) {
	e := newEnv(t)
	p := NewPerson(e.ctx, Endpoints{Source: "http://example.test/jane"})
	require.NoError(t, p.Proto().ApplyBindings())

	p.Refresh()
	assert.Equal(t, "loading", p.Status())

	call := e.transport.LastCall()
	require.NotNil(t, call)
	assert.Equal(t, "http://example.test/jane", call.URL)

	call.Receiver.Succeed([]any{map[string]any{
		"firstName": "Jane",
		"lastName":  "Doe",
		"addresses": []any{map[string]any{"street": "Main St 1"}},
	}})

	assert.Equal(t, "loaded", p.Status())
	assert.Equal(t, "Jane Doe", p.FullName())
	assert.Equal(t, "Main St 1", p.MainAddress().Street())
}

func TestPerson_RefreshJSONP(t *testing.T) {
	e := newEnv(t)
	after := ""
	p := NewPerson(e.ctx, Endpoints{Source: "http://example.test/jane?cb=", SourceAfter: &after})

	p.Refresh()

	call := e.transport.LastCall()
	require.True(t, call.IsJSONP())
	assert.Equal(t, "http://example.test/jane?cb="+call.Callback, call.URL)
}

func TestPerson_RefreshFailure(t *testing.T) {
	e := newEnv(t)
	p := NewPerson(e.ctx, Endpoints{Source: "http://example.test/jane"})

	p.Refresh()
	e.transport.LastCall().Receiver.Fail(errors.New("timeout"))

	assert.Contains(t, p.Status(), "refresh failed")
	assert.Contains(t, p.Status(), "timeout")
}

func TestPerson_RefreshWith(t *testing.T) {
	e := newEnv(t)
	p := NewPerson(e.ctx, Endpoints{Source: "http://example.test/search"})

	p.RefreshWith("PUT", map[string]any{"q": "jane"})

	call := e.transport.LastCall()
	require.NotNil(t, call)
	assert.Equal(t, "PUT", call.Method)
	assert.JSONEq(t, `{"q":"jane"}`, string(call.Payload))
}

func TestPerson_Update(t *testing.T) {
	e := newEnv(t)
	p := NewPerson(e.ctx, Endpoints{})

	require.NoError(t, p.Update(map[string]any{
		"firstName": "Ann",
		"addresses": []any{map[string]any{"street": "Elm St 2", "town": "Shelbyville"}},
	}))
	assert.Equal(t, "Ann", p.FirstName())
	assert.Equal(t, 1, p.Addresses().Len())
	assert.Empty(t, e.tech.Calls(), "nothing is rendered before binding")

	require.NoError(t, p.Proto().ApplyBindings())
	e.tech.Reset()

	require.NoError(t, p.Update(`{"lastName":"Lee","addresses":[]}`))
	assert.Equal(t, "Ann Lee", p.FullName())
	assert.Equal(t, 0, p.Addresses().Len())
	assert.Contains(t, e.tech.Calls(), "mutated:addresses")
	assert.Contains(t, e.tech.Calls(), "mutated:fullName")
}

func TestPerson_RefreshWithoutSource(t *testing.T) {
	e := newEnv(t)
	p := NewPerson(e.ctx, Endpoints{})

	p.Refresh()
	assert.Equal(t, "no source configured", p.Status())
	assert.Nil(t, e.transport.LastCall())
}

func TestPerson_LiveFeed(t *testing.T) {
	e := newEnv(t)
	p := NewPerson(e.ctx, Endpoints{Live: "ws://example.test/feed"})
	p.SetFirstName("Jane")

	p.Connect()
	assert.Equal(t, "connecting", p.Status())
	sockets := e.transport.Sockets()
	require.Len(t, sockets, 1)
	assert.JSONEq(t, `{
		"firstName": "Jane", "lastName": "", "fullName": "Jane",
		"addresses": [], "mainAddress": null, "status": "connecting", "inbox": []
	}`, string(sockets[0].Payload))

	sock := sockets[0]
	sock.Play(testutil.SocketEvent{Kind: "open"})
	assert.Equal(t, "connected", p.Status())

	// A second connect while open is ignored.
	p.Connect()
	assert.Len(t, e.transport.Sockets(), 1)

	sock.Play(testutil.SocketEvent{Kind: "message", Values: []any{"hello", map[string]any{"n": 1.0}}})
	assert.Equal(t, []string{"hello", `{"n":1}`}, p.Inbox().Values())

	p.Send("ping")
	assert.Equal(t, [][]byte{[]byte("ping")}, sock.Sent())

	p.Disconnect()
	assert.True(t, sock.CloseRequested())
	assert.Equal(t, "connected", p.Status())

	sock.Play(testutil.SocketEvent{Kind: "close"})
	assert.Equal(t, "disconnected", p.Status())
}

func TestPerson_Clone(t *testing.T) {
	e1 := newEnv(t)
	e2 := newEnv(t)

	p := NewPerson(e1.ctx, Endpoints{Source: "http://example.test"})
	p.SetFirstName("Jane")
	p.Addresses().Append(NewAddress(e1.ctx, "Main St 1", ""))

	c := p.Clone(e2.ctx)
	assert.Equal(t, "Jane", c.FirstName())
	assert.Same(t, e2.ctx, c.Proto().Context())
	assert.Same(t, e2.ctx, c.MainAddress().Proto().Context())
	assert.Equal(t, p.Hash(), c.Hash())
}
