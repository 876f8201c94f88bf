package memory

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapbind/internal/contacts"
	"github.com/leapstack-labs/leapbind/internal/testutil"
	"github.com/leapstack-labs/leapbind/pkg/bind"
	"github.com/leapstack-labs/leapbind/pkg/spi"
)

func init() {
	bind.RegisterTransport("scripted", func(bind.Settings, *slog.Logger) (spi.Transport, error) {
		return &testutil.ScriptedTransport{}, nil
	})
}

func startSession(t *testing.T) (*Technology, *bind.Context) {
	t.Helper()
	bctx, err := bind.NewContext(bind.Selection{
		Technology: Name,
		Transport:  "scripted",
		Settings:   map[string]bind.Settings{Name: {"queue_warn": 100}},
		Logger:     testutil.NewTestLogger(t),
	})
	require.NoError(t, err)

	tech, ok := bctx.Technology().(*Technology)
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = tech.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return tech, bctx
}

func onLoop(t *testing.T, tech *Technology, fn func()) {
	t.Helper()
	require.NoError(t, tech.Loop().Call(context.Background(), func(context.Context) { fn() }))
}

func TestMemory_SnapshotAndChanges(t *testing.T) {
	tech, bctx := startSession(t)

	var changes []string
	unsubscribe := tech.Subscribe(func(c Change) { changes = append(changes, c.Property) })
	defer unsubscribe()

	var person *contacts.Person
	onLoop(t, tech, func() {
		person = contacts.NewPerson(bctx, contacts.Endpoints{})
		person.SetFirstName("Jane")
		person.Addresses().Append(contacts.NewAddress(bctx, "Main St 1", "Springfield"))
		require.NoError(t, person.Proto().ApplyBindings())
		require.NoError(t, person.Proto().ApplyBindings())
	})
	require.Len(t, tech.Roots(), 1)
	assert.Empty(t, changes, "no notifications before binding")

	root := tech.Roots()[0]
	assert.NotEmpty(t, root.ID())
	assert.Same(t, person, root.Model())

	onLoop(t, tech, func() {
		snap := root.Snapshot()
		assert.Equal(t, "Jane", snap["firstName"])
		assert.Equal(t, "Jane", snap["fullName"])
		assert.Equal(t, map[string]any{"street": "Main St 1", "town": "Springfield"}, snap["mainAddress"])
		assert.Equal(t, []any{map[string]any{"street": "Main St 1", "town": "Springfield"}}, snap["addresses"])
		assert.Empty(t, snap["inbox"])

		require.NoError(t, root.Set("lastName", "Doe"))
		assert.Error(t, root.Set("fullName", "x"))
		assert.Error(t, root.Set("nope", "x"))

		v, ok := root.Get("fullName")
		assert.True(t, ok)
		assert.Equal(t, "Jane Doe", v)
	})
	assert.Equal(t, []string{"lastName", "fullName"}, changes)
	assert.Equal(t, 2, root.Version())
}

func TestMemory_Functions(t *testing.T) {
	tech, bctx := startSession(t)

	var person *contacts.Person
	onLoop(t, tech, func() {
		person = contacts.NewPerson(bctx, contacts.Endpoints{})
		require.NoError(t, person.Proto().ApplyBindings())
	})
	root := tech.Roots()[0]
	assert.Contains(t, root.Functions(), "addAddress")
	assert.Equal(t, []string{"firstName", "lastName", "fullName", "addresses", "mainAddress", "status", "inbox"}, root.Properties())

	onLoop(t, tech, func() {
		require.NoError(t, root.Call("addAddress", map[string]any{"street": "Side St 2"}))
		assert.Equal(t, 1, person.Addresses().Len())
		assert.Error(t, root.Call("explode", nil))
	})
}

func TestMemory_UnknownSettings(t *testing.T) {
	_, err := bind.NewContext(bind.Selection{
		Technology: Name,
		Transport:  "scripted",
		Settings:   map[string]bind.Settings{Name: {"queue_warn": "many"}},
	})
	var lerr *bind.LookupError
	require.ErrorAs(t, err, &lerr)
	require.Len(t, lerr.Causes, 1)
	assert.Contains(t, lerr.Causes[0].Error(), "decode memory settings")
}
