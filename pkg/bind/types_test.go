package bind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_RegisterTwiceFails(t *testing.T) {
	type m struct{}
	typ := NewType(2, 2, Ops[*m]{})

	for i := range 2 {
		require.NoError(t, typ.RegisterProperty("p", i, false))
		require.NoError(t, typ.RegisterFunction("f", i))

		err := typ.RegisterProperty("again", i, false)
		var perr *ProgrammerError
		require.ErrorAs(t, err, &perr)
		assert.ErrorIs(t, err, ErrAlreadyRegistered)

		assert.ErrorIs(t, typ.RegisterFunction("again", i), ErrAlreadyRegistered)
	}
}

func TestType_RegisterOutOfRange(t *testing.T) {
	type m struct{}
	typ := NewType(1, 0, Ops[*m]{})

	assert.ErrorIs(t, typ.RegisterProperty("p", 1, false), ErrIndexOutOfRange)
	assert.ErrorIs(t, typ.RegisterProperty("p", -1, false), ErrIndexOutOfRange)
	assert.ErrorIs(t, typ.RegisterFunction("f", 0), ErrIndexOutOfRange)
}

func TestType_Schema(t *testing.T) {
	assert.Equal(t, []string{"firstName", "lastName", "addresses", "mainAddress"}, personType.PropertyNames())
	assert.Equal(t, []string{"greet"}, personType.FunctionNames())
	assert.Equal(t, 3, personType.PropertyIndex("mainAddress"))
	assert.Equal(t, -1, personType.PropertyIndex("age"))
	assert.Equal(t, "*bind.testPerson", personType.Name())
}

func TestRegister_InsertIfAbsent(t *testing.T) {
	type once struct{}
	first := NewType(0, 0, Ops[*once]{})
	second := NewType(0, 0, Ops[*once]{})

	got, loaded := Register(first)
	assert.False(t, loaded)
	assert.Same(t, first, got)

	got, loaded = Register(second)
	assert.True(t, loaded)
	assert.Same(t, first, got)

	found, ok := TypeOf[*once]()
	require.True(t, ok)
	assert.Same(t, first, found)
}

func TestRegister_Concurrent(t *testing.T) {
	type raced struct{}
	results := make(chan *Type[*raced], 16)
	for range 16 {
		go func() {
			got, _ := Register(NewType(0, 0, Ops[*raced]{}))
			results <- got
		}()
	}
	winner := <-results
	for range 15 {
		assert.Same(t, winner, <-results)
	}
}

func TestProtoOf(t *testing.T) {
	env := newTestEnv(t)
	p := newTestPerson(env.ctx)

	got, ok := ProtoOf(p)
	require.True(t, ok)
	assert.Same(t, p.proto, got)

	_, ok = ProtoOf((*testPerson)(nil))
	assert.False(t, ok)
	_, ok = ProtoOf("not a model")
	assert.False(t, ok)
	assert.True(t, IsModel(p))
}

func TestType_CopyJSON(t *testing.T) {
	env := newTestEnv(t)
	dest := make([]*testAddress, 2)

	err := addressType.CopyJSON(env.ctx, []any{
		map[string]any{"street": "a"},
		`{"street": "b"}`,
		map[string]any{"street": "ignored"},
	}, dest)
	require.NoError(t, err)
	assert.Equal(t, "a", dest[0].street)
	assert.Equal(t, "b", dest[1].street)
}

func TestTypeOf_PackageTypesRegisteredAtInit(t *testing.T) {
	pt, ok := TypeOf[*testPerson]()
	require.True(t, ok)
	assert.Same(t, personType, pt)

	at, ok := TypeOf[*testAddress]()
	require.True(t, ok)
	assert.Same(t, addressType, at)
	assert.True(t, at.complete())
	assert.True(t, pt.complete())
}
