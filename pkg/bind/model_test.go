package bind

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapbind/internal/testutil"
)

// The models below are written the way generated model code looks.

const (
	propFirstName = iota
	propLastName
	propAddresses
	propMainAddress
)

type received struct {
	Index int
	Kind  MessageKind
	Data  any
}

type testPerson struct {
	proto     *Proto
	firstName string
	lastName  string
	addresses *List[*testAddress]

	greeted  int
	changes  []int
	messages []received

	// onMessage runs after a message is recorded.
	onMessage func(kind MessageKind)
}

type testAddress struct {
	proto  *Proto
	street string
}

var (
	personType  *Type[*testPerson]
	addressType *Type[*testAddress]
)

func init() {
	addressType = registerTestAddress()
	personType = registerTestPerson()
}

func registerTestPerson() *Type[*testPerson] {
	t := NewType(4, 1, Ops[*testPerson]{
		SetValue: func(m *testPerson, index int, value any) {
			switch index {
			case propFirstName:
				m.SetFirstName(StringValue(value))
			case propLastName:
				m.SetLastName(StringValue(value))
			}
		},
		GetValue: func(m *testPerson, index int) any {
			switch index {
			case propFirstName:
				return m.firstName
			case propLastName:
				return m.lastName
			case propAddresses:
				return m.addresses
			case propMainAddress:
				return m.MainAddress()
			}
			return nil
		},
		Call: func(m *testPerson, index int, _, _ any) {
			if index == 0 {
				m.greeted++
			}
		},
		CloneTo: func(m *testPerson, ctx *Context) *testPerson {
			c := newTestPerson(ctx)
			c.firstName = m.firstName
			c.lastName = m.lastName
			CloneList(c.addresses, ctx, m.addresses.Values())
			return c
		},
		Read: func(ctx *Context, raw any) (*testPerson, error) {
			m := newTestPerson(ctx)
			values := make([]any, 3)
			if err := m.proto.Extract(raw, []string{"firstName", "lastName", "addresses"}, values); err != nil {
				return nil, err
			}
			m.firstName = StringValue(values[0])
			m.lastName = StringValue(values[1])
			if err := InitTo(m.proto, m.addresses, values[2]); err != nil {
				return nil, err
			}
			return m, nil
		},
		OnChange: func(m *testPerson, index int) {
			m.changes = append(m.changes, index)
		},
		OnMessage: func(m *testPerson, index int, kind MessageKind, data any) {
			m.messages = append(m.messages, received{Index: index, Kind: kind, Data: data})
			if m.onMessage != nil {
				m.onMessage(kind)
			}
		},
	})
	mustRegister(t.RegisterProperty("firstName", propFirstName, false))
	mustRegister(t.RegisterProperty("lastName", propLastName, false))
	mustRegister(t.RegisterProperty("addresses", propAddresses, false))
	mustRegister(t.RegisterProperty("mainAddress", propMainAddress, true))
	mustRegister(t.RegisterFunction("greet", 0))
	registered, _ := Register(t)
	return registered
}

func registerTestAddress() *Type[*testAddress] {
	t := NewType(1, 0, Ops[*testAddress]{
		SetValue: func(m *testAddress, _ int, value any) {
			m.street = StringValue(value)
			m.proto.ValueHasMutated("street")
		},
		GetValue: func(m *testAddress, _ int) any {
			return m.street
		},
		Call: func(*testAddress, int, any, any) {},
		CloneTo: func(m *testAddress, ctx *Context) *testAddress {
			c := newTestAddress(ctx)
			c.street = m.street
			return c
		},
		Read: func(ctx *Context, raw any) (*testAddress, error) {
			m := newTestAddress(ctx)
			values := make([]any, 1)
			if err := m.proto.Extract(raw, []string{"street"}, values); err != nil {
				return nil, err
			}
			m.street = StringValue(values[0])
			return m, nil
		},
	})
	mustRegister(t.RegisterProperty("street", 0, false))
	registered, _ := Register(t)
	return registered
}

func mustRegister(err error) {
	if err != nil {
		panic(err)
	}
}

func newTestPerson(ctx *Context) *testPerson {
	m := &testPerson{}
	m.proto = personType.CreateProto(m, ctx)
	m.addresses = CreateList[*testAddress](m.proto, "addresses", propAddresses, "mainAddress")
	return m
}

func newTestAddress(ctx *Context) *testAddress {
	m := &testAddress{}
	m.proto = addressType.CreateProto(m, ctx)
	return m
}

func (m *testPerson) Proto() *Proto  { return m.proto }
func (m *testAddress) Proto() *Proto { return m.proto }

func (m *testPerson) FirstName() string {
	if err := m.proto.VerifyUnlocked(); err != nil {
		panic(err)
	}
	return m.firstName
}

func (m *testPerson) SetFirstName(v string) {
	if IsSame(m.firstName, v) {
		return
	}
	m.firstName = v
	m.proto.ValueHasMutated("firstName")
}

func (m *testPerson) SetLastName(v string) {
	if IsSame(m.lastName, v) {
		return
	}
	m.lastName = v
	m.proto.ValueHasMutated("lastName")
}

func (m *testPerson) MainAddress() *testAddress {
	if m.addresses.Len() == 0 {
		return nil
	}
	return m.addresses.Get(0)
}

type testEnv struct {
	ctx       *Context
	tech      *testutil.RecordingTechnology
	transport *testutil.ScriptedTransport
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tech := &testutil.RecordingTechnology{}
	transport := &testutil.ScriptedTransport{}
	ctx, err := NewBuilder().
		WithTechnology("recording", tech).
		WithTransport("scripted", transport).
		WithLogger(testutil.NewTestLogger(t)).
		Build()
	require.NoError(t, err)
	return &testEnv{ctx: ctx, tech: tech, transport: transport}
}
