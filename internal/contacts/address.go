// Package contacts holds the sample model kinds served by leapbind. The
// code follows the shape of generated model classes: a schema registered
// once, index based dispatch and lock guarded accessors.
package contacts

import (
	"github.com/leapstack-labs/leapbind/pkg/bind"
)

// Address property indices.
const (
	AddressStreet = iota
	AddressTown
	addressProperties
)

// Address is a postal address.
type Address struct {
	proto  *bind.Proto
	street string
	town   string
}

var addressType *bind.Type[*Address]

func init() {
	addressType = registerAddress()
}

func registerAddress() *bind.Type[*Address] {
	t := bind.NewType(addressProperties, 0, bind.Ops[*Address]{
		SetValue: func(m *Address, index int, value any) {
			switch index {
			case AddressStreet:
				m.SetStreet(bind.StringValue(value))
			case AddressTown:
				m.SetTown(bind.StringValue(value))
			}
		},
		GetValue: func(m *Address, index int) any {
			switch index {
			case AddressStreet:
				return m.Street()
			case AddressTown:
				return m.Town()
			}
			return nil
		},
		Call: func(*Address, int, any, any) {},
		CloneTo: func(m *Address, ctx *bind.Context) *Address {
			return NewAddress(ctx, m.street, m.town)
		},
		Read: readAddress,
		ProtoFor: func(obj any) *bind.Proto {
			if m, ok := obj.(*Address); ok {
				return m.proto
			}
			return nil
		},
	})
	must(t.RegisterProperty("street", AddressStreet, false))
	must(t.RegisterProperty("town", AddressTown, false))
	registered, _ := bind.Register(t)
	return registered
}

// NewAddress creates an address bound to ctx.
func NewAddress(ctx *bind.Context, street, town string) *Address {
	m := &Address{street: street, town: town}
	m.proto = addressType.CreateProto(m, ctx)
	return m
}

func readAddress(ctx *bind.Context, raw any) (*Address, error) {
	m := NewAddress(ctx, "", "")
	values := make([]any, addressProperties)
	if err := m.proto.Extract(raw, []string{"street", "town"}, values); err != nil {
		return nil, err
	}
	m.street = bind.StringValue(values[AddressStreet])
	m.town = bind.StringValue(values[AddressTown])
	return m, nil
}

// Street returns the street line.
func (m *Address) Street() string {
	must(m.proto.VerifyUnlocked())
	return m.street
}

// SetStreet changes the street line.
func (m *Address) SetStreet(v string) {
	must(m.proto.VerifyUnlocked())
	if bind.IsSame(m.street, v) {
		return
	}
	m.street = v
	m.proto.ValueHasMutated("street")
}

// Town returns the town.
func (m *Address) Town() string {
	must(m.proto.VerifyUnlocked())
	return m.town
}

// SetTown changes the town.
func (m *Address) SetTown(v string) {
	must(m.proto.VerifyUnlocked())
	if bind.IsSame(m.town, v) {
		return
	}
	m.town = v
	m.proto.ValueHasMutated("town")
}

// Proto returns the binding state.
func (m *Address) Proto() *bind.Proto {
	return m.proto
}

// String formats the address on one line.
func (m *Address) String() string {
	if m.town == "" {
		return m.street
	}
	return m.street + ", " + m.town
}

// Hash folds the address fields.
func (m *Address) Hash() uint64 {
	return bind.HashPlus(m.street, bind.HashPlus(m.town, 0))
}

// AddressType returns the registered schema.
func AddressType() *bind.Type[*Address] {
	return addressType
}

// must panics on programmer errors. Generated accessors have no error
// return, so a broken usage contract is fatal at the call site.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
