package contacts

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapbind/pkg/bind"
)

// Person property indices.
const (
	PersonFirstName = iota
	PersonLastName
	PersonFullName
	PersonAddresses
	PersonMainAddress
	PersonStatus
	PersonInbox
	personProperties
)

// Person function indices.
const (
	FuncAddAddress = iota
	FuncRemoveAddress
	FuncRefresh
	FuncConnect
	FuncSend
	FuncDisconnect
	personFunctions
)

// Channel indices used with OnMessage.
const (
	ChannelRefresh = iota
	ChannelLive
)

// Person is a contact with a list of addresses. It can refresh itself from
// a JSON endpoint and follow a live feed over a websocket.
type Person struct {
	proto     *bind.Proto
	firstName string
	lastName  string
	addresses *bind.List[*Address]
	inbox     *bind.List[string]
	status    string

	fullName     string
	fullNameHash uint64

	endpoints Endpoints
	live      *bind.Socket
}

// Endpoints are the remote locations a Person talks to.
type Endpoints struct {
	// Source is the URL refreshed by the refresh function.
	Source string
	// SourceAfter, when set, turns the refresh into a JSONP call whose URL
	// is Source + callback + SourceAfter.
	SourceAfter *string
	// Live is the websocket URL followed by the connect function.
	Live string
}

var personType *bind.Type[*Person]

func init() {
	personType = registerPerson()
}

func registerPerson() *bind.Type[*Person] {
	t := bind.NewType(personProperties, personFunctions, bind.Ops[*Person]{
		SetValue: func(m *Person, index int, value any) {
			switch index {
			case PersonFirstName:
				m.SetFirstName(bind.StringValue(value))
			case PersonLastName:
				m.SetLastName(bind.StringValue(value))
			}
		},
		GetValue: func(m *Person, index int) any {
			switch index {
			case PersonFirstName:
				return m.FirstName()
			case PersonLastName:
				return m.LastName()
			case PersonFullName:
				return m.FullName()
			case PersonAddresses:
				return m.addresses
			case PersonMainAddress:
				return m.MainAddress()
			case PersonStatus:
				return m.Status()
			case PersonInbox:
				return m.inbox
			}
			return nil
		},
		Call: func(m *Person, index int, data, _ any) {
			switch index {
			case FuncAddAddress:
				m.addAddress(data)
			case FuncRemoveAddress:
				m.removeAddress(data)
			case FuncRefresh:
				m.Refresh()
			case FuncConnect:
				m.Connect()
			case FuncSend:
				m.Send(data)
			case FuncDisconnect:
				m.Disconnect()
			}
		},
		CloneTo:   clonePerson,
		Read:      readPerson,
		OnChange:  personOnChange,
		OnMessage: personOnMessage,
		ProtoFor: func(obj any) *bind.Proto {
			if m, ok := obj.(*Person); ok {
				return m.proto
			}
			return nil
		},
	})
	must(t.RegisterProperty("firstName", PersonFirstName, false))
	must(t.RegisterProperty("lastName", PersonLastName, false))
	must(t.RegisterProperty("fullName", PersonFullName, true))
	must(t.RegisterProperty("addresses", PersonAddresses, false))
	must(t.RegisterProperty("mainAddress", PersonMainAddress, true))
	must(t.RegisterProperty("status", PersonStatus, true))
	must(t.RegisterProperty("inbox", PersonInbox, true))
	must(t.RegisterFunction("addAddress", FuncAddAddress))
	must(t.RegisterFunction("removeAddress", FuncRemoveAddress))
	must(t.RegisterFunction("refresh", FuncRefresh))
	must(t.RegisterFunction("connect", FuncConnect))
	must(t.RegisterFunction("send", FuncSend))
	must(t.RegisterFunction("disconnect", FuncDisconnect))
	registered, _ := bind.Register(t)
	return registered
}

// NewPerson creates an empty person bound to ctx.
func NewPerson(ctx *bind.Context, endpoints Endpoints) *Person {
	m := &Person{endpoints: endpoints}
	m.proto = personType.CreateProto(m, ctx)
	m.addresses = bind.CreateList[*Address](m.proto, "addresses", PersonAddresses, "mainAddress")
	m.inbox = bind.CreateList[string](m.proto, "inbox", PersonInbox)
	return m
}

// ReadPerson creates a person from decoded JSON.
func ReadPerson(ctx *bind.Context, raw any) (*Person, error) {
	return readPerson(ctx, raw)
}

func readPerson(ctx *bind.Context, raw any) (*Person, error) {
	m := NewPerson(ctx, Endpoints{})
	if err := m.load(raw, true); err != nil {
		return nil, err
	}
	return m, nil
}

func clonePerson(m *Person, ctx *bind.Context) *Person {
	c := NewPerson(ctx, m.endpoints)
	c.firstName = m.firstName
	c.lastName = m.lastName
	c.status = m.status
	bind.CloneList(c.addresses, ctx, m.addresses.Values())
	bind.CloneList(c.inbox, ctx, m.inbox.Values())
	return c
}

// Clone copies the person into ctx.
func (m *Person) Clone(ctx *bind.Context) *Person {
	return clonePerson(m, ctx)
}

// load copies the fields found in raw. Before binding the address list is
// initialized in place, afterwards it is replaced.
func (m *Person) load(raw any, initial bool) error {
	values := make([]any, 3)
	if err := m.proto.Extract(raw, []string{"firstName", "lastName", "addresses"}, values); err != nil {
		return err
	}

	var addresses []*Address
	if raw, ok := values[2].([]any); ok && !initial {
		addresses = make([]*Address, len(raw))
		if err := addressType.CopyJSON(m.proto.Context(), raw, addresses); err != nil {
			return err
		}
	}

	if err := m.proto.AcquireLock(); err != nil {
		return err
	}
	if values[0] != nil {
		m.firstName = bind.StringValue(values[0])
	}
	if values[1] != nil {
		m.lastName = bind.StringValue(values[1])
	}
	m.proto.ReleaseLock()

	if initial {
		return bind.InitTo(m.proto, m.addresses, values[2])
	}

	m.proto.ValueHasMutated("firstName")
	m.proto.ValueHasMutated("lastName")
	personOnChange(m, PersonFirstName)
	if addresses != nil {
		m.addresses.Replace(addresses)
	}
	return nil
}

// FirstName returns the first name.
func (m *Person) FirstName() string {
	must(m.proto.VerifyUnlocked())
	return m.firstName
}

// SetFirstName changes the first name.
func (m *Person) SetFirstName(v string) {
	must(m.proto.VerifyUnlocked())
	if bind.IsSame(m.firstName, v) {
		return
	}
	m.firstName = v
	m.proto.ValueHasMutated("firstName")
	personOnChange(m, PersonFirstName)
}

// LastName returns the last name.
func (m *Person) LastName() string {
	must(m.proto.VerifyUnlocked())
	return m.lastName
}

// SetLastName changes the last name.
func (m *Person) SetLastName(v string) {
	must(m.proto.VerifyUnlocked())
	if bind.IsSame(m.lastName, v) {
		return
	}
	m.lastName = v
	m.proto.ValueHasMutated("lastName")
	personOnChange(m, PersonLastName)
}

// FullName is derived from the first and last name.
func (m *Person) FullName() string {
	must(m.proto.VerifyUnlocked())
	h := bind.HashPlus(m.firstName, bind.HashPlus(m.lastName, 1))
	if h != m.fullNameHash {
		m.fullName = strings.TrimSpace(m.firstName + " " + m.lastName)
		m.fullNameHash = h
	}
	return m.fullName
}

// Addresses returns the address list.
func (m *Person) Addresses() *bind.List[*Address] {
	return m.addresses
}

// MainAddress is the first address or nil.
func (m *Person) MainAddress() *Address {
	must(m.proto.VerifyUnlocked())
	if m.addresses.Len() == 0 {
		return nil
	}
	return m.addresses.Get(0)
}

// Status describes the last channel event.
func (m *Person) Status() string {
	must(m.proto.VerifyUnlocked())
	return m.status
}

func (m *Person) setStatus(v string) {
	if m.status == v {
		return
	}
	m.status = v
	m.proto.ValueHasMutated("status")
}

// Inbox holds the messages received from the live feed.
func (m *Person) Inbox() *bind.List[string] {
	return m.inbox
}

// Proto returns the binding state.
func (m *Person) Proto() *bind.Proto {
	return m.proto
}

// Endpoints returns the remote locations.
func (m *Person) Endpoints() Endpoints {
	return m.endpoints
}

// Hash folds the person fields.
func (m *Person) Hash() uint64 {
	h := bind.HashPlus(m.firstName, bind.HashPlus(m.lastName, 0))
	for _, a := range m.addresses.All() {
		h = bind.HashPlus(a, h)
	}
	return h
}

func (m *Person) addAddress(data any) {
	a, err := readAddress(m.proto.Context(), data)
	if err != nil {
		m.setStatus(fmt.Sprintf("invalid address: %v", err))
		return
	}
	m.addresses.Append(a)
}

func (m *Person) removeAddress(data any) {
	if a, ok := data.(*Address); ok {
		m.addresses.RemoveFunc(func(x *Address) bool { return x == a })
		return
	}
	i := int(bind.NumberValue(data))
	if i >= 0 && i < m.addresses.Len() {
		m.addresses.RemoveAt(i)
	}
}

// Refresh reloads the person from its source endpoint.
func (m *Person) Refresh() {
	m.RefreshWith("", nil)
}

// RefreshWith reloads the person with an explicit request method and body.
func (m *Person) RefreshWith(method string, data any) {
	if m.endpoints.Source == "" {
		m.setStatus("no source configured")
		return
	}
	m.setStatus("loading")
	m.proto.LoadJSON(ChannelRefresh, m.endpoints.Source, m.endpoints.SourceAfter, method, data)
}

// Update copies the fields found in raw into the person.
func (m *Person) Update(raw any) error {
	return m.load(raw, false)
}

// Connect follows the live feed.
func (m *Person) Connect() {
	if m.endpoints.Live == "" {
		m.setStatus("no live feed configured")
		return
	}
	if m.live != nil && !m.live.State().Terminal() {
		return
	}
	m.setStatus("connecting")
	m.live = m.proto.WSOpen(ChannelLive, m.endpoints.Live, m)
}

// Send writes data to the live feed.
func (m *Person) Send(data any) {
	if m.live == nil {
		return
	}
	if data == nil {
		data = m
	}
	m.proto.WSSend(m.live, m.endpoints.Live, data)
}

// Disconnect asks the live feed to close.
func (m *Person) Disconnect() {
	if m.live == nil {
		return
	}
	m.proto.WSSend(m.live, m.endpoints.Live, nil)
}

func personOnChange(m *Person, index int) {
	switch index {
	case PersonFirstName, PersonLastName:
		m.proto.ValueHasMutated("fullName")
	}
}

func personOnMessage(m *Person, index int, kind bind.MessageKind, data any) {
	switch index {
	case ChannelRefresh:
		switch kind {
		case bind.KindMessage:
			values, _ := data.([]any)
			if len(values) == 0 {
				m.setStatus("empty response")
				return
			}
			if err := m.load(values[0], false); err != nil {
				m.setStatus(fmt.Sprintf("invalid response: %v", err))
				return
			}
			m.setStatus("loaded")
		case bind.KindError:
			m.setStatus(fmt.Sprintf("refresh failed: %v", data))
		}

	case ChannelLive:
		switch kind {
		case bind.KindOpen:
			m.setStatus("connected")
		case bind.KindMessage:
			values, _ := data.([]any)
			for _, v := range values {
				m.inbox.Append(inboxEntry(v))
			}
		case bind.KindError:
			m.setStatus(fmt.Sprintf("disconnected: %v", data))
		case bind.KindClose:
			m.setStatus("disconnected")
		}
	}
}

func inboxEntry(v any) string {
	switch v.(type) {
	case map[string]any, []any:
		b, err := bind.ToJSON(v)
		if err == nil {
			return string(b)
		}
	}
	return bind.StringValue(v)
}

// PersonType returns the registered schema.
func PersonType() *bind.Type[*Person] {
	return personType
}
