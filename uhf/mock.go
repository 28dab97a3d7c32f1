package uhf

import (
	"fmt"
	"sync"
)

// MockDriver is a scriptable Driver for tests.
//
// Every method appends its name to CallLog, honours PanicOn, and then
// returns the configured result/error pair for that operation.
//
// Example:
//
//	mock := NewMockDriver()
//	mock.Tag = &TagInfo{EPC: "E2000017221101441890"}
//	mock.PanicOn["WriteEPC"] = "reader firmware crashed"
type MockDriver struct {
	Name string

	InitResult bool
	InitError  error

	Tag            *TagInfo
	InventoryError error

	WriteResult bool
	WriteError  error

	Antennas          []AntennaDescriptor
	ListAntennasError error

	PowerResult bool
	PowerError  error

	Lines       []LineState
	StatusError error
	// StatusFunc, if set, overrides Lines and StatusError.
	StatusFunc func() ([]LineState, error)

	OutputError error

	StartResult bool
	StartError  error
	StopResult  bool
	StopError   error

	ReleaseError error

	// PanicOn maps an operation name to a value it panics with.
	PanicOn map[string]any

	CallLog []string

	mu sync.Mutex
}

// NewMockDriver returns a MockDriver whose operations all succeed.
func NewMockDriver() *MockDriver {
	return &MockDriver{
		Name:        "Mock UHF Reader",
		InitResult:  true,
		WriteResult: true,
		PowerResult: true,
		StartResult: true,
		StopResult:  true,
		PanicOn:     make(map[string]any),
		CallLog:     make([]string, 0),
	}
}

func (m *MockDriver) record(call string) {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, call)
	v, ok := m.PanicOn[opName(call)]
	m.mu.Unlock()
	if ok {
		panic(v)
	}
}

func opName(call string) string {
	for i, c := range call {
		if c == '(' {
			return call[:i]
		}
	}
	return call
}

func (m *MockDriver) Init() (bool, error) {
	m.record("Init")
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.InitResult, m.InitError
}

func (m *MockDriver) InventorySingleTag() (*TagInfo, error) {
	m.record("InventorySingleTag")
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InventoryError != nil {
		return nil, m.InventoryError
	}
	if m.Tag == nil {
		return nil, nil
	}
	tag := *m.Tag
	return &tag, nil
}

func (m *MockDriver) WriteEPC(current, next string) (bool, error) {
	m.record(fmt.Sprintf("WriteEPC(%s,%s)", current, next))
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.WriteResult, m.WriteError
}

func (m *MockDriver) ListAntennas() ([]AntennaDescriptor, error) {
	m.record("ListAntennas")
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListAntennasError != nil {
		return nil, m.ListAntennasError
	}
	out := make([]AntennaDescriptor, len(m.Antennas))
	copy(out, m.Antennas)
	return out, nil
}

func (m *MockDriver) SetAntennaPower(ant AntennaID, dbm int) (bool, error) {
	m.record(fmt.Sprintf("SetAntennaPower(%s,%d)", ant, dbm))
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PowerResult, m.PowerError
}

func (m *MockDriver) ReadInputStatus() ([]LineState, error) {
	m.record("ReadInputStatus")
	m.mu.Lock()
	fn := m.StatusFunc
	m.mu.Unlock()
	if fn != nil {
		return fn()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StatusError != nil {
		return nil, m.StatusError
	}
	out := make([]LineState, len(m.Lines))
	copy(out, m.Lines)
	return out, nil
}

func (m *MockDriver) SetOutput(channel int, on bool) error {
	m.record(fmt.Sprintf("SetOutput(%d,%v)", channel, on))
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.OutputError
}

func (m *MockDriver) StartInventory() (bool, error) {
	m.record("StartInventory")
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.StartResult, m.StartError
}

func (m *MockDriver) StopInventory() (bool, error) {
	m.record("StopInventory")
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.StopResult, m.StopError
}

func (m *MockDriver) Release() error {
	m.record("Release")
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ReleaseError
}

func (m *MockDriver) String() string {
	return m.Name
}

// GetCallLog returns a copy of the call log.
func (m *MockDriver) GetCallLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.CallLog))
	copy(out, m.CallLog)
	return out
}

// ClearCallLog empties the call log.
func (m *MockDriver) ClearCallLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallLog = m.CallLog[:0]
}

// CallCount returns how many times op was called.
func (m *MockDriver) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.CallLog {
		if opName(c) == op {
			n++
		}
	}
	return n
}

// SetPanic makes op panic with v on its next and every later call.
func (m *MockDriver) SetPanic(op string, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PanicOn[op] = v
}
