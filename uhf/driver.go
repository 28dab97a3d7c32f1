// Package uhf provides the UHF RFID reader abstraction used by the agent:
// the Driver capability set, a simulated driver, a Reader18 hardware driver,
// and the Session that owns the single driver handle.
package uhf

import (
	"fmt"
	"strconv"
	"strings"
)

// Driver is the capability set every reader backend provides. Simulated and
// hardware drivers are interchangeable behind it; callers never see which
// one they hold.
//
// Driver implementations are not required to be safe for concurrent use.
// Session serializes access.
type Driver interface {
	// Init opens the reader. It reports whether the reader is ready.
	Init() (bool, error)

	// InventorySingleTag runs one inventory round. It returns nil and no
	// error when no tag is in the field.
	InventorySingleTag() (*TagInfo, error)

	// WriteEPC rewrites the EPC of the tag currently identified by current.
	WriteEPC(current, next string) (bool, error)

	// ListAntennas describes the antenna ports the reader exposes.
	ListAntennas() ([]AntennaDescriptor, error)

	// SetAntennaPower sets the transmit power of one antenna in dBm.
	SetAntennaPower(ant AntennaID, dbm int) (bool, error)

	// ReadInputStatus samples the reader's digital lines.
	ReadInputStatus() ([]LineState, error)

	// SetOutput drives digital output channel (1-based) on or off.
	SetOutput(channel int, on bool) error

	StartInventory() (bool, error)
	StopInventory() (bool, error)

	// Release frees the reader. Calling it more than once is harmless.
	Release() error

	String() string
}

// TagInfo is the result of a single-tag inventory.
type TagInfo struct {
	EPC     string
	Antenna AntennaID
	RSSI    int
}

// AntennaDescriptor describes one antenna port.
type AntennaDescriptor struct {
	ID        AntennaID
	Connected bool
	PowerDBm  int
}

// LineKind distinguishes the reader's digital lines.
type LineKind int

const (
	LineInput LineKind = iota
	LineOutput
	LineAntenna
)

func (k LineKind) String() string {
	switch k {
	case LineInput:
		return "input"
	case LineOutput:
		return "output"
	case LineAntenna:
		return "antenna"
	default:
		return "unknown"
	}
}

// LineState is the sampled level of one digital line.
type LineState struct {
	Name   string
	Kind   LineKind
	Active bool
}

// Transmit power applied by setRfPower.
const (
	PowerEnabledDBm  = 30
	PowerDisabledDBm = 0
)

// PowerFor maps the enabled flag to a transmit power.
func PowerFor(enabled bool) int {
	if enabled {
		return PowerEnabledDBm
	}
	return PowerDisabledDBm
}

// MaxAntennas is the highest antenna port any supported reader exposes.
const MaxAntennas = 16

// AntennaID identifies an antenna port, ANT1 through ANT16.
type AntennaID int

func (a AntennaID) String() string {
	return "ANT" + strconv.Itoa(int(a))
}

// Valid reports whether a names a known antenna port.
func (a AntennaID) Valid() bool {
	return a >= 1 && a <= MaxAntennas
}

// ParseAntenna resolves a 1-based antenna index to its identifier.
func ParseAntenna(index int) (AntennaID, error) {
	id := AntennaID(index)
	if !id.Valid() {
		return 0, &DriverError{
			Code:    ErrCodeUnknownAntenna,
			Op:      "ParseAntenna",
			Message: fmt.Sprintf("no antenna named %q", "ANT"+strconv.Itoa(index)),
		}
	}
	return id, nil
}

// ParseAntennaName resolves an identifier such as "ANT2".
func ParseAntennaName(name string) (AntennaID, error) {
	digits, ok := strings.CutPrefix(strings.ToUpper(strings.TrimSpace(name)), "ANT")
	if !ok {
		return 0, Errorf(ErrCodeUnknownAntenna, "ParseAntennaName", "no antenna named %q", name)
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, Errorf(ErrCodeUnknownAntenna, "ParseAntennaName", "no antenna named %q", name)
	}
	return ParseAntenna(n)
}

// AllAntennas lists every known antenna identifier in order.
func AllAntennas() []AntennaID {
	ids := make([]AntennaID, 0, MaxAntennas)
	for i := 1; i <= MaxAntennas; i++ {
		ids = append(ids, AntennaID(i))
	}
	return ids
}
