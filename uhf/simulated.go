package uhf

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// FakeTagPrefix prefixes every EPC produced by the simulated driver.
const FakeTagPrefix = "FAKE_TAG_"

// OutputChannels is the number of digital outputs a reader drives.
const OutputChannels = 2

// SimulatedDriver is a Driver that never touches hardware. It reports
// synthetic tags and accepts every configuration and write request, so
// the rest of the agent can run on a workstation without a reader.
type SimulatedDriver struct {
	mu        sync.Mutex
	antennas  int
	power     map[AntennaID]int
	outputs   [OutputChannels]bool
	open      bool
	reading   bool
	randIntN  func(n int) int
	lastWrite string
}

// NewSimulatedDriver creates a simulated reader exposing antennas ports.
func NewSimulatedDriver(antennas int) *SimulatedDriver {
	if antennas <= 0 || antennas > MaxAntennas {
		antennas = 4
	}
	power := make(map[AntennaID]int, antennas)
	for i := 1; i <= antennas; i++ {
		power[AntennaID(i)] = PowerEnabledDBm
	}
	return &SimulatedDriver{
		antennas: antennas,
		power:    power,
		randIntN: rand.IntN,
	}
}

func (d *SimulatedDriver) Init() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
	return true, nil
}

// InventorySingleTag always finds a tag named FAKE_TAG_ followed by a
// number between 1000 and 9999.
func (d *SimulatedDriver) InventorySingleTag() (*TagInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return &TagInfo{
		EPC:     fmt.Sprintf("%s%d", FakeTagPrefix, 1000+d.randIntN(9000)),
		Antenna: 1,
		RSSI:    -50,
	}, nil
}

func (d *SimulatedDriver) WriteEPC(current, next string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastWrite = next
	return true, nil
}

func (d *SimulatedDriver) ListAntennas() ([]AntennaDescriptor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]AntennaDescriptor, 0, d.antennas)
	for i := 1; i <= d.antennas; i++ {
		id := AntennaID(i)
		out = append(out, AntennaDescriptor{ID: id, Connected: true, PowerDBm: d.power[id]})
	}
	return out, nil
}

func (d *SimulatedDriver) SetAntennaPower(ant AntennaID, dbm int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.power[ant] = dbm
	return true, nil
}

// ReadInputStatus reports both inputs idle, the outputs as last set, and
// the first antenna connected.
func (d *SimulatedDriver) ReadInputStatus() ([]LineState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	lines := []LineState{
		{Name: "IN1", Kind: LineInput},
		{Name: "IN2", Kind: LineInput},
	}
	for i, on := range d.outputs {
		lines = append(lines, LineState{Name: fmt.Sprintf("OUT%d", i+1), Kind: LineOutput, Active: on})
	}
	lines = append(lines, LineState{Name: AntennaID(1).String(), Kind: LineAntenna, Active: true})
	return lines, nil
}

func (d *SimulatedDriver) SetOutput(channel int, on bool) error {
	if channel < 1 || channel > OutputChannels {
		return Errorf(ErrCodeNotSupported, "SetOutput", "no output channel %d", channel)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outputs[channel-1] = on
	return nil
}

func (d *SimulatedDriver) StartInventory() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reading = true
	return true, nil
}

func (d *SimulatedDriver) StopInventory() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reading = false
	return true, nil
}

func (d *SimulatedDriver) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	d.reading = false
	return nil
}

func (d *SimulatedDriver) String() string {
	return fmt.Sprintf("Simulated UHF reader (%d antennas)", d.antennas)
}

// Output reports the last level set on a 1-based output channel.
func (d *SimulatedDriver) Output(channel int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if channel < 1 || channel > OutputChannels {
		return false
	}
	return d.outputs[channel-1]
}

// Power reports the last transmit power set on ant.
func (d *SimulatedDriver) Power(ant AntennaID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.power[ant]
}
