package uhf

import (
	"encoding/hex"
	"fmt"
	"log"
	"math/bits"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dotside-studios/davi-uhf-agent/uhf/reader18"
)

// HardwareConfig tunes a HardwareDriver.
type HardwareConfig struct {
	// Address is the reader's bus address; 0xFF reaches any reader.
	Address byte
	// Antennas is the number of wired antenna ports (1-8).
	Antennas int
	// Timeout bounds one command/response exchange.
	Timeout time.Duration
	// AccessPassword authorizes EPC writes on locked tags.
	AccessPassword [4]byte
}

// Dialer opens the link to a reader.
type Dialer func() (Transport, error)

// HardwareDriver drives a Reader18-protocol reader over a Transport.
type HardwareDriver struct {
	dial   Dialer
	name   string
	cfg    HardwareConfig
	logger *log.Logger
	now    func() time.Time

	mu        sync.Mutex
	transport Transport
	buf       []byte
	info      reader18.ReaderInfo
	outputs   byte
	power     map[AntennaID]int
}

// NewHardwareDriver creates a driver that opens its link with dial when
// initialized. name identifies the link in logs.
func NewHardwareDriver(name string, dial Dialer, cfg HardwareConfig, logger *log.Logger) *HardwareDriver {
	if cfg.Antennas <= 0 || cfg.Antennas > 8 {
		cfg.Antennas = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[uhf] ", log.LstdFlags)
	}
	return &HardwareDriver{
		dial:   dial,
		name:   name,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		power:  make(map[AntennaID]int),
	}
}

// exchange sends packet and waits for the response to cmd. Frames for other
// commands, such as EPC pushes in active mode, are discarded.
func (d *HardwareDriver) exchange(op string, packet []byte, cmd byte) (reader18.Frame, error) {
	if d.transport == nil {
		return reader18.Frame{}, &DriverError{Code: ErrCodeNotInitialized, Op: op, Message: "reader not initialized"}
	}

	d.buf = d.buf[:0]
	if _, err := d.transport.Write(packet); err != nil {
		return reader18.Frame{}, NewTransportError(op, err)
	}

	deadline := d.now().Add(d.cfg.Timeout)
	chunk := make([]byte, 256)
	for {
		n, err := d.transport.Read(chunk)
		if err != nil {
			return reader18.Frame{}, NewTransportError(op, err)
		}
		if n > 0 {
			var frames []reader18.Frame
			frames, d.buf = reader18.Decode(append(d.buf, chunk[:n]...))
			for _, f := range frames {
				if f.Command == cmd {
					return f, nil
				}
			}
		}
		if d.now().After(deadline) {
			return reader18.Frame{}, NewTimeoutError(op)
		}
	}
}

// command runs a simple set-style exchange. A non-success status from the
// reader is a refusal, not a fault.
func (d *HardwareDriver) command(op string, packet []byte, cmd byte) (bool, error) {
	f, err := d.exchange(op, packet, cmd)
	if err != nil {
		return false, err
	}
	if f.Status != reader18.StatusSuccess {
		d.logger.Printf("%s refused by reader: status 0x%02X", op, f.Status)
		return false, nil
	}
	return true, nil
}

func (d *HardwareDriver) Init() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.transport != nil {
		return true, nil
	}

	t, err := d.dial()
	if err != nil {
		return false, NewTransportError("Init", err)
	}
	d.transport = t

	f, err := d.exchange("Init", reader18.GetReaderInfo(d.cfg.Address), reader18.CmdGetReaderInfo)
	if err == nil {
		d.info, err = reader18.ParseReaderInfo(f)
	}
	if err != nil {
		d.closeLocked()
		return false, err
	}

	for i := 1; i <= d.cfg.Antennas; i++ {
		d.power[AntennaID(i)] = int(d.info.PowerDBm)
	}
	d.logger.Printf("Connected to reader on %s: firmware %d.%d, type 0x%02X, power %d dBm",
		d.name, d.info.Version>>8, d.info.Version&0xFF, d.info.Type, d.info.PowerDBm)
	return true, nil
}

func (d *HardwareDriver) InventorySingleTag() (*TagInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := d.exchange("InventorySingleTag", reader18.InventorySingle(d.cfg.Address), reader18.CmdInventorySingle)
	if err != nil {
		return nil, err
	}
	res, found, err := reader18.ParseSingleInventory(f)
	if err != nil {
		return nil, &DriverError{Code: ErrCodeBadFrame, Op: "InventorySingleTag", Message: "bad inventory response", Cause: err}
	}
	if !found {
		return nil, nil
	}

	ant := AntennaID(1)
	if res.Antenna != 0 {
		ant = AntennaID(bits.TrailingZeros8(res.Antenna) + 1)
	}
	return &TagInfo{EPC: strings.ToUpper(hex.EncodeToString(res.EPC)), Antenna: ant}, nil
}

// ParseEPC decodes a hex EPC, ignoring spaces, colons and dashes.
func ParseEPC(s string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ':', '-':
			return -1
		}
		return r
	}, s)
	if cleaned == "" {
		return nil, Errorf(ErrCodeInvalidEPC, "ParseEPC", "empty EPC")
	}
	b, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, &DriverError{Code: ErrCodeInvalidEPC, Op: "ParseEPC", Message: fmt.Sprintf("invalid EPC %q", s), Cause: err}
	}
	return b, nil
}

// WriteEPC reports false without touching the reader when either EPC is
// not valid hex of a whole number of words.
func (d *HardwareDriver) WriteEPC(current, next string) (bool, error) {
	cur, err := ParseEPC(current)
	if err != nil {
		d.logger.Printf("WriteEPC rejected: %v", err)
		return false, nil
	}
	nxt, err := ParseEPC(next)
	if err != nil {
		d.logger.Printf("WriteEPC rejected: %v", err)
		return false, nil
	}
	packet, err := reader18.WriteEPC(d.cfg.Address, cur, nxt, d.cfg.AccessPassword)
	if err != nil {
		d.logger.Printf("WriteEPC rejected: %v", err)
		return false, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.command("WriteEPC", packet, reader18.CmdWriteData)
}

func (d *HardwareDriver) ListAntennas() ([]AntennaDescriptor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.transport == nil {
		return nil, &DriverError{Code: ErrCodeNotInitialized, Op: "ListAntennas", Message: "reader not initialized"}
	}
	out := make([]AntennaDescriptor, 0, d.cfg.Antennas)
	for i := 1; i <= d.cfg.Antennas; i++ {
		id := AntennaID(i)
		out = append(out, AntennaDescriptor{ID: id, Connected: true, PowerDBm: d.power[id]})
	}
	return out, nil
}

// SetAntennaPower selects ant on the multiplexer and sets the output power.
// Antennas beyond the wired port count are refused.
func (d *HardwareDriver) SetAntennaPower(ant AntennaID, dbm int) (bool, error) {
	if int(ant) < 1 || int(ant) > d.cfg.Antennas {
		d.logger.Printf("SetAntennaPower refused: %s is not wired (reader has %d antennas)", ant, d.cfg.Antennas)
		return false, nil
	}
	powerCmd, err := reader18.SetOutputPower(d.cfg.Address, dbm)
	if err != nil {
		d.logger.Printf("SetAntennaPower refused: %v", err)
		return false, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ok, err := d.command("SetAntennaPower", reader18.SetAntennaMux(d.cfg.Address, byte(1)<<(ant-1)), reader18.CmdSetAntennaMux)
	if err != nil || !ok {
		return false, err
	}
	ok, err = d.command("SetAntennaPower", powerCmd, reader18.CmdSetOutputPower)
	if ok {
		d.power[ant] = dbm
	}
	return ok, err
}

func (d *HardwareDriver) ReadInputStatus() ([]LineState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := d.exchange("ReadInputStatus", reader18.GetGPIO(d.cfg.Address), reader18.CmdGetGPIO)
	if err != nil {
		return nil, err
	}
	gpio, err := reader18.ParseGPIO(f)
	if err != nil {
		return nil, &DriverError{Code: ErrCodeBadFrame, Op: "ReadInputStatus", Message: "bad GPIO response", Cause: err}
	}

	lines := []LineState{
		{Name: "IN1", Kind: LineInput, Active: gpio&reader18.GPIOIn1 != 0},
		{Name: "IN2", Kind: LineInput, Active: gpio&reader18.GPIOIn2 != 0},
		{Name: "OUT1", Kind: LineOutput, Active: gpio&reader18.GPIOOut1 != 0},
		{Name: "OUT2", Kind: LineOutput, Active: gpio&reader18.GPIOOut2 != 0},
	}
	for i := 1; i <= d.cfg.Antennas; i++ {
		id := AntennaID(i)
		lines = append(lines, LineState{Name: id.String(), Kind: LineAntenna, Active: d.power[id] > 0})
	}
	return lines, nil
}

func (d *HardwareDriver) SetOutput(channel int, on bool) error {
	var bit byte
	switch channel {
	case 1:
		bit = reader18.GPIOOut1
	case 2:
		bit = reader18.GPIOOut2
	default:
		return Errorf(ErrCodeNotSupported, "SetOutput", "no output channel %d", channel)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	outputs := d.outputs &^ bit
	if on {
		outputs |= bit
	}
	ok, err := d.command("SetOutput", reader18.SetGPIO(d.cfg.Address, outputs), reader18.CmdSetGPIO)
	if err != nil {
		return err
	}
	if !ok {
		return Errorf(ErrCodeReaderStatus, "SetOutput", "reader refused output %d", channel)
	}
	d.outputs = outputs
	return nil
}

// StartInventory puts the reader in active mode, where it inventories on
// its own until told to stop.
func (d *HardwareDriver) StartInventory() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.command("StartInventory", reader18.SetWorkMode(d.cfg.Address, reader18.WorkModeActive), reader18.CmdSetWorkMode)
}

func (d *HardwareDriver) StopInventory() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.command("StopInventory", reader18.SetWorkMode(d.cfg.Address, reader18.WorkModeAnswer), reader18.CmdSetWorkMode)
}

func (d *HardwareDriver) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeLocked()
}

func (d *HardwareDriver) closeLocked() error {
	if d.transport == nil {
		return nil
	}
	err := d.transport.Close()
	d.transport = nil
	d.buf = nil
	if err != nil {
		return NewTransportError("Release", err)
	}
	return nil
}

func (d *HardwareDriver) String() string {
	return fmt.Sprintf("Reader18 UHF reader on %s", d.name)
}
