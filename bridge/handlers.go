package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/dotside-studios/davi-uhf-agent/uhf"
)

// recoverTo replaces *res with fallback if the handler panicked. Commands
// with a fixed answer use it so a driver panic cannot change that answer.
func (d *Dispatcher) recoverTo(res *Result, fallback Result, op string) {
	if r := recover(); r != nil {
		d.logger.Printf("Recovered panic in %s: %v", op, r)
		*res = fallback
	}
}

func (d *Dispatcher) handleInitialize(ctx context.Context, cmd Command) (res Result) {
	defer d.recoverTo(&res, Success(false), cmd.Name)

	ok, err := d.session.Init()
	if err != nil {
		d.logger.Printf("Reader initialization failed: %v", err)
		return SuccessWithNote(false, err.Error())
	}
	return Success(ok)
}

func (d *Dispatcher) handleReadTag(ctx context.Context, cmd Command) Result {
	var tag *uhf.TagInfo
	err := d.session.Do(func(drv uhf.Driver) error {
		var err error
		tag, err = drv.InventorySingleTag()
		return err
	})
	if err != nil {
		if uhf.IsNotInitialized(err) {
			return Success("")
		}
		return NativeException(err)
	}
	if tag == nil {
		return Success("")
	}
	d.logger.Printf("Tag %s on %s (rssi %d)", tag.EPC, tag.Antenna, tag.RSSI)
	return Success(tag.EPC)
}

func (d *Dispatcher) handleWriteTag(ctx context.Context, cmd Command) Result {
	next := cmd.String(ArgNewEPC, "")
	if next == "" {
		next = cmd.String(ArgTagID, "")
	}
	return d.writeEPC(cmd.String(ArgCurrentEPC, ""), next)
}

func (d *Dispatcher) handleWriteTagData(ctx context.Context, cmd Command) Result {
	return d.writeEPC(cmd.String(ArgCurrentEPC, ""), cmd.String(ArgNewEPC, ""))
}

func (d *Dispatcher) writeEPC(current, next string) Result {
	if current == "" || next == "" {
		return SuccessWithNote(false, "currentEpc and newEpc are required")
	}

	var ok bool
	err := d.session.Do(func(drv uhf.Driver) error {
		var err error
		ok, err = drv.WriteEPC(current, next)
		return err
	})
	if err != nil {
		if uhf.IsNotInitialized(err) {
			return Success(false)
		}
		d.logger.Printf("Write %s -> %s failed: %v", current, next, err)
		return SuccessWithNote(false, err.Error())
	}
	if ok {
		d.logger.Printf("Tag %s rewritten to %s", current, next)
	}
	return Success(ok)
}

func (d *Dispatcher) handleSetAntennaConfiguration(ctx context.Context, cmd Command) (res Result) {
	defer d.recoverTo(&res, Success(true), cmd.Name)

	requested := cmd.Int(ArgAntenna, 1)
	var antennas []uhf.AntennaDescriptor
	err := d.session.Do(func(drv uhf.Driver) error {
		var err error
		antennas, err = drv.ListAntennas()
		return err
	})
	switch {
	case uhf.IsNotInitialized(err):
	case err != nil:
		d.logger.Printf("Listing antennas failed: %v", err)
	case len(antennas) == 0:
		d.logger.Printf("No antennas reported (requested %d)", requested)
	default:
		for _, a := range antennas {
			d.logger.Printf("Antenna %s connected=%t power=%ddBm", a.ID, a.Connected, a.PowerDBm)
		}
	}
	return Success(true)
}

func (d *Dispatcher) handleSetRfPower(ctx context.Context, cmd Command) Result {
	index := cmd.Int(ArgAntenna, 1)
	enabled := cmd.Bool(ArgEnabled, true)

	ant, err := uhf.ParseAntenna(index)
	if err != nil {
		d.logger.Printf("Antenna %d not mapped; available: %s", index, antennaList())
		return SuccessWithNote(false, err.Error())
	}

	dbm := uhf.PowerFor(enabled)
	var ok bool
	err = d.session.Do(func(drv uhf.Driver) error {
		var err error
		ok, err = drv.SetAntennaPower(ant, dbm)
		return err
	})
	if err != nil {
		if uhf.IsNotInitialized(err) {
			return Success(false)
		}
		d.logger.Printf("Setting %s to %ddBm failed: %v", ant, dbm, err)
		return SuccessWithNote(false, err.Error())
	}
	if !ok {
		return SuccessWithNote(false, fmt.Sprintf("reader rejected power %ddBm on %s", dbm, ant))
	}
	return Success(true)
}

func antennaList() string {
	all := uhf.AllAntennas()
	names := make([]string, len(all))
	for i, a := range all {
		names[i] = a.String()
	}
	return strings.Join(names, ", ")
}

// handleReadGpioValues logs the line states but answers with an empty map.
// Clients only rely on the call succeeding.
func (d *Dispatcher) handleReadGpioValues(ctx context.Context, cmd Command) Result {
	var lines []uhf.LineState
	err := d.session.Do(func(drv uhf.Driver) error {
		var err error
		lines, err = drv.ReadInputStatus()
		return err
	})
	if err != nil && !uhf.IsNotInitialized(err) {
		d.logger.Printf("Reading GPIO failed: %v", err)
	}
	for _, l := range lines {
		d.logger.Printf("GPIO %s (%s) active=%t", l.Name, l.Kind, l.Active)
	}
	return Success(map[string]bool{})
}

func (d *Dispatcher) handleRelease(ctx context.Context, cmd Command) (res Result) {
	defer d.recoverTo(&res, Success(true), cmd.Name)

	d.stopStatus()
	if err := d.session.Release(); err != nil {
		d.logger.Printf("Release reported an error: %v", err)
	}
	return Success(true)
}

func (d *Dispatcher) outputHandler(channel int, on bool) HandlerFunc {
	return func(ctx context.Context, cmd Command) Result {
		err := d.session.Do(func(drv uhf.Driver) error {
			return drv.SetOutput(channel, on)
		})
		if err != nil && !uhf.IsNotInitialized(err) {
			d.logger.Printf("Setting output %d to %t failed: %v", channel, on, err)
		}
		return Success(true)
	}
}

func (d *Dispatcher) handleStartReading(ctx context.Context, cmd Command) Result {
	ok, err := d.session.StartInventory()
	if err != nil {
		if !uhf.IsNotInitialized(err) {
			d.logger.Printf("Starting inventory failed: %v", err)
		}
		return Success(false)
	}
	if ok {
		d.startStatus()
	}
	return Success(ok)
}

func (d *Dispatcher) handleStopReading(ctx context.Context, cmd Command) Result {
	d.stopStatus()

	ok, err := d.session.StopInventory()
	if err != nil {
		if !uhf.IsNotInitialized(err) {
			d.logger.Printf("Stopping inventory failed: %v", err)
		}
		return Success(false)
	}
	return Success(ok)
}
