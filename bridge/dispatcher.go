package bridge

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"sync"

	"github.com/dotside-studios/davi-uhf-agent/uhf"
)

// Dispatcher executes commands against a reader Session one at a time.
type Dispatcher struct {
	session  *uhf.Session
	status   *Broadcaster
	registry *Registry
	logger   *log.Logger

	mu sync.Mutex
}

// NewDispatcher creates a dispatcher with every reader command registered.
// status may be nil when no status stream is offered.
func NewDispatcher(session *uhf.Session, status *Broadcaster, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(os.Stderr, "[bridge] ", log.LstdFlags)
	}
	d := &Dispatcher{
		session:  session,
		status:   status,
		registry: NewRegistry(),
		logger:   logger,
	}
	d.registerHandlers()
	return d
}

// Handle adds a command beyond the built-in set.
func (d *Dispatcher) Handle(name string, handler HandlerFunc) error {
	return d.registry.Handle(name, handler)
}

// Commands lists the registered command names.
func (d *Dispatcher) Commands() []string {
	return d.registry.Names()
}

// Session returns the reader session the dispatcher drives.
func (d *Dispatcher) Session() *uhf.Session {
	return d.session
}

// Dispatch runs cmd and returns exactly one Result. Panics raised while
// handling the command are converted to a native exception.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (res Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return NativeException(err)
	}

	handler, ok := d.registry.Get(cmd.Name)
	if !ok {
		d.logger.Printf("Unknown command: %s", cmd.Name)
		return NotImplemented(cmd.Name)
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Printf("Panic in %s: %v\n%s", cmd.Name, r, debug.Stack())
			res = NativeException(r)
		}
	}()

	return handler(ctx, cmd)
}

// stopStatus cancels the status sampler. It must run before any session
// call that could wait on a poll in progress.
func (d *Dispatcher) stopStatus() {
	if d.status != nil {
		d.status.Stop()
	}
}

func (d *Dispatcher) startStatus() {
	if d.status != nil {
		d.status.Start()
	}
}

func (d *Dispatcher) registerHandlers() {
	handlers := map[string]HandlerFunc{
		CmdInitializeReader:        d.handleInitialize,
		CmdReadTag:                 d.handleReadTag,
		CmdReadSingleTag:           d.handleReadTag,
		CmdWriteTag:                d.handleWriteTag,
		CmdWriteTagData:            d.handleWriteTagData,
		CmdSetAntennaConfiguration: d.handleSetAntennaConfiguration,
		CmdSetRfPower:              d.handleSetRfPower,
		CmdReadGpioValues:          d.handleReadGpioValues,
		CmdReleaseReader:           d.handleRelease,
		CmdOutput1On:               d.outputHandler(1, true),
		CmdOutput1Off:              d.outputHandler(1, false),
		CmdOutput2On:               d.outputHandler(2, true),
		CmdOutput2Off:              d.outputHandler(2, false),
		CmdStartReading:            d.handleStartReading,
		CmdStopReading:             d.handleStopReading,
	}
	for name, h := range handlers {
		if err := d.registry.Handle(name, h); err != nil {
			panic(fmt.Sprintf("bridge: register %s: %v", name, err))
		}
	}
}
