package main

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/dotside-studios/davi-uhf-agent/bridge"
	"github.com/dotside-studios/davi-uhf-agent/config"
	"github.com/dotside-studios/davi-uhf-agent/server"
	agenttls "github.com/dotside-studios/davi-uhf-agent/tls"
	"github.com/dotside-studios/davi-uhf-agent/uhf"
)

// Agent owns the reader session, the status stream and the client server.
type Agent struct {
	Logger     *log.Logger
	Config     *config.Config
	Session    *uhf.Session
	Status     *bridge.Broadcaster
	Dispatcher *bridge.Dispatcher
	Server     *server.Server

	out io.Writer
	// clock drives the status sampler; tests swap in a uhf.FakeClock.
	clock uhf.Clock
}

// NewAgent returns an agent whose component loggers all write to out.
func NewAgent(cfg *config.Config, out io.Writer) *Agent {
	return &Agent{
		Logger: log.New(out, "[agent] ", log.LstdFlags),
		Config: cfg,
		out:    out,
		clock:  uhf.NewRealClock(),
	}
}

func (a *Agent) newLogger(component string) *log.Logger {
	return log.New(a.out, "["+component+"] ", log.LstdFlags)
}

// Start builds the component graph and starts serving. The reader itself
// is not opened until a client sends initializeReader.
func (a *Agent) Start() error {
	if a.Server != nil {
		return errors.New("agent is already running")
	}

	factory, err := uhf.NewDriverFactory(a.Config.DriverOptions(), a.newLogger("uhf"))
	if err != nil {
		a.Logger.Printf("Error configuring reader: %v", err)
		return err
	}

	a.Session = uhf.NewSession(factory, a.newLogger("session"))

	bridgeLogger := a.newLogger("bridge")
	var source bridge.StatusSource
	if a.Config.ReaderMode() == uhf.ModeHardware {
		source = bridge.NewPollingSource(a.Session, bridgeLogger)
	} else {
		source = bridge.NewToggleSource()
	}
	a.Status = bridge.NewBroadcaster(source, a.clock, a.Config.Status.Interval, bridgeLogger)
	a.Dispatcher = bridge.NewDispatcher(a.Session, a.Status, bridgeLogger)

	srvConfig := server.Config{
		Dispatcher: a.Dispatcher,
		Status:     a.Status,
		Host:       a.Config.Server.Host,
		Port:       a.Config.Server.Port,
		APISecret:  a.Config.Server.APISecret,
		Mode:       string(a.Config.ReaderMode()),
		MDNS:       a.Config.Server.MDNS,
		Logger:     a.newLogger("server"),
	}
	if a.Config.Server.TLS {
		certs := agenttls.NewManager(a.Config.ConfigDir, a.newLogger("tls"))
		tlsConfig, err := certs.ServerConfig()
		if err != nil {
			a.Logger.Printf("Error preparing TLS certificates: %v", err)
			a.shutdownReader()
			return err
		}
		srvConfig.TLS = tlsConfig
		srvConfig.CACert = certs.CACert
		if fp, err := certs.CAFingerprint(); err == nil {
			a.Logger.Printf("Local CA fingerprint (SHA-256): %s", fp)
		}
	}

	a.Server = server.New(srvConfig)
	if err := a.Server.Start(); err != nil {
		a.Logger.Printf("Error starting server: %v", err)
		a.Server = nil
		a.shutdownReader()
		return err
	}

	a.Logger.Printf("Agent started (mode: %s)", a.Config.ReaderMode())
	return nil
}

// Stop closes client connections, stops the status sampler and releases
// the reader, in that order.
func (a *Agent) Stop(ctx context.Context) {
	if a.Server == nil && a.Session == nil {
		a.Logger.Println("Agent is not running")
		return
	}

	a.Logger.Println("Stopping agent...")

	if a.Server != nil {
		if err := a.Server.Stop(ctx); err != nil {
			a.Logger.Printf("Server shutdown error: %v", err)
		}
		a.Server = nil
	}
	a.shutdownReader()

	a.Logger.Println("Agent stopped successfully")
}

func (a *Agent) shutdownReader() {
	if a.Status != nil {
		a.Status.Stop()
		a.Status = nil
	}
	if a.Session != nil {
		a.Session.Close()
		a.Session = nil
	}
	a.Dispatcher = nil
}
