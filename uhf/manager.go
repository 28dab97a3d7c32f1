package uhf

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Mode selects which Driver backs a Session.
type Mode string

const (
	ModeSimulated Mode = "simulated"
	ModeHardware  Mode = "hardware"
)

// ParseMode accepts "simulated"/"sim"/"mock" and "hardware"/"real".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "simulated", "sim", "mock":
		return ModeSimulated, nil
	case "hardware", "real":
		return ModeHardware, nil
	default:
		return "", fmt.Errorf("unknown reader mode %q (want simulated or hardware)", s)
	}
}

// Target is a parsed reader address.
//
//	tcp://192.168.1.190:6000
//	serial:///dev/ttyUSB0?baud=57600
//	serial://COM3
type Target struct {
	Scheme string
	Addr   string
	Baud   int
}

func (t Target) String() string {
	if t.Scheme == "serial" && t.Baud > 0 {
		return fmt.Sprintf("serial:%s@%d", t.Addr, t.Baud)
	}
	return t.Scheme + "://" + t.Addr
}

// ParseTarget parses a reader address string.
func ParseTarget(s string) (Target, error) {
	if strings.TrimSpace(s) == "" {
		return Target{}, fmt.Errorf("empty reader target")
	}
	u, err := url.Parse(s)
	if err != nil {
		return Target{}, fmt.Errorf("invalid reader target %q: %w", s, err)
	}

	switch u.Scheme {
	case "tcp":
		if _, _, err := net.SplitHostPort(u.Host); err != nil {
			return Target{}, fmt.Errorf("tcp target %q needs host:port: %w", s, err)
		}
		return Target{Scheme: "tcp", Addr: u.Host}, nil
	case "serial":
		addr := u.Host + u.Path
		if addr == "" {
			return Target{}, fmt.Errorf("serial target %q has no port name", s)
		}
		t := Target{Scheme: "serial", Addr: addr}
		if b := u.Query().Get("baud"); b != "" {
			baud, err := strconv.Atoi(b)
			if err != nil || baud <= 0 {
				return Target{}, fmt.Errorf("serial target %q has invalid baud %q", s, b)
			}
			t.Baud = baud
		}
		return t, nil
	default:
		return Target{}, fmt.Errorf("unsupported reader target scheme %q", u.Scheme)
	}
}

// Options configure the driver a factory produces.
type Options struct {
	Mode     Mode
	Target   string
	Baud     int
	Address  byte
	Antennas int
	Timeout  time.Duration
}

// NewDriverFactory returns the DriverFactory for opts. Simulated mode
// ignores Target. Hardware targets are validated here so a bad address
// fails at startup rather than at initializeReader.
func NewDriverFactory(opts Options, logger *log.Logger) (DriverFactory, error) {
	switch opts.Mode {
	case ModeSimulated, "":
		return func() (Driver, error) {
			return NewSimulatedDriver(opts.Antennas), nil
		}, nil
	case ModeHardware:
	default:
		return nil, fmt.Errorf("unknown reader mode %q", opts.Mode)
	}

	target, err := ParseTarget(opts.Target)
	if err != nil {
		return nil, err
	}
	if target.Scheme == "serial" && target.Baud == 0 {
		target.Baud = opts.Baud
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	var dial Dialer
	switch target.Scheme {
	case "tcp":
		dial = func() (Transport, error) {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return DialTCP(ctx, target.Addr, timeout)
		}
	case "serial":
		dial = func() (Transport, error) {
			return OpenSerial(target.Addr, target.Baud)
		}
	}

	cfg := HardwareConfig{
		Address:  opts.Address,
		Antennas: opts.Antennas,
		Timeout:  timeout,
	}
	return func() (Driver, error) {
		return NewHardwareDriver(target.String(), dial, cfg, logger), nil
	}, nil
}
