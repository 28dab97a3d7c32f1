package uhf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/tarm/serial"
)

// Transport is a byte link to a reader. Read returns (0, nil) when no data
// arrived within the transport's poll interval, so callers can enforce
// their own deadlines.
type Transport interface {
	io.ReadWriteCloser
}

// DefaultPollInterval bounds how long a single Transport.Read may block.
const DefaultPollInterval = 50 * time.Millisecond

type tcpTransport struct {
	conn net.Conn
	poll time.Duration
}

// DialTCP connects to a reader's TCP bridge (commonly port 6000).
func DialTCP(ctx context.Context, address string, timeout time.Duration) (Transport, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return &tcpTransport{conn: conn, poll: DefaultPollInterval}, nil
}

func (t *tcpTransport) Read(b []byte) (int, error) {
	_ = t.conn.SetReadDeadline(time.Now().Add(t.poll))
	n, err := t.conn.Read(b)
	var netErr net.Error
	if err != nil && errors.As(err, &netErr) && netErr.Timeout() {
		return n, nil
	}
	return n, err
}

func (t *tcpTransport) Write(b []byte) (int, error) {
	_ = t.conn.SetWriteDeadline(time.Now().Add(time.Second))
	return t.conn.Write(b)
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

type serialTransport struct {
	port *serial.Port
}

// OpenSerial opens an RS-232 reader link, 8N1 at baud (57600 by default
// on most Reader18 firmware).
func OpenSerial(name string, baud int) (Transport, error) {
	if baud <= 0 {
		baud = 57600
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		Parity:      serial.ParityNone,
		ReadTimeout: DefaultPollInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, fmt.Errorf("flush serial port %s: %w", name, err)
	}
	return &serialTransport{port: port}, nil
}

func (t *serialTransport) Read(b []byte) (int, error) {
	n, err := t.port.Read(b)
	if n == 0 && errors.Is(err, io.EOF) {
		// tarm/serial reports an expired ReadTimeout as EOF.
		return 0, nil
	}
	return n, err
}

func (t *serialTransport) Write(b []byte) (int, error) {
	return t.port.Write(b)
}

func (t *serialTransport) Close() error {
	return t.port.Close()
}
