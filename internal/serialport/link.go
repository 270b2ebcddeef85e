// Package serialport owns the serial links to the relay and T-C boards.
//
// A Link never keeps its port open between exchanges: every exchange opens the
// port, writes the request, waits the device turnaround delay, reads the reply
// and closes the port again on every exit path.
package serialport

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"thermostab/internal/protocol"

	"go.bug.st/serial"
)

const (
	// RelayBaudRate and TemptBaudRate are the factory settings of the two boards.
	RelayBaudRate = 9600
	TemptBaudRate = 2400

	defaultReadTimeout = 200 * time.Millisecond
)

var (
	ErrUnavailable = errors.New("serial port unavailable")
	ErrShortWrite  = errors.New("short write")
)

// Port is the subset of serial.Port used by a Link.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// Opener opens a named port at the given baud rate.
type Opener func(name string, baud int) (Port, error)

// OpenSerial opens a real serial port in 8N1 mode.
func OpenSerial(name string, baud int) (Port, error) {
	p, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Ports lists the serial ports present on the host.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}

// Config describes one device link.
type Config struct {
	Name    string        `mapstructure:"port"`
	Baud    int           `mapstructure:"baud"`
	Timeout time.Duration `mapstructure:"timeout"`
	Delay   time.Duration `mapstructure:"delay"`
}

// Link is a serial port configuration plus the exchange procedure. It is
// unavailable until Configure confirms the port can be opened.
type Link struct {
	mu        sync.Mutex
	cfg       Config
	available bool
	open      Opener
	sleep     func(time.Duration)
}

var _ protocol.Exchanger = (*Link)(nil)

// NewLink returns an unavailable link. A nil opener means OpenSerial.
func NewLink(cfg Config, open Opener) *Link {
	if open == nil {
		open = OpenSerial
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultReadTimeout
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	return &Link{cfg: cfg, open: open, sleep: time.Sleep}
}

// Configure switches the link to a new port. The link stays unavailable
// unless the port opens successfully.
func (l *Link) Configure(name string, baud int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.available = false
	l.cfg.Name = name
	if baud > 0 {
		l.cfg.Baud = baud
	}
	if name == "" {
		return protocol.Errorf(protocol.KindCom, "configure", ErrUnavailable)
	}
	p, err := l.open(l.cfg.Name, l.cfg.Baud)
	if err != nil {
		return protocol.Errorf(protocol.KindCom, "configure "+name, err)
	}
	if err := p.Close(); err != nil {
		return protocol.Errorf(protocol.KindCom, "configure "+name, err)
	}
	l.available = true
	return nil
}

// Available reports whether the last Configure succeeded.
func (l *Link) Available() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.available
}

// Settings returns the current port name and baud rate.
func (l *Link) Settings() (string, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg.Name, l.cfg.Baud
}

// Exchange implements protocol.Exchanger.
func (l *Link) Exchange(req []byte, max int, complete func([]byte) bool) (resp []byte, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.available {
		return nil, protocol.Errorf(protocol.KindCom, "exchange", ErrUnavailable)
	}
	p, err := l.open(l.cfg.Name, l.cfg.Baud)
	if err != nil {
		return nil, protocol.Errorf(protocol.KindCom, "open "+l.cfg.Name, err)
	}
	defer func() {
		if cerr := p.Close(); cerr != nil && err == nil {
			err = protocol.Errorf(protocol.KindCom, "close "+l.cfg.Name, cerr)
		}
	}()

	if err := p.SetReadTimeout(l.cfg.Timeout); err != nil {
		return nil, protocol.Errorf(protocol.KindCom, "set timeout", err)
	}
	n, err := p.Write(req)
	if err != nil {
		return nil, protocol.Errorf(protocol.KindCom, "write", err)
	}
	if n != len(req) {
		return nil, protocol.Errorf(protocol.KindCom, "write", ErrShortWrite)
	}
	if l.cfg.Delay > 0 {
		l.sleep(l.cfg.Delay)
	}

	buf := make([]byte, 0, max)
	chunk := make([]byte, max)
	for len(buf) < max {
		n, err := p.Read(chunk[:max-len(buf)])
		if err != nil {
			return buf, protocol.Errorf(protocol.KindCom, "read", err)
		}
		if n == 0 {
			// read timeout
			break
		}
		buf = append(buf, chunk[:n]...)
		if complete != nil && complete(buf) {
			break
		}
	}
	return buf, nil
}
