package simulator

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"thermostab/internal/protocol/relay"
	"thermostab/internal/protocol/tempt"
	"thermostab/internal/serialport"
)

// Port names served by Opener.
const (
	RelayPort = "sim-relay"
	TemptPort = "sim-tempt"
)

var (
	ErrNoSuchPort = errors.New("no such simulated port")
	ErrClosed     = errors.New("port closed")
)

// Ports lists the simulated port names.
func Ports() []string { return []string{RelayPort, TemptPort} }

// Opener returns a serialport.Opener that serves the simulated boards.
func (b *Bath) Opener() serialport.Opener {
	return func(name string, _ int) (serialport.Port, error) {
		switch name {
		case RelayPort:
			return &port{bath: b, name: name, answer: b.answerRelay}, nil
		case TemptPort:
			return &port{bath: b, name: name, answer: b.answerTempt}, nil
		default:
			return nil, fmt.Errorf("%w: %q", ErrNoSuchPort, name)
		}
	}
}

// port buffers the board reply to the last write until it is read.
type port struct {
	mu     sync.Mutex
	bath   *Bath
	name   string
	answer func(req []byte) []byte
	reply  bytes.Buffer
	closed bool
}

var _ serialport.Port = (*port)(nil)

func (p *port) Write(req []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrClosed
	}
	p.reply.Reset()
	p.reply.Write(p.answer(append([]byte(nil), req...)))
	return len(req), nil
}

// Read drains the pending reply. An empty buffer reads as a timeout.
func (p *port) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrClosed
	}
	if p.reply.Len() == 0 {
		return 0, nil
	}
	return p.reply.Read(buf)
}

func (p *port) SetReadTimeout(time.Duration) error { return nil }

func (p *port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (b *Bath) answerRelay(req []byte) []byte {
	r, err := relay.ParseRequest(req)
	if err != nil {
		// the board stays silent on frames it cannot decode
		return nil
	}
	if b.fault(RelayPort) != 0 {
		req[len(req)-1] ^= 0xFF
		return req
	}
	switch r.Func {
	case relay.FuncWriteCoil:
		b.setRelay(r.Channel, r.On)
		return req
	default:
		f := relay.EncodeStatus(b.Relays())
		return f[:]
	}
}

func (b *Bath) answerTempt(req []byte) []byte {
	if code := b.fault(TemptPort); code != 0 {
		return tempt.EncodeError(code)
	}
	r, code, err := tempt.ParseRequest(req)
	if err != nil {
		return tempt.EncodeError(code)
	}
	if r.Write {
		b.writeParam(r.Param, r.Value)
		return tempt.EncodeReply(r, r.Value)
	}
	return tempt.EncodeReply(r, b.readParam(r.Param))
}
