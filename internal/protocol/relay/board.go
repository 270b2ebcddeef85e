package relay

import (
	"encoding/binary"
	"fmt"

	"thermostab/internal/protocol"
)

// Request is a decoded host frame, as seen by the board.
type Request struct {
	Func    byte
	Channel Channel
	On      bool
}

// ParseRequest validates and decodes a host frame.
func ParseRequest(b []byte) (Request, error) {
	var r Request
	if !ValidFrame(b) || b[0] != DeviceAddr {
		return r, protocol.Errorf(protocol.KindCRC, "parse request", nil)
	}
	r.Func = b[1]
	switch r.Func {
	case FuncWriteCoil:
		r.Channel = Channel(binary.BigEndian.Uint16(b[2:4]))
		if !r.Channel.Valid() {
			return r, protocol.Errorf(protocol.KindCode, "parse request", fmt.Errorf("%w: %d", ErrChannelRange, int(r.Channel)))
		}
		r.On = binary.BigEndian.Uint16(b[4:6]) == coilOn
	case FuncReadCoils:
	default:
		return r, protocol.Errorf(protocol.KindCode, "parse request", fmt.Errorf("function 0x%02X", r.Func))
	}
	return r, nil
}

// EncodeStatus builds the board's reply to EncodeReadAll.
func EncodeStatus(st Status) Frame {
	var f Frame
	f[0] = DeviceAddr
	f[1] = FuncReadCoils
	f[2] = 2
	for i := 0; i < 8; i++ {
		if st[i] {
			f[4] |= 1 << i
		}
		if st[i+8] {
			f[3] |= 1 << i
		}
	}
	sealFrame(&f)
	return f
}
