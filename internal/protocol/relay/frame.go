// Package relay implements the binary CRC16 protocol of the 16-channel relay board.
package relay

import (
	"encoding/binary"
	"errors"
	"fmt"

	"thermostab/internal/protocol"
)

const (
	DeviceAddr    byte = 0xFE
	FuncReadCoils byte = 0x01
	FuncWriteCoil byte = 0x05

	FrameLen = 8
	Channels = 16

	coilOn  uint16 = 0xFF00
	coilOff uint16 = 0x0000
)

var ErrChannelRange = errors.New("channel out of range")

// Channel addresses one relay, 0..15.
type Channel int

// Channels wired to the bath.
const (
	Elect Channel = iota
	MainHeat
	Cool
	Circle
)

func (c Channel) String() string {
	switch c {
	case Elect:
		return "elect"
	case MainHeat:
		return "main_heat"
	case Cool:
		return "cool"
	case Circle:
		return "circle"
	default:
		return fmt.Sprintf("ch%d", int(c))
	}
}

// Valid reports whether c addresses a relay on the board.
func (c Channel) Valid() bool { return c >= 0 && c < Channels }

// Status holds one on/off flag per channel.
type Status [Channels]bool

// Frame is one request or response on the wire.
type Frame [FrameLen]byte

// EncodeWrite builds the write-single-coil frame for a channel.
func EncodeWrite(ch Channel, on bool) (Frame, error) {
	var f Frame
	if !ch.Valid() {
		return f, protocol.Errorf(protocol.KindCode, "encode write", fmt.Errorf("%w: %d", ErrChannelRange, int(ch)))
	}
	f[0] = DeviceAddr
	f[1] = FuncWriteCoil
	binary.BigEndian.PutUint16(f[2:4], uint16(ch))
	v := coilOff
	if on {
		v = coilOn
	}
	binary.BigEndian.PutUint16(f[4:6], v)
	sealFrame(&f)
	return f, nil
}

// EncodeReadAll builds the read-multiple frame covering all channels.
func EncodeReadAll() Frame {
	var f Frame
	f[0] = DeviceAddr
	f[1] = FuncReadCoils
	binary.BigEndian.PutUint16(f[2:4], 0)
	binary.BigEndian.PutUint16(f[4:6], Channels)
	sealFrame(&f)
	return f
}

// DecodeStatus parses the reply to EncodeReadAll. Byte 4 carries channels
// 0..7 and byte 3 channels 8..15, least significant bit first.
func DecodeStatus(resp []byte) (Status, error) {
	var st Status
	if len(resp) != FrameLen {
		return st, protocol.Errorf(protocol.KindCom, "decode status", fmt.Errorf("got %d bytes, want %d", len(resp), FrameLen))
	}
	if !ValidFrame(resp) || resp[0] != DeviceAddr || resp[1] != FuncReadCoils {
		return st, protocol.Errorf(protocol.KindCRC, "decode status", nil)
	}
	lo, hi := resp[4], resp[3]
	for i := 0; i < 8; i++ {
		st[i] = lo&(1<<i) != 0
		st[i+8] = hi&(1<<i) != 0
	}
	return st, nil
}
