package relay

const (
	crcInitial    = 0xFFFF
	crcPolynomial = 0xA001
)

// CRC16 computes the reflected CRC-16 (poly 0xA001, init 0xFFFF) used by the relay board.
func CRC16(data []byte) uint16 {
	crc := uint16(crcInitial)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ crcPolynomial
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// sealFrame stores the CRC of bytes 0..5 in bytes 6..7, low byte first.
func sealFrame(f *Frame) {
	crc := CRC16(f[:FrameLen-2])
	f[FrameLen-2] = byte(crc)
	f[FrameLen-1] = byte(crc >> 8)
}

// ValidFrame reports whether an 8-byte frame carries a matching CRC.
func ValidFrame(b []byte) bool {
	if len(b) != FrameLen {
		return false
	}
	crc := CRC16(b[:FrameLen-2])
	return b[FrameLen-2] == byte(crc) && b[FrameLen-1] == byte(crc>>8)
}
