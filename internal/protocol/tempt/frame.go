// Package tempt implements the ASCII BCC-framed protocol of the temperature-control board.
package tempt

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"thermostab/internal/protocol"
)

// Param selects one T-C board register.
type Param int

const (
	TempSet Param = iota
	TempCorrect
	LeadAdjust
	Fuzzy
	Ratio
	Integral
	Power
	// TempShow and PowerShow are read-only live values.
	TempShow
	PowerShow
)

const (
	// Writable is the number of parameters that can be sent to the board.
	Writable   = 7
	ParamCount = 9

	headerWrite = "@35W"
	headerRead  = "@35R"
	finisher    = ':'
	terminator  = '\r'

	errorFlag   = 'E'
	errorFlagAt = 3
	errorCodeAt = 4
	valueAt     = 5

	maxResponse = 32
)

var (
	paramTags   = [ParamCount]byte{'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I'}
	paramDigits = [ParamCount]int{3, 3, 3, 0, 0, 0, 0, 4, 0}
	paramNames  = [ParamCount]string{
		"temp_set", "temp_correct", "lead_adjust", "fuzzy", "ratio", "integral", "power",
		"temp_show", "power_show",
	}
)

func (p Param) String() string {
	if p.Valid() {
		return paramNames[p]
	}
	return fmt.Sprintf("param%d", int(p))
}

func (p Param) Valid() bool { return p >= 0 && p < ParamCount }

// CanWrite reports whether the parameter accepts writes.
func (p Param) CanWrite() bool { return p >= 0 && p < Writable }

// Format renders v with the fixed-point precision the board expects for p.
func (p Param) Format(v float64) string {
	return strconv.FormatFloat(v, 'f', paramDigits[p], 64)
}

// BCC is the XOR of every byte in b.
func BCC(b []byte) byte {
	var x byte
	for _, c := range b {
		x ^= c
	}
	return x
}

func seal(body []byte, end string) []byte {
	body = append(body, finisher)
	body = append(body, strings.ToUpper(fmt.Sprintf("%02x", BCC(body)))...)
	return append(body, end...)
}

// EncodeWrite builds the write frame for a writable parameter.
func EncodeWrite(p Param, v float64) ([]byte, error) {
	if !p.CanWrite() {
		return nil, protocol.Errorf(protocol.KindCode, "encode write", fmt.Errorf("%s is read-only", p))
	}
	body := make([]byte, 0, maxResponse)
	body = append(body, headerWrite...)
	body = append(body, paramTags[p])
	body = append(body, p.Format(v)...)
	return seal(body, "\r\n"), nil
}

// EncodeRead builds the read frame for any parameter.
func EncodeRead(p Param) ([]byte, error) {
	if !p.Valid() {
		return nil, protocol.Errorf(protocol.KindCode, "encode read", fmt.Errorf("unknown parameter %d", int(p)))
	}
	body := make([]byte, 0, maxResponse)
	body = append(body, headerRead...)
	body = append(body, paramTags[p])
	return seal(body, "\r"), nil
}

// CheckResponse maps the board's error flag to an error kind.
func CheckResponse(resp []byte) error {
	if len(resp) <= errorCodeAt {
		return protocol.Errorf(protocol.KindCom, "response", fmt.Errorf("malformed length %d", len(resp)))
	}
	if resp[errorFlagAt] != errorFlag {
		return nil
	}
	var kind protocol.Kind
	switch resp[errorCodeAt] {
	case 'A':
		kind = protocol.KindNotInRange
	case 'B':
		kind = protocol.KindUnknownCmd
	case 'C':
		kind = protocol.KindIncompleteCmd
	case 'D':
		kind = protocol.KindBCC
	default:
		kind = protocol.KindUnknownCmd
	}
	return protocol.Errorf(kind, "board", nil)
}

// DecodeValue parses the numeric payload that starts at byte 5.
func DecodeValue(resp []byte) (float64, error) {
	if err := CheckResponse(resp); err != nil {
		return 0, err
	}
	if len(resp) <= valueAt {
		return 0, protocol.Errorf(protocol.KindCom, "response", fmt.Errorf("malformed length %d", len(resp)))
	}
	payload := resp[valueAt:]
	if i := bytes.IndexAny(payload, ":\r\n"); i >= 0 {
		payload = payload[:i]
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
	if err != nil {
		return 0, protocol.Errorf(protocol.KindBCC, "parse value", err)
	}
	return v, nil
}

func lineComplete(b []byte) bool {
	return bytes.IndexByte(b, terminator) >= 0
}
