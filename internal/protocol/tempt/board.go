package tempt

import (
	"bytes"
	"fmt"
	"strconv"

	"thermostab/internal/protocol"
)

// Request is a decoded host frame, as seen by the board.
type Request struct {
	Write bool
	Param Param
	Value float64
}

// Board error codes, carried after the 'E' flag.
const (
	CodeNotInRange    byte = 'A'
	CodeUnknownCmd    byte = 'B'
	CodeIncompleteCmd byte = 'C'
	CodeBCC           byte = 'D'
)

// ParseRequest decodes a host frame. The returned code is the board error
// code to answer with when err is not nil.
func ParseRequest(b []byte) (Request, byte, error) {
	var r Request
	b = bytes.TrimRight(b, "\r\n")
	colon := bytes.LastIndexByte(b, finisher)
	if len(b) < len(headerRead)+1 || colon < 0 || len(b) != colon+3 {
		return r, CodeIncompleteCmd, protocol.Errorf(protocol.KindIncompleteCmd, "parse request", nil)
	}
	sum, err := strconv.ParseUint(string(b[colon+1:]), 16, 8)
	if err != nil || byte(sum) != BCC(b[:colon+1]) {
		return r, CodeBCC, protocol.Errorf(protocol.KindBCC, "parse request", nil)
	}
	switch string(b[:len(headerRead)]) {
	case headerRead:
	case headerWrite:
		r.Write = true
	default:
		return r, CodeUnknownCmd, protocol.Errorf(protocol.KindUnknownCmd, "parse request", nil)
	}
	tag := bytes.IndexByte(paramTags[:], b[len(headerRead)])
	if tag < 0 || (r.Write && !Param(tag).CanWrite()) {
		return r, CodeUnknownCmd, protocol.Errorf(protocol.KindUnknownCmd, "parse request", nil)
	}
	r.Param = Param(tag)
	if !r.Write {
		if colon != len(headerRead)+1 {
			return r, CodeIncompleteCmd, protocol.Errorf(protocol.KindIncompleteCmd, "parse request", nil)
		}
		return r, 0, nil
	}
	r.Value, err = strconv.ParseFloat(string(b[len(headerRead)+1:colon]), 64)
	if err != nil {
		return r, CodeIncompleteCmd, protocol.Errorf(protocol.KindIncompleteCmd, "parse request", err)
	}
	return r, 0, nil
}

// EncodeReply builds the board's answer to r. Reads carry the current value.
func EncodeReply(r Request, v float64) []byte {
	body := make([]byte, 0, maxResponse)
	if r.Write {
		body = append(body, headerWrite...)
		body = append(body, paramTags[r.Param])
	} else {
		body = append(body, headerRead...)
		body = append(body, paramTags[r.Param])
		body = append(body, r.Param.Format(v)...)
	}
	return seal(body, "\r")
}

// EncodeError builds an error reply with the given board code.
func EncodeError(code byte) []byte {
	body := make([]byte, 0, maxResponse)
	body = append(body, headerRead[:len(headerRead)-1]...)
	body = append(body, errorFlag, code)
	return seal(body, "\r")
}

func (r Request) String() string {
	if r.Write {
		return fmt.Sprintf("write %s=%s", r.Param, r.Param.Format(r.Value))
	}
	return "read " + r.Param.String()
}
