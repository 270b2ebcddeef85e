// Package protocol holds the error taxonomy shared by the relay and T-C board codecs.
package protocol

import (
	"errors"
	"strings"
)

// Kind classifies a device exchange failure. The zero value means success.
type Kind uint8

const (
	KindNone Kind = iota
	// KindCom covers an unavailable port, I/O failures and malformed response lengths.
	KindCom
	// KindCRC is a relay response that failed its integrity check.
	KindCRC
	// KindCode is a programming-level misuse (wrong vector length, write to a read-only parameter).
	KindCode
	// T-C board reported errors.
	KindNotInRange
	KindUnknownCmd
	KindIncompleteCmd
	KindBCC
)

var kindNames = [...]string{
	KindNone:          "no_error",
	KindCom:           "com_error",
	KindCRC:           "crc_error",
	KindCode:          "code_error",
	KindNotInRange:    "not_in_range",
	KindUnknownCmd:    "unknown_cmd",
	KindIncompleteCmd: "incomplete_cmd",
	KindBCC:           "bcc_error",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// MarshalText renders the kind by name in JSON payloads.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseKind is the inverse of String. Unrecognised names map to KindUnknownCmd.
func ParseKind(s string) Kind {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range kindNames {
		if n == s {
			return Kind(i)
		}
	}
	return KindUnknownCmd
}

// Retryable reports whether the next scheduled exchange may succeed.
// Code errors are logic bugs and never go away on their own.
func (k Kind) Retryable() bool { return k != KindNone && k != KindCode }

// RelayKinds and TemptKinds list the kinds each device can report, in counter order.
var (
	RelayKinds = []Kind{KindCRC, KindCom, KindCode}
	TemptKinds = []Kind{KindNotInRange, KindUnknownCmd, KindIncompleteCmd, KindBCC, KindCom, KindCode}
)

// Error wraps a failed exchange with its classification.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the classification of err. Errors that did not come from
// a codec are treated as communication failures.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindCom
}
