package protocol

import "time"

// InterCommandDelay is the device turnaround time observed between a request and its response.
const InterCommandDelay = 20 * time.Millisecond

// Exchanger performs one request/response round trip on a device link.
// The response is read until complete reports true, max bytes arrive or the
// read times out. Returned errors are *Error values of KindCom.
type Exchanger interface {
	Exchange(req []byte, max int, complete func(resp []byte) bool) ([]byte, error)
}
