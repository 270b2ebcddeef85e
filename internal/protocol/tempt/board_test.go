package tempt

import (
	"testing"

	"thermostab/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	w, err := EncodeWrite(TempSet, 25.5)
	require.NoError(t, err)
	r, code, err := ParseRequest(w)
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.Equal(t, Request{Write: true, Param: TempSet, Value: 25.5}, r)

	rd, err := EncodeRead(TempShow)
	require.NoError(t, err)
	r, _, err = ParseRequest(rd)
	require.NoError(t, err)
	assert.Equal(t, Request{Param: TempShow}, r)
}

func TestParseRequest_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		code byte
	}{
		{"truncated", "@35RH", CodeIncompleteCmd},
		{"bad bcc", "@35RH:00\r", CodeBCC},
		{"unknown header", string(seal([]byte("@35XH"), "\r")), CodeUnknownCmd},
		{"write read-only", string(seal([]byte("@35WH1"), "\r")), CodeUnknownCmd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, code, err := ParseRequest([]byte(tt.in))
			assert.Error(t, err)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestEncodeReply(t *testing.T) {
	v, err := DecodeValue(EncodeReply(Request{Param: TempShow}, 24.1234))
	require.NoError(t, err)
	assert.InDelta(t, 24.1234, v, 1e-9)

	assert.NoError(t, CheckResponse(EncodeReply(Request{Write: true, Param: Power}, 0)))

	for code, kind := range map[byte]protocol.Kind{
		CodeNotInRange:    protocol.KindNotInRange,
		CodeUnknownCmd:    protocol.KindUnknownCmd,
		CodeIncompleteCmd: protocol.KindIncompleteCmd,
		CodeBCC:           protocol.KindBCC,
	} {
		assert.Equal(t, kind, protocol.KindOf(CheckResponse(EncodeError(code))))
	}
}
