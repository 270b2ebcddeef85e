package relay

import (
	"testing"

	"thermostab/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	f, err := EncodeWrite(Cool, true)
	require.NoError(t, err)
	r, err := ParseRequest(f[:])
	require.NoError(t, err)
	assert.Equal(t, Request{Func: FuncWriteCoil, Channel: Cool, On: true}, r)

	all := EncodeReadAll()
	r, err = ParseRequest(all[:])
	require.NoError(t, err)
	assert.Equal(t, FuncReadCoils, r.Func)

	f[6] ^= 0xFF
	_, err = ParseRequest(f[:])
	assert.Equal(t, protocol.KindCRC, protocol.KindOf(err))
}

func TestEncodeStatus_DecodesBack(t *testing.T) {
	var st Status
	st[Elect], st[Circle], st[9], st[15] = true, true, true, true

	f := EncodeStatus(st)
	got, err := DecodeStatus(f[:])
	require.NoError(t, err)
	assert.Equal(t, st, got)
	assert.Equal(t, byte(0x09), f[4])
	assert.Equal(t, byte(0x82), f[3])
}
