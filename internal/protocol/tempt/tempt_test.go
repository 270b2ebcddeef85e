package tempt

import (
	"errors"
	"testing"

	"thermostab/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedLink struct {
	requests [][]byte
	replies  [][]byte
	errs     []error
}

func (s *scriptedLink) Exchange(req []byte, _ int, _ func([]byte) bool) ([]byte, error) {
	i := len(s.requests)
	s.requests = append(s.requests, append([]byte(nil), req...))
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], err
	}
	return nil, err
}

func TestEncodeWrite(t *testing.T) {
	b, err := EncodeWrite(Power, 12.0)
	require.NoError(t, err)
	assert.Equal(t, "@35WG12:6F\r\n", string(b))

	b, err = EncodeWrite(TempSet, 25.5)
	require.NoError(t, err)
	assert.Equal(t, "@35WA25.500:", string(b[:12]))

	for _, p := range []Param{TempShow, PowerShow, Param(-1), Param(42)} {
		_, err := EncodeWrite(p, 1)
		assert.Equal(t, protocol.KindCode, protocol.KindOf(err), p.String())
	}
}

func TestEncodeRead(t *testing.T) {
	b, err := EncodeRead(TempShow)
	require.NoError(t, err)
	assert.Equal(t, "@35RH:66\r", string(b))

	_, err = EncodeRead(Param(9))
	assert.Equal(t, protocol.KindCode, protocol.KindOf(err))
}

func TestWriteFrameParsesBackToSameValue(t *testing.T) {
	b, err := EncodeWrite(Power, 12.0)
	require.NoError(t, err)
	v, err := DecodeValue(b)
	require.NoError(t, err)
	assert.Equal(t, 12.0, v)
}

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		name string
		resp string
		want float64
		kind protocol.Kind
	}{
		{"temperature", "@35RH25.1234:00\r", 25.1234, protocol.KindNone},
		{"negative", "@35RA-1.500:00\r", -1.5, protocol.KindNone},
		{"not in range", "@35EA:00\r", 0, protocol.KindNotInRange},
		{"unknown cmd", "@35EB:00\r", 0, protocol.KindUnknownCmd},
		{"incomplete", "@35EC:00\r", 0, protocol.KindIncompleteCmd},
		{"bcc", "@35ED:00\r", 0, protocol.KindBCC},
		{"unrecognised error code", "@35EZ:00\r", 0, protocol.KindUnknownCmd},
		{"too short", "@35", 0, protocol.KindCom},
		{"garbage payload", "@35RHxx:00\r", 0, protocol.KindBCC},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := DecodeValue([]byte(tt.resp))
			assert.Equal(t, tt.kind, protocol.KindOf(err))
			if tt.kind == protocol.KindNone {
				assert.InDelta(t, tt.want, v, 1e-9)
			}
		})
	}
}

func TestClient_Send(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		link := &scriptedLink{replies: [][]byte{[]byte("@35WG12:6F\r")}}
		require.NoError(t, NewClient(link).Send(Power, 12))
		assert.Equal(t, "@35WG12:6F\r\n", string(link.requests[0]))
	})
	t.Run("board error", func(t *testing.T) {
		link := &scriptedLink{replies: [][]byte{[]byte("@35EA:00\r")}}
		err := NewClient(link).Send(TempSet, 999)
		assert.Equal(t, protocol.KindNotInRange, protocol.KindOf(err))
	})
	t.Run("no reply", func(t *testing.T) {
		link := &scriptedLink{}
		err := NewClient(link).Send(TempSet, 1)
		assert.Equal(t, protocol.KindCom, protocol.KindOf(err))
	})
	t.Run("read-only", func(t *testing.T) {
		link := &scriptedLink{}
		err := NewClient(link).Send(PowerShow, 1)
		assert.Equal(t, protocol.KindCode, protocol.KindOf(err))
		assert.Empty(t, link.requests)
	})
}

func TestClient_Read(t *testing.T) {
	link := &scriptedLink{
		replies: [][]byte{[]byte("@35RH20.0012:00\r"), nil},
		errs:    []error{nil, errors.New("timeout")},
	}
	c := NewClient(link)
	v, err := c.Read(TempShow)
	require.NoError(t, err)
	assert.InDelta(t, 20.0012, v, 1e-9)

	_, err = c.Read(TempShow)
	assert.Equal(t, protocol.KindCom, protocol.KindOf(err))
}
