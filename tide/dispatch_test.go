package tide

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWSConn(tr *fakeTransport, client bool) *Conn {
	mode := ModeWSServer
	if client {
		mode = ModeWSClient
	}
	opts := DefaultOptions()
	if err := opts.OnConfigure(); err != nil {
		panic(err)
	}
	opts.OnPrepare()
	return NewConn(1, mode, tr, &opts, nil, NewPt(16*1024))
}

func writeStorage(payload []byte) ([]byte, int) {
	storage := make([]byte, MaxHeadroom()+len(payload))
	copy(storage[MaxHeadroom():], payload)
	return storage, MaxHeadroom()
}

func TestWriteSmallTextFrameServer(t *testing.T) {
	tr := &fakeTransport{}
	c := newWSConn(tr, false)
	storage, start := writeStorage([]byte("hello"))

	n, err := c.Write(storage, start, 5, WriteProtocol{Kind: KindText})
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte{0x81, 0x05, 'h', 'e', 'l', 'l', 'o'}, tr.sent)
}

func TestWriteClientFrameIsMasked(t *testing.T) {
	tr := &fakeTransport{}
	c := newWSConn(tr, true)
	storage, start := writeStorage([]byte("hi"))

	n, err := c.Write(storage, start, 2, WriteProtocol{Kind: KindBinary})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, tr.sent, 2+2+4)
	assert.Equal(t, byte(0x82), tr.sent[0])
	assert.Equal(t, byte(0x80|2), tr.sent[1]) // MASK bit set, length 2.
}

func TestWriteTwiceInOneWritableEventRejectsSecondCall(t *testing.T) {
	// spec.md §8 scenario 6.
	tr := &fakeTransport{}
	c := newWSConn(tr, false)
	storage, start := writeStorage([]byte("a"))

	_, err := c.Write(storage, start, 1, WriteProtocol{Kind: KindText})
	require.NoError(t, err)

	storage2, start2 := writeStorage([]byte("b"))
	_, err = c.Write(storage2, start2, 1, WriteProtocol{Kind: KindText})
	assert.ErrorIs(t, err, ErrMisuse)
}

func TestWriteDroppedWhenNotInSendableState(t *testing.T) {
	tr := &fakeTransport{}
	c := newWSConn(tr, false)
	c.state = StateHTTP // not WS-established, not a CLOSE.
	storage, start := writeStorage([]byte("x"))

	n, err := c.Write(storage, start, 1, WriteProtocol{Kind: KindText})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, tr.sent)
}

func TestWritePlainHTTPBodyBypassesWSFraming(t *testing.T) {
	tr := &fakeTransport{}
	c := newWSConn(tr, false)
	c.mode = ModeHTTP1Serving
	storage, start := writeStorage([]byte("<html/>"))

	n, err := c.Write(storage, start, 7, WriteProtocol{Kind: KindHTTP})
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, []byte("<html/>"), tr.sent)
}
