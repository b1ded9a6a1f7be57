package tide

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// passthroughExt returns its input unchanged — a baseline to confirm the
// chain is a no-op when nothing transforms the buffer.
type passthroughExt struct{}

func (passthroughExt) Name() string { return "passthrough" }
func (passthroughExt) OnPacketTXDoSend(c *Conn, buf []byte) (int, bool, error) {
	return 0, false, nil
}
func (passthroughExt) OnPayloadTX(c *Conn, buf []byte, wp WriteProtocol) ([]byte, bool, error) {
	return buf, false, nil
}

// drainingExt emits a fixed-size slice of its own on every call and
// reports "more to come" for drainRounds calls, modeling a compressor that
// buffers output across several writable passes (spec.md §4.4).
type drainingExt struct {
	drainRounds int
	calls       int
	out         []byte
}

func (e *drainingExt) Name() string { return "draining" }
func (e *drainingExt) OnPacketTXDoSend(c *Conn, buf []byte) (int, bool, error) {
	return 0, false, nil
}
func (e *drainingExt) OnPayloadTX(c *Conn, buf []byte, wp WriteProtocol) ([]byte, bool, error) {
	e.calls++
	more := e.calls <= e.drainRounds
	return e.out, more, nil
}

func TestRunPayloadTXChainPassthroughLeavesBufferIdentity(t *testing.T) {
	c := newWSConn(&fakeTransport{}, false)
	c.extensions = []Extender{passthroughExt{}}
	in := []byte("payload")
	out, draining, err := runPayloadTXChain(c, in, WriteProtocol{Kind: KindBinary})
	require.NoError(t, err)
	assert.False(t, draining)
	assert.True(t, samebuf(in, out))
	assert.False(t, c.ws.draining)
}

func TestRunPayloadTXChainEnqueuesAndDequeuesDrainingConn(t *testing.T) {
	c := newWSConn(&fakeTransport{}, false)
	ext := &drainingExt{drainRounds: 2, out: []byte("x")}
	c.extensions = []Extender{ext}

	_, draining, err := runPayloadTXChain(c, []byte("payload"), WriteProtocol{Kind: KindBinary})
	require.NoError(t, err)
	assert.True(t, draining)
	assert.True(t, c.ws.draining)
	assert.Len(t, c.pt.draining, 1)

	_, draining, err = runPayloadTXChain(c, []byte("payload"), WriteProtocol{Kind: KindBinary})
	require.NoError(t, err)
	assert.True(t, draining)

	// Third call: drainRounds exhausted, extension stops reporting more.
	_, draining, err = runPayloadTXChain(c, []byte("payload"), WriteProtocol{Kind: KindBinary})
	require.NoError(t, err)
	assert.False(t, draining)
	assert.False(t, c.ws.draining)
	assert.Empty(t, c.pt.draining)
}

func TestRunPayloadTXChainAteInputEmittedNothingStashesWriteType(t *testing.T) {
	c := newWSConn(&fakeTransport{}, false)
	ext := &drainingExt{out: nil}
	c.extensions = []Extender{ext}

	wp := WriteProtocol{Kind: KindText, H2StreamEnd: true}
	out, _, err := runPayloadTXChain(c, []byte("payload"), wp)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.True(t, c.ws.stashedWritePending)
	restored := restoreWriteProtocol(c.ws.stashedWriteType)
	assert.Equal(t, KindText, restored.Kind)
}
