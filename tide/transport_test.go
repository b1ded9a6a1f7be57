package tide

import (
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainTransportWriteDeliversOverAPipe(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	tr := NewPlainTransport(client)
	done := make(chan struct{})
	go func() {
		buf := make([]byte, 5)
		n, _ := server.Read(buf)
		assert.Equal(t, 5, n)
		close(done)
	}()

	n, result, err := tr.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, Written, result)
	assert.Equal(t, 5, n)
	<-done
}

func TestPlainTransportWriteEmptyBufferIsNoop(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	tr := NewPlainTransport(client)
	n, result, err := tr.Write(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, Written, result)
}

func TestPlainTransportWriteAfterCloseIsFatal(t *testing.T) {
	client, server := net.Pipe()
	server.Close()
	defer client.Close()

	tr := NewPlainTransport(client)
	_, result, err := tr.Write([]byte("x"))
	assert.Equal(t, Fatal, result)
	assert.Error(t, err)
}

func TestPlainTransportPendingIsAlwaysFalse(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	assert.False(t, NewPlainTransport(client).Pending())
}

func TestIsWouldBlockClassifiesEAGAINAndEINTR(t *testing.T) {
	mk := func(errno syscall.Errno) error {
		return &net.OpError{Op: "write", Err: errno}
	}
	assert.True(t, isWouldBlock(mk(syscall.EAGAIN)))
	assert.True(t, isWouldBlock(mk(syscall.EWOULDBLOCK)))
	assert.True(t, isWouldBlock(mk(syscall.EINTR)))
	assert.False(t, isWouldBlock(mk(syscall.ECONNRESET)))
	assert.False(t, isWouldBlock(net.ErrClosed))
}
