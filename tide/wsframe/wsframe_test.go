package wsframe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderLenBoundaries(t *testing.T) {
	// spec.md §8 P8: 125/126/65535/65536-byte payloads.
	assert.Equal(t, 2, HeaderLen(125))
	assert.Equal(t, 4, HeaderLen(126))
	assert.Equal(t, 4, HeaderLen(65535))
	assert.Equal(t, 10, HeaderLen(65536))
}

func TestWriteHeaderSmallTextFrameServer(t *testing.T) {
	// spec.md §8 scenario 1: server, len=5, TEXT, FIN set. Output 81 05 <5 bytes>.
	payload := []byte("hello")
	storage := make([]byte, MaxPre+len(payload))
	copy(storage[MaxPre:], payload)

	framed, _, err := WriteHeader(storage, MaxPre, storage[MaxPre:], true, 0, OpText, false, [4]byte{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x81, 0x05, 'h', 'e', 'l', 'l', 'o'}, framed)
}

func TestWriteHeaderClientBinaryFrameMasked(t *testing.T) {
	// spec.md §8 scenario 2: client, 200-byte binary frame, key 11 22 33 44.
	payload := make([]byte, 200)
	for i := range payload {
		payload[i] = byte(i)
	}
	key := [4]byte{0x11, 0x22, 0x33, 0x44}

	storage := make([]byte, MaxPre+len(payload))
	copy(storage[MaxPre:], payload)

	framed, newIdx, err := WriteHeader(storage, MaxPre, storage[MaxPre:], true, 0, OpBinary, true, key, 0)
	require.NoError(t, err)
	require.Len(t, framed, 8+200)

	assert.Equal(t, []byte{0x82, 0xFE, 0x00, 0xC8, 0x11, 0x22, 0x33, 0x44}, framed[:8])
	for i := 0; i < 200; i++ {
		assert.Equal(t, byte(i)^key[i&3], framed[8+i], "payload byte %d", i)
	}
	assert.Equal(t, uint32(200), newIdx)
}

func TestWriteHeaderInsufficientHeadroom(t *testing.T) {
	payload := make([]byte, 100000) // needs a 10-byte header.
	storage := make([]byte, 4+len(payload))
	_, _, err := WriteHeader(storage, 4, storage[4:], true, 0, OpBinary, false, [4]byte{}, 0)
	assert.Error(t, err)
}

func TestMaskContinueResumesRollingIndex(t *testing.T) {
	key := [4]byte{1, 2, 3, 4}
	first := []byte{10, 20, 30}
	idx := MaskContinue(first, key, 0)
	assert.Equal(t, uint32(3), idx)
	assert.Equal(t, []byte{10 ^ 1, 20 ^ 2, 30 ^ 3}, first)

	second := []byte{40, 50}
	idx = MaskContinue(second, key, idx)
	assert.Equal(t, uint32(5), idx)
	assert.Equal(t, []byte{40 ^ 4, 50 ^ 1}, second)
}
