package h2frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
)

func TestWriteDataClampsToCreditAndReportsConsumed(t *testing.T) {
	// spec.md §8 scenario 4: credit=50, request len=200 -> one 50-byte
	// DATA frame, END_STREAM=0, 50 bytes consumed.
	var buf bytes.Buffer
	w := NewWriter(&buf, 7)
	credit := int32(50)
	payload := make([]byte, 200)

	res, err := w.WriteData(payload, true, &credit)
	require.NoError(t, err)
	assert.Equal(t, 50, res.Written)
	assert.False(t, res.EndStream) // credit-starved: can't claim finality.
	assert.Equal(t, int32(0), credit)

	fr := http2.NewFramer(nil, &buf)
	f, err := fr.ReadFrame()
	require.NoError(t, err)
	df := f.(*http2.DataFrame)
	assert.Len(t, df.Data(), 50)
	assert.False(t, df.StreamEnded())
}

func TestWriteDataFullPayloadUnderCreditSetsEndStream(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 3)
	credit := int32(1000)

	res, err := w.WriteData([]byte("hello"), true, &credit)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Written)
	assert.True(t, res.EndStream)
	assert.Equal(t, int32(995), credit)
}

func TestWriteDataZeroCreditStalls(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 1)
	credit := int32(0)

	res, err := w.WriteData([]byte("hello"), false, &credit)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Written)
	assert.Equal(t, 0, buf.Len())
}

func TestWriteHeadersAndContinuation(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 5)
	require.NoError(t, w.WriteHeaders([]byte("abc"), false, false))
	require.NoError(t, w.WriteContinuation([]byte("def"), true))

	fr := http2.NewFramer(nil, &buf)
	f1, err := fr.ReadFrame()
	require.NoError(t, err)
	hf := f1.(*http2.HeadersFrame)
	assert.False(t, hf.HeadersEnded())

	f2, err := fr.ReadFrame()
	require.NoError(t, err)
	cf := f2.(*http2.ContinuationFrame)
	assert.True(t, cf.HeadersEnded())
}
