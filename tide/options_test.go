package tide

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptionsPassConfigure(t *testing.T) {
	o := DefaultOptions()
	require.NoError(t, o.OnConfigure())
}

func TestOnConfigureRejectsUndersizedHeadroom(t *testing.T) {
	o := DefaultOptions()
	o.LWSPre = 8
	assert.Error(t, o.OnConfigure())
}

func TestOnConfigureRejectsNonPositiveBufferSizes(t *testing.T) {
	o := DefaultOptions()
	o.RXBufferSize = 0
	assert.Error(t, o.OnConfigure())

	o = DefaultOptions()
	o.ServBufSize = -1
	assert.Error(t, o.OnConfigure())
}

func TestOnConfigureRejectsNegativeTXPacketSize(t *testing.T) {
	o := DefaultOptions()
	o.TXPacketSize = -1
	assert.Error(t, o.OnConfigure())
}

func TestOnPrepareDerivesCapFromTXPacketSizeWhenSet(t *testing.T) {
	o := DefaultOptions()
	o.TXPacketSize = 1000
	o.OnPrepare()
	assert.Equal(t, 1000+o.LWSPre+4, o.Cap())
}

func TestOnPrepareDerivesCapFromMaxOfRXAndServBufWhenTXPacketSizeUnset(t *testing.T) {
	o := DefaultOptions()
	o.RXBufferSize = 500
	o.ServBufSize = 900
	o.OnPrepare()
	assert.Equal(t, 900+o.LWSPre+4, o.Cap())
}
