package hal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/behrlich/go-mmwave/internal/constants"
)

func TestAccountantGrantsAndTracks(t *testing.T) {
	a := NewAccountant()

	buf := a.Alloc(100)
	require.NotNil(t, buf)
	assert.Len(t, buf, 100)
	assert.Equal(t, 100, a.InUse())

	a.Free(buf)
	assert.Zero(t, a.InUse())
	assert.Equal(t, 100, a.Peak())
}

func TestAccountantRejectsOversizedAllocation(t *testing.T) {
	a := NewAccountant()

	assert.Nil(t, a.Alloc(constants.MaxSingleAlloc+1))
	assert.NotNil(t, a.Alloc(constants.MaxSingleAlloc))
	assert.Nil(t, a.Alloc(0))
	assert.Nil(t, a.Alloc(-5))
}

func TestAccountantEnforcesTotalCap(t *testing.T) {
	a := NewAccountant()

	var bufs [][]byte
	for i := 0; i < constants.MaxTotalAlloc/constants.MaxSingleAlloc; i++ {
		buf := a.Alloc(constants.MaxSingleAlloc)
		require.NotNil(t, buf)
		bufs = append(bufs, buf)
	}
	assert.Equal(t, constants.MaxTotalAlloc, a.InUse())

	// The cap is reached; further allocations refuse.
	assert.Nil(t, a.Alloc(1))

	// Freeing restores capacity.
	a.Free(bufs[0])
	assert.NotNil(t, a.Alloc(constants.MaxSingleAlloc))
}

func TestAccountantFreeSaturatesAtZero(t *testing.T) {
	a := NewAccountant()

	small := a.Alloc(8)
	require.NotNil(t, small)

	// A stray free of a buffer larger than the outstanding total must
	// not wrap the counter.
	a.Free(make([]byte, 64))
	assert.Zero(t, a.InUse())

	a.Free(small)
	assert.Zero(t, a.InUse())

	a.Free(nil)
	assert.Zero(t, a.InUse())
}
