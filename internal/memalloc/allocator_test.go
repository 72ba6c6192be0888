package memalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAllocatorScenario is the literal S4 scenario: initial size 1024, base
// 0x1000. allocate(256) -> 0x1000; allocate(128) -> 0x1100;
// allocate(64) -> 0x1180. Deallocate 0x1000, 0x1180, 0x1100 -> a single
// free block of size 1024.
func TestAllocatorScenario(t *testing.T) {
	a := New(0x1000, 1024)

	addr1, err := a.Allocate(256)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1000), addr1)

	addr2, err := a.Allocate(128)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1100), addr2)

	addr3, err := a.Allocate(64)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1180), addr3)

	assert.True(t, a.Deallocate(addr1))
	assert.True(t, a.Deallocate(addr3))
	assert.True(t, a.Deallocate(addr2))

	blocks := a.FreeBlocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, uint64(0x1000), blocks[0].Addr)
	assert.Equal(t, uint64(1024), blocks[0].Size)
	assert.Equal(t, uint64(1024), a.GetFreeMemory())
	assert.Equal(t, uint64(0), a.GetAllocatedMemory())
}

func TestAllocatorExhaustion(t *testing.T) {
	a := New(0, 16)
	_, err := a.Allocate(8)
	require.NoError(t, err)
	_, err = a.Allocate(16)
	assert.Error(t, err)
}

func TestAllocatorDeallocateUnknownAddress(t *testing.T) {
	a := New(0, 16)
	assert.False(t, a.Deallocate(0x999))
}

func TestAllocatorCoalescingOutOfOrder(t *testing.T) {
	a := New(0, 100)
	x, _ := a.Allocate(10)
	y, _ := a.Allocate(10)
	z, _ := a.Allocate(10)

	a.Deallocate(y) // middle first: x and z are still allocated on either side, so nothing coalesces
	assert.Len(t, a.FreeBlocks(), 2)

	a.Deallocate(x) // now x+y merge
	assert.Len(t, a.FreeBlocks(), 2)

	a.Deallocate(z)
	assert.Len(t, a.FreeBlocks(), 1)
	assert.Equal(t, uint64(100), a.GetFreeMemory())
}
