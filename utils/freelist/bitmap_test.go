package freelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitmapFreeList(t *testing.T) {
	bitmap := make([]byte, 6)
	totalPages := uint64(6 * 8)
	fl := NewBitmapFreeList(bitmap, 0, totalPages-1)

	pages, err := fl.GetPages(10)
	assert.Nil(t, err)
	assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, pages)
	assert.Equal(t, uint8(255), bitmap[0])
	assert.Equal(t, uint8(3), bitmap[1])

	// out of range release is a no-op
	fl.Release(totalPages + 5)
	assert.Equal(t, uint8(255), bitmap[0])

	fl.ReleasePages([]uint64{0, 1, 2})
	assert.Equal(t, uint8(0xF8), bitmap[0])
	assert.True(t, fl.IsFree(2))

	page, err := fl.Get()
	assert.Nil(t, err)
	assert.Equal(t, uint64(0), page)
	assert.False(t, fl.IsFree(0))

	pages, err = fl.GetPages(100)
	assert.Nil(t, err)
	assert.Equal(t, 40, len(pages))
	assert.Equal(t, uint64(0), fl.FreePagesAvailable())

	_, err = fl.Get()
	assert.ErrorIs(t, err, ErrNoFreePages)
}
