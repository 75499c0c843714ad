package freelist

import (
	"fmt"
)

var ErrNoFreePages = fmt.Errorf("no free pages available")

// FreeList tracks which page numbers of an address range are allocated.
type FreeList interface {
	// Get allocates the lowest free page number.
	Get() (uint64, error)
	// GetPages allocates up to count pages, lowest numbers first. Returns
	// fewer than count when the range runs out; never errors on partial fill.
	GetPages(count uint64) ([]uint64, error)
	// Release marks a page free again. Out of range pages are ignored.
	Release(page uint64)
	ReleasePages(pages []uint64)
	IsFree(page uint64) bool
	FreePagesAvailable() uint64
}

// BitmapFreeList keeps one bit per page inside a caller supplied buffer, so
// the same bytes can be persisted as-is. Bit i of byte n covers page
// start + n*8 + i, least significant bit first. A set bit means allocated.
type BitmapFreeList struct {
	bitmap []byte
	start  uint64
	end    uint64 // inclusive
}

func NewBitmapFreeList(bitmap []byte, start uint64, end uint64) *BitmapFreeList {
	return &BitmapFreeList{bitmap: bitmap, start: start, end: end}
}

func (b *BitmapFreeList) locate(page uint64) (int, byte, bool) {
	if page < b.start || page > b.end {
		return 0, 0, false
	}
	idx := page - b.start
	return int(idx / 8), byte(1) << (idx % 8), true
}

func (b *BitmapFreeList) IsFree(page uint64) bool {
	byteIdx, mask, ok := b.locate(page)
	if !ok {
		return false
	}
	return b.bitmap[byteIdx]&mask == 0
}

func (b *BitmapFreeList) Get() (uint64, error) {
	for page := b.start; page <= b.end; page++ {
		byteIdx, mask, _ := b.locate(page)
		if b.bitmap[byteIdx]&mask == 0 {
			b.bitmap[byteIdx] |= mask
			return page, nil
		}
	}
	return 0, ErrNoFreePages
}

func (b *BitmapFreeList) GetPages(count uint64) ([]uint64, error) {
	pages := make([]uint64, 0, count)
	for page := b.start; page <= b.end && uint64(len(pages)) < count; page++ {
		byteIdx, mask, _ := b.locate(page)
		if b.bitmap[byteIdx]&mask == 0 {
			b.bitmap[byteIdx] |= mask
			pages = append(pages, page)
		}
	}
	return pages, nil
}

func (b *BitmapFreeList) Release(page uint64) {
	byteIdx, mask, ok := b.locate(page)
	if !ok {
		return
	}
	b.bitmap[byteIdx] &^= mask
}

func (b *BitmapFreeList) ReleasePages(pages []uint64) {
	for _, page := range pages {
		b.Release(page)
	}
}

func (b *BitmapFreeList) FreePagesAvailable() uint64 {
	free := uint64(0)
	for page := b.start; page <= b.end; page++ {
		if b.IsFree(page) {
			free++
		}
	}
	return free
}
