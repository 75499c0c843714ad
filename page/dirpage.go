package page

import (
	"encoding/binary"
	"fmt"
)

/*
Directory page body layout

┌──────────────────────────────────────────────────────────────┐
|──────────────────────20 byte header──────────────────────────|
| (dataPageID 4byte | recCnt 2byte | freeCnt 2byte)            |
|──────────────────────────────────────────────────────────────|
| repeat ... entryCnt packed entries, no holes                 |
└──────────────────────────────────────────────────────────────┘

Directory pages form a doubly linked list through the prev/next header
fields. Entries stay packed from index 0; removing one compacts the array.
*/

const dirEntrySize = uint32(8)

// MaxDirEntries is how many data page entries one directory page holds.
const MaxDirEntries = int((PAGE_SIZE - HEADER_SIZE) / dirEntrySize)

// DirPage interprets a pinned frame as a directory page.
type DirPage struct {
	page *Page
}

// InitDirPage stamps an empty directory page onto p and binds a view.
func InitDirPage(p *Page, pid PageID) *DirPage {
	clear(p.Data)
	p.SetCurPage(pid)
	p.SetPrevPage(InvalidPageID)
	p.SetNextPage(InvalidPageID)
	p.setSlotCnt(0)
	p.setPageType(DIR_PAGE)
	return &DirPage{page: p}
}

// DirPageFrom binds a directory view onto an already initialized frame.
func DirPageFrom(p *Page) (*DirPage, error) {
	if p.GetPageType() != DIR_PAGE {
		return nil, fmt.Errorf("%w: want directory page, got tag %d", ErrWrongPageType, p.GetPageType())
	}
	return &DirPage{page: p}, nil
}

func (dp *DirPage) Page() *Page { return dp.page }

func (dp *DirPage) GetCurPage() PageID    { return dp.page.GetCurPage() }
func (dp *DirPage) SetCurPage(id PageID)  { dp.page.SetCurPage(id) }
func (dp *DirPage) GetPrevPage() PageID   { return dp.page.GetPrevPage() }
func (dp *DirPage) SetPrevPage(id PageID) { dp.page.SetPrevPage(id) }
func (dp *DirPage) GetNextPage() PageID   { return dp.page.GetNextPage() }
func (dp *DirPage) SetNextPage(id PageID) { dp.page.SetNextPage(id) }

func (dp *DirPage) GetEntryCnt() int    { return int(dp.page.getSlotCnt()) }
func (dp *DirPage) SetEntryCnt(cnt int) { dp.page.setSlotCnt(uint16(cnt)) }
func (dp *DirPage) GetMaxEntries() int  { return MaxDirEntries }

func (dp *DirPage) entry(i int) []byte {
	off := HEADER_SIZE + uint32(i)*dirEntrySize
	return dp.page.Data[off : off+dirEntrySize]
}

func (dp *DirPage) GetPageID(i int) PageID {
	return PageID(int32(binary.BigEndian.Uint32(dp.entry(i))))
}

func (dp *DirPage) SetPageID(i int, pid PageID) {
	binary.BigEndian.PutUint32(dp.entry(i), uint32(int32(pid)))
}

func (dp *DirPage) GetRecCnt(i int) int {
	return int(binary.BigEndian.Uint16(dp.entry(i)[4:]))
}

func (dp *DirPage) SetRecCnt(i int, cnt int) {
	binary.BigEndian.PutUint16(dp.entry(i)[4:], uint16(cnt))
}

func (dp *DirPage) GetFreeCnt(i int) int {
	return int(binary.BigEndian.Uint16(dp.entry(i)[6:]))
}

func (dp *DirPage) SetFreeCnt(i int, cnt int) {
	binary.BigEndian.PutUint16(dp.entry(i)[6:], uint16(cnt))
}

// Compact closes the hole at index i by shifting every later entry one
// position left. The caller clears the entry and decrements the count.
func (dp *DirPage) Compact(i int) {
	cnt := dp.GetEntryCnt()
	if i >= cnt-1 {
		return
	}
	from := HEADER_SIZE + uint32(i+1)*dirEntrySize
	to := HEADER_SIZE + uint32(i)*dirEntrySize
	end := HEADER_SIZE + uint32(cnt)*dirEntrySize
	copy(dp.page.Data[to:], dp.page.Data[from:end])
}
