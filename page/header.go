package page

import (
	"encoding/binary"
)

// Header accessors on the raw page. Typed views build on these; the heap file
// itself never touches offsets directly.

func (p *Page) GetCurPage() PageID {
	return PageID(int32(binary.BigEndian.Uint32(p.Data[curPageOffset:])))
}

func (p *Page) SetCurPage(pid PageID) {
	binary.BigEndian.PutUint32(p.Data[curPageOffset:], uint32(int32(pid)))
}

func (p *Page) GetPrevPage() PageID {
	return PageID(int32(binary.BigEndian.Uint32(p.Data[prevPageOffset:])))
}

func (p *Page) SetPrevPage(pid PageID) {
	binary.BigEndian.PutUint32(p.Data[prevPageOffset:], uint32(int32(pid)))
}

func (p *Page) GetNextPage() PageID {
	return PageID(int32(binary.BigEndian.Uint32(p.Data[nextPageOffset:])))
}

func (p *Page) SetNextPage(pid PageID) {
	binary.BigEndian.PutUint32(p.Data[nextPageOffset:], uint32(int32(pid)))
}

func (p *Page) getSlotCnt() uint16 {
	return binary.BigEndian.Uint16(p.Data[slotCntOffset:])
}

func (p *Page) setSlotCnt(v uint16) {
	binary.BigEndian.PutUint16(p.Data[slotCntOffset:], v)
}

func (p *Page) getUsedPtr() uint16 {
	return binary.BigEndian.Uint16(p.Data[usedPtrOffset:])
}

func (p *Page) setUsedPtr(v uint16) {
	binary.BigEndian.PutUint16(p.Data[usedPtrOffset:], v)
}

func (p *Page) getFreeSpace() uint16 {
	return binary.BigEndian.Uint16(p.Data[freeSpaceOffset:])
}

func (p *Page) setFreeSpace(v uint16) {
	binary.BigEndian.PutUint16(p.Data[freeSpaceOffset:], v)
}

func (p *Page) GetPageType() uint16 {
	return binary.BigEndian.Uint16(p.Data[pageTypeOffset:])
}

func (p *Page) setPageType(v uint16) {
	binary.BigEndian.PutUint16(p.Data[pageTypeOffset:], v)
}
