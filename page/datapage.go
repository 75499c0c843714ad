package page

import (
	"encoding/binary"
	"fmt"
)

/*
Data page body layout

┌──────────────────────────────────────────────────────────────┐
|──────────────────────20 byte header──────────────────────────|
| slot 0 | slot 1 | ... | slot slotCnt-1                       |
|                        ...free...                            |
| <- usedPtr      record heap grows downward      PAGE_SIZE -> |
└──────────────────────────────────────────────────────────────┘

slot = length (2byte) | offset (2byte)
length 0 marks a free slot. Slots are never removed once handed out, which is
what keeps RIDs stable; the record heap is compacted on every delete so that
freeSpace always equals the contiguous insertable region.
*/

// DataPage interprets a pinned frame as a slotted record page.
type DataPage struct {
	page *Page
}

// InitDataPage stamps an empty data page layout onto p and binds a view.
// Used right after allocating a fresh page, before a MemCpy pin installs it.
func InitDataPage(p *Page, pid PageID) *DataPage {
	clear(p.Data)
	p.SetCurPage(pid)
	p.SetPrevPage(InvalidPageID)
	p.SetNextPage(InvalidPageID)
	p.setSlotCnt(0)
	p.setUsedPtr(uint16(PAGE_SIZE))
	p.setFreeSpace(uint16(PAGE_SIZE - HEADER_SIZE))
	p.setPageType(DATA_PAGE)
	return &DataPage{page: p}
}

// DataPageFrom binds a data page view onto an already initialized frame.
func DataPageFrom(p *Page) (*DataPage, error) {
	if p.GetPageType() != DATA_PAGE {
		return nil, fmt.Errorf("%w: want data page, got tag %d", ErrWrongPageType, p.GetPageType())
	}
	return &DataPage{page: p}, nil
}

func (dp *DataPage) Page() *Page { return dp.page }

func (dp *DataPage) GetCurPage() PageID   { return dp.page.GetCurPage() }
func (dp *DataPage) SetCurPage(id PageID) { dp.page.SetCurPage(id) }

// FreeSpace reports the bytes available for one more insert. A new record
// still pays SLOT_SIZE on top of its length unless it can reuse a free slot.
func (dp *DataPage) FreeSpace() int { return int(dp.page.getFreeSpace()) }

func (dp *DataPage) SlotCount() int { return int(dp.page.getSlotCnt()) }

func (dp *DataPage) slotLen(i uint16) uint16 {
	return binary.BigEndian.Uint16(dp.page.Data[HEADER_SIZE+uint32(i)*SLOT_SIZE:])
}

func (dp *DataPage) slotOffset(i uint16) uint16 {
	return binary.BigEndian.Uint16(dp.page.Data[HEADER_SIZE+uint32(i)*SLOT_SIZE+2:])
}

func (dp *DataPage) setSlot(i uint16, length uint16, offset uint16) {
	binary.BigEndian.PutUint16(dp.page.Data[HEADER_SIZE+uint32(i)*SLOT_SIZE:], length)
	binary.BigEndian.PutUint16(dp.page.Data[HEADER_SIZE+uint32(i)*SLOT_SIZE+2:], offset)
}

// InsertRecord places the record on this page and returns its RID.
// Free slots left behind by deletes are reused before the slot array grows.
func (dp *DataPage) InsertRecord(record []byte) (RID, error) {
	if len(record) == 0 {
		return RID{}, fmt.Errorf("%w: empty record", ErrInvalidRid)
	}
	if len(record) > MAX_RECORD_SIZE {
		return RID{}, fmt.Errorf("%w: record of %d bytes", ErrPageFull, len(record))
	}

	slotCnt := dp.page.getSlotCnt()
	slot := slotCnt
	newSlot := true
	for i := uint16(0); i < slotCnt; i++ {
		if dp.slotLen(i) == 0 {
			slot = i
			newSlot = false
			break
		}
	}

	need := len(record)
	if newSlot {
		need += int(SLOT_SIZE)
	}
	if need > dp.FreeSpace() {
		return RID{}, ErrPageFull
	}

	usedPtr := dp.page.getUsedPtr() - uint16(len(record))
	copy(dp.page.Data[usedPtr:], record)
	dp.page.setUsedPtr(usedPtr)
	dp.setSlot(slot, uint16(len(record)), usedPtr)
	if newSlot {
		dp.page.setSlotCnt(slotCnt + 1)
	}
	dp.page.setFreeSpace(dp.page.getFreeSpace() - uint16(need))

	return RID{PageID: dp.GetCurPage(), Slot: slot}, nil
}

func (dp *DataPage) checkRid(rid RID) error {
	if rid.PageID != dp.GetCurPage() {
		return fmt.Errorf("%w: %v is not on page %d", ErrInvalidRid, rid, dp.GetCurPage())
	}
	if rid.Slot >= dp.page.getSlotCnt() || dp.slotLen(rid.Slot) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRid, rid)
	}
	return nil
}

// SelectRecord returns the record bytes as a slice into the frame buffer.
// Callers that outlive the pin must copy.
func (dp *DataPage) SelectRecord(rid RID) ([]byte, error) {
	if err := dp.checkRid(rid); err != nil {
		return nil, err
	}
	off := dp.slotOffset(rid.Slot)
	return dp.page.Data[off : off+dp.slotLen(rid.Slot)], nil
}

// UpdateRecord overwrites the record in place. The new record must have the
// same length as the stored one.
func (dp *DataPage) UpdateRecord(rid RID, record []byte) error {
	if err := dp.checkRid(rid); err != nil {
		return err
	}
	if uint16(len(record)) != dp.slotLen(rid.Slot) {
		return fmt.Errorf("%w: have %d bytes, want %d", ErrRecordLengthMismatch, len(record), dp.slotLen(rid.Slot))
	}
	copy(dp.page.Data[dp.slotOffset(rid.Slot):], record)
	return nil
}

// DeleteRecord frees the slot and compacts the record heap so the reclaimed
// bytes become part of the contiguous free region.
func (dp *DataPage) DeleteRecord(rid RID) error {
	if err := dp.checkRid(rid); err != nil {
		return err
	}

	off := dp.slotOffset(rid.Slot)
	length := dp.slotLen(rid.Slot)
	usedPtr := dp.page.getUsedPtr()

	// shift every record stored below the deleted one up by its length
	copy(dp.page.Data[usedPtr+length:off+length], dp.page.Data[usedPtr:off])

	slotCnt := dp.page.getSlotCnt()
	for i := uint16(0); i < slotCnt; i++ {
		if dp.slotLen(i) != 0 && dp.slotOffset(i) < off {
			dp.setSlot(i, dp.slotLen(i), dp.slotOffset(i)+length)
		}
	}

	dp.setSlot(rid.Slot, 0, 0)
	dp.page.setUsedPtr(usedPtr + length)
	dp.page.setFreeSpace(dp.page.getFreeSpace() + length)
	return nil
}

// NextOccupied returns the first occupied slot at index >= from,
// or false when the rest of the slot array is empty.
func (dp *DataPage) NextOccupied(from uint16) (uint16, bool) {
	for i := from; i < dp.page.getSlotCnt(); i++ {
		if dp.slotLen(i) != 0 {
			return i, true
		}
	}
	return 0, false
}

// RecordCount counts occupied slots. The directory keeps its own count; this
// one exists so tests can cross check the two.
func (dp *DataPage) RecordCount() int {
	n := 0
	for i := uint16(0); i < dp.page.getSlotCnt(); i++ {
		if dp.slotLen(i) != 0 {
			n++
		}
	}
	return n
}
