package page

import (
	"fmt"
)

/*
Every page in the store is a fixed 4kb block sharing a common 20 byte header.
The header keeps the linked list pointers and the space accounting so that a
page can be interpreted without consulting any other page.

┌──────────────────────────────────────────────────────────────┐
| cur (4byte) | prev (4byte) | next (4byte)                    |
| slotCnt (2byte) | usedPtr (2byte) | freeSpace (2byte)        |
| pageType (2byte)                                             |
|──────────────────────20 byte header──────────────────────────|
| page body (slot directory / dir entries / record heap)       |
└──────────────────────────────────────────────────────────────┘
*/

const PAGE_SIZE = uint32(4096) // 4kb
const HEADER_SIZE = uint32(20)
const SLOT_SIZE = uint32(4)

// MAX_RECORD_SIZE is the largest record a single data page can hold:
// one full page body minus one slot.
const MAX_RECORD_SIZE = int(PAGE_SIZE - HEADER_SIZE - SLOT_SIZE)

// PageID identifies a physical page on disk. InvalidPageID means "no page".
type PageID int32

const InvalidPageID PageID = -1

// Page kind tags stored in the header so a raw frame can be sanity checked
// before a typed view is bound onto it.
const (
	DIR_PAGE  uint16 = 10
	DATA_PAGE uint16 = 11
)

// RID addresses a single record: the data page it lives on and its slot
// number within that page. A RID stays valid for the life of the record.
type RID struct {
	PageID PageID
	Slot   uint16
}

func (r RID) String() string {
	return fmt.Sprintf("rid(%d:%d)", r.PageID, r.Slot)
}

// Page is the in-memory view of one disk page. When pinned, Data aliases the
// buffer pool frame directly, so mutations through a typed view are mutations
// of the frame and unpinning dirty persists them.
type Page struct {
	Data []byte
}

func NewPage() *Page {
	return &Page{Data: make([]byte, PAGE_SIZE)}
}

var (
	ErrInvalidRid           = fmt.Errorf("invalid rid")
	ErrRecordLengthMismatch = fmt.Errorf("record length mismatch")
	ErrPageFull             = fmt.Errorf("not enough free space on page")
	ErrWrongPageType        = fmt.Errorf("page type tag does not match view")
)

// header field offsets, shared by data and directory pages
const (
	curPageOffset   = 0
	prevPageOffset  = 4
	nextPageOffset  = 8
	slotCntOffset   = 12 // entry count on directory pages
	usedPtrOffset   = 14
	freeSpaceOffset = 16
	pageTypeOffset  = 18
)
