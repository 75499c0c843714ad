package heapfile

import (
	"fmt"

	"heron-db/bufferpool"
	"heron-db/page"
)

var ErrEndOfScan = fmt.Errorf("end of scan")

// HeapScan walks every live record of a heap file: directory pages in linked
// list order, entries in index order, slots in ascending slot number. At most
// one directory page and one data page stay pinned between Next calls.
// Mutating the heap file while a scan is open gives undefined results.
type HeapScan struct {
	hf *HeapFile

	dirID    page.PageID
	dir      *page.DirPage
	entryIdx int

	dataID   page.PageID
	data     *page.DataPage
	dataOpen bool
	slot     uint16

	done bool
}

// OpenScan pins the head directory page and positions the scan before the
// first record.
func (hf *HeapFile) OpenScan() (*HeapScan, error) {
	if err := hf.guard(); err != nil {
		return nil, err
	}
	pg := page.NewPage()
	if err := hf.sys.Buf.PinPage(hf.headID, pg, bufferpool.PinDiskIO); err != nil {
		return nil, err
	}
	dir, err := page.DirPageFrom(pg)
	if err != nil {
		hf.sys.Buf.UnpinPage(hf.headID, bufferpool.UnpinClean)
		return nil, err
	}
	return &HeapScan{hf: hf, dirID: hf.headID, dir: dir}, nil
}

// Next returns the next record and its id, or ErrEndOfScan once the file is
// exhausted. Exhaustion releases every pin the scan held.
func (s *HeapScan) Next() (page.RID, []byte, error) {
	buf := s.hf.sys.Buf

	for {
		if s.done {
			return page.RID{}, nil, ErrEndOfScan
		}

		if !s.dataOpen {
			if s.entryIdx >= s.dir.GetEntryCnt() {
				next := s.dir.GetNextPage()
				if err := buf.UnpinPage(s.dirID, bufferpool.UnpinClean); err != nil {
					return page.RID{}, nil, err
				}
				if next == page.InvalidPageID {
					s.done = true
					return page.RID{}, nil, ErrEndOfScan
				}
				pg := page.NewPage()
				if err := buf.PinPage(next, pg, bufferpool.PinDiskIO); err != nil {
					s.done = true
					return page.RID{}, nil, err
				}
				dir, err := page.DirPageFrom(pg)
				if err != nil {
					buf.UnpinPage(next, bufferpool.UnpinClean)
					s.done = true
					return page.RID{}, nil, err
				}
				s.dirID = next
				s.dir = dir
				s.entryIdx = 0
				continue
			}

			dataID := s.dir.GetPageID(s.entryIdx)
			if dataID == page.InvalidPageID {
				s.entryIdx++
				continue
			}
			pg := page.NewPage()
			if err := buf.PinPage(dataID, pg, bufferpool.PinDiskIO); err != nil {
				return page.RID{}, nil, err
			}
			data, err := page.DataPageFrom(pg)
			if err != nil {
				buf.UnpinPage(dataID, bufferpool.UnpinClean)
				return page.RID{}, nil, err
			}
			s.dataID = dataID
			s.data = data
			s.dataOpen = true
			s.slot = 0
		}

		slot, ok := s.data.NextOccupied(s.slot)
		if !ok {
			if err := buf.UnpinPage(s.dataID, bufferpool.UnpinClean); err != nil {
				return page.RID{}, nil, err
			}
			s.dataOpen = false
			s.entryIdx++
			continue
		}

		rid := page.RID{PageID: s.dataID, Slot: slot}
		record, err := s.data.SelectRecord(rid)
		if err != nil {
			return page.RID{}, nil, err
		}
		out := make([]byte, len(record))
		copy(out, record)
		s.slot = slot + 1
		return rid, out, nil
	}
}

// Close releases whatever the scan still has pinned. Safe to call any time,
// including after ErrEndOfScan.
func (s *HeapScan) Close() error {
	if s.done {
		return nil
	}
	buf := s.hf.sys.Buf
	if s.dataOpen {
		if err := buf.UnpinPage(s.dataID, bufferpool.UnpinClean); err != nil {
			return err
		}
		s.dataOpen = false
	}
	if err := buf.UnpinPage(s.dirID, bufferpool.UnpinClean); err != nil {
		return err
	}
	s.done = true
	return nil
}
