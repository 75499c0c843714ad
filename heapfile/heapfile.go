package heapfile

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"heron-db/bufferpool"
	"heron-db/engine"
	"heron-db/page"
)

/*
A heap file is an unordered collection of variable length records spread
over data pages. The data pages are tracked by a directory: a doubly linked
list of directory pages whose entries carry (data page id, record count,
free byte count) per data page.

┌─────────────┐      ┌─────────────┐      ┌─────────────┐
| head dir    |<---->| dir page    |<---->| dir page    |
| e0 e1 e2 .. |      | e0 e1 ..    |      | e0 ..       |
└──┬──┬───────┘      └──┬──────────┘      └─────────────┘
   |  |                 |
   v  v                 v
 data pages           data pages

The head directory page lives for the whole life of the file, even when all
its entries are gone. Every other structure page is reclaimed as soon as it
stops carrying records.
*/

var (
	ErrRecordTooLarge = fmt.Errorf("record exceeds the per page maximum")
	ErrFileClosed     = fmt.Errorf("heap file handle is closed")
)

type HeapFile struct {
	logger  log.Logger
	sys     *engine.System
	name    string // empty for temporary files
	tempTag string
	headID  page.PageID
	isTemp  bool
	closed  bool
}

// Open binds a handle to the named heap file, creating it when the name is
// not registered yet. An empty name produces a temporary file with no
// registry entry; closing the handle destroys it.
func Open(sys *engine.System, name string) (*HeapFile, error) {
	hf := &HeapFile{
		logger: sys.Logger,
		sys:    sys,
		name:   name,
		isTemp: name == "",
	}

	if hf.isTemp {
		hf.tempTag = "tmp-" + uuid.New().String()[:8]
		if err := hf.create(); err != nil {
			return nil, err
		}
		return hf, nil
	}

	if headID, ok := sys.Disk.GetFileEntry(name); ok {
		hf.headID = headID
		return hf, nil
	}
	if err := hf.create(); err != nil {
		return nil, err
	}
	return hf, nil
}

// create allocates and installs the head directory page, and registers the
// name for non temporary files.
func (hf *HeapFile) create() error {
	headID, err := hf.sys.Disk.AllocatePage()
	if err != nil {
		return err
	}
	hf.sys.Metrics.PagesAllocated.Inc()

	pg := page.NewPage()
	page.InitDirPage(pg, headID)
	if err := hf.sys.Buf.PinPage(headID, pg, bufferpool.PinMemCpy); err != nil {
		return err
	}
	if err := hf.sys.Buf.UnpinPage(headID, bufferpool.UnpinDirty); err != nil {
		return err
	}
	hf.headID = headID

	if !hf.isTemp {
		if err := hf.sys.Disk.AddFileEntry(hf.name, headID); err != nil {
			hf.sys.Buf.FreePage(headID)
			return err
		}
	}
	hf.logger.Debug().Msgf("created heap file %s with head page %d", hf, headID)
	return nil
}

func (hf *HeapFile) guard() error {
	if hf.closed {
		return fmt.Errorf("%w: %s", ErrFileClosed, hf)
	}
	return nil
}

// Destroy frees every page the file owns, head directory page included, and
// removes the registry entry of a named file. The handle is inert afterwards.
func (hf *HeapFile) Destroy() error {
	if err := hf.guard(); err != nil {
		return err
	}

	dirID := hf.headID
	for dirID != page.InvalidPageID {
		pg := page.NewPage()
		if err := hf.sys.Buf.PinPage(dirID, pg, bufferpool.PinDiskIO); err != nil {
			return err
		}
		dir, err := page.DirPageFrom(pg)
		if err != nil {
			hf.sys.Buf.UnpinPage(dirID, bufferpool.UnpinClean)
			return err
		}

		for i := 0; i < dir.GetEntryCnt(); i++ {
			dataID := dir.GetPageID(i)
			if dataID == page.InvalidPageID {
				continue
			}
			if err := hf.sys.Buf.FreePage(dataID); err != nil {
				hf.sys.Buf.UnpinPage(dirID, bufferpool.UnpinClean)
				return err
			}
		}

		next := dir.GetNextPage()
		if err := hf.sys.Buf.UnpinPage(dirID, bufferpool.UnpinClean); err != nil {
			return err
		}
		if err := hf.sys.Buf.FreePage(dirID); err != nil {
			return err
		}
		dirID = next
	}

	if !hf.isTemp {
		if err := hf.sys.Disk.DeleteFileEntry(hf.name); err != nil {
			return err
		}
	}
	hf.closed = true
	hf.logger.Debug().Msgf("destroyed heap file %s", hf)
	return nil
}

// Close releases the handle. Temporary files are destroyed; named files keep
// their pages and registry entry, only the handle becomes inert.
func (hf *HeapFile) Close() error {
	if hf.closed {
		return nil
	}
	if hf.isTemp {
		return hf.Destroy()
	}
	hf.closed = true
	return nil
}

// InsertRecord stores the record on a page with room for it, growing the
// file when no page qualifies, and returns the record's stable id.
func (hf *HeapFile) InsertRecord(record []byte) (page.RID, error) {
	if err := hf.guard(); err != nil {
		return page.RID{}, err
	}
	if len(record) > page.MAX_RECORD_SIZE {
		return page.RID{}, fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, len(record))
	}

	dataID, err := hf.getAvailPage(len(record))
	if err != nil {
		return page.RID{}, err
	}

	pg := page.NewPage()
	if err := hf.sys.Buf.PinPage(dataID, pg, bufferpool.PinDiskIO); err != nil {
		return page.RID{}, err
	}
	dp, err := page.DataPageFrom(pg)
	if err != nil {
		hf.sys.Buf.UnpinPage(dataID, bufferpool.UnpinClean)
		return page.RID{}, err
	}

	rid, err := dp.InsertRecord(record)
	if err != nil {
		hf.sys.Buf.UnpinPage(dataID, bufferpool.UnpinClean)
		return page.RID{}, err
	}
	freeSpace := dp.FreeSpace()
	if err := hf.sys.Buf.UnpinPage(dataID, bufferpool.UnpinDirty); err != nil {
		return page.RID{}, err
	}

	if err := hf.updateDirEntry(dataID, 1, freeSpace); err != nil {
		return page.RID{}, err
	}
	hf.sys.Metrics.RecordsInserted.Inc()
	return rid, nil
}

// pinDataPage pins rid's page and binds a data page view, translating every
// way a rid can point nowhere into ErrInvalidRid.
func (hf *HeapFile) pinDataPage(rid page.RID) (*page.DataPage, error) {
	if rid.PageID == page.InvalidPageID || !hf.sys.Disk.IsAllocated(rid.PageID) {
		return nil, fmt.Errorf("%w: %v", page.ErrInvalidRid, rid)
	}
	pg := page.NewPage()
	if err := hf.sys.Buf.PinPage(rid.PageID, pg, bufferpool.PinDiskIO); err != nil {
		return nil, err
	}
	dp, err := page.DataPageFrom(pg)
	if err != nil {
		hf.sys.Buf.UnpinPage(rid.PageID, bufferpool.UnpinClean)
		return nil, fmt.Errorf("%w: %v is not on a data page", page.ErrInvalidRid, rid)
	}
	return dp, nil
}

// SelectRecord returns a copy of the record bytes.
func (hf *HeapFile) SelectRecord(rid page.RID) ([]byte, error) {
	if err := hf.guard(); err != nil {
		return nil, err
	}
	dp, err := hf.pinDataPage(rid)
	if err != nil {
		return nil, err
	}

	record, err := dp.SelectRecord(rid)
	if err != nil {
		hf.sys.Buf.UnpinPage(rid.PageID, bufferpool.UnpinClean)
		return nil, err
	}
	// the frame is reusable the moment we unpin, so copy out first
	out := make([]byte, len(record))
	copy(out, record)

	if err := hf.sys.Buf.UnpinPage(rid.PageID, bufferpool.UnpinClean); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateRecord overwrites a record in place. The length must not change.
func (hf *HeapFile) UpdateRecord(rid page.RID, record []byte) error {
	if err := hf.guard(); err != nil {
		return err
	}
	dp, err := hf.pinDataPage(rid)
	if err != nil {
		return err
	}
	if err := dp.UpdateRecord(rid, record); err != nil {
		hf.sys.Buf.UnpinPage(rid.PageID, bufferpool.UnpinClean)
		return err
	}
	return hf.sys.Buf.UnpinPage(rid.PageID, bufferpool.UnpinDirty)
}

// DeleteRecord removes the record and reconciles the directory. Emptied data
// pages are reclaimed, and so are directory pages they leave behind.
func (hf *HeapFile) DeleteRecord(rid page.RID) error {
	if err := hf.guard(); err != nil {
		return err
	}
	dp, err := hf.pinDataPage(rid)
	if err != nil {
		return err
	}
	if err := dp.DeleteRecord(rid); err != nil {
		hf.sys.Buf.UnpinPage(rid.PageID, bufferpool.UnpinClean)
		return err
	}
	freeSpace := dp.FreeSpace()
	if err := hf.sys.Buf.UnpinPage(rid.PageID, bufferpool.UnpinDirty); err != nil {
		return err
	}

	if err := hf.updateDirEntry(rid.PageID, -1, freeSpace); err != nil {
		return err
	}
	hf.sys.Metrics.RecordsDeleted.Inc()
	return nil
}

// RecordCount sums the record counts over every directory entry.
func (hf *HeapFile) RecordCount() (int, error) {
	if err := hf.guard(); err != nil {
		return 0, err
	}

	count := 0
	dirID := hf.headID
	for dirID != page.InvalidPageID {
		pg := page.NewPage()
		if err := hf.sys.Buf.PinPage(dirID, pg, bufferpool.PinDiskIO); err != nil {
			return 0, err
		}
		dir, err := page.DirPageFrom(pg)
		if err != nil {
			hf.sys.Buf.UnpinPage(dirID, bufferpool.UnpinClean)
			return 0, err
		}
		for i := 0; i < dir.GetEntryCnt(); i++ {
			count += dir.GetRecCnt(i)
		}
		next := dir.GetNextPage()
		if err := hf.sys.Buf.UnpinPage(dirID, bufferpool.UnpinClean); err != nil {
			return 0, err
		}
		dirID = next
	}
	return count, nil
}

// HeadID exposes the head directory page id for tests and tooling.
func (hf *HeapFile) HeadID() page.PageID {
	return hf.headID
}

func (hf *HeapFile) String() string {
	if hf.isTemp {
		return hf.tempTag
	}
	return hf.name
}
