package heapfile

import (
	"fmt"

	"heron-db/bufferpool"
	"heron-db/page"
)

/*
Directory maintenance. The directory is walked with exactly one directory
page pinned at a time; helpers that hand a pinned page back to the caller
say so explicitly. Growth appends entries at the tail of the first directory
page with capacity; shrinkage compacts entries and splices empty directory
pages out of the linked list. The head directory page is never freed here,
only Destroy takes it down.
*/

// getAvailPage returns a data page with at least recLen + SLOT_SIZE free
// bytes, first fit in directory order, allocating a fresh data page when no
// existing one qualifies.
func (hf *HeapFile) getAvailPage(recLen int) (page.PageID, error) {
	if recLen > page.MAX_RECORD_SIZE {
		return page.InvalidPageID, fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, recLen)
	}
	need := recLen + int(page.SLOT_SIZE)

	dirID := hf.headID
	for dirID != page.InvalidPageID {
		pg := page.NewPage()
		if err := hf.sys.Buf.PinPage(dirID, pg, bufferpool.PinDiskIO); err != nil {
			return page.InvalidPageID, err
		}
		dir, err := page.DirPageFrom(pg)
		if err != nil {
			hf.sys.Buf.UnpinPage(dirID, bufferpool.UnpinClean)
			return page.InvalidPageID, err
		}

		for i := 0; i < dir.GetEntryCnt(); i++ {
			if dir.GetFreeCnt(i) >= need {
				dataID := dir.GetPageID(i)
				if err := hf.sys.Buf.UnpinPage(dirID, bufferpool.UnpinClean); err != nil {
					return page.InvalidPageID, err
				}
				return dataID, nil
			}
		}

		next := dir.GetNextPage()
		if err := hf.sys.Buf.UnpinPage(dirID, bufferpool.UnpinClean); err != nil {
			return page.InvalidPageID, err
		}
		dirID = next
	}

	return hf.insertPage()
}

// findDirEntry locates the directory entry describing dataID. On a hit the
// directory page comes back pinned and the caller owns the unpin; the usual
// next step is mutating the entry and unpinning dirty, and a forced unpin
// here would just buy a second pin. index is -1 when dataID has no entry,
// with nothing left pinned.
func (hf *HeapFile) findDirEntry(dataID page.PageID) (page.PageID, *page.DirPage, int, error) {
	dirID := hf.headID
	for dirID != page.InvalidPageID {
		pg := page.NewPage()
		if err := hf.sys.Buf.PinPage(dirID, pg, bufferpool.PinDiskIO); err != nil {
			return page.InvalidPageID, nil, -1, err
		}
		dir, err := page.DirPageFrom(pg)
		if err != nil {
			hf.sys.Buf.UnpinPage(dirID, bufferpool.UnpinClean)
			return page.InvalidPageID, nil, -1, err
		}

		for i := 0; i < dir.GetEntryCnt(); i++ {
			if dir.GetPageID(i) == dataID {
				return dirID, dir, i, nil
			}
		}

		next := dir.GetNextPage()
		if err := hf.sys.Buf.UnpinPage(dirID, bufferpool.UnpinClean); err != nil {
			return page.InvalidPageID, nil, -1, err
		}
		dirID = next
	}
	return page.InvalidPageID, nil, -1, nil
}

// updateDirEntry reconciles the entry for dataID after an insert or delete:
// record count moves by deltaRec, free count is replaced with the page's
// current value. A record count below one hands the page to deletePage.
func (hf *HeapFile) updateDirEntry(dataID page.PageID, deltaRec int, newFreeCount int) error {
	dirID, dir, index, err := hf.findDirEntry(dataID)
	if err != nil {
		return err
	}
	if index == -1 {
		return fmt.Errorf("%w: data page %d has no directory entry", page.ErrInvalidRid, dataID)
	}

	dir.SetRecCnt(index, dir.GetRecCnt(index)+deltaRec)
	dir.SetFreeCnt(index, newFreeCount)
	recCnt := dir.GetRecCnt(index)

	// deletePage works on a private copy of the directory page: once the
	// frame is unpinned it may be recycled under us, and the reclaim path
	// pins other pages before writing this one back.
	var snapshot *page.Page
	if recCnt < 1 {
		snapshot = page.NewPage()
		copy(snapshot.Data, dir.Page().Data)
	}

	if err := hf.sys.Buf.UnpinPage(dirID, bufferpool.UnpinDirty); err != nil {
		return err
	}

	if recCnt < 1 {
		dir, err := page.DirPageFrom(snapshot)
		if err != nil {
			return err
		}
		return hf.deletePage(dataID, dirID, dir, index)
	}
	return nil
}

// insertPage allocates one data page, installs its entry on the first
// directory page with spare capacity, chaining a new directory page when
// every existing one is full, and returns the data page id. Nothing stays
// pinned.
func (hf *HeapFile) insertPage() (page.PageID, error) {
	dirID := hf.headID
	pg := page.NewPage()
	if err := hf.sys.Buf.PinPage(dirID, pg, bufferpool.PinDiskIO); err != nil {
		return page.InvalidPageID, err
	}
	dir, err := page.DirPageFrom(pg)
	if err != nil {
		hf.sys.Buf.UnpinPage(dirID, bufferpool.UnpinClean)
		return page.InvalidPageID, err
	}

	for {
		if dir.GetEntryCnt() < dir.GetMaxEntries() {
			dataID, err := hf.sys.Disk.AllocatePage()
			if err != nil {
				hf.sys.Buf.UnpinPage(dirID, bufferpool.UnpinClean)
				return page.InvalidPageID, err
			}
			hf.sys.Metrics.PagesAllocated.Inc()

			dataPg := page.NewPage()
			dataView := page.InitDataPage(dataPg, dataID)

			index := dir.GetEntryCnt()
			dir.SetPageID(index, dataID)
			dir.SetRecCnt(index, 0)
			dir.SetFreeCnt(index, dataView.FreeSpace())
			dir.SetEntryCnt(index + 1)

			if err := hf.sys.Buf.PinPage(dataID, dataPg, bufferpool.PinMemCpy); err != nil {
				hf.sys.Buf.UnpinPage(dirID, bufferpool.UnpinClean)
				return page.InvalidPageID, err
			}
			if err := hf.sys.Buf.UnpinPage(dirID, bufferpool.UnpinDirty); err != nil {
				hf.sys.Buf.UnpinPage(dataID, bufferpool.UnpinClean)
				return page.InvalidPageID, err
			}
			if err := hf.sys.Buf.UnpinPage(dataID, bufferpool.UnpinDirty); err != nil {
				return page.InvalidPageID, err
			}
			hf.logger.Debug().Msgf("heap file %s grew data page %d under dir page %d", hf, dataID, dirID)
			return dataID, nil
		}

		next := dir.GetNextPage()
		if next != page.InvalidPageID {
			if err := hf.sys.Buf.UnpinPage(dirID, bufferpool.UnpinClean); err != nil {
				return page.InvalidPageID, err
			}
			dirID = next
			pg = page.NewPage()
			if err := hf.sys.Buf.PinPage(dirID, pg, bufferpool.PinDiskIO); err != nil {
				return page.InvalidPageID, err
			}
			if dir, err = page.DirPageFrom(pg); err != nil {
				hf.sys.Buf.UnpinPage(dirID, bufferpool.UnpinClean)
				return page.InvalidPageID, err
			}
			continue
		}

		// every directory page is full, chain a new one at the tail
		newDirID, err := hf.sys.Disk.AllocatePage()
		if err != nil {
			hf.sys.Buf.UnpinPage(dirID, bufferpool.UnpinClean)
			return page.InvalidPageID, err
		}
		hf.sys.Metrics.PagesAllocated.Inc()

		dir.SetNextPage(newDirID)
		if err := hf.sys.Buf.UnpinPage(dirID, bufferpool.UnpinDirty); err != nil {
			return page.InvalidPageID, err
		}

		newPg := page.NewPage()
		newDir := page.InitDirPage(newPg, newDirID)
		newDir.SetPrevPage(dirID)
		if err := hf.sys.Buf.PinPage(newDirID, newPg, bufferpool.PinMemCpy); err != nil {
			return page.InvalidPageID, err
		}
		hf.logger.Debug().Msgf("heap file %s grew dir page %d after %d", hf, newDirID, dirID)
		dirID = newDirID
		pg = newPg
		dir = newDir
	}
}

// deletePage reclaims an emptied data page and its directory entry. When the
// entry was the last one on a non head directory page, that page is spliced
// out of the linked list and freed too. dir is an unpinned private copy of
// the directory page; the clear-in-place path installs it back with a MemCpy
// pin.
func (hf *HeapFile) deletePage(dataID page.PageID, dirID page.PageID, dir *page.DirPage, index int) error {
	prev := dir.GetPrevPage()
	next := dir.GetNextPage()

	// The head directory page always survives (even empty) so the file
	// keeps a valid head; it takes the clear-in-place path below.
	if dir.GetEntryCnt() < 2 && dirID != hf.headID {
		if next != page.InvalidPageID {
			if err := hf.relinkDirPage(next, prev, false); err != nil {
				return err
			}
		}
		if prev != page.InvalidPageID {
			if err := hf.relinkDirPage(prev, next, true); err != nil {
				return err
			}
		}
		if err := hf.sys.Buf.FreePage(dirID); err != nil {
			return err
		}
		hf.logger.Debug().Msgf("heap file %s spliced out dir page %d", hf, dirID)
	} else {
		dir.SetPageID(index, page.InvalidPageID)
		dir.SetRecCnt(index, 0)
		dir.SetFreeCnt(index, 0)
		dir.Compact(index)
		dir.SetEntryCnt(dir.GetEntryCnt() - 1)

		if err := hf.sys.Buf.PinPage(dirID, dir.Page(), bufferpool.PinMemCpy); err != nil {
			return err
		}
		if err := hf.sys.Buf.UnpinPage(dirID, bufferpool.UnpinDirty); err != nil {
			return err
		}
	}

	if err := hf.sys.Buf.FreePage(dataID); err != nil {
		return err
	}
	hf.logger.Debug().Msgf("heap file %s reclaimed data page %d", hf, dataID)
	return nil
}

// relinkDirPage points one neighbour of a spliced directory page across the
// gap: its next pointer when setNext is true, else its prev pointer.
func (hf *HeapFile) relinkDirPage(target page.PageID, to page.PageID, setNext bool) error {
	pg := page.NewPage()
	if err := hf.sys.Buf.PinPage(target, pg, bufferpool.PinDiskIO); err != nil {
		return err
	}
	dir, err := page.DirPageFrom(pg)
	if err != nil {
		hf.sys.Buf.UnpinPage(target, bufferpool.UnpinClean)
		return err
	}
	if setNext {
		dir.SetNextPage(to)
	} else {
		dir.SetPrevPage(to)
	}
	return hf.sys.Buf.UnpinPage(target, bufferpool.UnpinDirty)
}
