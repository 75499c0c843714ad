package bufferpool

import (
	"fmt"

	"github.com/phuslu/log"

	"heron-db/disk"
	"heron-db/metrics"
	"heron-db/page"
	"heron-db/utils/cache"
)

/*
The buffer pool keeps a bounded set of page frames in memory. Callers pin a
page to get frame-backed bytes, mutate them through a typed page view, and
unpin with a clean/dirty verdict. Dirty frames are written back when they are
evicted or when Flush runs; a pinned frame is never evicted.

Two pin modes, matching how pages enter the pool:
  - PinDiskIO   the frame is filled from disk (or reused if already resident)
  - PinMemCpy   the caller's page buffer is copied into the frame, skipping
                the disk read. Used to install freshly allocated pages whose
                on-disk bytes are garbage.
*/

type PinMode int

const (
	PinDiskIO PinMode = iota
	PinMemCpy
)

type UnpinState int

const (
	UnpinClean UnpinState = iota
	UnpinDirty
)

var (
	ErrPoolFull        = fmt.Errorf("buffer pool full, all frames pinned")
	ErrPageNotResident = fmt.Errorf("page has no frame in the buffer pool")
	ErrPageNotPinned   = fmt.Errorf("page frame is not pinned")
	ErrPagePinned      = fmt.Errorf("page frame is still pinned")
)

type frame struct {
	pid      page.PageID
	data     []byte
	pinCount int
	dirty    bool
}

type Options struct {
	PoolSize int
}

type BufferManager struct {
	logger  log.Logger
	disk    *disk.Manager
	metrics *metrics.Set
	frames  cache.Cache[page.PageID, *frame]
	options Options
}

func NewBufferManager(logger log.Logger, diskManager *disk.Manager, set *metrics.Set, options Options) *BufferManager {
	return &BufferManager{
		logger:  logger,
		disk:    diskManager,
		metrics: set,
		frames:  cache.NewLRUCache[page.PageID, *frame](options.PoolSize),
		options: options,
	}
}

// PinPage binds pg.Data to the frame holding pid and bumps the pin count.
// With PinMemCpy the current contents of pg.Data are copied into the frame
// first; with PinDiskIO a non resident page is read from disk.
func (bm *BufferManager) PinPage(pid page.PageID, pg *page.Page, mode PinMode) error {
	if f, ok := bm.frames.Get(pid); ok {
		if mode == PinMemCpy && &f.data[0] != &pg.Data[0] {
			copy(f.data, pg.Data)
		}
		f.pinCount++
		pg.Data = f.data
		bm.metrics.PagePins.Inc()
		return nil
	}

	f, err := bm.grabFrame()
	if err != nil {
		return err
	}

	switch mode {
	case PinDiskIO:
		if err := bm.disk.ReadPage(pid, f.data); err != nil {
			return err
		}
		bm.metrics.PageFaults.Inc()
	case PinMemCpy:
		copy(f.data, pg.Data)
	}

	f.pid = pid
	f.pinCount = 1
	f.dirty = false
	bm.frames.Put(pid, f)
	pg.Data = f.data
	bm.metrics.PagePins.Inc()
	return nil
}

// grabFrame returns a fresh frame, evicting the coldest unpinned one when
// the pool is at capacity. Dirty victims are written back before reuse.
func (bm *BufferManager) grabFrame() (*frame, error) {
	if bm.frames.Size() < bm.options.PoolSize {
		return &frame{data: make([]byte, page.PAGE_SIZE)}, nil
	}

	_, victim, ok := bm.frames.Victim(func(_ page.PageID, f *frame) bool {
		if f.pinCount > 0 {
			return false
		}
		if f.dirty {
			if err := bm.disk.WritePage(f.pid, f.data); err != nil {
				bm.logger.Error().Err(err).Msgf("write back of page %d failed, keeping frame", f.pid)
				return false
			}
			f.dirty = false
		}
		return true
	})
	if !ok {
		return nil, ErrPoolFull
	}
	return victim, nil
}

// UnpinPage releases one pin. UnpinDirty marks the frame for write back.
func (bm *BufferManager) UnpinPage(pid page.PageID, state UnpinState) error {
	f, ok := bm.frames.Get(pid)
	if !ok {
		return fmt.Errorf("%w: page %d", ErrPageNotResident, pid)
	}
	if f.pinCount < 1 {
		return fmt.Errorf("%w: page %d", ErrPageNotPinned, pid)
	}
	f.pinCount--
	if state == UnpinDirty {
		f.dirty = true
	}
	bm.metrics.PageUnpins.Inc()
	return nil
}

// FreePage drops the page's frame without write back and returns the disk
// page to the freelist. Fails while the frame is pinned.
func (bm *BufferManager) FreePage(pid page.PageID) error {
	if f, ok := bm.frames.Get(pid); ok {
		if f.pinCount > 0 {
			return fmt.Errorf("%w: page %d has %d pins", ErrPagePinned, pid, f.pinCount)
		}
		bm.frames.Remove(pid)
	}
	if err := bm.disk.DeallocatePage(pid); err != nil {
		return err
	}
	bm.metrics.PagesFreed.Inc()
	return nil
}

// Flush writes every dirty frame back to disk. Pinned frames are flushed
// too; their in-memory contents stay authoritative.
func (bm *BufferManager) Flush() error {
	var flushErr error
	bm.frames.Range(func(pid page.PageID, f *frame) bool {
		if !f.dirty {
			return true
		}
		if err := bm.disk.WritePage(pid, f.data); err != nil {
			flushErr = err
			return false
		}
		f.dirty = false
		return true
	})
	return flushErr
}

// PinCount reports the pin count of a resident page, 0 otherwise.
func (bm *BufferManager) PinCount(pid page.PageID) int {
	f, ok := bm.frames.Get(pid)
	if !ok {
		return 0
	}
	return f.pinCount
}

// PinnedFrames counts frames with at least one pin. Every public heap file
// operation must leave this number where it found it.
func (bm *BufferManager) PinnedFrames() int {
	pinned := 0
	bm.frames.Range(func(_ page.PageID, f *frame) bool {
		if f.pinCount > 0 {
			pinned++
		}
		return true
	})
	return pinned
}
