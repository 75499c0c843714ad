package disk

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/phuslu/log"

	"heron-db/page"
	"heron-db/utils/checksums"
	"heron-db/utils/freelist"
)

/*
Disk file layout

┌──────────────────────────────────────────────────────────────┐
| crc (4byte) | magic (4byte) | capacity (4byte)               |
| firstUsable (4byte)                                          |
|──────────────────────page 0 meta─────────────────────────────|
| freelist bitmap, capacity/8 bytes rounded up to whole pages  |
|──────────────────────────────────────────────────────────────|
| crc (4byte) | length (4byte) | msgpack name -> headId map    |
|──────────────────────registry page───────────────────────────|
| allocatable pages ...                                        |
└──────────────────────────────────────────────────────────────┘

The meta, bitmap and registry pages are marked allocated in the bitmap so
AllocatePage can never hand them out.
*/

const diskMagic = uint32(0x48524E01) // "HRN" + layout version

var (
	ErrPageOutOfRange = fmt.Errorf("page number out of range")
	ErrPageFree       = fmt.Errorf("page is not allocated")
	ErrCorruptMeta    = fmt.Errorf("disk meta corrupted, crc mismatch")
	ErrOutOfPages     = fmt.Errorf("disk file has no free pages")
)

type Options struct {
	Path string
	// Capacity is the total page count of the file, reserved pages included.
	Capacity uint32
}

// Manager owns one page file: fixed size allocation bitmap, the named heap
// file registry, and raw page IO underneath the buffer pool.
type Manager struct {
	logger      log.Logger
	options     Options
	file        *os.File
	bitmapBuf   []byte
	freelist    freelist.FreeList
	registry    *registry
	firstUsable uint32
}

func bitmapPages(capacity uint32) uint32 {
	bytes := (capacity + 7) / 8
	return (bytes + page.PAGE_SIZE - 1) / page.PAGE_SIZE
}

// Open maps the page file at options.Path, creating and formatting it when
// it does not exist yet.
func Open(logger log.Logger, options Options) (*Manager, error) {
	reserved := 1 + bitmapPages(options.Capacity) + 1
	if options.Capacity < reserved+1 {
		return nil, fmt.Errorf("capacity %d leaves no allocatable pages", options.Capacity)
	}

	_, statErr := os.Stat(options.Path)
	freshFile := statErr != nil

	file, err := os.OpenFile(options.Path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		logger.Error().Err(err).Msgf("failed to open page file : %s", options.Path)
		return nil, err
	}

	m := &Manager{
		logger:      logger,
		options:     options,
		file:        file,
		bitmapBuf:   make([]byte, bitmapPages(options.Capacity)*page.PAGE_SIZE),
		registry:    newRegistry(),
		firstUsable: reserved,
	}
	m.freelist = freelist.NewBitmapFreeList(m.bitmapBuf, 0, uint64(options.Capacity)-1)

	if freshFile {
		if err := m.format(); err != nil {
			file.Close()
			return nil, err
		}
		logger.Info().Str("file", options.Path).Msgf("formatted page file with %d pages", options.Capacity)
		return m, nil
	}

	if err := m.load(); err != nil {
		file.Close()
		return nil, err
	}
	return m, nil
}

func (m *Manager) format() error {
	if err := m.file.Truncate(int64(m.options.Capacity) * int64(page.PAGE_SIZE)); err != nil {
		m.logger.Error().Err(err).Msg("failed to size page file")
		return err
	}

	// reserve the meta, bitmap and registry pages
	if _, err := m.freelist.GetPages(uint64(m.firstUsable)); err != nil {
		return err
	}

	meta := make([]byte, page.PAGE_SIZE)
	binary.BigEndian.PutUint32(meta[4:8], diskMagic)
	binary.BigEndian.PutUint32(meta[8:12], m.options.Capacity)
	binary.BigEndian.PutUint32(meta[12:16], m.firstUsable)
	checksums.CalculateCRC(meta[0:4], meta[4:])
	if _, err := m.file.WriteAt(meta, 0); err != nil {
		m.logger.Error().Err(err).Msg("failed to write meta page")
		return err
	}

	if err := m.flushBitmap(); err != nil {
		return err
	}
	if err := m.flushRegistry(); err != nil {
		return err
	}
	return m.file.Sync()
}

func (m *Manager) load() error {
	meta := make([]byte, page.PAGE_SIZE)
	if _, err := m.file.ReadAt(meta, 0); err != nil {
		m.logger.Error().Err(err).Msg("failed to read meta page")
		return err
	}
	if !checksums.VerifyCRC(meta[0:4], meta[4:]) {
		return ErrCorruptMeta
	}
	if binary.BigEndian.Uint32(meta[4:8]) != diskMagic {
		return fmt.Errorf("%w: bad magic", ErrCorruptMeta)
	}
	if got := binary.BigEndian.Uint32(meta[8:12]); got != m.options.Capacity {
		return fmt.Errorf("page file has capacity %d, options ask for %d", got, m.options.Capacity)
	}
	m.firstUsable = binary.BigEndian.Uint32(meta[12:16])

	if _, err := m.file.ReadAt(m.bitmapBuf, int64(page.PAGE_SIZE)); err != nil {
		m.logger.Error().Err(err).Msg("failed to read freelist bitmap")
		return err
	}
	return m.loadRegistry()
}

func (m *Manager) registryPageID() page.PageID {
	return page.PageID(1 + bitmapPages(m.options.Capacity))
}

func (m *Manager) flushBitmap() error {
	if _, err := m.file.WriteAt(m.bitmapBuf, int64(page.PAGE_SIZE)); err != nil {
		m.logger.Error().Err(err).Msg("failed to write freelist bitmap")
		return err
	}
	return nil
}

// AllocatePage reserves a fresh page and returns its id. The page contents
// on disk are whatever was there before; callers install real contents
// through the buffer pool.
func (m *Manager) AllocatePage() (page.PageID, error) {
	pid, err := m.freelist.Get()
	if err != nil {
		m.logger.Error().Err(err).Msg("page allocation failed")
		return page.InvalidPageID, ErrOutOfPages
	}
	if err := m.flushBitmap(); err != nil {
		m.freelist.Release(pid)
		return page.InvalidPageID, err
	}
	m.logger.Debug().Msgf("allocated page %d", pid)
	return page.PageID(pid), nil
}

// DeallocatePage returns a page to the freelist.
func (m *Manager) DeallocatePage(pid page.PageID) error {
	if err := m.checkRange(pid); err != nil {
		return err
	}
	if m.freelist.IsFree(uint64(pid)) {
		return fmt.Errorf("%w: page %d", ErrPageFree, pid)
	}
	m.freelist.Release(uint64(pid))
	if err := m.flushBitmap(); err != nil {
		return err
	}
	m.logger.Debug().Msgf("freed page %d", pid)
	return nil
}

func (m *Manager) checkRange(pid page.PageID) error {
	if pid < page.PageID(m.firstUsable) || uint32(pid) >= m.options.Capacity {
		return fmt.Errorf("%w: page %d", ErrPageOutOfRange, pid)
	}
	return nil
}

// ReadPage fills buffer with the on-disk contents of pid.
func (m *Manager) ReadPage(pid page.PageID, buffer []byte) error {
	if err := m.checkRange(pid); err != nil {
		return err
	}
	_, err := m.file.ReadAt(buffer[:page.PAGE_SIZE], int64(pid)*int64(page.PAGE_SIZE))
	if err != nil {
		m.logger.Error().Err(err).Msgf("failed to read page %d", pid)
	}
	return err
}

// WritePage persists buffer as the contents of pid.
func (m *Manager) WritePage(pid page.PageID, buffer []byte) error {
	if err := m.checkRange(pid); err != nil {
		return err
	}
	_, err := m.file.WriteAt(buffer[:page.PAGE_SIZE], int64(pid)*int64(page.PAGE_SIZE))
	if err != nil {
		m.logger.Error().Err(err).Msgf("failed to write page %d", pid)
	}
	return err
}

// FreePagesAvailable reports how many pages AllocatePage can still hand out.
func (m *Manager) FreePagesAvailable() uint64 {
	return m.freelist.FreePagesAvailable()
}

// IsAllocated reports whether pid is currently handed out.
func (m *Manager) IsAllocated(pid page.PageID) bool {
	if m.checkRange(pid) != nil {
		return false
	}
	return !m.freelist.IsFree(uint64(pid))
}

func (m *Manager) Close() error {
	if err := m.file.Sync(); err != nil {
		m.logger.Error().Err(err).Msg("failed to sync page file on close")
		return err
	}
	return m.file.Close()
}
