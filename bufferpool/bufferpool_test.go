package bufferpool

import (
	"path/filepath"
	"testing"

	"github.com/phuslu/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heron-db/disk"
	"heron-db/logging"
	"heron-db/metrics"
	"heron-db/page"
)

func newTestPool(t *testing.T, poolSize int) (*BufferManager, *disk.Manager) {
	t.Helper()
	logger := *logging.CreateLogger(log.WarnLevel)
	m, err := disk.Open(logger, disk.Options{
		Path:     filepath.Join(t.TempDir(), "pages.db"),
		Capacity: 64,
	})
	require.Nil(t, err)
	t.Cleanup(func() { m.Close() })

	set := metrics.New(prometheus.NewRegistry())
	return NewBufferManager(logger, m, set, Options{PoolSize: poolSize}), m
}

func TestPinUnpin(t *testing.T) {
	bm, m := newTestPool(t, 4)

	pid, err := m.AllocatePage()
	require.Nil(t, err)

	pg := page.NewPage()
	pg.Data[0] = 0xEE
	assert.Nil(t, bm.PinPage(pid, pg, PinMemCpy))
	assert.Equal(t, 1, bm.PinCount(pid))
	assert.Equal(t, 1, bm.PinnedFrames())

	// a second pin of a resident page shares the frame
	other := page.NewPage()
	assert.Nil(t, bm.PinPage(pid, other, PinDiskIO))
	assert.Equal(t, 2, bm.PinCount(pid))
	assert.Equal(t, byte(0xEE), other.Data[0])

	assert.Nil(t, bm.UnpinPage(pid, UnpinClean))
	assert.Nil(t, bm.UnpinPage(pid, UnpinDirty))
	assert.Equal(t, 0, bm.PinnedFrames())

	assert.ErrorIs(t, bm.UnpinPage(pid, UnpinClean), ErrPageNotPinned)
	assert.ErrorIs(t, bm.UnpinPage(page.PageID(60), UnpinClean), ErrPageNotResident)
}

func TestDirtyWriteBackOnEviction(t *testing.T) {
	bm, m := newTestPool(t, 2)

	pid, err := m.AllocatePage()
	require.Nil(t, err)

	pg := page.NewPage()
	pg.Data[0] = 0x11
	require.Nil(t, bm.PinPage(pid, pg, PinMemCpy))
	require.Nil(t, bm.UnpinPage(pid, UnpinDirty))

	// fill the pool so the dirty frame gets evicted
	for i := 0; i < 2; i++ {
		other, err := m.AllocatePage()
		require.Nil(t, err)
		scratch := page.NewPage()
		require.Nil(t, bm.PinPage(other, scratch, PinMemCpy))
		require.Nil(t, bm.UnpinPage(other, UnpinClean))
	}

	got := make([]byte, page.PAGE_SIZE)
	require.Nil(t, m.ReadPage(pid, got))
	assert.Equal(t, byte(0x11), got[0])

	// and a DiskIO pin reads it back faithfully
	back := page.NewPage()
	require.Nil(t, bm.PinPage(pid, back, PinDiskIO))
	assert.Equal(t, byte(0x11), back.Data[0])
	assert.Nil(t, bm.UnpinPage(pid, UnpinClean))
}

func TestPoolFull(t *testing.T) {
	bm, m := newTestPool(t, 2)

	pids := make([]page.PageID, 3)
	for i := range pids {
		pid, err := m.AllocatePage()
		require.Nil(t, err)
		pids[i] = pid
	}

	for i := 0; i < 2; i++ {
		pg := page.NewPage()
		require.Nil(t, bm.PinPage(pids[i], pg, PinMemCpy))
	}

	pg := page.NewPage()
	assert.ErrorIs(t, bm.PinPage(pids[2], pg, PinDiskIO), ErrPoolFull)

	require.Nil(t, bm.UnpinPage(pids[0], UnpinClean))
	assert.Nil(t, bm.PinPage(pids[2], pg, PinDiskIO))
	assert.Nil(t, bm.UnpinPage(pids[2], UnpinClean))
	assert.Nil(t, bm.UnpinPage(pids[1], UnpinClean))
}

func TestFreePage(t *testing.T) {
	bm, m := newTestPool(t, 4)

	pid, err := m.AllocatePage()
	require.Nil(t, err)

	pg := page.NewPage()
	require.Nil(t, bm.PinPage(pid, pg, PinMemCpy))
	assert.ErrorIs(t, bm.FreePage(pid), ErrPagePinned)

	require.Nil(t, bm.UnpinPage(pid, UnpinDirty))
	assert.Nil(t, bm.FreePage(pid))
	assert.False(t, m.IsAllocated(pid))

	// freeing a page with no resident frame goes straight to disk
	pid2, err := m.AllocatePage()
	require.Nil(t, err)
	assert.Nil(t, bm.FreePage(pid2))
}

func TestFlush(t *testing.T) {
	bm, m := newTestPool(t, 4)

	pid, err := m.AllocatePage()
	require.Nil(t, err)

	pg := page.NewPage()
	pg.Data[100] = 0x77
	require.Nil(t, bm.PinPage(pid, pg, PinMemCpy))
	require.Nil(t, bm.UnpinPage(pid, UnpinDirty))

	require.Nil(t, bm.Flush())

	got := make([]byte, page.PAGE_SIZE)
	require.Nil(t, m.ReadPage(pid, got))
	assert.Equal(t, byte(0x77), got[100])
}
