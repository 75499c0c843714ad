package engine

import (
	"path/filepath"
	"testing"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heron-db/bufferpool"
	"heron-db/disk"
	"heron-db/logging"
	"heron-db/page"
)

func TestSystemPersistsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heron.db")
	logger := *logging.CreateLogger(log.WarnLevel)
	options := Options{
		Options:  disk.Options{Path: path, Capacity: 64},
		PoolSize: 8,
	}

	sys, err := NewSystem(logger, options)
	require.Nil(t, err)

	pid, err := sys.Disk.AllocatePage()
	require.Nil(t, err)

	pg := page.NewPage()
	copy(pg.Data, []byte("durable bytes"))
	require.Nil(t, sys.Buf.PinPage(pid, pg, bufferpool.PinMemCpy))
	require.Nil(t, sys.Buf.UnpinPage(pid, bufferpool.UnpinDirty))

	// Close flushes dirty frames before the file goes away
	require.Nil(t, sys.Close())

	sys, err = NewSystem(logger, options)
	require.Nil(t, err)
	defer sys.Close()

	back := page.NewPage()
	require.Nil(t, sys.Buf.PinPage(pid, back, bufferpool.PinDiskIO))
	assert.Equal(t, []byte("durable bytes"), back.Data[:13])
	assert.Nil(t, sys.Buf.UnpinPage(pid, bufferpool.UnpinClean))
}
