package page

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataPageInsertSelect(t *testing.T) {
	dp := InitDataPage(NewPage(), 7)

	t.Run("round trips a record", func(t *testing.T) {
		rid, err := dp.InsertRecord([]byte("hello"))
		assert.Nil(t, err)
		assert.Equal(t, PageID(7), rid.PageID)
		assert.Equal(t, uint16(0), rid.Slot)

		record, err := dp.SelectRecord(rid)
		assert.Nil(t, err)
		assert.Equal(t, []byte("hello"), record)
	})

	t.Run("accounts slot and record bytes", func(t *testing.T) {
		free := dp.FreeSpace()
		_, err := dp.InsertRecord(make([]byte, 100))
		assert.Nil(t, err)
		assert.Equal(t, free-100-int(SLOT_SIZE), dp.FreeSpace())
	})

	t.Run("rejects empty and oversized records", func(t *testing.T) {
		_, err := dp.InsertRecord(nil)
		assert.ErrorIs(t, err, ErrInvalidRid)

		_, err = dp.InsertRecord(make([]byte, MAX_RECORD_SIZE+1))
		assert.ErrorIs(t, err, ErrPageFull)
	})
}

func TestDataPageMaxRecord(t *testing.T) {
	dp := InitDataPage(NewPage(), 1)

	record := bytes.Repeat([]byte{0xAB}, MAX_RECORD_SIZE)
	rid, err := dp.InsertRecord(record)
	assert.Nil(t, err)
	assert.Equal(t, 0, dp.FreeSpace())

	got, err := dp.SelectRecord(rid)
	assert.Nil(t, err)
	assert.Equal(t, record, got)

	_, err = dp.InsertRecord([]byte{1})
	assert.ErrorIs(t, err, ErrPageFull)
}

func TestDataPageUpdate(t *testing.T) {
	dp := InitDataPage(NewPage(), 3)
	rid, err := dp.InsertRecord([]byte("aaaa"))
	assert.Nil(t, err)

	assert.Nil(t, dp.UpdateRecord(rid, []byte("bbbb")))
	record, err := dp.SelectRecord(rid)
	assert.Nil(t, err)
	assert.Equal(t, []byte("bbbb"), record)

	err = dp.UpdateRecord(rid, []byte("too long"))
	assert.ErrorIs(t, err, ErrRecordLengthMismatch)

	err = dp.UpdateRecord(RID{PageID: 3, Slot: 9}, []byte("bbbb"))
	assert.ErrorIs(t, err, ErrInvalidRid)
}

func TestDataPageDeleteCompacts(t *testing.T) {
	dp := InitDataPage(NewPage(), 5)

	ridA, _ := dp.InsertRecord([]byte("aaaaaaaa"))
	ridB, _ := dp.InsertRecord([]byte("bbbbbbbb"))
	ridC, _ := dp.InsertRecord([]byte("cccccccc"))
	free := dp.FreeSpace()

	// deleting the middle record must not disturb its neighbours
	assert.Nil(t, dp.DeleteRecord(ridB))
	assert.Equal(t, free+8, dp.FreeSpace())
	assert.Equal(t, 2, dp.RecordCount())

	recA, err := dp.SelectRecord(ridA)
	assert.Nil(t, err)
	assert.Equal(t, []byte("aaaaaaaa"), recA)
	recC, err := dp.SelectRecord(ridC)
	assert.Nil(t, err)
	assert.Equal(t, []byte("cccccccc"), recC)

	_, err = dp.SelectRecord(ridB)
	assert.ErrorIs(t, err, ErrInvalidRid)
	assert.ErrorIs(t, dp.DeleteRecord(ridB), ErrInvalidRid)
}

func TestDataPageSlotReuse(t *testing.T) {
	dp := InitDataPage(NewPage(), 5)

	ridA, _ := dp.InsertRecord([]byte("first"))
	_, err := dp.InsertRecord([]byte("second"))
	assert.Nil(t, err)

	assert.Nil(t, dp.DeleteRecord(ridA))
	rid, err := dp.InsertRecord([]byte("third"))
	assert.Nil(t, err)
	assert.Equal(t, ridA.Slot, rid.Slot)
	assert.Equal(t, 2, dp.SlotCount())
}

func TestDataPageIteration(t *testing.T) {
	dp := InitDataPage(NewPage(), 5)
	ridA, _ := dp.InsertRecord([]byte("a"))
	ridB, _ := dp.InsertRecord([]byte("b"))
	ridC, _ := dp.InsertRecord([]byte("c"))
	assert.Nil(t, dp.DeleteRecord(ridB))

	slot, ok := dp.NextOccupied(0)
	assert.True(t, ok)
	assert.Equal(t, ridA.Slot, slot)

	slot, ok = dp.NextOccupied(slot + 1)
	assert.True(t, ok)
	assert.Equal(t, ridC.Slot, slot)

	_, ok = dp.NextOccupied(slot + 1)
	assert.False(t, ok)
}

func TestDataPageViewBinding(t *testing.T) {
	pg := NewPage()
	InitDirPage(pg, 2)
	_, err := DataPageFrom(pg)
	assert.ErrorIs(t, err, ErrWrongPageType)

	InitDataPage(pg, 2)
	_, err = DataPageFrom(pg)
	assert.Nil(t, err)
}
