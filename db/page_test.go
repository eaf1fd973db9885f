package db

import (
	"testing"

	"gotest.tools/assert"
)

func TestPage(t *testing.T) {
	w := NewPageWriter(make([]byte, 0, 8*1024))
	assert.Equal(t, uint32(0), w.Count())
	assert.Equal(t, 0, w.Len())

	fixture := []Record{
		{Key: "aaa", Timestamp: 3, Value: []byte("1")},
		{Key: "bbbbbbbb", Timestamp: 2, Value: []byte("22")},
		{Key: "cccc", Timestamp: 1, Value: []byte("333")},
	}
	dataLen := 0
	for _, rec := range fixture {
		w.Append(rec.Key, rec.Timestamp, rec.Value)
		dataLen += frameHeaderSize + len(rec.Key) + len(rec.Value)
	}
	assert.Equal(t, uint32(len(fixture)), w.Count())
	assert.Equal(t, dataLen, w.Len())

	p := page{buf: w.Bytes()}
	for _, rec := range fixture {
		f, next, err := decodeFrame(p.buf, p.off)
		assert.NilError(t, err)
		assert.Equal(t, rec.Key, f.key)
		assert.Equal(t, rec.Timestamp, f.ts)
		assert.DeepEqual(t, rec.Value, f.value)
		p.off = next
	}
	assert.Assert(t, p.consumed())
	assert.Equal(t, 0, p.remaining())

	w.Reset()
	assert.Equal(t, uint32(0), w.Count())
	assert.Equal(t, 0, w.Len())
}
