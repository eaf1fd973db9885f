package db

import (
	"encoding/binary"
	"errors"
)

const (
	// u32 total size + u32 key size
	frameSizeFields = 8
	// frameSizeFields + u64 timestamp
	frameHeaderSize = 16
)

// errShortFrame reports that fewer than frameSizeFields bytes remain in the
// page. It is not an error for the cursor: the leftover is skipped.
var errShortFrame = errors.New("db: no full record")

type frame struct {
	key   string
	ts    uint64
	value []byte
}

// decodeFrame reads the record starting at off. On success next is the
// offset of the following record. On errShortFrame next is off+8 and no
// record is returned. On ErrMalformedFrame next equals off.
func decodeFrame(buf []byte, off int) (f frame, next int, err error) {
	if off+frameSizeFields > len(buf) {
		return f, off + frameSizeFields, errShortFrame
	}
	total := int(int32(binary.LittleEndian.Uint32(buf[off:])))
	keyLen := int(int32(binary.LittleEndian.Uint32(buf[off+4:])))
	if keyLen <= 0 || total-8-keyLen <= 0 {
		return f, off, ErrMalformedFrame
	}
	end := off + frameSizeFields + total
	if end > len(buf) {
		return f, off, ErrMalformedFrame
	}
	f.ts = binary.LittleEndian.Uint64(buf[off+frameSizeFields:])
	keyStart := off + frameHeaderSize
	f.key = string(buf[keyStart : keyStart+keyLen])
	f.value = buf[keyStart+keyLen : end : end]
	return f, end, nil
}

// AppendFrame appends one record in the traverse page layout to dst.
func AppendFrame(dst []byte, key string, ts uint64, value []byte) []byte {
	var hdr [frameHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(8+len(key)+len(value)))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(key)))
	binary.LittleEndian.PutUint64(hdr[8:], ts)
	dst = append(dst, hdr[:]...)
	dst = append(dst, key...)
	return append(dst, value...)
}
