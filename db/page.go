package db

// page is the payload of the last fetch and how much of it was consumed.
type page struct {
	buf []byte
	off int
}

func (p page) consumed() bool {
	return p.off >= len(p.buf)
}

func (p page) remaining() int {
	if p.consumed() {
		return 0
	}
	return len(p.buf) - p.off
}

// PageWriter builds the payload of a traverse page.
type PageWriter struct {
	buf   []byte
	count uint32
}

func NewPageWriter(buf []byte) *PageWriter {
	return &PageWriter{buf: buf[:0]}
}

func (w *PageWriter) Append(key string, ts uint64, value []byte) {
	w.buf = AppendFrame(w.buf, key, ts, value)
	w.count++
}

func (w *PageWriter) Count() uint32 {
	return w.count
}

func (w *PageWriter) Len() int {
	return len(w.buf)
}

func (w *PageWriter) Bytes() []byte {
	return w.buf
}

func (w *PageWriter) Reset() {
	w.buf = w.buf[:0]
	w.count = 0
}
