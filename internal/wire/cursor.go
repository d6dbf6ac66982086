package wire

// Writer writes primitives sequentially into a fixed buffer. The first
// failure is sticky: later writes are skipped and Err reports it.
type Writer struct {
	buf []byte
	off int
	err error
}

// NewWriter returns a Writer positioned at the start of buf.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Offset returns the number of bytes written so far.
func (w *Writer) Offset() int { return w.off }

// Err returns the first error encountered.
func (w *Writer) Err() error { return w.err }

// Written returns the written portion of the buffer.
func (w *Writer) Written() []byte { return w.buf[:w.off] }

func (w *Writer) reserve(n int) bool {
	if w.err != nil {
		return false
	}
	if w.off+n > len(w.buf) {
		w.err = ErrShortBuffer
		return false
	}
	return true
}

func (w *Writer) Uint8(v uint8) {
	if w.reserve(1) {
		PutUint8(w.buf, w.off, v)
		w.off++
	}
}

func (w *Writer) Uint16(v uint16) {
	if w.reserve(2) {
		PutUint16(w.buf, w.off, v)
		w.off += 2
	}
}

func (w *Writer) Uint32(v uint32) {
	if w.reserve(4) {
		PutUint32(w.buf, w.off, v)
		w.off += 4
	}
}

func (w *Writer) Uint64(v uint64) {
	if w.reserve(8) {
		PutUint64(w.buf, w.off, v)
		w.off += 8
	}
}

func (w *Writer) Int16(v int16) { w.Uint16(uint16(v)) }

func (w *Writer) Int32(v int32) { w.Uint32(uint32(v)) }

func (w *Writer) Float32(v float32) {
	if w.reserve(4) {
		PutFloat32(w.buf, w.off, v)
		w.off += 4
	}
}

func (w *Writer) Bool(v bool) {
	if w.reserve(1) {
		PutBool(w.buf, w.off, v)
		w.off++
	}
}

// String writes a null-padded string field. name is used in the error when
// the value is too long.
func (w *Writer) String(name, s string, capacity int) {
	if !w.reserve(capacity) {
		return
	}
	if err := PutString(w.buf, w.off, s, capacity); err != nil {
		if ee, ok := err.(*EncodeError); ok {
			ee.Field = name
		}
		w.err = err
		return
	}
	w.off += capacity
}

func (w *Writer) Bytes(name string, b []byte, capacity int) {
	if !w.reserve(capacity) {
		return
	}
	if err := PutBytes(w.buf, w.off, b, capacity); err != nil {
		if ee, ok := err.(*EncodeError); ok {
			ee.Field = name
		}
		w.err = err
		return
	}
	w.off += capacity
}

// Reader reads primitives sequentially from a buffer. Like Writer, the first
// failure is sticky and reads after it return zero values.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader returns a Reader positioned at off.
func NewReader(buf []byte, off int) *Reader {
	return &Reader{buf: buf, off: off}
}

// Offset returns the current read position.
func (r *Reader) Offset() int { return r.off }

// Err returns the first error encountered.
func (r *Reader) Err() error { return r.err }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	if r.off >= len(r.buf) {
		return 0
	}
	return len(r.buf) - r.off
}

func (r *Reader) take(n int) bool {
	if r.err != nil {
		return false
	}
	if r.off+n > len(r.buf) {
		r.err = ErrShortBuffer
		return false
	}
	return true
}

func (r *Reader) Uint8() uint8 {
	if !r.take(1) {
		return 0
	}
	v := Uint8(r.buf, r.off)
	r.off++
	return v
}

func (r *Reader) Uint16() uint16 {
	if !r.take(2) {
		return 0
	}
	v := Uint16(r.buf, r.off)
	r.off += 2
	return v
}

func (r *Reader) Uint32() uint32 {
	if !r.take(4) {
		return 0
	}
	v := Uint32(r.buf, r.off)
	r.off += 4
	return v
}

func (r *Reader) Uint64() uint64 {
	if !r.take(8) {
		return 0
	}
	v := Uint64(r.buf, r.off)
	r.off += 8
	return v
}

func (r *Reader) Int16() int16 { return int16(r.Uint16()) }

func (r *Reader) Int32() int32 { return int32(r.Uint32()) }

func (r *Reader) Float32() float32 {
	if !r.take(4) {
		return 0
	}
	v := Float32(r.buf, r.off)
	r.off += 4
	return v
}

func (r *Reader) Bool() bool {
	if !r.take(1) {
		return false
	}
	v := Bool(r.buf, r.off)
	r.off++
	return v
}

func (r *Reader) String(capacity int) string {
	if !r.take(capacity) {
		return ""
	}
	v := String(r.buf, r.off, capacity)
	r.off += capacity
	return v
}

// BytesInto copies the next len(dst) bytes into dst.
func (r *Reader) BytesInto(dst []byte) {
	if !r.take(len(dst)) {
		return
	}
	copy(dst, r.buf[r.off:r.off+len(dst)])
	r.off += len(dst)
}
