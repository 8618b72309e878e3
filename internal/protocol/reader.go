package protocol

import (
	"bytes"
	"encoding/binary"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Reader is a cursor over one frame payload. All multi-byte integers are
// big-endian. Every read checks the remaining length and fails with
// ErrTruncatedFrame instead of returning garbage.
type Reader struct {
	data []byte
	off  int
}

// NewReader creates a cursor positioned at offset 0 of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// NewReaderAt creates a cursor positioned at off.
func NewReaderAt(data []byte, off int) *Reader {
	return &Reader{data: data, off: off}
}

// Offset returns the cursor position.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// HasRemaining reports whether unread bytes are left.
func (r *Reader) HasRemaining() bool {
	return r.off < len(r.data)
}

func (r *Reader) need(field string, n int) error {
	if r.Remaining() < n {
		return truncated(field, n, r.Remaining())
	}
	return nil
}

// ReadU8 reads one unsigned byte.
func (r *Reader) ReadU8() (uint8, error) {
	if err := r.need("u8", 1); err != nil {
		return 0, err
	}
	v := r.data[r.off]
	r.off++
	return v, nil
}

// ReadI8 reads one signed byte.
func (r *Reader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

// ReadU16 reads 2 bytes.
func (r *Reader) ReadU16() (uint16, error) {
	if err := r.need("u16", 2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, nil
}

// ReadI16 reads 2 bytes as a signed value.
func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

// ReadU32 reads 4 bytes.
func (r *Reader) ReadU32() (uint32, error) {
	if err := r.need("u32", 4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

// ReadI32 reads 4 bytes as a signed value.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadU64 reads 8 bytes.
func (r *Reader) ReadU64() (uint64, error) {
	if err := r.need("u64", 8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v, nil
}

// ReadBytes reads n raw bytes. The returned slice aliases the payload.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, malformed("negative length %d", n)
	}
	if err := r.need("bytes", n); err != nil {
		return nil, err
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// ReadFixedString reads exactly n bytes as text.
func (r *Reader) ReadFixedString(n int) (string, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return decodeText(b), nil
}

// ReadString8 reads a string prefixed by a 1-byte length.
func (r *Reader) ReadString8() (string, error) {
	n, err := r.ReadU8()
	if err != nil {
		return "", err
	}
	return r.ReadFixedString(int(n))
}

// ReadString16 reads a string prefixed by a 2-byte length.
func (r *Reader) ReadString16() (string, error) {
	n, err := r.ReadU16()
	if err != nil {
		return "", err
	}
	return r.ReadFixedString(int(n))
}

// ReadRest consumes every remaining byte as text.
func (r *Reader) ReadRest() string {
	b := r.data[r.off:]
	r.off = len(r.data)
	return decodeText(b)
}

// ReadRestBytes consumes every remaining byte.
func (r *Reader) ReadRestBytes() []byte {
	b := r.data[r.off:]
	r.off = len(r.data)
	return b
}

// ReadDecimal reads an optionally signed ASCII decimal integer terminated by
// a single space or the end of the payload. The delimiter is consumed.
func (r *Reader) ReadDecimal() (int, error) {
	start := r.off
	end := start
	for end < len(r.data) && r.data[end] != ' ' {
		end++
	}
	if end == start {
		if end >= len(r.data) {
			return 0, truncated("decimal", 1, 0)
		}
		return 0, malformed("empty decimal at offset %d", start)
	}
	v, err := strconv.Atoi(string(r.data[start:end]))
	if err != nil {
		return 0, malformed("non-digit in decimal %q", r.data[start:end])
	}
	r.off = end
	if r.off < len(r.data) {
		r.off++
	}
	return v, nil
}

// ReadToken reads ASCII bytes up to the next space (consumed) or the end.
func (r *Reader) ReadToken() string {
	start := r.off
	i := bytes.IndexByte(r.data[start:], ' ')
	if i < 0 {
		r.off = len(r.data)
		return string(r.data[start:])
	}
	r.off = start + i + 1
	return string(r.data[start : start+i])
}

// Expect fails with ErrExcessData if any byte is left unread.
func (r *Reader) Expect() error {
	if r.HasRemaining() {
		return &excessError{extra: r.Remaining()}
	}
	return nil
}

type excessError struct {
	extra int
}

func (e *excessError) Error() string {
	return ErrExcessData.Error() + ": " + strconv.Itoa(e.extra) + " bytes"
}

func (e *excessError) Is(target error) bool {
	return target == ErrExcessData
}

// decodeText converts wire bytes to a Go string. Servers send UTF-8; text
// that is not valid UTF-8 is read as ISO-8859-1.
func decodeText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(decoded)
}
