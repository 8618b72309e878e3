package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
)

// PacketBuilder constructs outbound payloads. Integers are written in
// big-endian order; ASCII arguments are written as decimal text.
type PacketBuilder struct {
	buf bytes.Buffer
}

// NewPacketBuilder creates a new PacketBuilder.
func NewPacketBuilder() *PacketBuilder {
	return &PacketBuilder{}
}

// Reset clears the builder for reuse.
func (b *PacketBuilder) Reset() {
	b.buf.Reset()
}

// WriteCommand starts a payload with a command name. When withArgs is true a
// single space delimiter follows the name.
func (b *PacketBuilder) WriteCommand(name string, withArgs bool) *PacketBuilder {
	b.buf.WriteString(name)
	if withArgs {
		b.buf.WriteByte(' ')
	}
	return b
}

// WriteU8 writes a single byte.
func (b *PacketBuilder) WriteU8(v uint8) *PacketBuilder {
	b.buf.WriteByte(v)
	return b
}

// WriteU16 writes a uint16.
func (b *PacketBuilder) WriteU16(v uint16) *PacketBuilder {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

// WriteU32 writes a uint32.
func (b *PacketBuilder) WriteU32(v uint32) *PacketBuilder {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

// WriteU64 writes a uint64.
func (b *PacketBuilder) WriteU64(v uint64) *PacketBuilder {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

// WriteDecimal writes v as ASCII decimal digits.
func (b *PacketBuilder) WriteDecimal(v int) *PacketBuilder {
	b.buf.WriteString(strconv.Itoa(v))
	return b
}

// WriteSpace writes a single space separator.
func (b *PacketBuilder) WriteSpace() *PacketBuilder {
	b.buf.WriteByte(' ')
	return b
}

// WriteASCII writes s without any length prefix.
func (b *PacketBuilder) WriteASCII(s string) *PacketBuilder {
	b.buf.WriteString(s)
	return b
}

// WriteString8 writes a string prefixed by a 1-byte length.
// Strings longer than 255 bytes are truncated.
func (b *PacketBuilder) WriteString8(s string) *PacketBuilder {
	data := []byte(s)
	if len(data) > 255 {
		data = data[:255]
	}
	b.buf.WriteByte(byte(len(data)))
	b.buf.Write(data)
	return b
}

// WriteBytes writes raw bytes.
func (b *PacketBuilder) WriteBytes(data []byte) *PacketBuilder {
	b.buf.Write(data)
	return b
}

// Build returns the constructed payload. The slice is only valid until the
// next write or Reset.
func (b *PacketBuilder) Build() []byte {
	return b.buf.Bytes()
}

// BuildWithLength returns the payload with its 2-byte length prefix.
func (b *PacketBuilder) BuildWithLength() ([]byte, error) {
	data := b.buf.Bytes()
	if len(data) > MaxPacketSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLarge, len(data), MaxPacketSize)
	}
	result := make([]byte, LengthPrefixSize+len(data))
	binary.BigEndian.PutUint16(result[:LengthPrefixSize], uint16(len(data)))
	copy(result[LengthPrefixSize:], data)
	return result, nil
}

// Len returns the current size of the payload being built.
func (b *PacketBuilder) Len() int {
	return b.buf.Len()
}

// String returns a hex dump of the current payload for debugging.
func (b *PacketBuilder) String() string {
	data := b.buf.Bytes()
	return fmt.Sprintf("PacketBuilder[%d bytes]: %x", len(data), data)
}
