package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReadPacket reads a single length-prefixed frame from r.
// Frame format: [2-byte BE length][payload bytes...]
// A zero-length frame yields an empty, non-nil payload.
func ReadPacket(r io.Reader) ([]byte, error) {
	var prefix [LengthPrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, fmt.Errorf("failed to read packet length: %w", err)
	}

	length := binary.BigEndian.Uint16(prefix[:])
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("failed to read packet payload (%d bytes): %w", length, err)
	}

	return payload, nil
}

// WritePacket writes data as one length-prefixed frame using a single Write
// call, so that a frame is never split across concurrent writers that share
// a lock around this function.
func WritePacket(w io.Writer, data []byte) error {
	if len(data) > MaxPacketSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLarge, len(data), MaxPacketSize)
	}

	frame := make([]byte, LengthPrefixSize+len(data))
	binary.BigEndian.PutUint16(frame[:LengthPrefixSize], uint16(len(data)))
	copy(frame[LengthPrefixSize:], data)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("failed to write packet data: %w", err)
	}
	return nil
}
