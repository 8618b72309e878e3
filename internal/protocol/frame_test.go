package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	for _, size := range []int{0, 1, 2, 255, 256, 4096, MaxPacketSize} {
		payload := make([]byte, size)
		for i := range payload {
			payload[i] = byte(i * 7)
		}

		var buf bytes.Buffer
		if err := WritePacket(&buf, payload); err != nil {
			t.Fatalf("size %d: write: %v", size, err)
		}
		if buf.Len() != size+LengthPrefixSize {
			t.Fatalf("size %d: frame is %d bytes", size, buf.Len())
		}

		got, err := ReadPacket(&buf)
		if err != nil {
			t.Fatalf("size %d: read: %v", size, err)
		}
		if got == nil {
			t.Fatalf("size %d: nil payload", size)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("size %d: payload mismatch", size)
		}
	}
}

func TestFrameLengthPrefixIsBigEndian(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePacket(&buf, make([]byte, 0x0102)); err != nil {
		t.Fatal(err)
	}
	if b := buf.Bytes(); b[0] != 0x01 || b[1] != 0x02 {
		t.Fatalf("prefix = % x", b[:2])
	}
}

func TestWritePacketTooLarge(t *testing.T) {
	var buf bytes.Buffer
	err := WritePacket(&buf, make([]byte, MaxPacketSize+1))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("got %v, want ErrFrameTooLarge", err)
	}
	if buf.Len() != 0 {
		t.Fatal("oversized frame was partially written")
	}
}

func TestReadPacketShortRead(t *testing.T) {
	_, err := ReadPacket(bytes.NewReader([]byte{0x00, 0x05, 'a', 'b'}))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("got %v, want io.ErrUnexpectedEOF", err)
	}

	_, err = ReadPacket(bytes.NewReader(nil))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("got %v, want io.EOF", err)
	}
}

func TestBuildWithLength(t *testing.T) {
	b := NewPacketBuilder()
	b.WriteCommand(CmdTick, true).WriteU32(7)
	frame, err := b.BuildWithLength()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x00, 0x09, 't', 'i', 'c', 'k', ' ', 0, 0, 0, 7}
	if !bytes.Equal(frame, want) {
		t.Fatalf("frame = % x, want % x", frame, want)
	}
}
