package network

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/cfclient-project/cfclient/internal/events"
	"github.com/cfclient-project/cfclient/internal/protocol"
)

type phaseRecorder struct {
	mu      sync.Mutex
	phases  []events.TransportPhase
	reasons []string
}

func (r *phaseRecorder) listen(phase events.TransportPhase, addr, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, phase)
	r.reasons = append(r.reasons, reason)
}

func (r *phaseRecorder) snapshot() ([]events.TransportPhase, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.TransportPhase(nil), r.phases...), append([]string(nil), r.reasons...)
}

func (r *phaseRecorder) count(phase events.TransportPhase) int {
	phases, _ := r.snapshot()
	n := 0
	for _, p := range phases {
		if p == phase {
			n++
		}
	}
	return n
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for read goroutine to stop")
	}
}

func TestTransportDeliversFramesInOrder(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	got := make(chan []byte, 8)
	tr := NewTransport(func(p []byte) error {
		got <- append([]byte(nil), p...)
		return nil
	}, time.Second, time.Second)
	if err := tr.Attach(client); err != nil {
		t.Fatal(err)
	}
	defer tr.Disconnect("test done")

	frames := [][]byte{[]byte("tick \x00\x00\x00\x01"), {}, []byte("goodbye"), []byte("drawinfo 1 hi")}
	go func() {
		for _, f := range frames {
			if err := protocol.WritePacket(server, f); err != nil {
				return
			}
		}
	}()

	for _, want := range [][]byte{frames[0], frames[2], frames[3]} {
		select {
		case p := <-got:
			if !bytes.Equal(p, want) {
				t.Fatalf("got %q, want %q", p, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for frame")
		}
	}
}

func TestTransportSendWritesFrameAndNotifiesObserver(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	tr := NewTransport(func([]byte) error { return nil }, time.Second, time.Second)
	var observed []byte
	tr.OnPacketSent(func(p []byte) { observed = append([]byte(nil), p...) })
	if err := tr.Attach(client); err != nil {
		t.Fatal(err)
	}
	defer tr.Disconnect("test done")

	read := make(chan []byte, 1)
	go func() {
		p, err := protocol.ReadPacket(server)
		if err == nil {
			read <- p
		}
	}()

	if err := tr.Send([]byte("addme")); err != nil {
		t.Fatal(err)
	}
	select {
	case p := <-read:
		if string(p) != "addme" {
			t.Fatalf("server read %q", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
	if string(observed) != "addme" {
		t.Fatalf("observer saw %q", observed)
	}
	if st := tr.Stats(); st.FramesOut != 1 || st.BytesOut != 7 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestTransportSendNotConnected(t *testing.T) {
	tr := NewTransport(func([]byte) error { return nil }, time.Second, time.Second)
	if err := tr.Send([]byte("addme")); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("got %v, want ErrNotConnected", err)
	}
}

func TestTransportSendTooLargeKeepsConnection(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	tr := NewTransport(func([]byte) error { return nil }, time.Second, time.Second)
	if err := tr.Attach(client); err != nil {
		t.Fatal(err)
	}
	defer tr.Disconnect("test done")

	err := tr.Send(make([]byte, protocol.MaxPacketSize+1))
	if !errors.Is(err, protocol.ErrFrameTooLarge) {
		t.Fatalf("got %v, want ErrFrameTooLarge", err)
	}
	if !tr.IsConnected() {
		t.Fatal("oversized send closed the connection")
	}
}

func TestTransportConcurrentSendsDoNotInterleave(t *testing.T) {
	ln, err := Listen(context.Background(), "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	const senders, perSender, size = 8, 50, 3000
	received := make(chan [][]byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		var frames [][]byte
		for len(frames) < senders*perSender {
			p, err := protocol.ReadPacket(conn)
			if err != nil {
				break
			}
			frames = append(frames, p)
		}
		received <- frames
	}()

	tr := NewTransport(func([]byte) error { return nil }, time.Second, 5*time.Second)
	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	if err := tr.Connect(context.Background(), host, port); err != nil {
		t.Fatal(err)
	}
	defer tr.Disconnect("test done")

	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(b byte) {
			defer wg.Done()
			payload := bytes.Repeat([]byte{b}, size)
			for j := 0; j < perSender; j++ {
				if err := tr.Send(payload); err != nil {
					t.Errorf("send: %v", err)
					return
				}
			}
		}(byte('a' + i))
	}
	wg.Wait()

	select {
	case frames := <-received:
		if len(frames) != senders*perSender {
			t.Fatalf("received %d frames", len(frames))
		}
		for i, f := range frames {
			if len(f) != size || !bytes.Equal(f, bytes.Repeat(f[:1], size)) {
				t.Fatalf("frame %d is interleaved", i)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for frames")
	}
}

func TestTransportDisconnectIsIdempotent(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	rec := &phaseRecorder{}
	tr := NewTransport(func([]byte) error { return nil }, time.Second, time.Second)
	tr.OnLifecycle(rec.listen)
	if err := tr.Attach(client); err != nil {
		t.Fatal(err)
	}
	stopped := tr.Stopped()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Disconnect("user quit")
		}()
	}
	wg.Wait()
	tr.Disconnect("again")

	waitClosed(t, stopped)
	if n := rec.count(events.TransportDisconnected); n != 1 {
		t.Fatalf("disconnected notified %d times", n)
	}
	if tr.IsConnected() {
		t.Fatal("still connected")
	}
	if err := tr.Send([]byte("addme")); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("send after disconnect: %v", err)
	}
}

func TestTransportIdleConnectionStaysOpen(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	tr := NewTransport(func([]byte) error { return nil }, time.Second, time.Second)
	if err := tr.Attach(client); err != nil {
		t.Fatal(err)
	}
	stopped := tr.Stopped()

	time.Sleep(200 * time.Millisecond)
	select {
	case <-stopped:
		t.Fatal("reader stopped on an idle connection")
	default:
	}
	if !tr.IsConnected() {
		t.Fatal("idle connection was closed")
	}

	tr.Disconnect("done")
	waitClosed(t, stopped)
}

func TestTransportHandlerErrorDisconnects(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	rec := &phaseRecorder{}
	tr := NewTransport(func([]byte) error { return errors.New("server is too old") }, time.Second, time.Second)
	tr.OnLifecycle(rec.listen)
	if err := tr.Attach(client); err != nil {
		t.Fatal(err)
	}
	stopped := tr.Stopped()

	go protocol.WritePacket(server, []byte("setup tick 0"))
	waitClosed(t, stopped)

	phases, reasons := rec.snapshot()
	last := len(phases) - 1
	if phases[last] != events.TransportDisconnected || reasons[last] != "server is too old" {
		t.Fatalf("phases = %v reasons = %v", phases, reasons)
	}
}

func TestTransportConnectLifecycle(t *testing.T) {
	ln, err := Listen(context.Background(), "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	rec := &phaseRecorder{}
	tr := NewTransport(func([]byte) error { return nil }, time.Second, time.Second)
	tr.OnLifecycle(rec.listen)

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	if err := tr.Connect(context.Background(), host, port); err != nil {
		t.Fatal(err)
	}
	if err := tr.Connect(context.Background(), host, port); !errors.Is(err, ErrAlreadyConnected) && tr.IsConnected() {
		t.Fatalf("second connect: %v", err)
	}
	if stopped := tr.Stopped(); stopped != nil {
		waitClosed(t, stopped)
	}

	deadline := time.Now().Add(2 * time.Second)
	for rec.count(events.TransportDisconnected) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	phases, reasons := rec.snapshot()
	want := []events.TransportPhase{
		events.TransportConnecting,
		events.TransportConnected,
		events.TransportDisconnecting,
		events.TransportDisconnected,
	}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v", phases)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phases = %v, want %v", phases, want)
		}
	}
	if reasons[3] != "server closed connection" {
		t.Fatalf("reason = %q", reasons[3])
	}
}

func TestTransportConnectFailed(t *testing.T) {
	ln, err := Listen(context.Background(), "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	rec := &phaseRecorder{}
	tr := NewTransport(func([]byte) error { return nil }, time.Second, time.Second)
	tr.OnLifecycle(rec.listen)

	host, portStr, _ := net.SplitHostPort(addr)
	port, _ := strconv.Atoi(portStr)
	if err := tr.Connect(context.Background(), host, port); err == nil {
		t.Fatal("connect to closed port succeeded")
	}

	phases, _ := rec.snapshot()
	if len(phases) != 2 || phases[0] != events.TransportConnecting || phases[1] != events.TransportConnectFailed {
		t.Fatalf("phases = %v", phases)
	}
}
