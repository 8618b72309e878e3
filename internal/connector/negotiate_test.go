package connector

import (
	"errors"
	"testing"

	"github.com/cfclient-project/cfclient/internal/config"
	"github.com/cfclient-project/cfclient/internal/events"
	"github.com/cfclient-project/cfclient/internal/protocol"
)

// connected returns a harness that completed the handshake with the
// server defaults in effect and nothing sent yet.
func connected(t *testing.T, mutate func(*config.ClientConfig)) *harness {
	t.Helper()
	h := newHarness(t, mutate)
	h.handshake("0")
	h.mustFeed([]byte("addme_success"))
	if h.c.State() != events.StateConnected {
		t.Fatalf("state = %v", h.c.State())
	}
	h.sender.reset()
	return h
}

func (h *harness) expectSent(want ...string) {
	h.t.Helper()
	got := h.sender.strings()
	if len(got) != len(want) {
		h.t.Fatalf("sent %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			h.t.Fatalf("command %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNextMapRequest(t *testing.T) {
	tests := []struct {
		name     string
		pending  MapSize
		got      MapSize
		expected MapSize
	}{
		{"accepted", MapSize{17, 13}, MapSize{17, 13}, MapSize{}},
		{"both smaller", MapSize{25, 25}, MapSize{11, 11}, MapSize{11, 11}},
		{"width smaller", MapSize{25, 25}, MapSize{15, 25}, MapSize{15, 25}},
		{"width smaller height larger", MapSize{17, 13}, MapSize{15, 21}, MapSize{15, 13}},
		{"height smaller", MapSize{25, 25}, MapSize{25, 19}, MapSize{25, 19}},
		{"height larger", MapSize{17, 13}, MapSize{17, 15}, MapSize{17, 15}},
		{"width larger", MapSize{17, 13}, MapSize{19, 13}, MapSize{19, 13}},
		{"both larger wide", MapSize{17, 13}, MapSize{19, 15}, MapSize{17, 15}},
		{"both larger tall", MapSize{13, 17}, MapSize{15, 19}, MapSize{15, 17}},
		{"both larger square", MapSize{15, 15}, MapSize{21, 21}, MapSize{17, 15}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextMapRequest(tt.pending, tt.got); got != tt.expected {
				t.Errorf("nextMapRequest(%v, %v) = %v, want %v", tt.pending, tt.got, got, tt.expected)
			}
		})
	}
}

func TestParseMapSize(t *testing.T) {
	if got, ok := parseMapSize("25x17"); !ok || got != (MapSize{25, 17}) {
		t.Fatalf("parseMapSize = %v, %v", got, ok)
	}
	for _, bad := range []string{"", "25", "x17", "25x", "0x11", "11x-3", "axb"} {
		if _, ok := parseMapSize(bad); ok {
			t.Errorf("parseMapSize(%q) accepted", bad)
		}
	}
}

func TestMapSizeAccepted(t *testing.T) {
	h := connected(t, nil)

	if err := h.c.SetPreferredMapSize(17, 13); err != nil {
		t.Fatal(err)
	}
	h.mustFeed([]byte("setup mapsize 17x13"))

	h.expectSent("setup mapsize 17x13")
	if got := h.c.CurrentMapSize(); got != (MapSize{17, 13}) {
		t.Fatalf("current = %v", got)
	}
	maps := h.mapLog()
	if len(maps) != 2 || maps[1] != (events.NewMapPayload{Width: 17, Height: 13}) {
		t.Fatalf("map updates = %+v", maps)
	}
}

func TestMapSizeCappedByServer(t *testing.T) {
	h := connected(t, nil)

	if err := h.c.SetPreferredMapSize(25, 25); err != nil {
		t.Fatal(err)
	}
	h.mustFeed([]byte("setup mapsize 11x11"))
	h.mustFeed([]byte("setup mapsize 11x11"))

	h.expectSent("setup mapsize 25x25", "setup mapsize 11x11")
	if got := h.c.CurrentMapSize(); got != (MapSize{11, 11}) {
		t.Fatalf("current = %v", got)
	}
	// 11x11 was already in effect.
	if maps := h.mapLog(); len(maps) != 1 {
		t.Fatalf("map updates = %+v", maps)
	}
	if st := h.c.Negotiation(); st.PendingMap != "" || st.MapRounds != 2 {
		t.Fatalf("negotiation = %+v", st)
	}
}

func TestMapSizeWidthCapped(t *testing.T) {
	h := connected(t, nil)

	if err := h.c.SetPreferredMapSize(17, 13); err != nil {
		t.Fatal(err)
	}
	h.mustFeed([]byte("setup mapsize 15x25"))
	h.mustFeed([]byte("setup mapsize 15x13"))

	h.expectSent("setup mapsize 17x13", "setup mapsize 15x13")
	if got := h.c.CurrentMapSize(); got != (MapSize{15, 13}) {
		t.Fatalf("current = %v", got)
	}
}

func TestMapSizeServerOffersMore(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		next  string
		final MapSize
	}{
		{"height", "17x15", "17x15", MapSize{17, 15}},
		{"both", "19x15", "17x15", MapSize{17, 15}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := connected(t, nil)
			if err := h.c.SetPreferredMapSize(17, 13); err != nil {
				t.Fatal(err)
			}
			h.mustFeed([]byte("setup mapsize " + tt.reply))
			h.mustFeed([]byte("setup mapsize " + tt.next))

			h.expectSent("setup mapsize 17x13", "setup mapsize "+tt.next)
			if got := h.c.CurrentMapSize(); got != tt.final {
				t.Fatalf("current = %v", got)
			}
		})
	}
}

func TestMapSizePreferenceChangedMidRound(t *testing.T) {
	h := connected(t, nil)

	if err := h.c.SetPreferredMapSize(17, 13); err != nil {
		t.Fatal(err)
	}
	if err := h.c.SetPreferredMapSize(21, 15); err != nil {
		t.Fatal(err)
	}
	h.expectSent("setup mapsize 17x13")

	h.mustFeed([]byte("setup mapsize 17x13"))
	h.mustFeed([]byte("setup mapsize 21x15"))

	h.expectSent("setup mapsize 17x13", "setup mapsize 21x15")
	if got := h.c.CurrentMapSize(); got != (MapSize{21, 15}) {
		t.Fatalf("current = %v", got)
	}
	if maps := h.mapLog(); len(maps) != 3 {
		t.Fatalf("map updates = %+v", maps)
	}
}

func TestMapSizeNegotiationDiverges(t *testing.T) {
	h := connected(t, func(c *config.ClientConfig) { c.MaxNegotiationRounds = 3 })

	if err := h.c.SetPreferredMapSize(17, 13); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		h.mustFeed([]byte("setup mapsize 25x25"))
	}
	err := h.feed([]byte("setup mapsize 25x25"))
	if !protocol.IsFatal(err) || !errors.Is(err, ErrNegotiationDiverged) {
		t.Fatalf("err = %v", err)
	}
	if err := h.c.handleFrame([]byte("setup mapsize 25x25")); err != nil {
		t.Fatalf("reply after failure returned %v", err)
	}

	h.expectSent(
		"setup mapsize 17x13",
		"setup mapsize 17x15",
		"setup mapsize 17x17",
		"setup mapsize 19x17",
	)
	if h.c.State() != events.StateConnectFailed {
		t.Fatalf("state = %v", h.c.State())
	}
}

func TestMapSizeRejected(t *testing.T) {
	h := connected(t, nil)

	if err := h.c.SetPreferredMapSize(17, 13); err != nil {
		t.Fatal(err)
	}
	h.mustFeed([]byte("setup mapsize FALSE"))
	h.mustFeed([]byte("setup mapsize 17x13"))

	h.expectSent("setup mapsize 17x13")
	if got := h.c.CurrentMapSize(); got != (MapSize{11, 11}) {
		t.Fatalf("current = %v", got)
	}
}

func TestMapSizeWaitsForHandshake(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.c.SetPreferredMapSize(17, 13); err != nil {
		t.Fatal(err)
	}
	if err := h.c.SetPreferredMapSize(0, 13); err == nil {
		t.Fatal("accepted an empty map size")
	}
	if sent := h.sender.strings(); len(sent) != 0 {
		t.Fatalf("sent before connecting: %q", sent)
	}

	h.handshake("0")
	h.sender.reset()
	h.mustFeed([]byte("addme_success"))
	h.expectSent("setup mapsize 17x13")
}

func TestNumLookObjects(t *testing.T) {
	h := connected(t, nil)

	if err := h.c.SetPreferredNumLookObjects(100); err != nil {
		t.Fatal(err)
	}
	if err := h.c.SetPreferredNumLookObjects(120); err != nil {
		t.Fatal(err)
	}
	h.expectSent("setup num_look_objects 100")

	h.mustFeed([]byte("setup num_look_objects 100"))
	if got := h.c.NumLookObjects(); got != 100 {
		t.Fatalf("look objects = %d", got)
	}
	h.expectSent("setup num_look_objects 100", "setup num_look_objects 120")

	// The server capped the second request; the preference was honoured
	// as far as it goes.
	h.mustFeed([]byte("setup num_look_objects 80"))
	h.expectSent("setup num_look_objects 100", "setup num_look_objects 120")
	if got := h.c.NumLookObjects(); got != 80 {
		t.Fatalf("look objects = %d", got)
	}
}

func TestNumLookObjectsCappedReplyEndsRound(t *testing.T) {
	h := connected(t, nil)

	if err := h.c.SetPreferredNumLookObjects(200); err != nil {
		t.Fatal(err)
	}
	h.mustFeed([]byte("setup num_look_objects 50"))
	h.expectSent("setup num_look_objects 200")

	st := h.c.Negotiation()
	if st.PendingLook != 0 || h.c.NumLookObjects() != 50 {
		t.Fatalf("negotiation = %+v, look objects = %d", st, h.c.NumLookObjects())
	}
}

func TestNumLookObjectsRejected(t *testing.T) {
	h := connected(t, nil)

	h.mustFeed([]byte("setup num_look_objects 80"))
	if got := h.c.NumLookObjects(); got != protocol.DefaultLookObjects {
		t.Fatalf("unsolicited reply changed count to %d", got)
	}

	if err := h.c.SetPreferredNumLookObjects(100); err != nil {
		t.Fatal(err)
	}
	h.mustFeed([]byte("setup num_look_objects FALSE"))
	if got := h.c.NumLookObjects(); got != protocol.DefaultLookObjects {
		t.Fatalf("look objects = %d", got)
	}
	if st := h.c.Negotiation(); st.PendingLook != 0 {
		t.Fatalf("negotiation = %+v", st)
	}
}

func TestReconnectRestoresDefaults(t *testing.T) {
	h := connected(t, nil)
	if err := h.c.SetPreferredMapSize(17, 13); err != nil {
		t.Fatal(err)
	}
	h.mustFeed([]byte("setup mapsize 17x13"))

	h.c.onTransport(events.TransportDisconnected, "test", "server closed connection")
	if h.c.State() != events.StateConnected {
		t.Fatalf("state = %v", h.c.State())
	}
	if got := h.c.CurrentMapSize(); got != (MapSize{11, 11}) {
		t.Fatalf("current = %v", got)
	}

	h.c.onTransport(events.TransportConnecting, "test", "")
	h.c.onTransport(events.TransportConnected, "test", "")
	if h.c.State() != events.StateVersion {
		t.Fatalf("state = %v", h.c.State())
	}
	maps := h.mapLog()
	if last := maps[len(maps)-1]; last != (events.NewMapPayload{Width: 11, Height: 11}) {
		t.Fatalf("last map update = %+v", last)
	}
}
