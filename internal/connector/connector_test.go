package connector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/cfclient-project/cfclient/internal/config"
	"github.com/cfclient-project/cfclient/internal/events"
	"github.com/cfclient-project/cfclient/internal/model"
	"github.com/cfclient-project/cfclient/internal/protocol"
)

type recordingSender struct {
	mu   sync.Mutex
	sent [][]byte
}

func (s *recordingSender) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, append([]byte(nil), payload...))
	return nil
}

func (s *recordingSender) strings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	for i, p := range s.sent {
		out[i] = string(p)
	}
	return out
}

func (s *recordingSender) reset() {
	s.mu.Lock()
	s.sent = nil
	s.mu.Unlock()
}

type harness struct {
	t      *testing.T
	c      *ServerConnector
	sender *recordingSender
	bus    *events.EventBus
	model  *model.Model

	mu     sync.Mutex
	states []events.ConnectionState
	maps   []events.NewMapPayload
}

func newHarness(t *testing.T, mutate func(*config.ClientConfig)) *harness {
	t.Helper()

	cfg := config.DefaultConfig().GetClient()
	cfg.ClientName = "cfclient-test"
	cfg.MapWidth, cfg.MapHeight = 11, 11
	if mutate != nil {
		mutate(&cfg)
	}

	m, err := model.New(64)
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{t: t, sender: &recordingSender{}, bus: events.NewEventBus(), model: m}
	h.c = newServerConnector(cfg, m, h.bus, h.sender)

	h.bus.Subscribe(events.EventConnectionState, "test", func(_ context.Context, ev events.Event) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.states = append(h.states, ev.Payload.(events.ConnectionStatePayload).State)
		return nil
	})
	if err := h.bus.SetMapHandler("test", func(_ context.Context, ev events.Event) error {
		if p, ok := ev.Payload.(events.NewMapPayload); ok {
			h.mu.Lock()
			h.maps = append(h.maps, p)
			h.mu.Unlock()
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	return h
}

func (h *harness) feed(payload []byte) error {
	h.t.Helper()
	return h.c.HandleFrame(payload)
}

func (h *harness) mustFeed(payload []byte) {
	h.t.Helper()
	if err := h.feed(payload); err != nil {
		h.t.Fatalf("HandleFrame(%q): %v", payload, err)
	}
}

func (h *harness) stateLog() []events.ConnectionState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]events.ConnectionState(nil), h.states...)
}

func (h *harness) mapLog() []events.NewMapPayload {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]events.NewMapPayload(nil), h.maps...)
}

func setupEcho(overrides map[string]string) []byte {
	opts := make([]protocol.SetupOption, len(protocol.InitialSetupOptions))
	copy(opts, protocol.InitialSetupOptions)
	for i := range opts {
		if v, ok := overrides[opts[i].Name]; ok {
			opts[i].Value = v
		}
	}
	return setupPayload(opts...)
}

func expTable(values ...uint64) []byte {
	b := protocol.NewPacketBuilder()
	b.WriteASCII("replyinfo exp_table\n").WriteU16(uint16(len(values) + 1))
	for _, v := range values {
		b.WriteU64(v)
	}
	return append([]byte(nil), b.Build()...)
}

// handshake drives the connection up to the addme or account phase.
func (h *harness) handshake(loginMethod string) {
	h.t.Helper()
	h.c.onTransport(events.TransportConnected, "test", "")
	h.mustFeed([]byte("version 1023 1029 Crossfire Server"))
	h.mustFeed(setupEcho(map[string]string{protocol.SetupLoginMethod: loginMethod}))
	h.mustFeed(expTable(1000, 2500))
}

func TestHandshakeWithoutAccounts(t *testing.T) {
	h := newHarness(t, nil)
	h.handshake("0")
	h.mustFeed([]byte("addme_success"))

	if got := h.c.State(); got != events.StateConnected {
		t.Fatalf("state = %v", got)
	}

	wantStates := []events.ConnectionState{
		events.StateVersion,
		events.StateSetup,
		events.StateRequestInfo,
		events.StateAddMe,
		events.StateConnected,
	}
	if got := h.stateLog(); fmt.Sprint(got) != fmt.Sprint(wantStates) {
		t.Fatalf("states = %v, want %v", got, wantStates)
	}

	var toggle []string
	for i := 1; i <= 20; i++ {
		toggle = append(toggle, fmt.Sprint(i))
	}
	want := []string{
		"version 1023 1029 cfclient-test",
		string(setupPayload(protocol.InitialSetupOptions...)),
		"setup spellmon 2",
		"requestinfo image_info",
		"requestinfo skill_info 1",
		"requestinfo exp_table",
		"requestinfo knowledge_info",
		"toggleextendedtext " + strings.Join(toggle, " "),
		"addme",
	}
	got := h.sender.strings()
	if len(got) != len(want) {
		t.Fatalf("sent %d commands: %q", len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("command %d = %q, want %q", i, got[i], want[i])
		}
	}

	if v, ok := h.model.ExperienceTable().ExpForLevel(3); !ok || v != 2500 {
		t.Fatalf("exp table level 3 = %d, %v", v, ok)
	}
	if maps := h.mapLog(); len(maps) != 1 || maps[0].Width != 11 || maps[0].Height != 11 {
		t.Fatalf("map updates = %+v", maps)
	}
}

func setupPayload(opts ...protocol.SetupOption) []byte {
	b := protocol.NewPacketBuilder()
	protocol.BuildSetup(b, opts...)
	return append([]byte(nil), b.Build()...)
}

func TestSetupMismatchIsFatal(t *testing.T) {
	h := newHarness(t, nil)
	h.c.onTransport(events.TransportConnected, "test", "")
	h.mustFeed([]byte("version 1023 1029 old server"))
	h.sender.reset()

	err := h.feed(setupEcho(map[string]string{protocol.SetupMap2Cmd: "FALSE"}))
	if !protocol.IsFatal(err) {
		t.Fatalf("err = %v, want fatal", err)
	}
	var vm *protocol.VersionMismatchError
	if !errors.As(err, &vm) || vm.Option != protocol.SetupMap2Cmd {
		t.Fatalf("err = %v", err)
	}
	if h.c.State() != events.StateConnectFailed {
		t.Fatalf("state = %v", h.c.State())
	}
	if sent := h.sender.strings(); len(sent) != 0 {
		t.Fatalf("sent after mismatch: %q", sent)
	}
	if cur := h.model.GUIState().(*model.GUIState).Current(); cur.State != events.StateConnectFailed || cur.Reason == "" {
		t.Fatalf("gui state = %+v", cur)
	}
}

func TestOptionalSetupOptionsMayBeDeclined(t *testing.T) {
	h := newHarness(t, nil)
	h.c.onTransport(events.TransportConnected, "test", "")
	h.mustFeed([]byte("version 1023 1029 server"))
	h.mustFeed(setupEcho(map[string]string{
		protocol.SetupSound2:        "FALSE",
		protocol.SetupDarkness:      "FALSE",
		protocol.SetupNotifications: "FALSE",
		protocol.SetupLoginMethod:   "FALSE",
	}))
	if h.c.State() != events.StateRequestInfo {
		t.Fatalf("state = %v", h.c.State())
	}
	if h.c.LoginMethod() != 0 {
		t.Fatalf("login method = %d", h.c.LoginMethod())
	}
}

func TestAccountLoginFlow(t *testing.T) {
	h := newHarness(t, nil)

	var mu sync.Mutex
	var account []interface{}
	h.bus.Subscribe(events.EventAccount, "test", func(_ context.Context, ev events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		account = append(account, ev.Payload)
		return nil
	})

	h.handshake("2")
	if h.c.State() != events.StateAccountInfo {
		t.Fatalf("state = %v", h.c.State())
	}

	if err := h.c.SendAccountLogin("alice", "secret"); err != nil {
		t.Fatal(err)
	}

	b := protocol.NewPacketBuilder()
	b.WriteCommand(protocol.CmdAccountPlayers, true).WriteU8(2)
	writeAttr(b, protocol.AclLevel, []byte{0, 12})
	writeAttr(b, protocol.AclName, []byte("Hero"))
	writeAttr(b, protocol.AclFaceNum, []byte{0x01, 0x02})
	b.WriteU8(0)
	writeAttr(b, protocol.AclName, []byte("Mage"))
	writeAttr(b, protocol.AclClass, []byte("Wizard"))
	b.WriteU8(0)
	h.mustFeed(append([]byte(nil), b.Build()...))

	h.mustFeed([]byte("addme_success"))
	if h.c.State() != events.StateConnected {
		t.Fatalf("state = %v", h.c.State())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(account) != 6 {
		t.Fatalf("account events = %#v", account)
	}
	if _, ok := account[0].(events.ManageAccount); !ok {
		t.Fatalf("event 0 = %#v", account[0])
	}
	if start, ok := account[1].(events.AccountListStart); !ok || start.AccountName != "alice" {
		t.Fatalf("event 1 = %#v", account[1])
	}
	if ch, ok := account[2].(events.AccountCharacter); !ok || ch.Character.Name != "Hero" || ch.Character.Level != 12 || ch.Character.FaceNum != 0x0102 {
		t.Fatalf("event 2 = %#v", account[2])
	}
	if ch, ok := account[3].(events.AccountCharacter); !ok || ch.Character.Name != "Mage" || ch.Character.Class != "Wizard" {
		t.Fatalf("event 3 = %#v", account[3])
	}
	if end, ok := account[4].(events.AccountListEnd); !ok || end.Count != 2 {
		t.Fatalf("event 4 = %#v", account[4])
	}
	if _, ok := account[5].(events.StartPlaying); !ok {
		t.Fatalf("event 5 = %#v", account[5])
	}
}

func writeAttr(b *protocol.PacketBuilder, typ byte, value []byte) {
	b.WriteU8(uint8(len(value) + 1)).WriteU8(typ).WriteBytes(value)
}

func TestAccountNameClearedOnConnect(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.c.SendAccountLogin("alice", "pw"); err != nil {
		t.Fatal(err)
	}
	h.c.onTransport(events.TransportConnected, "test", "")
	if name := h.c.AccountName(); name != "" {
		t.Fatalf("account name = %q", name)
	}
}

func TestQueryBeforeAddMeForcesConnected(t *testing.T) {
	h := newHarness(t, func(c *config.ClientConfig) { c.MapWidth, c.MapHeight = 17, 13 })

	var queries int
	h.bus.Subscribe(events.EventQuery, "test", func(context.Context, events.Event) error {
		queries++
		return nil
	})

	h.handshake("0")
	if h.c.State() != events.StateAddMe {
		t.Fatalf("state = %v", h.c.State())
	}
	h.sender.reset()

	h.mustFeed([]byte("query 0 What is your name?"))
	if h.c.State() != events.StateConnected {
		t.Fatalf("state = %v", h.c.State())
	}
	if queries != 1 {
		t.Fatalf("query listeners ran %d times", queries)
	}
	if sent := h.sender.strings(); len(sent) != 1 || sent[0] != "setup mapsize 17x13" {
		t.Fatalf("sent = %q", sent)
	}
}

func TestUnrecognizedCommandIsReturned(t *testing.T) {
	h := newHarness(t, nil)

	var raw []events.RawPacketPayload
	h.bus.Subscribe(events.EventRawPacket, "test", func(_ context.Context, ev events.Event) error {
		raw = append(raw, ev.Payload.(events.RawPacketPayload))
		return nil
	})

	err := h.feed([]byte("frobnicate 1 2 3"))
	if !errors.Is(err, protocol.ErrUnrecognizedCommand) {
		t.Fatalf("err = %v", err)
	}
	if err := h.c.handleFrame([]byte("frobnicate 1 2 3")); err != nil {
		t.Fatalf("lenient handler returned %v", err)
	}
	h.c.strict = true
	if err := h.c.handleFrame([]byte("frobnicate 1 2 3")); err == nil {
		t.Fatal("strict handler accepted an unknown command")
	}

	if err := h.feed([]byte("tick \x00\x00\x00")); err != nil {
		t.Fatalf("truncated frame returned %v", err)
	}
	if err := h.feed([]byte("tick \x00\x00\x00\x01")); err != nil {
		t.Fatal(err)
	}

	if len(raw) != 5 {
		t.Fatalf("raw watcher ran %d times, want once per frame", len(raw))
	}
	if raw[0].Command != "frobnicate" || raw[4].Category != events.RawIntArray {
		t.Fatalf("raw = %+v", raw)
	}
}

func TestItemAndFaceUpdates(t *testing.T) {
	h := newHarness(t, nil)

	b := protocol.NewPacketBuilder()
	b.WriteCommand(protocol.CmdItem2, true).WriteU32(0).
		WriteU32(42).WriteU32(0).WriteU32(1500).WriteU32(7).
		WriteU8(5).WriteASCII("torch").
		WriteU16(0).WriteU8(0).WriteU32(1).WriteU16(0)
	h.mustFeed(append([]byte(nil), b.Build()...))

	if it, ok := h.model.Items().Item(42); !ok || it.Name != "torch" {
		t.Fatalf("item = %+v, %v", it, ok)
	}

	h.mustFeed([]byte("delitem \x00\x00\x00\x2a"))
	if _, ok := h.model.Items().Item(42); ok {
		t.Fatal("item not deleted")
	}

	b.Reset()
	b.WriteCommand(protocol.CmdFace2, true).WriteU16(9).WriteU8(0).WriteU32(1234).WriteASCII("torch.111")
	h.mustFeed(append([]byte(nil), b.Build()...))
	if h.model.AskFaceQueue().Len() != 1 {
		t.Fatalf("ask face queue = %d", h.model.AskFaceQueue().Len())
	}

	n, err := h.c.FlushAskFaces(0)
	if err != nil || n != 1 {
		t.Fatalf("flush = %d, %v", n, err)
	}
	if sent := h.sender.strings(); sent[len(sent)-1] != "askface 9" {
		t.Fatalf("sent = %q", sent)
	}

	b.Reset()
	b.WriteCommand(protocol.CmdImage2, true).WriteU32(9).WriteU8(0).WriteU32(3).WriteBytes([]byte{1, 2, 3})
	h.mustFeed(append([]byte(nil), b.Build()...))
	if f, ok := h.model.FaceCache().Get(9); !ok || !f.HasImage() {
		t.Fatal("image not stored")
	}
}

func TestSendNcomSequenceWraps(t *testing.T) {
	for _, modulus := range []int{256, 65536} {
		t.Run(fmt.Sprint(modulus), func(t *testing.T) {
			h := newHarness(t, func(c *config.ClientConfig) { c.NcomSequenceModulus = modulus })

			var last int
			for i := 0; i <= modulus; i++ {
				seq, err := h.c.SendNcom(0, "north")
				if err != nil {
					t.Fatal(err)
				}
				if seq != i%modulus {
					t.Fatalf("send %d got sequence %d", i, seq)
				}
				last = seq
			}
			if last != 0 {
				t.Fatalf("sequence did not wrap, last = %d", last)
			}

			sent := h.sender.strings()
			first := []byte(sent[0])
			if string(first[:5]) != "ncom " || first[5] != 0 || first[6] != 0 {
				t.Fatalf("first ncom = % x", first)
			}
		})
	}
}

func TestSendNcomConcurrentSequencesAreUnique(t *testing.T) {
	h := newHarness(t, func(c *config.ClientConfig) { c.NcomSequenceModulus = 65536 })

	const workers, each = 8, 100
	seen := make(chan int, workers*each)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				seq, err := h.c.SendNcom(1, "apply")
				if err != nil {
					t.Error(err)
					return
				}
				seen <- seq
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int]bool)
	for seq := range seen {
		if unique[seq] {
			t.Fatalf("sequence %d allocated twice", seq)
		}
		unique[seq] = true
	}
	if len(unique) != workers*each {
		t.Fatalf("got %d sequences", len(unique))
	}
}

func TestSendReplyNotifiesListeners(t *testing.T) {
	h := newHarness(t, nil)

	var replies []string
	h.bus.Subscribe(events.EventSentReply, "test", func(_ context.Context, ev events.Event) error {
		replies = append(replies, ev.Payload.(events.SentReplyPayload).Text)
		return nil
	})

	if err := h.c.SendReply("Hero"); err != nil {
		t.Fatal(err)
	}
	if sent := h.sender.strings(); len(sent) != 1 || sent[0] != "reply Hero" {
		t.Fatalf("sent = %q", sent)
	}
	if len(replies) != 1 || replies[0] != "Hero" {
		t.Fatalf("replies = %q", replies)
	}
}

func TestDisconnectDuringHandshakeFails(t *testing.T) {
	h := newHarness(t, nil)
	h.c.onTransport(events.TransportConnected, "test", "")
	h.c.onTransport(events.TransportDisconnected, "test", "server closed connection")
	if h.c.State() != events.StateConnectFailed {
		t.Fatalf("state = %v", h.c.State())
	}
}

func TestSpellMonUpgrade(t *testing.T) {
	addSpell := func(extended bool) []byte {
		b := protocol.NewPacketBuilder()
		b.WriteCommand(protocol.CmdAddSpell, true).
			WriteU32(9).WriteU16(1).WriteU16(2).WriteU16(3).WriteU16(4).WriteU16(5).
			WriteU8(6).WriteU32(7).WriteU32(8).
			WriteString8("magic bullet").
			WriteU16(4).WriteASCII("zap!")
		if extended {
			b.WriteU8(2).WriteString8("none")
		}
		return append([]byte(nil), b.Build()...)
	}

	tests := []struct {
		name      string
		reply     string
		wantLevel int
	}{
		{"accepted", "2", 2},
		{"declined", "FALSE", 1},
		{"older level", "1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := connected(t, nil)
			h.mustFeed([]byte("setup spellmon " + tt.reply))
			if got := h.c.parser.SpellMon(); got != tt.wantLevel {
				t.Fatalf("spellmon = %d, want %d", got, tt.wantLevel)
			}
			if h.c.State() != events.StateConnected {
				t.Fatalf("state = %v", h.c.State())
			}
			h.expectSent()

			h.mustFeed(addSpell(tt.wantLevel >= 2))
			spells := h.model.Spells().Spells()
			if len(spells) != 1 || spells[0].Name != "magic bullet" || spells[0].Message != "zap!" {
				t.Fatalf("spells = %+v", spells)
			}
			if tt.wantLevel >= 2 && (spells[0].Usage != 2 || spells[0].Requirements != "none") {
				t.Fatalf("extended fields = %+v", spells[0])
			}

			// A new connection starts over at level 1.
			h.c.onTransport(events.TransportConnected, "test", "")
			if got := h.c.parser.SpellMon(); got != 1 {
				t.Fatalf("spellmon after reconnect = %d", got)
			}
		})
	}
}
