package connector

import (
	"strings"
	"testing"

	"github.com/cfclient-project/cfclient/internal/config"
	"github.com/cfclient-project/cfclient/internal/protocol"
)

func accountPlayers(names ...string) []byte {
	b := protocol.NewPacketBuilder()
	b.WriteCommand(protocol.CmdAccountPlayers, true).WriteU8(uint8(len(names)))
	for _, name := range names {
		writeAttr(b, protocol.AclName, []byte(name))
		b.WriteU8(0)
	}
	return append([]byte(nil), b.Build()...)
}

func countPrefix(sent []string, prefix string) int {
	n := 0
	for _, s := range sent {
		if strings.HasPrefix(s, prefix) {
			n++
		}
	}
	return n
}

func TestAutoLoginPlaysConfiguredCharacter(t *testing.T) {
	h := newHarness(t, nil)
	NewAutoLogin(h.c, config.ServerConfig{
		AccountLogin:    "alice",
		AccountPassword: "secret",
		Character:       "Mage",
	}).Register(h.bus)

	h.handshake("2")
	sent := h.sender.strings()
	if last := sent[len(sent)-1]; last != "accountlogin \x05alice\x06secret" {
		t.Fatalf("last command = %q", last)
	}
	if h.c.AccountName() != "alice" {
		t.Fatalf("account = %q", h.c.AccountName())
	}

	h.mustFeed(accountPlayers("Hero", "Mage"))
	sent = h.sender.strings()
	if last := sent[len(sent)-1]; last != "accountplay Mage" {
		t.Fatalf("last command = %q", last)
	}

	// A rejected play brings the account dialog back; the credentials
	// are not sent a second time.
	h.mustFeed([]byte("addme_failed"))
	h.mustFeed(accountPlayers("Hero", "Mage"))
	sent = h.sender.strings()
	if n := countPrefix(sent, "accountlogin"); n != 1 {
		t.Fatalf("accountlogin sent %d times: %q", n, sent)
	}
	if n := countPrefix(sent, "accountplay"); n != 1 {
		t.Fatalf("accountplay sent %d times: %q", n, sent)
	}
}

func TestAutoLoginWithoutCharacterWaits(t *testing.T) {
	h := newHarness(t, nil)
	NewAutoLogin(h.c, config.ServerConfig{AccountLogin: "alice", AccountPassword: "secret"}).Register(h.bus)

	h.handshake("2")
	h.mustFeed(accountPlayers("Hero"))
	if n := countPrefix(h.sender.strings(), "accountplay"); n != 0 {
		t.Fatalf("accountplay sent without a configured character")
	}
}

func TestAutoLoginDisabledWithoutAccount(t *testing.T) {
	h := newHarness(t, nil)
	NewAutoLogin(h.c, config.ServerConfig{Character: "Mage"}).Register(h.bus)

	h.handshake("2")
	h.mustFeed(accountPlayers("Mage"))
	sent := h.sender.strings()
	if countPrefix(sent, "accountlogin") != 0 || countPrefix(sent, "accountplay") != 0 {
		t.Fatalf("sent = %q", sent)
	}
}
