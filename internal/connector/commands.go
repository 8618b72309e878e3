package connector

import (
	"github.com/cfclient-project/cfclient/internal/events"
	"github.com/cfclient-project/cfclient/internal/network"
	"github.com/cfclient-project/cfclient/internal/protocol"
)

// send builds a payload with the shared builder and writes it, both under
// sendMu so that concurrent senders cannot mix their payloads.
func (c *ServerConnector) send(build func(b *protocol.PacketBuilder)) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.sendLocked(build)
}

func (c *ServerConnector) sendLocked(build func(b *protocol.PacketBuilder)) error {
	build(c.builder)
	if c.sender == nil {
		return network.ErrNotConnected
	}
	return c.sender.Send(c.builder.Build())
}

// SendVersion announces the protocol version and client name.
func (c *ServerConnector) SendVersion() error {
	return c.send(func(b *protocol.PacketBuilder) { protocol.BuildVersion(b, c.cfg.ClientName) })
}

// SendSetup sends a setup command with the given options.
func (c *ServerConnector) SendSetup(options ...protocol.SetupOption) error {
	return c.send(func(b *protocol.PacketBuilder) { protocol.BuildSetup(b, options...) })
}

// SendRequestInfo asks the server for an info block.
func (c *ServerConnector) SendRequestInfo(info string) error {
	return c.send(func(b *protocol.PacketBuilder) { protocol.BuildRequestInfo(b, info) })
}

// SendToggleExtendedText enables extended text for the given message types.
func (c *ServerConnector) SendToggleExtendedText(types ...int) error {
	return c.send(func(b *protocol.PacketBuilder) { protocol.BuildToggleExtendedText(b, types...) })
}

// SendAddMe asks the server to add the player.
func (c *ServerConnector) SendAddMe() error {
	return c.send(protocol.BuildAddMe)
}

// SendAccountLogin logs into an account. The account name is remembered
// for the character list that follows.
func (c *ServerConnector) SendAccountLogin(login, password string) error {
	c.setAccountName(login)
	return c.send(func(b *protocol.PacketBuilder) { protocol.BuildAccountLogin(b, login, password) })
}

// SendAccountNew creates an account.
func (c *ServerConnector) SendAccountNew(login, password string) error {
	c.setAccountName(login)
	return c.send(func(b *protocol.PacketBuilder) { protocol.BuildAccountNew(b, login, password) })
}

// SendAccountPlay selects the character to play.
func (c *ServerConnector) SendAccountPlay(character string) error {
	return c.send(func(b *protocol.PacketBuilder) { protocol.BuildAccountPlay(b, character) })
}

// SendAccountAddPlayer links an existing character to the account.
func (c *ServerConnector) SendAccountAddPlayer(force bool, login, password string) error {
	return c.send(func(b *protocol.PacketBuilder) { protocol.BuildAccountAddPlayer(b, force, login, password) })
}

// SendAccountPw changes the account password.
func (c *ServerConnector) SendAccountPw(oldPassword, newPassword string) error {
	return c.send(func(b *protocol.PacketBuilder) { protocol.BuildAccountPw(b, oldPassword, newPassword) })
}

// SendCreatePlayer creates a character on the account.
func (c *ServerConnector) SendCreatePlayer(name, password string) error {
	return c.send(func(b *protocol.PacketBuilder) { protocol.BuildCreatePlayer(b, name, password) })
}

// SendApply applies an item.
func (c *ServerConnector) SendApply(tag int) error {
	return c.send(func(b *protocol.PacketBuilder) { protocol.BuildApply(b, tag) })
}

// SendAskFace requests the image of a face.
func (c *ServerConnector) SendAskFace(face int) error {
	return c.send(func(b *protocol.PacketBuilder) { protocol.BuildAskFace(b, face) })
}

// SendExamine examines an item.
func (c *ServerConnector) SendExamine(tag int) error {
	return c.send(func(b *protocol.PacketBuilder) { protocol.BuildExamine(b, tag) })
}

// SendLock locks or unlocks an item.
func (c *ServerConnector) SendLock(lock bool, tag uint32) error {
	return c.send(func(b *protocol.PacketBuilder) { protocol.BuildLock(b, lock, tag) })
}

// SendLookAt looks at a map square relative to the player.
func (c *ServerConnector) SendLookAt(dx, dy int) error {
	return c.send(func(b *protocol.PacketBuilder) { protocol.BuildLookAt(b, dx, dy) })
}

// SendMark marks an item.
func (c *ServerConnector) SendMark(tag uint32) error {
	return c.send(func(b *protocol.PacketBuilder) { protocol.BuildMark(b, tag) })
}

// SendMove moves nrof items with the given tag to location to.
func (c *ServerConnector) SendMove(to, tag, nrof int) error {
	return c.send(func(b *protocol.PacketBuilder) { protocol.BuildMove(b, to, tag, nrof) })
}

// SendNcom sends a command and returns the packet sequence number the
// server acknowledges with comc. The counter wraps at the configured
// modulus.
func (c *ServerConnector) SendNcom(repeat uint32, command string) (int, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	seq := c.sequence
	c.sequence = (c.sequence + 1) % c.cfg.NcomSequenceModulus
	err := c.sendLocked(func(b *protocol.PacketBuilder) { protocol.BuildNcom(b, uint16(seq), repeat, command) })
	return seq, err
}

// SendReply answers a query and notifies sent reply listeners.
func (c *ServerConnector) SendReply(text string) error {
	if err := c.send(func(b *protocol.PacketBuilder) { protocol.BuildReply(b, text) }); err != nil {
		return err
	}
	c.emitLocal(events.EventSentReply, events.SentReplyPayload{Text: text})
	return nil
}

// FlushAskFaces requests up to n queued face images; n <= 0 requests
// all of them. It returns the number of askface commands sent.
func (c *ServerConnector) FlushAskFaces(n int) (int, error) {
	faces := c.model.AskFaceQueue().Next(n)
	for i, face := range faces {
		if err := c.SendAskFace(int(face)); err != nil {
			for _, f := range faces[i:] {
				c.model.AskFaceQueue().Done(f)
			}
			return i, err
		}
	}
	return len(faces), nil
}
