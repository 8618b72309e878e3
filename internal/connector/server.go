// Package connector implements the client side of a Crossfire server
// connection: the handshake state machine, the map size and look object
// negotiation, the model updates performed for every decoded command and
// the outbound command senders.
package connector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cfclient-project/cfclient/internal/config"
	"github.com/cfclient-project/cfclient/internal/events"
	"github.com/cfclient-project/cfclient/internal/model"
	"github.com/cfclient-project/cfclient/internal/network"
	"github.com/cfclient-project/cfclient/internal/protocol"
	"github.com/cfclient-project/cfclient/internal/util"
)

const componentName = "connector"

// packetSender writes one frame. *network.Transport implements it.
type packetSender interface {
	Send(payload []byte) error
}

// ServerConnector drives one server connection. Inbound frames are handled
// on the transport's read goroutine; Send methods may be called from any
// goroutine.
type ServerConnector struct {
	cfg    config.ClientConfig
	strict bool

	model     *model.Model
	bus       *events.EventBus
	parser    *protocol.Parser
	transport *network.Transport
	sender    packetSender
	logger    zerolog.Logger
	ctx       context.Context

	// sendMu guards the shared builder and the ncom sequence counter.
	sendMu   sync.Mutex
	builder  *protocol.PacketBuilder
	sequence int

	stateMu     sync.Mutex
	state       events.ConnectionState
	loginMethod int
	accountName string

	negMu sync.Mutex
	maps  mapNegotiation
	looks lookNegotiation
}

// NewServerConnector creates a connector with its own transport.
func NewServerConnector(cfg *config.Config, m *model.Model, bus *events.EventBus) *ServerConnector {
	srv := cfg.GetServer()
	c := newServerConnector(cfg.GetClient(), m, bus, nil)
	c.strict = srv.StrictCommands

	c.transport = network.NewTransport(c.handleFrame,
		time.Duration(srv.DialTimeoutSec)*time.Second,
		time.Duration(srv.WriteTimeoutSec)*time.Second)
	c.transport.OnLifecycle(c.onTransport)
	c.transport.OnPacketSent(c.onPacketSent)
	c.sender = c.transport
	return c
}

func newServerConnector(cfg config.ClientConfig, m *model.Model, bus *events.EventBus, sender packetSender) *ServerConnector {
	if cfg.NcomSequenceModulus <= 0 {
		cfg.NcomSequenceModulus = 256
	}
	if cfg.MaxNegotiationRounds <= 0 {
		cfg.MaxNegotiationRounds = 16
	}

	c := &ServerConnector{
		cfg:     cfg,
		model:   m,
		bus:     bus,
		parser:  protocol.NewParser(),
		sender:  sender,
		logger:  util.ComponentLogger(componentName),
		ctx:     context.Background(),
		builder: protocol.NewPacketBuilder(),
		state:   events.StateConnecting,
	}
	c.maps.preferred = MapSize{cfg.MapWidth, cfg.MapHeight}
	c.looks.preferred = cfg.NumLookObjects
	c.resetNegotiation()
	return c
}

// Connect opens the connection to host:port. The handshake runs on the
// transport's read goroutine; Connect returns once the socket is open.
func (c *ServerConnector) Connect(ctx context.Context, host string, port int) error {
	return c.transport.Connect(ctx, host, port)
}

// Disconnect closes the connection. It is safe to call more than once.
func (c *ServerConnector) Disconnect(reason string) {
	c.transport.Disconnect(reason)
}

// Transport returns the underlying frame transport.
func (c *ServerConnector) Transport() *network.Transport {
	return c.transport
}

// Stats returns the transport counters, or zero counters when the
// connector has no transport.
func (c *ServerConnector) Stats() network.Stats {
	if c.transport == nil {
		return network.Stats{}
	}
	return c.transport.Stats()
}

// Model returns the model the connector updates.
func (c *ServerConnector) Model() *model.Model {
	return c.model
}

// Events returns the connector's listener registry.
func (c *ServerConnector) Events() *events.EventBus {
	return c.bus
}

func (c *ServerConnector) emit(ev events.Event) {
	// Handler errors are logged by the bus and do not affect decoding.
	_ = c.bus.Emit(c.ctx, ev)
}

func (c *ServerConnector) emitLocal(t events.EventType, payload interface{}) {
	c.emit(events.Event{Type: t, Source: componentName, Payload: payload})
}

// handleFrame is the transport's frame handler. Unrecognized commands end
// the connection only in strict mode.
func (c *ServerConnector) handleFrame(payload []byte) error {
	err := c.HandleFrame(payload)
	if err == nil {
		return nil
	}
	if protocol.IsFatal(err) {
		return err
	}
	if errors.Is(err, protocol.ErrUnrecognizedCommand) && c.strict {
		return err
	}
	return nil
}

// HandleFrame dispatches one inbound payload. Raw packet watchers see the
// frame first, whether or not it decodes. Decode errors are logged and the
// frame is dropped; HandleFrame returns only unrecognized command errors
// and fatal errors, which include protocol version mismatches.
func (c *ServerConnector) HandleFrame(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}

	c.emit(events.Event{
		Type:    events.EventRawPacket,
		Source:  componentName,
		Payload: protocol.Classify(payload),
	})

	ev, err := c.parser.Parse(payload)
	if err != nil {
		var unrec *protocol.UnrecognizedCommandError
		if errors.As(err, &unrec) {
			c.logger.Warn().
				Str("command", unrec.Command).
				Int("len", len(payload)).
				Str("dump", util.HexDump(payload)).
				Msg("unrecognized command")
			return err
		}
		c.logger.Warn().
			Err(err).
			Int("len", len(payload)).
			Str("dump", util.HexDump(payload)).
			Msg("dropping malformed frame")
		return nil
	}

	if err := c.dispatch(ev); err != nil {
		if protocol.IsFatal(err) {
			c.logger.Error().Err(err).Str("command", ev.Source).Msg("fatal protocol error")
			c.setState(events.StateConnectFailed, err.Error())
			return err
		}
		c.logger.Warn().Err(err).Str("command", ev.Source).Msg("command rejected")
	}
	return nil
}

// dispatch applies the side effects of one decoded command and notifies its
// listeners. Model updates happen before listeners run.
func (c *ServerConnector) dispatch(ev *events.Event) error {
	switch p := ev.Payload.(type) {
	case events.VersionPayload:
		c.onVersion(p)
	case events.SetupPayload:
		if err := c.onSetup(p); err != nil {
			return err
		}
	case events.ReplyInfoPayload:
		c.onReplyInfo(p)
	case events.QueryPayload:
		c.onQuery()
	case events.FailurePayload:
		c.logger.Warn().Str("command", p.Command).Str("message", p.Message).Msg("server reported failure")

	case events.Item2Payload:
		c.model.Items().AddItems(p.Location, p.Items)
	case events.UpdItemPayload:
		c.model.Items().UpdateItem(p)
	case events.DelItemPayload:
		c.model.Items().DeleteItems(p.Tags)
	case events.DelInvPayload:
		c.model.Items().ClearInventory(uint32(p.Tag))
	case events.PlayerPayload:
		c.model.Items().SetPlayer(p)

	case events.StatsPayload:
		c.model.Stats().Apply(p.Updates)
	case events.AddSpellPayload:
		c.model.Spells().AddSpells(p.Spells)
	case events.UpdSpellPayload:
		c.model.Spells().UpdateSpell(p)
	case events.DelSpellPayload:
		c.model.Spells().DeleteSpell(p.Tag)
	case events.AddQuestPayload:
		c.model.Quests().AddQuests(p.Quests)
	case events.UpdQuestPayload:
		c.model.Quests().UpdateQuest(p)
	case events.AddKnowledgePayload:
		c.model.Knowledge().AddItems(p.Items)

	case events.Face2Payload:
		if c.model.FaceCache().Announce(p) {
			c.model.AskFaceQueue().Enqueue(uint32(p.Face))
		}
	case events.Image2Payload:
		c.model.FaceCache().StoreImage(p)
		c.model.AskFaceQueue().Done(p.Face)
	case events.SmoothPayload:
		c.model.SmoothFaces().Set(p.Face, p.SmoothFace)

	case events.NewMapPayload:
		size := c.CurrentMapSize()
		p.Width, p.Height = size.W, size.H
		ev.Payload = p

	case events.AccountPlayersPayload:
		c.onAccountPlayers(ev.Source, p)
		return nil

	case events.EmptyPayload:
		c.onBareCommand(ev.Source)
	}

	c.emit(*ev)
	return nil
}

// onAccountPlayers notifies account listeners with a start, one entry per
// character and an end event.
func (c *ServerConnector) onAccountPlayers(source string, p events.AccountPlayersPayload) {
	c.emit(events.Event{Type: events.EventAccount, Source: source,
		Payload: events.AccountListStart{AccountName: c.AccountName()}})
	for _, ch := range p.Characters {
		c.emit(events.Event{Type: events.EventAccount, Source: source,
			Payload: events.AccountCharacter{Character: ch}})
	}
	c.emit(events.Event{Type: events.EventAccount, Source: source,
		Payload: events.AccountListEnd{Count: len(p.Characters)}})
}

func (c *ServerConnector) onBareCommand(name string) {
	switch name {
	case protocol.CmdAddMeSuccess:
		c.onAddMeSuccess()
	case protocol.CmdAddMeFailed:
		c.onAddMeFailed()
	case protocol.CmdGoodbye:
		c.logger.Info().Msg("server said goodbye")
	}
}

// onTransport follows the socket lifecycle.
func (c *ServerConnector) onTransport(phase events.TransportPhase, addr, reason string) {
	c.emitLocal(events.EventTransport, events.TransportPayload{Phase: phase, Addr: addr, Reason: reason})

	switch phase {
	case events.TransportConnecting:
		c.setState(events.StateConnecting, "")
	case events.TransportConnected:
		c.onConnected()
	case events.TransportConnectFailed:
		c.setState(events.StateConnectFailed, reason)
	case events.TransportDisconnected:
		c.onDisconnected(reason)
	}
}

func (c *ServerConnector) onPacketSent(payload []byte) {
	data := append([]byte(nil), payload...)
	raw := protocol.Classify(data)
	raw.Outbound = true
	c.emitLocal(events.EventPacketSent, events.PacketSentPayload{Data: data})
	c.emitLocal(events.EventRawPacket, raw)
}
