package connector

import (
	"strconv"

	"github.com/cfclient-project/cfclient/internal/events"
	"github.com/cfclient-project/cfclient/internal/protocol"
)

// requiredSetup lists the setup options whose echoed value must match.
var requiredSetup = map[string]string{
	protocol.SetupWantPickup:        "1",
	protocol.SetupExp64:             "1",
	protocol.SetupMap2Cmd:           "1",
	protocol.SetupNewMapCmd:         "1",
	protocol.SetupFaceCache:         "1",
	protocol.SetupExtendedTextInfos: "1",
	protocol.SetupItemCmd:           "2",
	protocol.SetupSpellMon:          "1",
	protocol.SetupTick:              "1",
}

// optionalSetup lists options a server may decline.
var optionalSetup = map[string]bool{
	protocol.SetupFaceset:       true,
	protocol.SetupSound2:        true,
	protocol.SetupDarkness:      true,
	protocol.SetupExtendedStats: true,
	protocol.SetupNotifications: true,
}

// extendedTextTypes are the message types enabled with toggleextendedtext.
var extendedTextTypes = func() []int {
	types := make([]int, 20)
	for i := range types {
		types[i] = i + 1
	}
	return types
}()

// State returns the handshake state.
func (c *ServerConnector) State() events.ConnectionState {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// LoginMethod returns the login method the server announced, 0 for servers
// without accounts.
func (c *ServerConnector) LoginMethod() int {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.loginMethod
}

// AccountName returns the name of the logged in account, if any.
func (c *ServerConnector) AccountName() string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.accountName
}

func (c *ServerConnector) setAccountName(name string) {
	c.stateMu.Lock()
	c.accountName = name
	c.stateMu.Unlock()
}

// setState moves to state and notifies the GUI sink and state listeners.
func (c *ServerConnector) setState(state events.ConnectionState, reason string) {
	c.stateMu.Lock()
	prev := c.state
	c.state = state
	c.stateMu.Unlock()

	if prev == state && reason == "" {
		return
	}

	c.logger.Debug().
		Stringer("from", prev).
		Stringer("to", state).
		Str("reason", reason).
		Msg("connection state changed")

	if gui := c.model.GUIState(); gui != nil {
		gui.ConnectionStateChanged(state, reason)
	}
	c.emitLocal(events.EventConnectionState, events.ConnectionStatePayload{
		State:    state,
		Previous: prev,
		Reason:   reason,
	})
}

// transition moves from one state to the next. A different current state
// is reported but the transition still happens.
func (c *ServerConnector) transition(from, to events.ConnectionState) {
	if cur := c.State(); cur != from {
		c.logger.Warn().
			Stringer("expected", from).
			Stringer("actual", cur).
			Stringer("next", to).
			Msg("unexpected connection state")
	}
	c.setState(to, "")
}

// expectState reports whether the current state is want and logs a
// diagnostic otherwise.
func (c *ServerConnector) expectState(want events.ConnectionState, command string) bool {
	cur := c.State()
	if cur == want {
		return true
	}
	c.logger.Warn().
		Str("command", command).
		Stringer("expected", want).
		Stringer("actual", cur).
		Msg("command received in unexpected state")
	return false
}

func (c *ServerConnector) onConnected() {
	c.stateMu.Lock()
	c.accountName = ""
	c.loginMethod = 0
	c.stateMu.Unlock()

	c.model.ResetSession()
	c.parser.SetSpellMon(1)
	size := c.resetNegotiation()

	c.emitLocal(events.EventMapUpdate, events.NewMapPayload{Width: size.W, Height: size.H})

	c.transition(events.StateConnecting, events.StateVersion)
	if err := c.SendVersion(); err != nil {
		c.logger.Error().Err(err).Msg("failed to send version")
	}
}

func (c *ServerConnector) onDisconnected(reason string) {
	c.resetNegotiation()

	// A connection lost during the handshake counts as a failed attempt.
	switch c.State() {
	case events.StateConnected, events.StateConnectFailed:
	default:
		c.setState(events.StateConnectFailed, reason)
	}
}

func (c *ServerConnector) onVersion(p events.VersionPayload) {
	c.logger.Info().
		Int("cs", p.CSVal).
		Int("sc", p.SCVal).
		Str("info", p.Info).
		Msg("server version")

	c.transition(events.StateVersion, events.StateSetup)
	if err := c.SendSetup(protocol.InitialSetupOptions...); err != nil {
		c.logger.Error().Err(err).Msg("failed to send setup")
	}
}

// isNegotiationReply reports whether a setup command answers a single
// mapsize, num_look_objects or spellmon request rather than echoing the
// full list.
func isNegotiationReply(p events.SetupPayload) bool {
	if len(p.Options) != 1 {
		return false
	}
	switch p.Options[0].Name {
	case protocol.SetupMapSize, protocol.SetupNumLookObjects, protocol.SetupSpellMon:
		return true
	}
	return false
}

func (c *ServerConnector) onSetup(p events.SetupPayload) error {
	if isNegotiationReply(p) {
		if opt := p.Options[0]; opt.Name == protocol.SetupSpellMon {
			c.onSpellMonReply(opt.Value)
			return nil
		}
		return c.onNegotiationReply(p.Options[0])
	}

	for _, opt := range p.Options {
		if want, ok := requiredSetup[opt.Name]; ok {
			if opt.Value != want {
				return &protocol.VersionMismatchError{Option: opt.Name, Got: opt.Value, Want: want}
			}
			continue
		}

		switch {
		case optionalSetup[opt.Name]:
			if opt.Value == protocol.SetupFalse {
				c.logger.Info().Str("option", opt.Name).Msg("server does not support optional setup option")
			}
		case opt.Name == protocol.SetupLoginMethod:
			c.setLoginMethod(opt.Value)
		case opt.Name == protocol.SetupMapSize, opt.Name == protocol.SetupNumLookObjects:
			if err := c.onNegotiationReply(opt); err != nil {
				return err
			}
		default:
			c.logger.Warn().Str("option", opt.Name).Str("value", opt.Value).Msg("unknown setup option")
		}
	}

	// spellmon 1 is in place; ask for the extended addspell records.
	if err := c.SendSetup(protocol.SetupOption{Name: protocol.SetupSpellMon, Value: "2"}); err != nil {
		return err
	}

	c.transition(events.StateSetup, events.StateRequestInfo)
	for _, info := range []string{
		protocol.InfoImageInfo,
		protocol.InfoSkillInfo + " 1",
		protocol.InfoExpTable,
		protocol.InfoKnowledgeInfo,
	} {
		if err := c.SendRequestInfo(info); err != nil {
			return err
		}
	}
	return c.SendToggleExtendedText(extendedTextTypes...)
}

// onSpellMonReply adopts spellmon 2 when the server echoes it. Any other
// answer leaves the level at 1.
func (c *ServerConnector) onSpellMonReply(value string) {
	if value != "2" {
		c.logger.Info().Str("value", value).Msg("server declined spellmon 2")
		return
	}
	c.parser.SetSpellMon(2)
	c.logger.Debug().Msg("spellmon 2 enabled")
}

func (c *ServerConnector) setLoginMethod(value string) {
	method := 0
	if value != protocol.SetupFalse {
		v, err := strconv.Atoi(value)
		if err != nil {
			c.logger.Warn().Str("value", value).Msg("invalid loginmethod, assuming no accounts")
		} else {
			method = v
		}
	}

	c.stateMu.Lock()
	c.loginMethod = method
	c.stateMu.Unlock()
}

func (c *ServerConnector) onReplyInfo(p events.ReplyInfoPayload) {
	switch p.Info {
	case protocol.InfoImageInfo:
		if p.ImageInfo != nil {
			c.logger.Info().
				Int("images", p.ImageInfo.NumImages).
				Strs("facesets", p.ImageInfo.Facesets).
				Msg("image info")
		}
	case protocol.InfoSkillInfo:
		c.model.Spells().SetSkills(p.Skills)
	case protocol.InfoKnowledgeInfo:
		c.model.Knowledge().SetTypes(p.KnowledgeTypes)
	case protocol.InfoExpTable:
		c.model.ExperienceTable().SetTable(p.ExpTable)
		c.onExpTable()
	default:
		c.logger.Debug().Str("info", p.Info).Msg("ignoring replyinfo")
	}
}

// onExpTable ends the info phase. The exp table is the last requested info.
func (c *ServerConnector) onExpTable() {
	if !c.expectState(events.StateRequestInfo, protocol.CmdReplyInfo) {
		return
	}

	if c.LoginMethod() == 0 {
		c.transition(events.StateRequestInfo, events.StateAddMe)
		if err := c.SendAddMe(); err != nil {
			c.logger.Error().Err(err).Msg("failed to send addme")
		}
		return
	}

	c.transition(events.StateRequestInfo, events.StateAccountInfo)
	c.emitLocal(events.EventAccount, events.ManageAccount{})
}

func (c *ServerConnector) onAddMeSuccess() {
	switch c.State() {
	case events.StateAddMe:
		c.transition(events.StateAddMe, events.StateConnected)
		c.negotiateNumLookObjects()
		c.negotiateMapSize()
	case events.StateAccountInfo:
		c.emitLocal(events.EventAccount, events.StartPlaying{})
		c.transition(events.StateAccountInfo, events.StateConnected)
		c.negotiateNumLookObjects()
		c.negotiateMapSize()
	default:
		c.expectState(events.StateAddMe, protocol.CmdAddMeSuccess)
	}
}

func (c *ServerConnector) onAddMeFailed() {
	c.logger.Warn().Stringer("state", c.State()).Msg("server rejected addme")
	c.emitLocal(events.EventAccount, events.AddMeFailed{})
	if c.State() == events.StateAccountInfo {
		c.emitLocal(events.EventAccount, events.ManageAccount{})
	}
}

// onQuery handles a query that arrives before addme completed. Old servers
// ask for the character name this way; the connection counts as
// established from then on.
func (c *ServerConnector) onQuery() {
	switch c.State() {
	case events.StateConnected, events.StateConnecting, events.StateConnectFailed:
		return
	}

	c.setState(events.StateConnected, "query before addme")
	c.negotiateNumLookObjects()
	c.negotiateMapSize()
}
