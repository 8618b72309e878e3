package connector

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cfclient-project/cfclient/internal/events"
	"github.com/cfclient-project/cfclient/internal/protocol"
)

// ErrNegotiationDiverged is returned when the server's mapsize replies do
// not converge within the configured number of rounds.
var ErrNegotiationDiverged = errors.New("map size negotiation did not converge")

// MapSize is a map view size in tiles. The zero value means "none".
type MapSize struct {
	W, H int
}

func (s MapSize) isZero() bool { return s.W == 0 && s.H == 0 }

func (s MapSize) String() string { return fmt.Sprintf("%dx%d", s.W, s.H) }

// mapNegotiation is the map size negotiation state. A non-zero pending size
// means a setup mapsize request is outstanding.
type mapNegotiation struct {
	preferred MapSize
	pending   MapSize
	current   MapSize

	// target is the preferred size when the running round started.
	target  MapSize
	rounds  int
	started time.Time
}

// lookNegotiation is the look object count negotiation state. A non-zero
// pending count means a request is outstanding.
type lookNegotiation struct {
	preferred int
	pending   int
	current   int
	started   time.Time
}

// NegotiationStatus is a snapshot of both negotiations.
type NegotiationStatus struct {
	PreferredMap   string    `json:"preferred_map"`
	PendingMap     string    `json:"pending_map,omitempty"`
	CurrentMap     string    `json:"current_map"`
	MapRounds      int       `json:"map_rounds"`
	PreferredLook  int       `json:"preferred_look_objects"`
	PendingLook    int       `json:"pending_look_objects,omitempty"`
	CurrentLook    int       `json:"current_look_objects"`
	PendingSince   time.Time `json:"pending_since"`
	NegotiationMax int       `json:"max_rounds"`
}

// resetNegotiation restores the server defaults and drops outstanding
// requests. It returns the map size now in effect.
func (c *ServerConnector) resetNegotiation() MapSize {
	c.negMu.Lock()
	defer c.negMu.Unlock()

	c.maps.pending = MapSize{}
	c.maps.current = MapSize{protocol.DefaultMapWidth, protocol.DefaultMapHeight}
	c.maps.rounds = 0
	c.looks.pending = 0
	c.looks.current = protocol.DefaultLookObjects
	return c.maps.current
}

// CurrentMapSize returns the negotiated map size.
func (c *ServerConnector) CurrentMapSize() MapSize {
	c.negMu.Lock()
	defer c.negMu.Unlock()
	return c.maps.current
}

// NumLookObjects returns the negotiated look object count.
func (c *ServerConnector) NumLookObjects() int {
	c.negMu.Lock()
	defer c.negMu.Unlock()
	return c.looks.current
}

// Negotiation returns a snapshot of the negotiation state.
func (c *ServerConnector) Negotiation() NegotiationStatus {
	c.negMu.Lock()
	defer c.negMu.Unlock()

	st := NegotiationStatus{
		PreferredMap:   c.maps.preferred.String(),
		CurrentMap:     c.maps.current.String(),
		MapRounds:      c.maps.rounds,
		PreferredLook:  c.looks.preferred,
		PendingLook:    c.looks.pending,
		CurrentLook:    c.looks.current,
		NegotiationMax: c.cfg.MaxNegotiationRounds,
	}
	if !c.maps.pending.isZero() {
		st.PendingMap = c.maps.pending.String()
		st.PendingSince = c.maps.started
	}
	if c.looks.pending != 0 && (st.PendingSince.IsZero() || c.looks.started.Before(st.PendingSince)) {
		st.PendingSince = c.looks.started
	}
	return st
}

// SetPreferredMapSize changes the preferred map size and negotiates it
// when the connection allows.
func (c *ServerConnector) SetPreferredMapSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid map size %dx%d", width, height)
	}
	c.negMu.Lock()
	c.maps.preferred = MapSize{width, height}
	c.negMu.Unlock()

	c.negotiateMapSize()
	return nil
}

// SetPreferredNumLookObjects changes the preferred look object count and
// negotiates it when the connection allows.
func (c *ServerConnector) SetPreferredNumLookObjects(n int) error {
	if n <= 0 {
		return fmt.Errorf("invalid look object count %d", n)
	}
	c.negMu.Lock()
	c.looks.preferred = n
	c.negMu.Unlock()

	c.negotiateNumLookObjects()
	return nil
}

// canNegotiate reports whether the handshake is far enough for setup
// requests.
func (c *ServerConnector) canNegotiate() bool {
	switch c.State() {
	case events.StateConnecting, events.StateVersion, events.StateConnectFailed:
		return false
	}
	return true
}

// negotiateMapSize starts a round towards the preferred size unless one is
// running or the size is already in effect.
func (c *ServerConnector) negotiateMapSize() {
	if !c.canNegotiate() {
		return
	}

	c.negMu.Lock()
	if !c.maps.pending.isZero() || c.maps.current == c.maps.preferred {
		c.negMu.Unlock()
		return
	}
	c.maps.target = c.maps.preferred
	c.maps.rounds = 0
	c.maps.started = time.Now()
	size := c.maps.preferred
	c.maps.pending = size
	c.negMu.Unlock()

	c.sendMapSize(size)
}

func (c *ServerConnector) sendMapSize(size MapSize) {
	c.logger.Debug().Stringer("size", size).Msg("requesting map size")
	if err := c.SendSetup(protocol.SetupOption{Name: protocol.SetupMapSize, Value: size.String()}); err != nil {
		c.logger.Error().Err(err).Msg("failed to send mapsize")
	}
}

func (c *ServerConnector) onNegotiationReply(opt events.SetupEntry) error {
	if opt.Name == protocol.SetupNumLookObjects {
		c.onNumLookObjectsReply(opt.Value)
		return nil
	}
	return c.onMapSizeReply(opt.Value)
}

func parseMapSize(value string) (MapSize, bool) {
	ws, hs, ok := strings.Cut(value, "x")
	if !ok {
		return MapSize{}, false
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		return MapSize{}, false
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h <= 0 {
		return MapSize{}, false
	}
	return MapSize{w, h}, true
}

// nextMapRequest chooses the size to request after the server answered got
// to a request for pending. It returns the zero size when got is accepted.
func nextMapRequest(pending, got MapSize) MapSize {
	switch {
	case got == pending:
		return MapSize{}
	case got.W < pending.W && got.H < pending.H:
		return got
	case got.W < pending.W:
		return MapSize{got.W, pending.H}
	case got.H < pending.H:
		return MapSize{pending.W, got.H}
	case got.W == pending.W:
		return MapSize{pending.W, pending.H + 2}
	case got.H == pending.H:
		return MapSize{pending.W + 2, pending.H}
	case pending.W <= pending.H:
		return MapSize{pending.W + 2, pending.H}
	default:
		return MapSize{pending.W, pending.H + 2}
	}
}

func (c *ServerConnector) onMapSizeReply(value string) error {
	c.negMu.Lock()

	if c.maps.pending.isZero() {
		c.negMu.Unlock()
		c.logger.Warn().Str("value", value).Msg("unexpected mapsize reply")
		return nil
	}

	if value == protocol.SetupFalse {
		c.maps.pending = MapSize{}
		c.negMu.Unlock()
		c.logger.Warn().Msg("server does not support mapsize negotiation")
		return nil
	}

	got, ok := parseMapSize(value)
	if !ok {
		c.maps.pending = MapSize{}
		c.negMu.Unlock()
		c.logger.Warn().Str("value", value).Msg("invalid mapsize reply")
		return nil
	}

	c.maps.rounds++
	if c.maps.rounds > c.cfg.MaxNegotiationRounds {
		rounds := c.maps.rounds
		c.maps.pending = MapSize{}
		c.negMu.Unlock()
		return protocol.Fatal(fmt.Errorf("%w after %d replies (last %s)", ErrNegotiationDiverged, rounds, got))
	}

	next := nextMapRequest(c.maps.pending, got)
	if !next.isZero() {
		c.maps.pending = next
		c.negMu.Unlock()
		c.sendMapSize(next)
		return nil
	}

	c.maps.pending = MapSize{}
	changed := c.maps.current != got
	c.maps.current = got
	again := c.maps.preferred != c.maps.target
	c.negMu.Unlock()

	c.logger.Info().Stringer("size", got).Msg("map size negotiated")
	if changed {
		c.emitLocal(events.EventMapUpdate, events.NewMapPayload{Width: got.W, Height: got.H})
	}
	if again {
		c.negotiateMapSize()
	}
	return nil
}

// negotiateNumLookObjects requests the preferred look object count unless
// a request is outstanding or the count is already in effect.
func (c *ServerConnector) negotiateNumLookObjects() {
	if !c.canNegotiate() {
		return
	}

	c.negMu.Lock()
	if c.looks.pending != 0 || c.looks.current == c.looks.preferred {
		c.negMu.Unlock()
		return
	}
	n := c.looks.preferred
	c.looks.pending = n
	c.looks.started = time.Now()
	c.negMu.Unlock()

	c.logger.Debug().Int("count", n).Msg("requesting look object count")
	if err := c.SendSetup(protocol.SetupOption{Name: protocol.SetupNumLookObjects, Value: strconv.Itoa(n)}); err != nil {
		c.logger.Error().Err(err).Msg("failed to send num_look_objects")
	}
}

func (c *ServerConnector) onNumLookObjectsReply(value string) {
	c.negMu.Lock()

	if c.looks.pending == 0 {
		c.negMu.Unlock()
		c.logger.Warn().Str("value", value).Msg("unexpected num_look_objects reply")
		return
	}
	requested := c.looks.pending
	c.looks.pending = 0

	if value == protocol.SetupFalse {
		c.negMu.Unlock()
		c.logger.Warn().Msg("server does not support num_look_objects negotiation")
		return
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		c.negMu.Unlock()
		c.logger.Warn().Str("value", value).Msg("invalid num_look_objects reply")
		return
	}
	c.looks.current = n
	again := c.looks.preferred != requested && c.looks.preferred != n
	c.negMu.Unlock()

	c.logger.Info().Int("count", n).Msg("look object count negotiated")
	if again {
		c.negotiateNumLookObjects()
	}
}
