// Package events defines the listener categories, payload types and the
// connection state enumeration shared by the protocol decoders, the server
// connector and every consumer of decoded server events.
package events

// EventType identifies a listener category.
type EventType string

const (
	// Text and interaction
	EventDrawInfo    EventType = "draw_info"
	EventDrawExtInfo EventType = "draw_ext_info"
	EventQuery       EventType = "query"
	EventFailure     EventType = "failure"
	EventSentReply   EventType = "sent_reply"

	// World
	EventMapUpdate  EventType = "map_update"
	EventItemUpdate EventType = "item_update"
	EventFace       EventType = "face"
	EventTick       EventType = "tick"
	EventSound      EventType = "sound"
	EventMusic      EventType = "music"
	EventComc       EventType = "comc"
	EventPickup     EventType = "pickup"

	// Character model
	EventStats     EventType = "stats"
	EventSpells    EventType = "spells"
	EventQuests    EventType = "quests"
	EventKnowledge EventType = "knowledge"

	// Session
	EventAccount         EventType = "account"
	EventConnectionState EventType = "connection_state"
	EventTransport       EventType = "transport"
	EventServerInfo      EventType = "server_info"

	// Protocol debugging
	EventRawPacket  EventType = "raw_packet"
	EventPacketSent EventType = "packet_sent"
)

// ConnectionState is the handshake state of a server connection.
type ConnectionState int

const (
	StateConnecting ConnectionState = iota
	StateVersion
	StateSetup
	StateRequestInfo
	StateAddMe
	StateAccountInfo
	StateConnected
	StateConnectFailed
)

var connectionStateStrings = map[ConnectionState]string{
	StateConnecting:    "connecting",
	StateVersion:       "version",
	StateSetup:         "setup",
	StateRequestInfo:   "requestinfo",
	StateAddMe:         "addme",
	StateAccountInfo:   "account_info",
	StateConnected:     "connected",
	StateConnectFailed: "connect_failed",
}

// String returns the string representation of ConnectionState.
func (s ConnectionState) String() string {
	if str, ok := connectionStateStrings[s]; ok {
		return str
	}
	return "unknown"
}

// MarshalJSON serializes ConnectionState as a JSON string (e.g. "connected").
func (s ConnectionState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// TransportPhase is a socket lifecycle notification.
type TransportPhase int

const (
	TransportConnecting TransportPhase = iota
	TransportConnected
	TransportConnectFailed
	TransportDisconnecting
	TransportDisconnected
)

// String returns the string representation of TransportPhase.
func (p TransportPhase) String() string {
	switch p {
	case TransportConnecting:
		return "connecting"
	case TransportConnected:
		return "connected"
	case TransportConnectFailed:
		return "connect_failed"
	case TransportDisconnecting:
		return "disconnecting"
	case TransportDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes TransportPhase as a JSON string.
func (p TransportPhase) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// RawCategory tags the shape of a frame's arguments for packet watchers.
type RawCategory int

const (
	RawNoData RawCategory = iota
	RawASCII
	RawShortArray
	RawIntArray
	RawShortInt
	RawMixed
	RawStats
)

var rawCategoryStrings = map[RawCategory]string{
	RawNoData:     "no_data",
	RawASCII:      "ascii",
	RawShortArray: "short_array",
	RawIntArray:   "int_array",
	RawShortInt:   "short_int",
	RawMixed:      "mixed",
	RawStats:      "stats",
}

// String returns the string representation of RawCategory.
func (c RawCategory) String() string {
	if str, ok := rawCategoryStrings[c]; ok {
		return str
	}
	return "mixed"
}

// MarshalJSON serializes RawCategory as a JSON string.
func (c RawCategory) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// Event represents a single decoded or synthesized event. Source holds the
// wire command name the event was decoded from, or the component name for
// synthesized events.
type Event struct {
	Type    EventType
	Source  string
	Payload interface{}
}
