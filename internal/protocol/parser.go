package protocol

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cfclient-project/cfclient/internal/events"
)

// decodeFunc decodes the arguments of one command. The reader is positioned
// immediately after the command name and its delimiter.
type decodeFunc func(p *Parser, r *Reader) (interface{}, error)

// commandEntry describes how a command name is matched and decoded.
type commandEntry struct {
	event  events.EventType
	raw    events.RawCategory
	decode decodeFunc

	// bare commands carry no arguments and must end the payload.
	bare bool

	// lenient commands ignore trailing data.
	lenient bool
}

var commandTable = map[string]commandEntry{
	CmdAccountPlayers:  {event: events.EventAccount, raw: events.RawMixed, decode: decodeAccountPlayers},
	CmdAddKnowledge:    {event: events.EventKnowledge, raw: events.RawMixed, decode: decodeAddKnowledge},
	CmdAddMeFailed:     {event: events.EventServerInfo, raw: events.RawNoData, decode: decodeEmpty, bare: true},
	CmdAddMeSuccess:    {event: events.EventServerInfo, raw: events.RawNoData, decode: decodeEmpty, bare: true},
	CmdAddQuest:        {event: events.EventQuests, raw: events.RawMixed, decode: decodeAddQuest},
	CmdAddSpell:        {event: events.EventSpells, raw: events.RawMixed, decode: decodeAddSpell},
	CmdAnim:            {event: events.EventFace, raw: events.RawShortArray, decode: decodeAnim},
	CmdComc:            {event: events.EventComc, raw: events.RawShortInt, decode: decodeComc},
	CmdDelInv:          {event: events.EventItemUpdate, raw: events.RawASCII, decode: decodeDelInv},
	CmdDelItem:         {event: events.EventItemUpdate, raw: events.RawIntArray, decode: decodeDelItem},
	CmdDelSpell:        {event: events.EventSpells, raw: events.RawIntArray, decode: decodeDelSpell},
	CmdDrawExtInfo:     {event: events.EventDrawExtInfo, raw: events.RawASCII, decode: decodeDrawExtInfo},
	CmdDrawInfo:        {event: events.EventDrawInfo, raw: events.RawASCII, decode: decodeDrawInfo},
	CmdExtendedInfoSet: {event: events.EventServerInfo, raw: events.RawASCII, decode: decodeIgnored, lenient: true},
	CmdExtendedTextSet: {event: events.EventServerInfo, raw: events.RawASCII, decode: decodeIgnored, lenient: true},
	CmdFace2:           {event: events.EventFace, raw: events.RawMixed, decode: decodeFace2},
	CmdFailure:         {event: events.EventFailure, raw: events.RawASCII, decode: decodeFailure},
	CmdGoodbye:         {event: events.EventServerInfo, raw: events.RawNoData, decode: decodeEmpty, bare: true},
	CmdImage2:          {event: events.EventFace, raw: events.RawMixed, decode: decodeImage2},
	CmdItem2:           {event: events.EventItemUpdate, raw: events.RawMixed, decode: decodeItem2},
	CmdMagicMap:        {event: events.EventMapUpdate, raw: events.RawMixed, decode: decodeMagicMap},
	CmdMap2:            {event: events.EventMapUpdate, raw: events.RawShortArray, decode: decodeMap2},
	CmdMapExtended:     {event: events.EventMapUpdate, raw: events.RawMixed, decode: decodeIgnored, lenient: true},
	CmdMusic:           {event: events.EventMusic, raw: events.RawASCII, decode: decodeMusic},
	CmdNewMap:          {event: events.EventMapUpdate, raw: events.RawNoData, decode: decodeNewMap, bare: true},
	CmdPickup:          {event: events.EventPickup, raw: events.RawIntArray, decode: decodePickup},
	CmdPlayer:          {event: events.EventItemUpdate, raw: events.RawMixed, decode: decodePlayer},
	CmdQuery:           {event: events.EventQuery, raw: events.RawASCII, decode: decodeQuery},
	CmdReplyInfo:       {event: events.EventServerInfo, raw: events.RawMixed, decode: decodeReplyInfo},
	CmdSetup:           {event: events.EventServerInfo, raw: events.RawASCII, decode: decodeSetup},
	CmdSmooth:          {event: events.EventFace, raw: events.RawShortArray, decode: decodeSmooth},
	CmdSound:           {event: events.EventSound, raw: events.RawMixed, decode: decodeSound},
	CmdSound2:          {event: events.EventSound, raw: events.RawMixed, decode: decodeSound2},
	CmdStats:           {event: events.EventStats, raw: events.RawStats, decode: decodeStats},
	CmdTick:            {event: events.EventTick, raw: events.RawIntArray, decode: decodeTick},
	CmdUpdItem:         {event: events.EventItemUpdate, raw: events.RawMixed, decode: decodeUpdItem},
	CmdUpdQuest:        {event: events.EventQuests, raw: events.RawMixed, decode: decodeUpdQuest},
	CmdUpdSpell:        {event: events.EventSpells, raw: events.RawMixed, decode: decodeUpdSpell},
	CmdVersion:         {event: events.EventServerInfo, raw: events.RawASCII, decode: decodeVersion},
}

// Parser decodes inbound payloads into events. A Parser is used from the
// connection's read goroutine only.
type Parser struct {
	logger   zerolog.Logger
	spellMon int
}

// NewParser creates a new command parser.
func NewParser() *Parser {
	return &Parser{
		logger:   log.With().Str("component", "parser").Logger(),
		spellMon: 1,
	}
}

// SetSpellMon sets the negotiated spellmon level. Level 2 adds the usage and
// requirements fields to every addspell record.
func (p *Parser) SetSpellMon(level int) {
	p.spellMon = level
}

// SpellMon returns the negotiated spellmon level.
func (p *Parser) SpellMon() int {
	return p.spellMon
}

// KnownCommand reports whether name is an inbound command this parser decodes.
func KnownCommand(name string) bool {
	_, ok := commandTable[name]
	return ok
}

// commandName returns the leading run of printable non-space ASCII bytes.
func commandName(data []byte) string {
	end := 0
	for end < len(data) && data[end] >= 0x21 && data[end] <= 0x7E {
		end++
	}
	return string(data[:end])
}

// Parse decodes one payload into an event. The Source of the returned event
// is the wire command name. Every decode failure wraps one of the package
// sentinels; a payload that matches no command returns an
// *UnrecognizedCommandError.
func (p *Parser) Parse(data []byte) (*events.Event, error) {
	if len(data) == 0 {
		return nil, truncated("command", 1, 0)
	}

	name := commandName(data)
	entry, ok := commandTable[name]
	if !ok {
		return nil, &UnrecognizedCommandError{Command: name, Raw: data}
	}

	off := len(name)
	switch {
	case off == len(data):
		if !entry.bare && !entry.lenient {
			return nil, fmt.Errorf("%s: %w", name, truncated("delimiter", 1, 0))
		}
	case entry.bare:
		return nil, fmt.Errorf("%s: %w", name, &excessError{extra: len(data) - off})
	case data[off] == ' ', data[off] == '\n' && name == CmdReplyInfo:
		off++
	case entry.lenient:
	default:
		return nil, &UnrecognizedCommandError{Command: name, Raw: data}
	}

	r := NewReaderAt(data, off)
	payload, err := entry.decode(p, r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if !entry.lenient {
		if err := r.Expect(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	p.logger.Trace().
		Str("command", name).
		Int("len", len(data)).
		Msg("decoded")

	return &events.Event{
		Type:    entry.event,
		Source:  name,
		Payload: payload,
	}, nil
}

// Classify builds the raw packet view of a payload: its command name, the
// argument shape of that command and the argument bytes. Unknown commands
// are classified as mixed.
func Classify(data []byte) events.RawPacketPayload {
	name := commandName(data)
	args := data[len(name):]
	if len(args) > 0 && (args[0] == ' ' || args[0] == '\n') {
		args = args[1:]
	}

	category := events.RawMixed
	if entry, ok := commandTable[name]; ok {
		category = entry.raw
	}
	if len(args) == 0 {
		category = events.RawNoData
	}

	return events.RawPacketPayload{
		Command:  name,
		Category: category,
		Args:     args,
	}
}

func decodeEmpty(_ *Parser, _ *Reader) (interface{}, error) {
	return events.EmptyPayload{}, nil
}

func decodeIgnored(_ *Parser, r *Reader) (interface{}, error) {
	return events.IgnoredPayload{Data: r.ReadRestBytes()}, nil
}
