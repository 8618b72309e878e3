package protocol

import (
	"encoding/binary"

	"github.com/cfclient-project/cfclient/internal/events"
)

// accountplayers: u8 count, then count entries. Each entry is a list of
// {u8 length, u8 type, value(length-1)} attributes ended by a zero length.
// Attribute types this client does not know are skipped.
func decodeAccountPlayers(_ *Parser, r *Reader) (interface{}, error) {
	count, err := r.ReadU8()
	if err != nil {
		return nil, err
	}

	payload := events.AccountPlayersPayload{
		Characters: make([]events.CharacterInfo, 0, count),
	}
	for i := 0; i < int(count); i++ {
		var ch events.CharacterInfo
		for {
			length, err := r.ReadU8()
			if err != nil {
				return nil, err
			}
			if length == 0 {
				break
			}
			typ, err := r.ReadU8()
			if err != nil {
				return nil, err
			}
			value, err := r.ReadBytes(int(length) - 1)
			if err != nil {
				return nil, err
			}
			if err := applyCharacterAttribute(&ch, typ, value); err != nil {
				return nil, err
			}
		}
		payload.Characters = append(payload.Characters, ch)
	}
	return payload, nil
}

func applyCharacterAttribute(ch *events.CharacterInfo, typ byte, value []byte) error {
	switch typ {
	case AclName:
		ch.Name = decodeText(value)
	case AclClass:
		ch.Class = decodeText(value)
	case AclRace:
		ch.Race = decodeText(value)
	case AclFace:
		ch.Face = decodeText(value)
	case AclParty:
		ch.Party = decodeText(value)
	case AclMap:
		ch.Map = decodeText(value)
	case AclLevel, AclFaceNum:
		if len(value) != 2 {
			return malformed("account attribute %d has %d bytes, want 2", typ, len(value))
		}
		v := binary.BigEndian.Uint16(value)
		if typ == AclLevel {
			ch.Level = v
		} else {
			ch.FaceNum = v
		}
	}
	return nil
}
