package protocol

import (
	"github.com/cfclient-project/cfclient/internal/events"
)

func decodeTick(_ *Parser, r *Reader) (interface{}, error) {
	tick, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	return events.TickPayload{Tick: tick}, nil
}

// comc: u16 packet, u32 time
func decodeComc(_ *Parser, r *Reader) (interface{}, error) {
	packet, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	t, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	return events.ComcPayload{Packet: packet, Time: t}, nil
}

// sound: i8 x, i8 y, u16 num, u8 type
func decodeSound(_ *Parser, r *Reader) (interface{}, error) {
	var (
		s   events.SoundPayload
		err error
	)
	if s.X, err = r.ReadI8(); err != nil {
		return nil, err
	}
	if s.Y, err = r.ReadI8(); err != nil {
		return nil, err
	}
	if s.Num, err = r.ReadU16(); err != nil {
		return nil, err
	}
	if s.Type, err = r.ReadU8(); err != nil {
		return nil, err
	}
	return s, nil
}

// sound2: i8 x, i8 y, u8 dir, u8 volume, u8 type, u8+action, u8+name
func decodeSound2(_ *Parser, r *Reader) (interface{}, error) {
	var (
		s   events.Sound2Payload
		err error
	)
	if s.X, err = r.ReadI8(); err != nil {
		return nil, err
	}
	if s.Y, err = r.ReadI8(); err != nil {
		return nil, err
	}
	if s.Dir, err = r.ReadU8(); err != nil {
		return nil, err
	}
	if s.Volume, err = r.ReadU8(); err != nil {
		return nil, err
	}
	if s.Type, err = r.ReadU8(); err != nil {
		return nil, err
	}
	if s.Action, err = r.ReadString8(); err != nil {
		return nil, err
	}
	if s.Name, err = r.ReadString8(); err != nil {
		return nil, err
	}
	return s, nil
}
