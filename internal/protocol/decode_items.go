package protocol

import (
	"bytes"

	"github.com/cfclient-project/cfclient/internal/events"
)

// readItemName reads a u8-length name holding the singular and plural forms
// separated by a NUL byte. A name without NUL uses the same text for both.
func readItemName(r *Reader) (string, string, error) {
	n, err := r.ReadU8()
	if err != nil {
		return "", "", err
	}
	raw, err := r.ReadBytes(int(n))
	if err != nil {
		return "", "", err
	}
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		return decodeText(raw[:i]), decodeText(raw[i+1:]), nil
	}
	name := decodeText(raw)
	return name, name, nil
}

// item2: u32 location, then repeated item records until the end.
func decodeItem2(_ *Parser, r *Reader) (interface{}, error) {
	location, err := r.ReadU32()
	if err != nil {
		return nil, err
	}

	payload := events.Item2Payload{Location: location}
	for r.HasRemaining() {
		item := events.ItemPayload{Location: location}
		if item.Tag, err = r.ReadU32(); err != nil {
			return nil, err
		}
		if item.Flags, err = r.ReadU32(); err != nil {
			return nil, err
		}
		if item.Weight, err = r.ReadI32(); err != nil {
			return nil, err
		}
		if item.Face, err = r.ReadU32(); err != nil {
			return nil, err
		}
		if item.Name, item.NamePl, err = readItemName(r); err != nil {
			return nil, err
		}
		if item.Anim, err = r.ReadU16(); err != nil {
			return nil, err
		}
		if item.AnimSpeed, err = r.ReadU8(); err != nil {
			return nil, err
		}
		if item.Nrof, err = r.ReadU32(); err != nil {
			return nil, err
		}
		if item.Type, err = r.ReadU16(); err != nil {
			return nil, err
		}
		payload.Items = append(payload.Items, item)
	}
	return payload, nil
}

// upditem: u8 flags, u32 tag, then one field per set flag in bit order.
func decodeUpdItem(_ *Parser, r *Reader) (interface{}, error) {
	flags, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	upd := events.UpdItemPayload{Flags: flags}
	if upd.Tag, err = r.ReadU32(); err != nil {
		return nil, err
	}

	if flags&UpdLocation != 0 {
		if upd.Location, err = r.ReadU32(); err != nil {
			return nil, err
		}
	}
	if flags&UpdFlags != 0 {
		if upd.ItemFlags, err = r.ReadU32(); err != nil {
			return nil, err
		}
	}
	if flags&UpdWeight != 0 {
		if upd.Weight, err = r.ReadI32(); err != nil {
			return nil, err
		}
	}
	if flags&UpdFace != 0 {
		if upd.Face, err = r.ReadU32(); err != nil {
			return nil, err
		}
	}
	if flags&UpdName != 0 {
		if upd.Name, upd.NamePl, err = readItemName(r); err != nil {
			return nil, err
		}
	}
	if flags&UpdAnim != 0 {
		if upd.Anim, err = r.ReadU16(); err != nil {
			return nil, err
		}
	}
	if flags&UpdAnimSpeed != 0 {
		if upd.AnimSpeed, err = r.ReadU8(); err != nil {
			return nil, err
		}
	}
	if flags&UpdNrof != 0 {
		if upd.Nrof, err = r.ReadU32(); err != nil {
			return nil, err
		}
	}
	return upd, nil
}

// delitem: u32 tags until the end.
func decodeDelItem(_ *Parser, r *Reader) (interface{}, error) {
	var tags []uint32
	for r.HasRemaining() {
		tag, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return events.DelItemPayload{Tags: tags}, nil
}

// player: u32 tag, u32 weight, u32 face, u8+name
func decodePlayer(_ *Parser, r *Reader) (interface{}, error) {
	var (
		p   events.PlayerPayload
		err error
	)
	if p.Tag, err = r.ReadU32(); err != nil {
		return nil, err
	}
	if p.Weight, err = r.ReadI32(); err != nil {
		return nil, err
	}
	if p.Face, err = r.ReadU32(); err != nil {
		return nil, err
	}
	if p.Name, err = r.ReadString8(); err != nil {
		return nil, err
	}
	return p, nil
}

func decodePickup(_ *Parser, r *Reader) (interface{}, error) {
	mask, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	return events.PickupPayload{Mask: mask}, nil
}
