package protocol

import (
	"github.com/cfclient-project/cfclient/internal/events"
)

// map2: repeated u16 coordinates. Bits 15..10 hold x, bits 9..4 hold y and
// bits 3..0 the block type. A scroll block has no body; a cell block is
// followed by sub-commands up to Map2EndOfCell.
func decodeMap2(_ *Parser, r *Reader) (interface{}, error) {
	var payload events.Map2Payload
	for r.HasRemaining() {
		coord, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		x := int(coord>>10&0x3F) - Map2CoordOffset
		y := int(coord>>4&0x3F) - Map2CoordOffset

		switch typ := coord & 0x0F; typ {
		case Map2CoordScroll:
			payload.Cells = append(payload.Cells, events.Map2Cell{Scroll: true, DX: x, DY: y})
		case Map2CoordNormal:
			updates, err := decodeMap2Cell(r)
			if err != nil {
				return nil, err
			}
			payload.Cells = append(payload.Cells, events.Map2Cell{X: x, Y: y, Updates: updates})
		default:
			return nil, malformed("map2 coordinate type %d at %d,%d", typ, x, y)
		}
	}
	return payload, nil
}

// decodeMap2Cell reads sub-commands until the end-of-cell marker. Each
// sub-command byte holds the length in bits 7..5 and the type in bits 4..0.
func decodeMap2Cell(r *Reader) ([]events.Map2Update, error) {
	var updates []events.Map2Update
	for {
		b, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		if b == Map2EndOfCell {
			return updates, nil
		}
		length := int(b >> 5)
		typ := int(b & 0x1F)

		switch {
		case typ == Map2TypeClear:
			if length != 0 {
				return nil, malformed("map2 clear with length %d", length)
			}
			updates = append(updates, events.Map2Update{Kind: events.Map2Clear})

		case typ == Map2TypeDarkness:
			if length != 1 {
				return nil, malformed("map2 darkness with length %d", length)
			}
			darkness, err := r.ReadU8()
			if err != nil {
				return nil, err
			}
			updates = append(updates, events.Map2Update{Kind: events.Map2Darkness, Darkness: darkness})

		case typ >= Map2LayerStart && typ < Map2LayerStart+Map2Layers:
			if length < 2 || length > 4 {
				return nil, malformed("map2 layer with length %d", length)
			}
			upd, err := decodeMap2Layer(r, typ-Map2LayerStart, length)
			if err != nil {
				return nil, err
			}
			updates = append(updates, upd)

		default:
			return nil, malformed("map2 sub-command type 0x%02x", typ)
		}
	}
}

// decodeMap2Layer decodes a layer sub-command. A face value with the top bit
// set is an animation id plus animation type. Length 3 adds the animation
// speed for animations or the smoothing level for faces; length 4 adds both.
func decodeMap2Layer(r *Reader, layer, length int) (events.Map2Update, error) {
	upd := events.Map2Update{Layer: layer}
	face, err := r.ReadU16()
	if err != nil {
		return upd, err
	}

	isAnim := face&FaceIsAnim != 0
	if isAnim {
		upd.Kind = events.Map2Animation
		upd.Anim = face & AnimMask
		upd.AnimType = uint8(face>>AnimTypeShift) & AnimTypeMask
	} else {
		upd.Kind = events.Map2Face
		upd.Face = face
	}

	switch {
	case length == 3 && isAnim:
		if upd.AnimSpeed, err = r.ReadU8(); err != nil {
			return upd, err
		}
		upd.HasAnimSpeed = true
	case length == 3:
		if upd.Smooth, err = r.ReadU8(); err != nil {
			return upd, err
		}
		upd.HasSmooth = true
	case length == 4:
		if upd.AnimSpeed, err = r.ReadU8(); err != nil {
			return upd, err
		}
		if upd.Smooth, err = r.ReadU8(); err != nil {
			return upd, err
		}
		upd.HasAnimSpeed = isAnim
		upd.HasSmooth = true
	}
	return upd, nil
}

func decodeNewMap(_ *Parser, _ *Reader) (interface{}, error) {
	return events.NewMapPayload{}, nil
}

// smooth: u16 face, u16 smoothing face
func decodeSmooth(_ *Parser, r *Reader) (interface{}, error) {
	face, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	smooth, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	return events.SmoothPayload{Face: face, SmoothFace: smooth}, nil
}

// anim: u16 id, u16 flags, u16 faces until the end
func decodeAnim(_ *Parser, r *Reader) (interface{}, error) {
	id, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	flags, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	anim := events.AnimPayload{ID: id, Flags: flags}
	for r.HasRemaining() {
		face, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		anim.Faces = append(anim.Faces, face)
	}
	return anim, nil
}

// face2: u16 face, u8 faceset, u32 checksum, name
func decodeFace2(_ *Parser, r *Reader) (interface{}, error) {
	var (
		f   events.Face2Payload
		err error
	)
	if f.Face, err = r.ReadU16(); err != nil {
		return nil, err
	}
	if f.Faceset, err = r.ReadU8(); err != nil {
		return nil, err
	}
	if f.Checksum, err = r.ReadU32(); err != nil {
		return nil, err
	}
	f.Name = r.ReadRest()
	return f, nil
}

// image2: u32 face, u8 faceset, u32 length, image bytes
func decodeImage2(_ *Parser, r *Reader) (interface{}, error) {
	var (
		img events.Image2Payload
		err error
	)
	if img.Face, err = r.ReadU32(); err != nil {
		return nil, err
	}
	if img.Faceset, err = r.ReadU8(); err != nil {
		return nil, err
	}
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if int64(n) > int64(r.Remaining()) {
		return nil, truncated("image2 data", int(n), r.Remaining())
	}
	data, err := r.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	img.Data = append([]byte(nil), data...)
	return img, nil
}
