package protocol

import (
	"github.com/cfclient-project/cfclient/internal/events"
)

// statKind returns the wire type of a stat id. The type depends only on the
// range the id falls into.
func statKind(id int) (events.StatKind, bool) {
	switch {
	case id >= StatResistStart && id <= StatResistEnd:
		return events.StatKindResist, true
	case id >= StatSkillInfo && id < StatSkillInfo+NumSkills:
		return events.StatKindSkill, true
	}

	switch id {
	case StatExp, StatSpeed, StatWeapSp, StatWeightLim, StatSpellAttune,
		StatSpellRepel, StatSpellDeny, StatCharFlags, StatOverload:
		return events.StatKindInt32, true
	case StatExp64:
		return events.StatKindInt64, true
	case StatRange, StatTitle, StatGodName:
		return events.StatKindString, true
	}

	switch {
	case id >= StatHP && id <= StatCha,
		id >= StatLevel && id <= StatArmour,
		id == StatFood,
		id >= StatPow && id <= StatFlags,
		id >= StatRaceStr && id <= StatGolemMaxHP:
		return events.StatKindInt16, true
	}
	return 0, false
}

// stats: repeated u8 stat id followed by a value whose type depends on the id.
func decodeStats(_ *Parser, r *Reader) (interface{}, error) {
	var payload events.StatsPayload
	for r.HasRemaining() {
		b, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		id := int(b)
		kind, ok := statKind(id)
		if !ok {
			return nil, malformed("unknown stat id %d", id)
		}

		upd := events.StatUpdate{ID: id, Kind: kind}
		switch kind {
		case events.StatKindInt16, events.StatKindResist:
			v, err := r.ReadI16()
			if err != nil {
				return nil, err
			}
			upd.Value = int64(v)
		case events.StatKindInt32:
			v, err := r.ReadU32()
			if err != nil {
				return nil, err
			}
			upd.Value = int64(v)
		case events.StatKindInt64:
			v, err := r.ReadU64()
			if err != nil {
				return nil, err
			}
			upd.Value = int64(v)
		case events.StatKindString:
			if upd.Text, err = r.ReadString8(); err != nil {
				return nil, err
			}
		case events.StatKindSkill:
			if upd.Level, err = r.ReadU8(); err != nil {
				return nil, err
			}
			if upd.Exp, err = r.ReadU64(); err != nil {
				return nil, err
			}
		}
		payload.Updates = append(payload.Updates, upd)
	}
	return payload, nil
}
