package protocol

import (
	"github.com/cfclient-project/cfclient/internal/events"
)

// addspell: repeated spell records until the end. With spellmon 2 every
// record carries a usage byte and a requirements string.
func decodeAddSpell(p *Parser, r *Reader) (interface{}, error) {
	var payload events.AddSpellPayload
	for r.HasRemaining() {
		var (
			s   events.SpellPayload
			err error
		)
		if s.Tag, err = r.ReadU32(); err != nil {
			return nil, err
		}
		if s.Level, err = r.ReadU16(); err != nil {
			return nil, err
		}
		if s.CastingTime, err = r.ReadU16(); err != nil {
			return nil, err
		}
		if s.Mana, err = r.ReadU16(); err != nil {
			return nil, err
		}
		if s.Grace, err = r.ReadU16(); err != nil {
			return nil, err
		}
		if s.Damage, err = r.ReadI16(); err != nil {
			return nil, err
		}
		if s.Skill, err = r.ReadU8(); err != nil {
			return nil, err
		}
		if s.Path, err = r.ReadU32(); err != nil {
			return nil, err
		}
		if s.Face, err = r.ReadU32(); err != nil {
			return nil, err
		}
		if s.Name, err = r.ReadString8(); err != nil {
			return nil, err
		}
		if s.Message, err = r.ReadString16(); err != nil {
			return nil, err
		}
		if p.spellMon >= 2 {
			if s.Usage, err = r.ReadU8(); err != nil {
				return nil, err
			}
			if s.Requirements, err = r.ReadString8(); err != nil {
				return nil, err
			}
		}
		payload.Spells = append(payload.Spells, s)
	}
	return payload, nil
}

// updspell: u8 flags, u32 tag, then one field per set flag in bit order.
func decodeUpdSpell(_ *Parser, r *Reader) (interface{}, error) {
	flags, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	upd := events.UpdSpellPayload{Flags: flags}
	if upd.Tag, err = r.ReadU32(); err != nil {
		return nil, err
	}
	if flags&UpdSpellMana != 0 {
		if upd.Mana, err = r.ReadU16(); err != nil {
			return nil, err
		}
	}
	if flags&UpdSpellGrace != 0 {
		if upd.Grace, err = r.ReadU16(); err != nil {
			return nil, err
		}
	}
	if flags&UpdSpellDamage != 0 {
		if upd.Damage, err = r.ReadI16(); err != nil {
			return nil, err
		}
	}
	return upd, nil
}

func decodeDelSpell(_ *Parser, r *Reader) (interface{}, error) {
	tag, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	return events.DelSpellPayload{Tag: tag}, nil
}

// addquest: repeated quest records until the end.
func decodeAddQuest(_ *Parser, r *Reader) (interface{}, error) {
	var payload events.AddQuestPayload
	for r.HasRemaining() {
		var (
			q   events.QuestPayload
			err error
		)
		if q.Code, err = r.ReadU32(); err != nil {
			return nil, err
		}
		if q.Title, err = r.ReadString16(); err != nil {
			return nil, err
		}
		if q.Face, err = r.ReadU32(); err != nil {
			return nil, err
		}
		if q.Replay, err = r.ReadU8(); err != nil {
			return nil, err
		}
		if q.Parent, err = r.ReadU32(); err != nil {
			return nil, err
		}
		if q.End, err = r.ReadU8(); err != nil {
			return nil, err
		}
		if q.Step, err = r.ReadString16(); err != nil {
			return nil, err
		}
		payload.Quests = append(payload.Quests, q)
	}
	return payload, nil
}

func decodeUpdQuest(_ *Parser, r *Reader) (interface{}, error) {
	var (
		q   events.UpdQuestPayload
		err error
	)
	if q.Code, err = r.ReadU32(); err != nil {
		return nil, err
	}
	if q.End, err = r.ReadU8(); err != nil {
		return nil, err
	}
	if q.Step, err = r.ReadString16(); err != nil {
		return nil, err
	}
	return q, nil
}

// addknowledge: repeated knowledge records until the end.
func decodeAddKnowledge(_ *Parser, r *Reader) (interface{}, error) {
	var payload events.AddKnowledgePayload
	for r.HasRemaining() {
		var (
			k   events.KnowledgePayload
			err error
		)
		if k.Code, err = r.ReadU32(); err != nil {
			return nil, err
		}
		if k.Type, err = r.ReadString16(); err != nil {
			return nil, err
		}
		if k.Title, err = r.ReadString16(); err != nil {
			return nil, err
		}
		if k.Face, err = r.ReadU32(); err != nil {
			return nil, err
		}
		payload.Items = append(payload.Items, k)
	}
	return payload, nil
}
