package model

import (
	"sort"
	"sync"

	"github.com/cfclient-project/cfclient/internal/events"
	"github.com/cfclient-project/cfclient/internal/protocol"
)

// Stats is the default in-memory StatsStore.
type Stats struct {
	mu     sync.RWMutex
	values map[int]events.StatUpdate
}

// NewStats creates an empty stats store.
func NewStats() *Stats {
	return &Stats{values: make(map[int]events.StatUpdate)}
}

// Apply stores every update, replacing older values of the same stat.
func (s *Stats) Apply(updates []events.StatUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range updates {
		s.values[u.ID] = u
	}
}

// Get returns the latest value of a stat.
func (s *Stats) Get(id int) (events.StatUpdate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[id]
	return v, ok
}

// Snapshot returns every stat sorted by id.
func (s *Stats) Snapshot() []events.StatUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]events.StatUpdate, 0, len(s.values))
	for _, v := range s.values {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Reset forgets every stat.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[int]events.StatUpdate)
}

// Spells is the default in-memory SpellsManager.
type Spells struct {
	mu     sync.RWMutex
	spells map[uint32]events.SpellPayload
	skills map[int]events.SkillEntry
}

// NewSpells creates an empty spell store.
func NewSpells() *Spells {
	return &Spells{
		spells: make(map[uint32]events.SpellPayload),
		skills: make(map[int]events.SkillEntry),
	}
}

func (s *Spells) AddSpells(spells []events.SpellPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sp := range spells {
		s.spells[sp.Tag] = sp
	}
}

func (s *Spells) UpdateSpell(upd events.UpdSpellPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spells[upd.Tag]
	if !ok {
		return
	}
	if upd.Flags&protocol.UpdSpellMana != 0 {
		sp.Mana = upd.Mana
	}
	if upd.Flags&protocol.UpdSpellGrace != 0 {
		sp.Grace = upd.Grace
	}
	if upd.Flags&protocol.UpdSpellDamage != 0 {
		sp.Damage = upd.Damage
	}
	s.spells[upd.Tag] = sp
}

func (s *Spells) DeleteSpell(tag uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.spells, tag)
}

// SetSkills replaces the skill catalog.
func (s *Spells) SetSkills(skills []events.SkillEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skills = make(map[int]events.SkillEntry, len(skills))
	for _, sk := range skills {
		s.skills[sk.ID] = sk
	}
}

// Spells returns the known spells sorted by tag.
func (s *Spells) Spells() []events.SpellPayload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]events.SpellPayload, 0, len(s.spells))
	for _, sp := range s.spells {
		result = append(result, sp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Tag < result[j].Tag })
	return result
}

func (s *Spells) Skill(id int) (events.SkillEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sk, ok := s.skills[id]
	return sk, ok
}

// Reset forgets the spells. The skill catalog is kept; it only changes with
// a new replyinfo.
func (s *Spells) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spells = make(map[uint32]events.SpellPayload)
}

// Quests is the default in-memory QuestsManager.
type Quests struct {
	mu     sync.RWMutex
	quests map[uint32]events.QuestPayload
}

// NewQuests creates an empty quest store.
func NewQuests() *Quests {
	return &Quests{quests: make(map[uint32]events.QuestPayload)}
}

func (q *Quests) AddQuests(quests []events.QuestPayload) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, qu := range quests {
		q.quests[qu.Code] = qu
	}
}

func (q *Quests) UpdateQuest(upd events.UpdQuestPayload) {
	q.mu.Lock()
	defer q.mu.Unlock()
	qu, ok := q.quests[upd.Code]
	if !ok {
		return
	}
	qu.End = upd.End
	qu.Step = upd.Step
	q.quests[upd.Code] = qu
}

func (q *Quests) Quests() []events.QuestPayload {
	q.mu.RLock()
	defer q.mu.RUnlock()
	result := make([]events.QuestPayload, 0, len(q.quests))
	for _, qu := range q.quests {
		result = append(result, qu)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result
}

func (q *Quests) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.quests = make(map[uint32]events.QuestPayload)
}

// Knowledge is the default in-memory KnowledgeManager.
type Knowledge struct {
	mu    sync.RWMutex
	types []events.KnowledgeType
	items map[uint32]events.KnowledgePayload
}

// NewKnowledge creates an empty knowledge store.
func NewKnowledge() *Knowledge {
	return &Knowledge{items: make(map[uint32]events.KnowledgePayload)}
}

func (k *Knowledge) SetTypes(types []events.KnowledgeType) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.types = append([]events.KnowledgeType(nil), types...)
}

func (k *Knowledge) AddItems(items []events.KnowledgePayload) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, it := range items {
		k.items[it.Code] = it
	}
}

func (k *Knowledge) Types() []events.KnowledgeType {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return append([]events.KnowledgeType(nil), k.types...)
}

func (k *Knowledge) Items() []events.KnowledgePayload {
	k.mu.RLock()
	defer k.mu.RUnlock()
	result := make([]events.KnowledgePayload, 0, len(k.items))
	for _, it := range k.items {
		result = append(result, it)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result
}

// Reset forgets the knowledge items but keeps the type catalog.
func (k *Knowledge) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.items = make(map[uint32]events.KnowledgePayload)
}

// SmoothFaceTable is the default in-memory SmoothFaces.
type SmoothFaceTable struct {
	mu    sync.RWMutex
	faces map[uint16]uint16
}

func NewSmoothFaceTable() *SmoothFaceTable {
	return &SmoothFaceTable{faces: make(map[uint16]uint16)}
}

func (t *SmoothFaceTable) Set(face, smooth uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.faces[face] = smooth
}

func (t *SmoothFaceTable) Get(face uint16) (uint16, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.faces[face]
	return s, ok
}

func (t *SmoothFaceTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.faces = make(map[uint16]uint16)
}

// ExpTable is the default in-memory ExperienceTable. Index 0 is level 1.
type ExpTable struct {
	mu    sync.RWMutex
	table []uint64
}

func NewExperienceTable() *ExpTable {
	return &ExpTable{}
}

func (e *ExpTable) SetTable(table []uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.table = append([]uint64(nil), table...)
}

// ExpForLevel returns the experience needed to reach level.
func (e *ExpTable) ExpForLevel(level int) (uint64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if level < 1 || level > len(e.table) {
		return 0, false
	}
	return e.table[level-1], true
}

// Levels returns the highest level in the table.
func (e *ExpTable) Levels() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.table)
}
