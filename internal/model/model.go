// Package model holds the client-side game state fed by the server
// connector: items, character stats, spells, quests, knowledge, the
// experience table, the face cache and the connection state shown to the
// user. Each collaborator is an interface so that a front end can plug in
// its own implementation; the defaults in this package keep everything in
// memory and are safe for concurrent readers.
package model

import (
	"github.com/cfclient-project/cfclient/internal/events"
)

// ItemsManager tracks items by tag and location.
type ItemsManager interface {
	AddItems(location uint32, items []events.ItemPayload)
	UpdateItem(upd events.UpdItemPayload)
	DeleteItems(tags []uint32)
	ClearInventory(location uint32)
	SetPlayer(p events.PlayerPayload)
	Player() (Item, bool)
	Item(tag uint32) (Item, bool)
	Inventory(location uint32) []Item
	Reset()
}

// StatsStore holds the latest value of every stat.
type StatsStore interface {
	Apply(updates []events.StatUpdate)
	Get(id int) (events.StatUpdate, bool)
	Snapshot() []events.StatUpdate
	Reset()
}

// SpellsManager tracks known spells and the skill catalog.
type SpellsManager interface {
	AddSpells(spells []events.SpellPayload)
	UpdateSpell(upd events.UpdSpellPayload)
	DeleteSpell(tag uint32)
	SetSkills(skills []events.SkillEntry)
	Spells() []events.SpellPayload
	Skill(id int) (events.SkillEntry, bool)
	Reset()
}

// QuestsManager tracks quests.
type QuestsManager interface {
	AddQuests(quests []events.QuestPayload)
	UpdateQuest(upd events.UpdQuestPayload)
	Quests() []events.QuestPayload
	Reset()
}

// KnowledgeManager tracks knowledge types and items.
type KnowledgeManager interface {
	SetTypes(types []events.KnowledgeType)
	AddItems(items []events.KnowledgePayload)
	Types() []events.KnowledgeType
	Items() []events.KnowledgePayload
	Reset()
}

// SmoothFaces maps faces to their smoothing faces.
type SmoothFaces interface {
	Set(face, smooth uint16)
	Get(face uint16) (uint16, bool)
	Reset()
}

// ExperienceTable maps levels to experience thresholds.
type ExperienceTable interface {
	SetTable(table []uint64)
	ExpForLevel(level int) (uint64, bool)
	Levels() int
}

// GUIStateSink receives connection state changes for display.
type GUIStateSink interface {
	ConnectionStateChanged(state events.ConnectionState, reason string)
}

// Model bundles the collaborators a server connector updates.
type Model struct {
	items     ItemsManager
	stats     StatsStore
	spells    SpellsManager
	quests    QuestsManager
	knowledge KnowledgeManager
	smooth    SmoothFaces
	exp       ExperienceTable
	faces     *FaceCache
	askFaces  *AskFaceQueue
	gui       GUIStateSink
}

// Option replaces a default collaborator.
type Option func(*Model)

// WithItems replaces the items manager.
func WithItems(m ItemsManager) Option { return func(md *Model) { md.items = m } }

// WithStats replaces the stats store.
func WithStats(s StatsStore) Option { return func(md *Model) { md.stats = s } }

// WithGUIState replaces the GUI state sink.
func WithGUIState(g GUIStateSink) Option { return func(md *Model) { md.gui = g } }

// New creates a Model with in-memory collaborators. faceCacheSize bounds the
// number of faces kept in the face cache.
func New(faceCacheSize int, opts ...Option) (*Model, error) {
	faces, err := NewFaceCache(faceCacheSize)
	if err != nil {
		return nil, err
	}

	m := &Model{
		items:     NewItems(),
		stats:     NewStats(),
		spells:    NewSpells(),
		quests:    NewQuests(),
		knowledge: NewKnowledge(),
		smooth:    NewSmoothFaceTable(),
		exp:       NewExperienceTable(),
		faces:     faces,
		askFaces:  NewAskFaceQueue(),
		gui:       NewGUIState(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Model) Items() ItemsManager              { return m.items }
func (m *Model) Stats() StatsStore                { return m.stats }
func (m *Model) Spells() SpellsManager            { return m.spells }
func (m *Model) Quests() QuestsManager            { return m.quests }
func (m *Model) Knowledge() KnowledgeManager      { return m.knowledge }
func (m *Model) SmoothFaces() SmoothFaces         { return m.smooth }
func (m *Model) ExperienceTable() ExperienceTable { return m.exp }
func (m *Model) FaceCache() *FaceCache            { return m.faces }
func (m *Model) AskFaceQueue() *AskFaceQueue      { return m.askFaces }
func (m *Model) GUIState() GUIStateSink           { return m.gui }

// ResetSession clears the per-character state at the start of a connection.
// The face cache survives reconnects.
func (m *Model) ResetSession() {
	m.items.Reset()
	m.stats.Reset()
	m.spells.Reset()
	m.quests.Reset()
	m.knowledge.Reset()
	m.smooth.Reset()
	m.askFaces.Reset()
}
