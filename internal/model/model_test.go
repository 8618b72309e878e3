package model

import (
	"testing"

	"github.com/cfclient-project/cfclient/internal/events"
	"github.com/cfclient-project/cfclient/internal/protocol"
)

func TestItemsLifecycle(t *testing.T) {
	items := NewItems()
	items.AddItems(0, []events.ItemPayload{
		{Tag: 2, Name: "apple", NamePl: "apples", Nrof: 3},
		{Tag: 1, Name: "sword", NamePl: "swords", Nrof: 1},
	})
	items.AddItems(7, []events.ItemPayload{{Tag: 3, Name: "gem"}})

	inv := items.Inventory(0)
	if len(inv) != 2 || inv[0].Tag != 1 || inv[1].Tag != 2 {
		t.Fatalf("inventory = %+v", inv)
	}

	items.UpdateItem(events.UpdItemPayload{Flags: protocol.UpdNrof | protocol.UpdLocation, Tag: 2, Nrof: 1, Location: 7})
	it, ok := items.Item(2)
	if !ok || it.Nrof != 1 || it.Location != 7 || it.Name != "apple" {
		t.Fatalf("updated item = %+v", it)
	}

	items.ClearInventory(7)
	if len(items.Inventory(7)) != 0 {
		t.Fatal("container not cleared")
	}
	items.DeleteItems([]uint32{1})
	if _, ok := items.Item(1); ok {
		t.Fatal("item 1 not deleted")
	}
}

func TestItemsUpdatePlayer(t *testing.T) {
	items := NewItems()
	items.SetPlayer(events.PlayerPayload{Tag: 9, Name: "Alice", Weight: 100})
	items.UpdateItem(events.UpdItemPayload{Flags: protocol.UpdWeight, Tag: 9, Weight: 150})
	p, ok := items.Player()
	if !ok || p.Weight != 150 || p.Name != "Alice" {
		t.Fatalf("player = %+v", p)
	}
	items.UpdateItem(events.UpdItemPayload{Flags: protocol.UpdWeight, Tag: 999, Weight: 1})
}

func TestStatsSnapshotSorted(t *testing.T) {
	s := NewStats()
	s.Apply([]events.StatUpdate{{ID: 12, Value: 5}, {ID: 1, Value: 20}})
	s.Apply([]events.StatUpdate{{ID: 1, Value: 18}})
	snap := s.Snapshot()
	if len(snap) != 2 || snap[0].ID != 1 || snap[0].Value != 18 || snap[1].ID != 12 {
		t.Fatalf("snapshot = %+v", snap)
	}
	s.Reset()
	if _, ok := s.Get(1); ok {
		t.Fatal("stat survived reset")
	}
}

func TestSpellsUpdate(t *testing.T) {
	s := NewSpells()
	s.AddSpells([]events.SpellPayload{{Tag: 4, Mana: 10, Grace: 1, Damage: 3}})
	s.UpdateSpell(events.UpdSpellPayload{Flags: protocol.UpdSpellMana, Tag: 4, Mana: 12, Grace: 99})
	sp := s.Spells()[0]
	if sp.Mana != 12 || sp.Grace != 1 {
		t.Fatalf("spell = %+v", sp)
	}
	s.SetSkills([]events.SkillEntry{{ID: 100, Name: "alchemy"}})
	s.Reset()
	if len(s.Spells()) != 0 {
		t.Fatal("spells survived reset")
	}
	if sk, ok := s.Skill(100); !ok || sk.Name != "alchemy" {
		t.Fatal("skill catalog lost on reset")
	}
}

func TestExpTable(t *testing.T) {
	e := NewExperienceTable()
	e.SetTable([]uint64{0, 1000, 2500})
	if e.Levels() != 3 {
		t.Fatalf("levels = %d", e.Levels())
	}
	if v, ok := e.ExpForLevel(3); !ok || v != 2500 {
		t.Fatalf("level 3 = %d, %v", v, ok)
	}
	if _, ok := e.ExpForLevel(4); ok {
		t.Fatal("level 4 should not exist")
	}
	if _, ok := e.ExpForLevel(0); ok {
		t.Fatal("level 0 should not exist")
	}
}

func TestFaceCacheAnnounce(t *testing.T) {
	c, err := NewFaceCache(2)
	if err != nil {
		t.Fatal(err)
	}

	if !c.Announce(events.Face2Payload{Face: 1, Checksum: 10, Name: "a"}) {
		t.Fatal("new face should need an image")
	}
	c.StoreImage(events.Image2Payload{Face: 1, Data: []byte{1}})
	if c.Announce(events.Face2Payload{Face: 1, Checksum: 10, Name: "a"}) {
		t.Fatal("cached face with same checksum should not need an image")
	}
	if !c.Announce(events.Face2Payload{Face: 1, Checksum: 11, Name: "a"}) {
		t.Fatal("changed checksum should need an image")
	}

	c.Announce(events.Face2Payload{Face: 2})
	c.Announce(events.Face2Payload{Face: 3})
	if c.Len() != 2 {
		t.Fatalf("len = %d, want 2", c.Len())
	}
	if _, ok := c.Get(1); ok {
		t.Fatal("least recently used face was not evicted")
	}
}

func TestAskFaceQueue(t *testing.T) {
	q := NewAskFaceQueue()
	for _, f := range []uint32{5, 6, 5, 7} {
		q.Enqueue(f)
	}
	if q.Len() != 3 {
		t.Fatalf("len = %d, want 3", q.Len())
	}
	batch := q.Next(2)
	if len(batch) != 2 || batch[0] != 5 || batch[1] != 6 {
		t.Fatalf("batch = %v", batch)
	}
	if q.Enqueue(5) {
		t.Fatal("in-flight face queued twice")
	}
	q.Done(5)
	if !q.Enqueue(5) {
		t.Fatal("face not queued after Done")
	}
	if rest := q.Next(0); len(rest) != 2 || rest[0] != 7 || rest[1] != 5 {
		t.Fatalf("rest = %v", rest)
	}
}

func TestModelResetSessionKeepsFaces(t *testing.T) {
	m, err := New(16)
	if err != nil {
		t.Fatal(err)
	}
	m.Items().AddItems(0, []events.ItemPayload{{Tag: 1}})
	m.FaceCache().Announce(events.Face2Payload{Face: 3})
	m.AskFaceQueue().Enqueue(3)

	m.ResetSession()
	if len(m.Items().Inventory(0)) != 0 {
		t.Fatal("items survived reset")
	}
	if m.AskFaceQueue().Len() != 0 {
		t.Fatal("ask face queue survived reset")
	}
	if _, ok := m.FaceCache().Get(3); !ok {
		t.Fatal("face cache was cleared")
	}
}

func TestGUIStateHistory(t *testing.T) {
	g := NewGUIState()
	for i := 0; i < maxStateHistory+5; i++ {
		g.ConnectionStateChanged(events.StateVersion, "")
	}
	g.ConnectionStateChanged(events.StateConnected, "ok")
	if g.Current().State != events.StateConnected {
		t.Fatalf("current = %v", g.Current().State)
	}
	if n := len(g.History()); n != maxStateHistory {
		t.Fatalf("history length = %d", n)
	}
}
