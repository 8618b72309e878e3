package model

import (
	"sort"
	"sync"

	"github.com/cfclient-project/cfclient/internal/events"
	"github.com/cfclient-project/cfclient/internal/protocol"
)

// Item is the client-side view of one server object.
type Item struct {
	Tag       uint32 `json:"tag"`
	Location  uint32 `json:"location"`
	Flags     uint32 `json:"flags"`
	Weight    int32  `json:"weight"`
	Face      uint32 `json:"face"`
	Name      string `json:"name"`
	NamePl    string `json:"name_pl"`
	Anim      uint16 `json:"anim"`
	AnimSpeed uint8  `json:"anim_speed"`
	Nrof      uint32 `json:"nrof"`
	Type      uint16 `json:"type"`
}

// Items is the default in-memory ItemsManager.
type Items struct {
	mu     sync.RWMutex
	items  map[uint32]*Item
	player *Item
}

// NewItems creates an empty item store.
func NewItems() *Items {
	return &Items{items: make(map[uint32]*Item)}
}

// AddItems inserts or replaces items at a location.
func (s *Items) AddItems(location uint32, items []events.ItemPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range items {
		s.items[p.Tag] = &Item{
			Tag:       p.Tag,
			Location:  location,
			Flags:     p.Flags,
			Weight:    p.Weight,
			Face:      p.Face,
			Name:      p.Name,
			NamePl:    p.NamePl,
			Anim:      p.Anim,
			AnimSpeed: p.AnimSpeed,
			Nrof:      p.Nrof,
			Type:      p.Type,
		}
	}
}

// UpdateItem applies the fields selected by the update flags. Updates for
// unknown tags other than the player are ignored.
func (s *Items) UpdateItem(upd events.UpdItemPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[upd.Tag]
	if !ok {
		if s.player == nil || s.player.Tag != upd.Tag {
			return
		}
		it = s.player
	}

	if upd.Has(protocol.UpdLocation) {
		it.Location = upd.Location
	}
	if upd.Has(protocol.UpdFlags) {
		it.Flags = upd.ItemFlags
	}
	if upd.Has(protocol.UpdWeight) {
		it.Weight = upd.Weight
	}
	if upd.Has(protocol.UpdFace) {
		it.Face = upd.Face
	}
	if upd.Has(protocol.UpdName) {
		it.Name, it.NamePl = upd.Name, upd.NamePl
	}
	if upd.Has(protocol.UpdAnim) {
		it.Anim = upd.Anim
	}
	if upd.Has(protocol.UpdAnimSpeed) {
		it.AnimSpeed = upd.AnimSpeed
	}
	if upd.Has(protocol.UpdNrof) {
		it.Nrof = upd.Nrof
	}
}

// DeleteItems removes items by tag.
func (s *Items) DeleteItems(tags []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tag := range tags {
		delete(s.items, tag)
	}
}

// ClearInventory removes every item stored at location.
func (s *Items) ClearInventory(location uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tag, it := range s.items {
		if it.Location == location {
			delete(s.items, tag)
		}
	}
}

// SetPlayer records the player object.
func (s *Items) SetPlayer(p events.PlayerPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player = &Item{Tag: p.Tag, Weight: p.Weight, Face: p.Face, Name: p.Name, NamePl: p.Name}
}

// Player returns the player object, if known.
func (s *Items) Player() (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.player == nil {
		return Item{}, false
	}
	return *s.player, true
}

// Item returns one item by tag.
func (s *Items) Item(tag uint32) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[tag]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// Inventory returns the items at location sorted by tag.
func (s *Items) Inventory(location uint32) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Item, 0)
	for _, it := range s.items {
		if it.Location == location {
			result = append(result, *it)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Tag < result[j].Tag })
	return result
}

// Reset forgets every item and the player.
func (s *Items) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[uint32]*Item)
	s.player = nil
}
