package model

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cfclient-project/cfclient/internal/events"
)

// DefaultFaceCacheSize is used when a non-positive size is configured.
const DefaultFaceCacheSize = 4096

// Face is one cached face.
type Face struct {
	ID       uint32 `json:"id"`
	Faceset  uint8  `json:"faceset"`
	Checksum uint32 `json:"checksum"`
	Name     string `json:"name"`
	Image    []byte `json:"-"`
}

// HasImage reports whether image data was received for the face.
func (f *Face) HasImage() bool {
	return len(f.Image) > 0
}

// FaceCache is a bounded LRU of faces keyed by face number.
type FaceCache struct {
	cache *lru.Cache[uint32, *Face]
}

// NewFaceCache creates a face cache holding at most size faces.
func NewFaceCache(size int) (*FaceCache, error) {
	if size <= 0 {
		size = DefaultFaceCacheSize
	}
	cache, err := lru.New[uint32, *Face](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create face cache: %w", err)
	}
	return &FaceCache{cache: cache}, nil
}

// Announce records face metadata from a face2 command and reports whether
// image data still has to be requested. A face whose checksum changed loses
// its cached image.
func (c *FaceCache) Announce(p events.Face2Payload) bool {
	id := uint32(p.Face)
	if old, ok := c.cache.Get(id); ok && old.Checksum == p.Checksum && old.HasImage() {
		old.Name = p.Name
		return false
	}
	c.cache.Add(id, &Face{ID: id, Faceset: p.Faceset, Checksum: p.Checksum, Name: p.Name})
	return true
}

// StoreImage attaches image data from an image2 command.
func (c *FaceCache) StoreImage(p events.Image2Payload) {
	f, ok := c.cache.Get(p.Face)
	if !ok {
		f = &Face{ID: p.Face, Faceset: p.Faceset}
	}
	f.Image = p.Data
	c.cache.Add(p.Face, f)
}

// Get returns a cached face.
func (c *FaceCache) Get(id uint32) (*Face, bool) {
	return c.cache.Get(id)
}

// Len returns the number of cached faces.
func (c *FaceCache) Len() int {
	return c.cache.Len()
}

// AskFaceQueue holds faces whose image has to be requested with askface.
// A face is queued at most once until it is marked done.
type AskFaceQueue struct {
	mu      sync.Mutex
	queue   []uint32
	pending map[uint32]bool
}

// NewAskFaceQueue creates an empty queue.
func NewAskFaceQueue() *AskFaceQueue {
	return &AskFaceQueue{pending: make(map[uint32]bool)}
}

// Enqueue adds face unless it is already queued or in flight.
func (q *AskFaceQueue) Enqueue(face uint32) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending[face] {
		return false
	}
	q.pending[face] = true
	q.queue = append(q.queue, face)
	return true
}

// Next removes and returns up to n queued faces in FIFO order; n <= 0 takes
// all of them. The faces stay pending until Done is called for them.
func (q *AskFaceQueue) Next(n int) []uint32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n <= 0 || n > len(q.queue) {
		n = len(q.queue)
	}
	batch := append([]uint32(nil), q.queue[:n]...)
	q.queue = q.queue[n:]
	return batch
}

// Done marks face as received.
func (q *AskFaceQueue) Done(face uint32) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, face)
}

// Len returns the number of faces not yet requested.
func (q *AskFaceQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// Reset drops every queued and pending face.
func (q *AskFaceQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queue = nil
	q.pending = make(map[uint32]bool)
}
