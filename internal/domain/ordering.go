package domain

import (
	"math/rand/v2"
)

// Ordering is a playable sequence built from a snapshot of tracks.
// It keeps the natural order, an id → position index, and an independent
// shuffled permutation of the positions.
//
// Ordering is a plain value: it never notifies anyone and is rebuilt
// wholesale when the source selection changes. It is not safe for
// concurrent mutation; the owner serializes access.
type Ordering struct {
	items         []Track
	positionIndex map[string]int
	shuffleOrder  []int
}

// NewOrdering builds an ordering over a copy of items with an identity shuffle order.
// When an id appears more than once, the index points at its first occurrence.
func NewOrdering(items []Track) *Ordering {
	o := &Ordering{
		items:         make([]Track, len(items)),
		positionIndex: make(map[string]int, len(items)),
		shuffleOrder:  make([]int, len(items)),
	}
	copy(o.items, items)
	for i, t := range o.items {
		if _, exists := o.positionIndex[t.ID]; !exists {
			o.positionIndex[t.ID] = i
		}
		o.shuffleOrder[i] = i
	}
	return o
}

// Shuffle replaces the shuffle order with a uniformly random permutation.
func (o *Ordering) Shuffle() {
	rand.Shuffle(len(o.shuffleOrder), func(i, j int) {
		o.shuffleOrder[i], o.shuffleOrder[j] = o.shuffleOrder[j], o.shuffleOrder[i]
	})
}

// Len returns the number of items.
func (o *Ordering) Len() int {
	if o == nil {
		return 0
	}
	return len(o.items)
}

// Get returns the track at a sequential position.
func (o *Ordering) Get(pos int) (Track, bool) {
	if o == nil || pos < 0 || pos >= len(o.items) {
		return Track{}, false
	}
	return o.items[pos], true
}

// PositionOf returns the sequential position of a track id.
func (o *Ordering) PositionOf(id string) (int, bool) {
	if o == nil {
		return -1, false
	}
	pos, ok := o.positionIndex[id]
	if !ok {
		return -1, false
	}
	return pos, true
}

// ShuffledAt maps a position in the shuffle order to a sequential position.
func (o *Ordering) ShuffledAt(shufflePos int) (int, bool) {
	if o == nil || shufflePos < 0 || shufflePos >= len(o.shuffleOrder) {
		return -1, false
	}
	return o.shuffleOrder[shufflePos], true
}

// ShufflePositionOf returns where a sequential position sits in the shuffle order.
func (o *Ordering) ShufflePositionOf(seqPos int) (int, bool) {
	if o == nil {
		return -1, false
	}
	for i, p := range o.shuffleOrder {
		if p == seqPos {
			return i, true
		}
	}
	return -1, false
}

// ShuffleOrder returns a copy of the shuffle permutation.
func (o *Ordering) ShuffleOrder() []int {
	if o == nil {
		return nil
	}
	out := make([]int, len(o.shuffleOrder))
	copy(out, o.shuffleOrder)
	return out
}

// Items returns a copy of the tracks in natural order.
func (o *Ordering) Items() []Track {
	if o == nil {
		return nil
	}
	out := make([]Track, len(o.items))
	copy(out, o.items)
	return out
}
