package catalog

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
)

// ErrUnknownRoom is returned when a room id is not in the registry.
var ErrUnknownRoom = errors.New("unknown room")

// Sensors is the immutable sensor catalog.
type Sensors struct {
	list []Sensor
}

// NewSensors builds a catalog, keeping the first sensor seen for each id.
func NewSensors(list []Sensor) *Sensors {
	seen := make(map[int]bool, len(list))
	out := make([]Sensor, 0, len(list))
	for _, s := range list {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return &Sensors{list: out}
}

// All returns a copy of the catalog.
func (c *Sensors) All() []Sensor {
	out := make([]Sensor, len(c.list))
	copy(out, c.list)
	return out
}

// Registry holds the occupied rooms. Lookups are lock-free; updates replace the
// whole snapshot.
type Registry struct {
	snap atomic.Pointer[map[int]Room]
	mu   sync.Mutex // serializes writers
}

// NewRegistry creates a registry populated with rooms.
func NewRegistry(rooms []Room) *Registry {
	r := &Registry{}
	m := make(map[int]Room, len(rooms))
	for _, room := range rooms {
		m[room.ID] = room
	}
	r.snap.Store(&m)
	return r
}

// Room looks up a room by id.
func (r *Registry) Room(id int) (Room, bool) {
	room, ok := (*r.snap.Load())[id]
	return room, ok
}

// Rooms returns every room sorted by id.
func (r *Registry) Rooms() []Room {
	m := *r.snap.Load()
	out := make([]Room, 0, len(m))
	for _, room := range m {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ReplaceThresholds swaps in a new threshold set for a room.
func (r *Registry) ReplaceThresholds(id int, t Thresholds) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := *r.snap.Load()
	room, ok := cur[id]
	if !ok {
		return ErrUnknownRoom
	}
	next := make(map[int]Room, len(cur))
	for k, v := range cur {
		next[k] = v
	}
	next[id] = room.WithThresholds(t)
	r.snap.Store(&next)
	return nil
}
