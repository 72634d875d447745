package room

import (
	"sort"
	"sync"
)

// Registry indexes live rooms by id. A room exists from its first join
// until Destroy is called for it.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// GetOrCreate returns the live room with this id, creating an empty one
// if none exists. The second result is true when the room was created.
func (reg *Registry) GetOrCreate(id string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if r, ok := reg.rooms[id]; ok {
		return r, false
	}
	r := NewRoom(id)
	reg.rooms[id] = r
	return r, true
}

func (reg *Registry) Get(id string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[id]
	return r, ok
}

// Destroy drops the room and with it its roster and history
func (reg *Registry) Destroy(id string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, id)
}

func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// IDs returns the live room ids, sorted
func (reg *Registry) IDs() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	ids := make([]string, 0, len(reg.rooms))
	for id := range reg.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ActiveRooms maps each live room id to its participant count
func (reg *Registry) ActiveRooms() map[string]int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	active := make(map[string]int, len(reg.rooms))
	for id, r := range reg.rooms {
		active[id] = r.Size()
	}
	return active
}

func (reg *Registry) ParticipantCount() int {
	total := 0
	for _, n := range reg.ActiveRooms() {
		total += n
	}
	return total
}
