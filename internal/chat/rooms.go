package chat

import (
	"sort"
	"sync"
)

// Rooms tracks which connections receive a room's broadcasts. It knows
// nothing about identities.
type Rooms struct {
	mu sync.RWMutex

	members map[string]map[string]bool // room -> set(connection)
	joined  map[string]map[string]bool // connection -> set(room)
}

func NewRooms() *Rooms {
	return &Rooms{
		members: map[string]map[string]bool{},
		joined:  map[string]map[string]bool{},
	}
}

func (r *Rooms) Join(roomID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[roomID]; !ok {
		r.members[roomID] = map[string]bool{}
	}
	r.members[roomID][connID] = true

	if _, ok := r.joined[connID]; !ok {
		r.joined[connID] = map[string]bool{}
	}
	r.joined[connID][roomID] = true
}

func (r *Rooms) Leave(roomID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leave(roomID, connID)
}

func (r *Rooms) leave(roomID, connID string) {
	if s, ok := r.members[roomID]; ok {
		delete(s, connID)
		if len(s) == 0 {
			delete(r.members, roomID)
		}
	}
	if s, ok := r.joined[connID]; ok {
		delete(s, roomID)
		if len(s) == 0 {
			delete(r.joined, connID)
		}
	}
}

// LeaveAll removes connID from every room and returns the rooms it left.
func (r *Rooms) LeaveAll(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := make([]string, 0, len(r.joined[connID]))
	for room := range r.joined[connID] {
		rooms = append(rooms, room)
	}
	for _, room := range rooms {
		r.leave(room, connID)
	}
	sort.Strings(rooms)
	return rooms
}

// Members returns the connections of roomID except exclude. Unknown rooms
// have no members.
func (r *Rooms) Members(roomID, exclude string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.members[roomID]))
	for connID := range r.members[roomID] {
		if connID == exclude {
			continue
		}
		out = append(out, connID)
	}
	return out
}

func (r *Rooms) IsMember(roomID, connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.members[roomID][connID]
}

func (r *Rooms) RoomsOf(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.joined[connID]))
	for room := range r.joined[connID] {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}
