package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

// Member is a read-only membership view (no transport fields).
type Member struct {
	ID       domain.ParticipantID `json:"id"`
	Username string               `json:"username"`
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"memberCount"`
	CreatedAt   time.Time     `json:"createdAt"`
}

type roomEntry struct {
	room *domain.Room
	// members keeps join order; replay on join walks it front to back.
	members []Member
}

func (e *roomEntry) indexOf(pid domain.ParticipantID) int {
	for i, m := range e.members {
		if m.ID == pid {
			return i
		}
	}
	return -1
}

// RoomRegistry maps room identity to its membership set and enforces
// one room membership per participant. Rooms are created on first
// join and deleted on last leave, never kept empty.
type RoomRegistry struct {
	mu            sync.RWMutex
	rooms         map[domain.RoomID]*roomEntry
	byParticipant map[domain.ParticipantID]domain.RoomID
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms:         make(map[domain.RoomID]*roomEntry),
		byParticipant: make(map[domain.ParticipantID]domain.RoomID),
	}
}

// Join adds the participant, creating the room if absent, and returns
// the members that were already present (excluding the joiner) in
// join order. Fails with ErrAlreadyInRoom without mutating anything
// if the participant is a member of any room.
func (r *RoomRegistry) Join(roomID domain.RoomID, pid domain.ParticipantID, username string) ([]Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byParticipant[pid]; ok {
		return nil, core.ErrAlreadyInRoom
	}

	entry, ok := r.rooms[roomID]
	if !ok {
		entry = &roomEntry{room: &domain.Room{ID: roomID, CreatedAt: time.Now()}}
		r.rooms[roomID] = entry
		log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Msg("room created")
	}

	existing := make([]Member, len(entry.members))
	copy(existing, entry.members)

	entry.members = append(entry.members, Member{ID: pid, Username: username})
	r.byParticipant[pid] = roomID
	log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("participant", string(pid)).Msg("member joined")
	return existing, nil
}

// Leave removes the participant and reports whether the room was
// deleted because it became empty. Removing an absent participant is
// a no-op.
func (r *RoomRegistry) Leave(roomID domain.RoomID, pid domain.ParticipantID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	i := entry.indexOf(pid)
	if i < 0 {
		return false
	}
	entry.members = append(entry.members[:i], entry.members[i+1:]...)
	delete(r.byParticipant, pid)
	log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("participant", string(pid)).Msg("member left")

	if len(entry.members) == 0 {
		delete(r.rooms, roomID)
		log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Msg("room deleted")
		return true
	}
	return false
}

// RoomOf resolves the fan-out scope for a participant.
func (r *RoomRegistry) RoomOf(pid domain.ParticipantID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roomID, ok := r.byParticipant[pid]
	return roomID, ok
}

// Members returns the room's membership snapshot in join order.
func (r *RoomRegistry) Members(roomID domain.RoomID) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]Member, len(entry.members))
	copy(out, entry.members)
	return out
}

func (r *RoomRegistry) Get(roomID domain.RoomID) (RoomInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.rooms[roomID]
	if !ok {
		return RoomInfo{}, false
	}
	return RoomInfo{ID: roomID, MemberCount: len(entry.members), CreatedAt: entry.room.CreatedAt}, true
}

func (r *RoomRegistry) List() []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomInfo, 0, len(r.rooms))
	for id, entry := range r.rooms {
		out = append(out, RoomInfo{ID: id, MemberCount: len(entry.members), CreatedAt: entry.room.CreatedAt})
	}
	return out
}
