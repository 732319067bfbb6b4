// Package storage_room owns the in-memory collection of live rooms.
// Rooms are created lazily on first join and dropped by the eviction
// sweeper once they have stayed empty past the grace period.
package storage_room

import (
	"sync"

	"github.com/codepair/core/internal/model"
)

type Storage struct {
	mu    sync.RWMutex
	rooms map[model.RoomID]*model.Room
}

func New() *Storage {
	return &Storage{
		rooms: make(map[model.RoomID]*model.Room),
	}
}

// getOrCreate must be called with s.mu held.
func (s *Storage) getOrCreate(roomID model.RoomID) *model.Room {
	room, ok := s.rooms[roomID]
	if !ok {
		room = &model.Room{
			Code:     model.LanguageJavaScript.StarterTemplate(),
			Language: model.LanguageJavaScript,
			Members:  make(map[model.ConnID]model.User),
		}
		s.rooms[roomID] = room
	}
	return room
}

// Join registers the connection as a member, creating the room if needed.
// The returned snapshot reflects state immediately after registration, so
// it includes the joiner.
func (s *Storage) Join(roomID model.RoomID, connID model.ConnID, user model.User) model.RoomSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.getOrCreate(roomID)
	room.Members[connID] = user

	return snapshotLocked(room)
}

// ApplyCodeChange replaces the document unconditionally (last writer wins).
// Reports false if the room does not exist; callers must not broadcast then.
func (s *Storage) ApplyCodeChange(roomID model.RoomID, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	room.Code = code
	return true
}

// ApplyLanguageChange sets the language and resets the document to that
// language's starter template, discarding prior content. Unknown languages
// fall back to javascript. Returns the new document.
func (s *Storage) ApplyLanguageChange(roomID model.RoomID, language model.Language) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return "", false
	}
	room.Language = language
	room.Code = language.StarterTemplate()
	return room.Code, true
}

// Leave removes the connection's membership. Reports false when the room or
// the membership does not exist; no user-left notice must be sent then.
func (s *Storage) Leave(roomID model.RoomID, connID model.ConnID) (model.User, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return model.User{}, 0, false
	}
	user, ok := room.Members[connID]
	if !ok {
		return model.User{}, len(room.Members), false
	}
	delete(room.Members, connID)
	return user, len(room.Members), true
}

func (s *Storage) MemberCount(roomID model.RoomID) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return 0, false
	}
	return len(room.Members), true
}

// Delete removes the room entirely. Idempotent.
func (s *Storage) Delete(roomID model.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rooms, roomID)
}

func (s *Storage) Snapshot(roomID model.RoomID) (model.RoomSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return model.RoomSnapshot{}, false
	}
	return snapshotLocked(room), true
}

func snapshotLocked(room *model.Room) model.RoomSnapshot {
	users := make([]model.User, 0, len(room.Members))
	for _, u := range room.Members {
		users = append(users, u)
	}
	return model.RoomSnapshot{
		Code:     room.Code,
		Language: room.Language,
		Users:    users,
	}
}
