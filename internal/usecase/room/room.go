package usecase_room

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/codepair/core/internal/model"
)

var ErrRoomNotFound = errors.New("room not found")

const defaultEvictionGrace = 5 * time.Minute

//go:generate mockery --name=RoomStorage --output=./mocks/storage --filename=storage.go
type RoomStorage interface {
	Join(roomID model.RoomID, connID model.ConnID, user model.User) model.RoomSnapshot
	ApplyCodeChange(roomID model.RoomID, code string) bool
	ApplyLanguageChange(roomID model.RoomID, language model.Language) (string, bool)
	Leave(roomID model.RoomID, connID model.ConnID) (model.User, int, bool)
	MemberCount(roomID model.RoomID) (int, bool)
	Delete(roomID model.RoomID)
	Snapshot(roomID model.RoomID) (model.RoomSnapshot, bool)
}

type Usecase struct {
	storage RoomStorage
	logger  *slog.Logger

	// How long a room may sit empty before the sweeper deletes it.
	evictionGrace time.Duration
}

type UsecaseOption func(*Usecase)

func WithLogger(logger *slog.Logger) UsecaseOption {
	return func(u *Usecase) {
		u.logger = logger
	}
}

func WithEvictionGrace(grace time.Duration) UsecaseOption {
	return func(u *Usecase) {
		if grace > 0 {
			u.evictionGrace = grace
		}
	}
}

func New(storage RoomStorage, opts ...UsecaseOption) *Usecase {
	u := &Usecase{
		storage:       storage,
		logger:        slog.Default(),
		evictionGrace: defaultEvictionGrace,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Join registers the connection in the room, creating it on first join, and
// returns a snapshot that already includes the joiner.
func (u *Usecase) Join(ctx context.Context, roomID model.RoomID, connID model.ConnID, user model.User) model.RoomSnapshot {
	snapshot := u.storage.Join(roomID, connID, user)

	u.logger.Info("user joined room",
		slog.String("room_id", string(roomID)),
		slog.String("user_id", user.UserID),
		slog.String("username", user.Username))

	return snapshot
}

// CodeChange overwrites the room document, last writer wins. Reports false
// when the room does not exist; the mutation is then a silent no-op.
func (u *Usecase) CodeChange(ctx context.Context, roomID model.RoomID, code string) bool {
	return u.storage.ApplyCodeChange(roomID, code)
}

// LanguageChange switches the room language and resets the document to the
// language's starter template. Returns the new document.
func (u *Usecase) LanguageChange(ctx context.Context, roomID model.RoomID, language model.Language) (string, bool) {
	code, ok := u.storage.ApplyLanguageChange(roomID, language)
	if ok {
		u.logger.Info("room language changed",
			slog.String("room_id", string(roomID)),
			slog.String("language", string(language)))
	}
	return code, ok
}

// Leave drops the connection's membership. When the last member leaves, a
// deferred eviction check is scheduled; a rejoin before it fires keeps the
// room alive. Reports false when there was no membership to remove, in which
// case no user-left notice must be broadcast.
func (u *Usecase) Leave(ctx context.Context, roomID model.RoomID, connID model.ConnID) (model.User, int, bool) {
	user, remaining, ok := u.storage.Leave(roomID, connID)
	if !ok {
		return model.User{}, remaining, false
	}

	u.logger.Info("user left room",
		slog.String("room_id", string(roomID)),
		slog.String("user_id", user.UserID))

	if remaining == 0 {
		u.scheduleEviction(roomID)
	}
	return user, remaining, true
}

func (u *Usecase) Snapshot(ctx context.Context, roomID model.RoomID) (model.RoomSnapshot, error) {
	snapshot, ok := u.storage.Snapshot(roomID)
	if !ok {
		return model.RoomSnapshot{}, ErrRoomNotFound
	}
	return snapshot, nil
}

// scheduleEviction arms a one-shot check for the room. The check re-reads the
// current store entry at fire time, so a room recreated during the grace
// window survives and stacked zero-crossings stay harmless.
func (u *Usecase) scheduleEviction(roomID model.RoomID) {
	time.AfterFunc(u.evictionGrace, func() {
		count, ok := u.storage.MemberCount(roomID)
		if !ok || count > 0 {
			return
		}
		u.storage.Delete(roomID)
		u.logger.Info("evicted empty room", slog.String("room_id", string(roomID)))
	})
}
