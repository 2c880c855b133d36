package readtrack

import (
	"time"

	"github.com/aurora92101/BetLicense/internal/types"
)

// Store is the database surface a ReadTracker needs. It is satisfied by
// database.ChatRepository.
type Store interface {
	UpsertReadMark(roomId, actorId int, actorRole string) (time.Time, error)
	GetUnreadCount(roomId, actorId int, authorRole string) (int, error)
}

// Actor identifies who is reading. Role decides which side's messages
// count as unread for them.
type Actor struct {
	Id   int
	Role types.AuthorRole
}

type ReadTracker struct {
	db Store
}

func NewReadTracker(db Store) *ReadTracker {
	return &ReadTracker{db: db}
}

// MarkRead moves the actor's read mark for the room up to the current
// time and returns the stored timestamp.
func (rt *ReadTracker) MarkRead(roomId int, actor Actor) (time.Time, error) {
	return rt.db.UpsertReadMark(roomId, actor.Id, string(actor.Role))
}

// UnreadCount counts messages from the opposite side of the conversation
// newer than the actor's read mark. An actor's own messages are never
// unread for them.
func (rt *ReadTracker) UnreadCount(roomId int, actor Actor) (int, error) {
	return rt.db.GetUnreadCount(roomId, actor.Id, string(otherRole(actor.Role)))
}

func otherRole(role types.AuthorRole) types.AuthorRole {
	if role == types.AuthorOwner {
		return types.AuthorAdmin
	}
	return types.AuthorOwner
}
