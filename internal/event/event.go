package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeUserRegistered      Type = "user.registered"
	TypeUserUpdated         Type = "user.updated"
	TypeUserPasswordChanged Type = "user.password_changed"
	TypeUserDeleted         Type = "user.deleted"
	TypeLogin               Type = "auth.login"
	TypeLoginFailed         Type = "auth.login_failed"
	TypeTokenRefreshed      Type = "auth.token_refreshed"
	TypeLogout              Type = "auth.logout"
)

// Event is an account lifecycle fact. UserID is the account it concerns.
type Event struct {
	ID         string
	Type       Type
	UserID     string
	OccurredAt time.Time
}

func New(t Type, userID string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // channel and unsubscribe function
}
