package events

const (
	// KindSessionJoined identifies successful session establishment.
	KindSessionJoined Kind = "session.joined"
	// KindSessionLeft identifies session teardown.
	KindSessionLeft Kind = "session.left"
)

// SessionJoined marks an established session.
type SessionJoined struct {
	Base
	RoomID string
	UserID string
}

// NewSessionJoined creates a session-joined event.
func NewSessionJoined(roomID, userID string) SessionJoined {
	return SessionJoined{Base: NewBase(KindSessionJoined), RoomID: roomID, UserID: userID}
}

// SessionLeft marks a torn-down session.
type SessionLeft struct {
	Base
	RoomID string
}

// NewSessionLeft creates a session-left event.
func NewSessionLeft(roomID string) SessionLeft {
	return SessionLeft{Base: NewBase(KindSessionLeft), RoomID: roomID}
}
