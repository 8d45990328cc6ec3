package domain

import "encoding/json"

// Member represents user's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	User *User
	// UserData is the sticky payload a participant attaches to its own record.
	// It is handed to everyone who joins later.
	UserData json.RawMessage
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user *User) *Member {
	return &Member{User: user}
}
