package domain

import "time"

// MessageStatus is the raw status stored on a contact message.
type MessageStatus string

const (
	MessageStatusNew          MessageStatus = "new"
	MessageStatusRead         MessageStatus = "read"
	MessageStatusReplied      MessageStatus = "replied"
	MessageStatusNewlyReplied MessageStatus = "newlyReplied"
	MessageStatusClosed       MessageStatus = "closed"
)

func (s MessageStatus) Valid() bool {
	switch s {
	case MessageStatusNew, MessageStatusRead, MessageStatusReplied,
		MessageStatusNewlyReplied, MessageStatusClosed:
		return true
	}
	return false
}

// DisplayStatus is computed on read from a message's stored fields and never persisted.
type DisplayStatus string

const (
	DisplayStatusNew          DisplayStatus = "new"
	DisplayStatusRead         DisplayStatus = "read"
	DisplayStatusReplied      DisplayStatus = "replied"
	DisplayStatusNewlyReplied DisplayStatus = "newlyReplied"
	DisplayStatusClosed       DisplayStatus = "closed"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Other returns the counterpart role in a discussion.
func (r Role) Other() Role {
	if r == RoleAdmin {
		return RoleUser
	}
	return RoleAdmin
}

type EntryStatus string

const (
	EntryStatusNew  EntryStatus = "new"
	EntryStatusRead EntryStatus = "read"
)

// DeletedUserID replaces the user id of messages whose account no longer exists.
const DeletedUserID = "deleted-user"

type DiscussionEntry struct {
	ID     string      `json:"id"`
	UserID string      `json:"user_id"`
	Role   Role        `json:"role"`
	Text   string      `json:"text"`
	Date   time.Time   `json:"date"`
	Status EntryStatus `json:"status"`
}

type ContactMessage struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id,omitempty"` // empty for guests
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Subject    string            `json:"subject"`
	Message    string            `json:"message"`
	Status     MessageStatus     `json:"status"`
	Discussion []DiscussionEntry `json:"discussion"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Registered reports whether the message belongs to an existing account.
func (m ContactMessage) Registered() bool {
	return m.UserID != "" && m.UserID != DeletedUserID
}

// Viewer identifies who is looking at a message.
type Viewer struct {
	UserID string
	Role   Role
}

func (v Viewer) IsAdmin() bool {
	return v.Role == RoleAdmin
}

type ReplyEligibility struct {
	CanReply bool   `json:"can_reply"`
	Reason   string `json:"reason,omitempty"`
}

type ContactStats struct {
	Total        int `json:"total"`
	New          int `json:"new"`
	Read         int `json:"read"`
	Replied      int `json:"replied"`
	NewlyReplied int `json:"newly_replied"`
	Closed       int `json:"closed"`
}
