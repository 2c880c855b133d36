package types

import (
	"time"
)

type Role string

const (
	RoleMember     Role = "member"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// AuthorRole tags a message with the side of the conversation it came
// from. It is recorded at send time and never corrected retroactively.
type AuthorRole string

const (
	AuthorOwner AuthorRole = "owner"
	AuthorAdmin AuthorRole = "admin"
)

type RoomStatus string

const (
	RoomOpen   RoomStatus = "open"
	RoomClosed RoomStatus = "closed"
)

type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentFile  AttachmentKind = "file"
)

type User struct {
	Id        int       `json:"id"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	Role      Role      `json:"role,omitempty"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Room is the wire form of a support room. The internal numeric id never
// leaves the server; clients only ever see the public id.
type Room struct {
	PublicId      string     `json:"public_id"`
	Title         string     `json:"title"`
	Status        RoomStatus `json:"status"`
	Owner         *User      `json:"owner,omitempty"`
	LastMessageAt time.Time  `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at,omitempty"`
}

type Message struct {
	Id          int          `json:"id"`
	AuthorId    int          `json:"author_id"`
	AuthorRole  AuthorRole   `json:"author_role"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"created_at"`
}

type Attachment struct {
	Id        int            `json:"id"`
	MessageId int            `json:"message_id"`
	Kind      AttachmentKind `json:"kind"`
	Filename  string         `json:"filename"`
	Url       string         `json:"url"`
	Mime      string         `json:"mime"`
	Size      string         `json:"size"`
	CreatedAt time.Time      `json:"created_at"`
}
