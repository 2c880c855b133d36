package database

import "time"

type Account struct {
	Id           int
	Email        string
	FirstName    string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Room struct {
	Id            int
	PublicId      string
	UserId        int
	Title         string
	Status        string
	LastMessageAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Message struct {
	Id         int
	RoomId     int
	AuthorId   int
	AuthorRole string
	Body       string
	CreatedAt  time.Time
}

type Attachment struct {
	Id        int
	MessageId int
	Kind      string
	Filename  string
	Url       string
	Mime      string
	Size      string
	CreatedAt time.Time
}

// RoomListItem is one row of the admin inbox: room metadata joined with
// its owner, the latest message snippet, and the calling admin's unread
// count.
type RoomListItem struct {
	PublicId       string
	Title          string
	Status         string
	LastMessageAt  time.Time
	OwnerId        int
	OwnerEmail     string
	OwnerFirstName string
	LastSnippet    string
	Unread         int
}

// OwnerUnread summarizes the owner's single room for the unread badge.
type OwnerUnread struct {
	PublicId           string
	LastReadAt         time.Time
	Unread             int
	LastAdminMessageAt time.Time
	LastSnippet        string
}

type CreateAccountParams struct {
	Email        string
	FirstName    string
	PasswordHash string
	Role         string
}

type CreateMessageParams struct {
	RoomId     int
	AuthorId   int
	AuthorRole string
	Body       string
}

type CreateAttachmentParams struct {
	MessageId int
	Kind      string
	Filename  string
	Mime      string
	Size      string
}

type ListRoomsParams struct {
	AdminId int
	Query   string
	Limit   int
	Offset  int
}
