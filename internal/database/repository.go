package database

import "time"

type ChatRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (Account, error)
	GetAccountById(accountId int) (Account, error)
	GetAccountByEmail(email string) (Account, error)
	EnsureRoom(userId int, publicId string) (Room, error)
	GetRoomByPublicId(publicId string) (Room, error)
	GetRoomByUserId(userId int) (Room, error)
	SetRoomStatus(roomId int, status string) (Room, error)
	ListRooms(params ListRoomsParams) ([]RoomListItem, error)
	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessage(messageId int) (Message, error)
	GetMessages(roomId int) ([]Message, error)
	CreateAttachment(params CreateAttachmentParams) (Attachment, error)
	UpdateAttachmentUrl(attachmentId int, url string) (Attachment, error)
	DeleteAttachment(attachmentId int) error
	GetAttachment(attachmentId int) (Attachment, error)
	GetAttachmentsByRoom(roomId int) ([]Attachment, error)
	UpsertReadMark(roomId, actorId int, actorRole string) (time.Time, error)
	GetUnreadCount(roomId, actorId int, authorRole string) (int, error)
	GetOwnerUnread(userId int) (OwnerUnread, error)
}
