package database

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockChatRepository) CreateAccount(params CreateAccountParams) (Account, error) {
	args := m.Called(params)
	return args.Get(0).(Account), args.Error(1)
}

func (m *MockChatRepository) GetAccountById(accountId int) (Account, error) {
	args := m.Called(accountId)
	return args.Get(0).(Account), args.Error(1)
}

func (m *MockChatRepository) GetAccountByEmail(email string) (Account, error) {
	args := m.Called(email)
	return args.Get(0).(Account), args.Error(1)
}

func (m *MockChatRepository) EnsureRoom(userId int, publicId string) (Room, error) {
	args := m.Called(userId, publicId)
	return args.Get(0).(Room), args.Error(1)
}

func (m *MockChatRepository) GetRoomByPublicId(publicId string) (Room, error) {
	args := m.Called(publicId)
	return args.Get(0).(Room), args.Error(1)
}

func (m *MockChatRepository) GetRoomByUserId(userId int) (Room, error) {
	args := m.Called(userId)
	return args.Get(0).(Room), args.Error(1)
}

func (m *MockChatRepository) SetRoomStatus(roomId int, status string) (Room, error) {
	args := m.Called(roomId, status)
	return args.Get(0).(Room), args.Error(1)
}

func (m *MockChatRepository) ListRooms(params ListRoomsParams) ([]RoomListItem, error) {
	args := m.Called(params)
	return args.Get(0).([]RoomListItem), args.Error(1)
}

func (m *MockChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockChatRepository) GetMessage(messageId int) (Message, error) {
	args := m.Called(messageId)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockChatRepository) GetMessages(roomId int) ([]Message, error) {
	args := m.Called(roomId)
	return args.Get(0).([]Message), args.Error(1)
}

func (m *MockChatRepository) CreateAttachment(params CreateAttachmentParams) (Attachment, error) {
	args := m.Called(params)
	return args.Get(0).(Attachment), args.Error(1)
}

func (m *MockChatRepository) UpdateAttachmentUrl(attachmentId int, url string) (Attachment, error) {
	args := m.Called(attachmentId, url)
	return args.Get(0).(Attachment), args.Error(1)
}

func (m *MockChatRepository) DeleteAttachment(attachmentId int) error {
	args := m.Called(attachmentId)
	return args.Error(0)
}

func (m *MockChatRepository) GetAttachment(attachmentId int) (Attachment, error) {
	args := m.Called(attachmentId)
	return args.Get(0).(Attachment), args.Error(1)
}

func (m *MockChatRepository) GetAttachmentsByRoom(roomId int) ([]Attachment, error) {
	args := m.Called(roomId)
	return args.Get(0).([]Attachment), args.Error(1)
}

func (m *MockChatRepository) UpsertReadMark(roomId, actorId int, actorRole string) (time.Time, error) {
	args := m.Called(roomId, actorId, actorRole)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockChatRepository) GetUnreadCount(roomId, actorId int, authorRole string) (int, error) {
	args := m.Called(roomId, actorId, authorRole)
	return args.Int(0), args.Error(1)
}

func (m *MockChatRepository) GetOwnerUnread(userId int) (OwnerUnread, error) {
	args := m.Called(userId)
	return args.Get(0).(OwnerUnread), args.Error(1)
}
