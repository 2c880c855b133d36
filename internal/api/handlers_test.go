package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aurora92101/BetLicense/internal/database"
	"github.com/aurora92101/BetLicense/internal/filestore"
	"github.com/aurora92101/BetLicense/internal/realtime"
	"github.com/aurora92101/BetLicense/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// findCookie is a helper function to find a cookie by name in the response recorder.
// It returns the cookie if found, or nil if not found.
func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func recvRoomEvent(t *testing.T, sub *realtime.Subscription) realtime.RoomEvent {
	t.Helper()

	select {
	case ev := <-sub.C:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for room event")
		return nil
	}
}

// roomRequest builds an authenticated request against a {pid} route.
func roomRequest(method, target, pid string, body *bytes.Buffer, sess Session) *http.Request {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	req.SetPathValue("pid", pid)
	return req.WithContext(WithSession(req.Context(), sess))
}

func Test_healthCheck(t *testing.T) {
	tcases := []struct {
		name    string
		mockErr error
	}{
		{
			name:    "successful health check",
			mockErr: nil,
		},
		{
			name:    "failed health check",
			mockErr: errors.New("db error"),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatRepository{}
			defer mockRepo.AssertExpectations(t)
			mockRepo.On("Ping").Return(tc.mockErr).Once()

			app := newTestApp(t, mockRepo)
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			app.healthCheck(rr, req)

			if tc.mockErr != nil {
				assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected status code to be 500")
			} else {
				assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")
				assert.Equal(t, "OK", rr.Body.String(), "expected response body to be 'OK'")
			}
		})
	}
}

func TestCreateAccountHandler(t *testing.T) {
	expectedUser := database.Account{
		Id:        1,
		Email:     "newuser@example.com",
		FirstName: "New",
		Role:      "member",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	tcases := []struct {
		name        string
		body        any
		success     bool
		mockUser    database.Account
		mockErr     error
		expectedErr *ApiError
	}{
		{
			name: "successfully creates a new account",
			body: RegisterRequest{
				Email:     expectedUser.Email,
				FirstName: expectedUser.FirstName,
				Password:  "password",
			},
			success:  true,
			mockUser: expectedUser,
		},
		{
			name:        "failed with invalid json body",
			body:        "invalid json",
			expectedErr: NewBadRequestError(),
		},
		{
			name: "fails with missing email",
			body: RegisterRequest{
				FirstName: expectedUser.FirstName,
				Password:  "password",
			},
			expectedErr: NewBadRequestError(),
		},
		{
			name: "fails with missing password",
			body: RegisterRequest{
				Email:     expectedUser.Email,
				FirstName: expectedUser.FirstName,
			},
			expectedErr: NewBadRequestError(),
		},
		{
			name: "fails with database error",
			body: RegisterRequest{
				Email:     expectedUser.Email,
				FirstName: expectedUser.FirstName,
				Password:  "password",
			},
			mockErr:     errors.New("db error"),
			expectedErr: NewInternalServerError(errors.New("db error")),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.success || tc.mockErr != nil {
				mockRepo.On("CreateAccount", mock.MatchedBy(func(params database.CreateAccountParams) bool {
					return params.Email == expectedUser.Email &&
						params.Role == "member" &&
						verifyPassword(params.PasswordHash, "password")
				})).Return(tc.mockUser, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo)

			body, err := json.Marshal(tc.body)
			assert.NoError(t, err)
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))

			app.createAccount(rr, req)

			if tc.expectedErr != nil {
				assert.Equal(t, tc.expectedErr.StatusCode, rr.Code)
				return
			}

			assert.Equal(t, http.StatusCreated, rr.Code, "expected status code to be 201")

			var user types.User
			assert.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
			assert.Equal(t, expectedUser.Id, user.Id)
			assert.Equal(t, expectedUser.Email, user.Email)
			assert.Equal(t, types.RoleMember, user.Role)
		})
	}
}

func TestLoginHandler(t *testing.T) {
	passwordHash, err := hashPassword("password")
	assert.NoError(t, err)

	dbUser := database.Account{
		Id:           1,
		Email:        "user@example.com",
		FirstName:    "User",
		PasswordHash: passwordHash,
		Role:         "member",
	}

	t.Run("successful login sets a session cookie", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetAccountByEmail", dbUser.Email).Return(dbUser, nil).Once()

		app := newTestApp(t, mockRepo)

		body, _ := json.Marshal(LoginRequest{Email: dbUser.Email, Password: "password"})
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))

		app.login(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		cookie := findCookie(rr, tokenCookieKey)
		assert.NotNil(t, cookie, "expected a session cookie")
		assert.True(t, cookie.HttpOnly, "expected an http-only cookie")

		sess, err := app.extractSessionFromToken(cookie.Value)
		assert.NoError(t, err)
		assert.Equal(t, Session{UserId: dbUser.Id, Role: types.RoleMember}, sess, "expected the cookie to carry id and role")
	})

	t.Run("wrong password", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetAccountByEmail", dbUser.Email).Return(dbUser, nil).Once()

		app := newTestApp(t, mockRepo)

		body, _ := json.Marshal(LoginRequest{Email: dbUser.Email, Password: "wrong"})
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))

		app.login(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Nil(t, findCookie(rr, tokenCookieKey), "expected no session cookie")
	})

	t.Run("unknown account", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetAccountByEmail", "nobody@example.com").Return(database.Account{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo)

		body, _ := json.Marshal(LoginRequest{Email: "nobody@example.com", Password: "password"})
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))

		app.login(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestEnsureOwnRoomHandler(t *testing.T) {
	t.Run("returns the room public id", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("EnsureRoom", 7, "sid123").Return(database.Room{Id: 5, PublicId: "pub1", UserId: 7}, nil).Once()

		app := newTestApp(t, mockRepo)
		app.generateShortId = func() (string, error) {
			return "sid123", nil
		}

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/rooms/ensure", nil)
		req = req.WithContext(WithSession(req.Context(), Session{UserId: 7, Role: types.RoleMember}))

		app.ensureOwnRoom(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp EnsureRoomResponse
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "pub1", resp.Pid)
	})

	t.Run("short id generation failure", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)

		app := newTestApp(t, mockRepo)
		app.generateShortId = func() (string, error) {
			return "", errors.New("exhausted")
		}

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/rooms/ensure", nil)
		req = req.WithContext(WithSession(req.Context(), Session{UserId: 7, Role: types.RoleMember}))

		app.ensureOwnRoom(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestAdminEnsureRoomHandler(t *testing.T) {
	adminSess := Session{UserId: 9, Role: types.RoleAdmin}

	tcases := []struct {
		name         string
		sess         Session
		body         string
		mockAccount  bool
		accountErr   error
		ensure       bool
		expectedCode int
	}{
		{
			name:         "forbidden for non-admins",
			sess:         Session{UserId: 7, Role: types.RoleMember},
			body:         `{"user_id":7}`,
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "bad user id",
			sess:         adminSess,
			body:         `{"user_id":0}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "unknown user",
			sess:         adminSess,
			body:         `{"user_id":7}`,
			mockAccount:  true,
			accountErr:   sql.ErrNoRows,
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "ensures a room for the user",
			sess:         adminSess,
			body:         `{"user_id":7}`,
			mockAccount:  true,
			ensure:       true,
			expectedCode: http.StatusOK,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.mockAccount {
				mockRepo.On("GetAccountById", 7).Return(database.Account{Id: 7}, tc.accountErr).Once()
			}
			if tc.ensure {
				mockRepo.On("EnsureRoom", 7, "sid123").Return(database.Room{Id: 5, PublicId: "pub1", UserId: 7}, nil).Once()
			}

			app := newTestApp(t, mockRepo)
			app.generateShortId = func() (string, error) {
				return "sid123", nil
			}

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/admin/rooms/ensure", strings.NewReader(tc.body))
			req = req.WithContext(WithSession(req.Context(), tc.sess))

			app.adminEnsureRoom(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)

			if tc.expectedCode == http.StatusOK {
				var resp EnsureRoomResponse
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, "pub1", resp.Pid)
			}
		})
	}
}

func TestAdminListRoomsHandler(t *testing.T) {
	t.Run("forbidden for non-admins", func(t *testing.T) {
		app := newTestApp(t, &database.MockChatRepository{})

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/admin/rooms", nil)
		req = req.WithContext(WithSession(req.Context(), Session{UserId: 7, Role: types.RoleMember}))

		app.adminListRooms(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("lists rooms with search and paging", func(t *testing.T) {
		lastMessageAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("ListRooms", database.ListRoomsParams{
			AdminId: 9,
			Query:   "alice",
			Limit:   10,
			Offset:  10,
		}).Return([]database.RoomListItem{
			{
				PublicId:       "pub1",
				Title:          "Direct chat",
				Status:         "open",
				LastMessageAt:  lastMessageAt,
				OwnerId:        7,
				OwnerEmail:     "alice@example.com",
				OwnerFirstName: "Alice",
				LastSnippet:    "hello",
				Unread:         2,
			},
		}, nil).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/admin/rooms?q=alice&page=2&page_size=10", nil)
		req = req.WithContext(WithSession(req.Context(), Session{UserId: 9, Role: types.RoleAdmin}))

		app.adminListRooms(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var items []AdminRoomItem
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&items))
		assert.Len(t, items, 1)
		assert.Equal(t, "pub1", items[0].Pid)
		assert.Equal(t, "alice@example.com", items[0].OwnerEmail)
		assert.Equal(t, 2, items[0].Unread)
	})
}

func TestOwnerUnreadHandler(t *testing.T) {
	t.Run("forbidden for admins", func(t *testing.T) {
		app := newTestApp(t, &database.MockChatRepository{})

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/rooms/me/unread", nil)
		req = req.WithContext(WithSession(req.Context(), Session{UserId: 9, Role: types.RoleAdmin}))

		app.ownerUnread(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("returns unread counts", func(t *testing.T) {
		lastRead := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetOwnerUnread", 7).Return(database.OwnerUnread{
			PublicId:           "pub1",
			LastReadAt:         lastRead,
			Unread:             3,
			LastAdminMessageAt: lastRead.Add(time.Hour),
			LastSnippet:        "we are on it",
		}, nil).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/rooms/me/unread", nil)
		req = req.WithContext(WithSession(req.Context(), Session{UserId: 7, Role: types.RoleMember}))

		app.ownerUnread(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp OwnerUnreadResponse
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "pub1", resp.Pid)
		assert.Equal(t, 3, resp.Unread)
		assert.True(t, resp.HasUnread)
		assert.Equal(t, "we are on it", resp.LastSnippet)
	})

	t.Run("no room yet", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetOwnerUnread", 7).Return(database.OwnerUnread{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/rooms/me/unread", nil)
		req = req.WithContext(WithSession(req.Context(), Session{UserId: 7, Role: types.RoleMember}))

		app.ownerUnread(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp OwnerUnreadResponse
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Zero(t, resp.Unread)
		assert.False(t, resp.HasUnread)
	})
}

func TestRoomSnapshotHandler(t *testing.T) {
	room := database.Room{Id: 5, PublicId: "pub1", UserId: 7, Title: "Direct chat", Status: "open"}
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("merges attachments into messages", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByPublicId", "pub1").Return(room, nil).Once()
		mockRepo.On("GetAccountById", 7).Return(database.Account{Id: 7, Email: "alice@example.com", FirstName: "Alice"}, nil).Once()
		mockRepo.On("GetMessages", 5).Return([]database.Message{
			{Id: 1, RoomId: 5, AuthorId: 7, AuthorRole: "owner", Body: "hi", CreatedAt: base},
			{Id: 2, RoomId: 5, AuthorId: 9, AuthorRole: "admin", Body: "hello", CreatedAt: base.Add(time.Minute)},
		}, nil).Once()
		mockRepo.On("GetAttachmentsByRoom", 5).Return([]database.Attachment{
			{Id: 10, MessageId: 1, Kind: "image", Filename: "pic.png", Mime: "image/png"},
		}, nil).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := roomRequest(http.MethodGet, "/api/rooms/k/pub1", "pub1", nil, Session{UserId: 7, Role: types.RoleMember})

		app.roomSnapshot(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp SnapshotResponse
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "pub1", resp.Room.PublicId)
		assert.Equal(t, types.RoomOpen, resp.Room.Status)
		assert.Equal(t, "alice@example.com", resp.Room.Owner.Email)
		assert.Len(t, resp.Messages, 2)
		assert.Len(t, resp.Messages[0].Attachments, 1, "expected attachment merged into its message")
		assert.Equal(t, 10, resp.Messages[0].Attachments[0].Id)
		assert.Empty(t, resp.Messages[1].Attachments, "expected empty attachments array, not null")
	})

	t.Run("forbidden for another member", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByPublicId", "pub1").Return(room, nil).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := roomRequest(http.MethodGet, "/api/rooms/k/pub1", "pub1", nil, Session{UserId: 8, Role: types.RoleMember})

		app.roomSnapshot(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("admins may view any room", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByPublicId", "pub1").Return(room, nil).Once()
		mockRepo.On("GetAccountById", 7).Return(database.Account{Id: 7}, nil).Once()
		mockRepo.On("GetMessages", 5).Return([]database.Message{}, nil).Once()
		mockRepo.On("GetAttachmentsByRoom", 5).Return([]database.Attachment{}, nil).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := roomRequest(http.MethodGet, "/api/rooms/k/pub1", "pub1", nil, Session{UserId: 9, Role: types.RoleAdmin})

		app.roomSnapshot(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("unknown room", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByPublicId", "missing").Return(database.Room{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := roomRequest(http.MethodGet, "/api/rooms/k/missing", "missing", nil, Session{UserId: 7, Role: types.RoleMember})

		app.roomSnapshot(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestCreateMessageHandler(t *testing.T) {
	room := database.Room{Id: 5, PublicId: "pub1", UserId: 7, Status: "open"}
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("persists and broadcasts the message", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByPublicId", "pub1").Return(room, nil).Once()
		mockRepo.On("CreateMessage", database.CreateMessageParams{
			RoomId:     5,
			AuthorId:   7,
			AuthorRole: "owner",
			Body:       "hello there",
		}).Return(database.Message{
			Id:         1,
			RoomId:     5,
			AuthorId:   7,
			AuthorRole: "owner",
			Body:       "hello there",
			CreatedAt:  base,
		}, nil).Once()

		app := newTestApp(t, mockRepo)

		sub := app.bus.Subscribe(realtime.RoomChannel(5))
		defer app.bus.Unsubscribe(sub)

		body := bytes.NewBufferString(`{"text":"hello there"}`)
		rr := httptest.NewRecorder()
		req := roomRequest(http.MethodPost, "/api/rooms/k/pub1/message", "pub1", body, Session{UserId: 7, Role: types.RoleMember})

		app.createMessage(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code, "expected status code to be 201")

		var msg types.Message
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&msg))
		assert.Equal(t, 1, msg.Id)
		assert.Equal(t, types.AuthorOwner, msg.AuthorRole)
		assert.NotNil(t, msg.Attachments, "expected empty attachments array, not null")
		assert.Empty(t, msg.Attachments)

		ev := recvRoomEvent(t, sub)
		msgEv, ok := ev.(realtime.MessageEvent)
		assert.True(t, ok, "expected a message event on the room channel")
		assert.Equal(t, "hello there", msgEv.Message.Body)
	})

	t.Run("admin author role", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByPublicId", "pub1").Return(room, nil).Once()
		mockRepo.On("CreateMessage", mock.MatchedBy(func(params database.CreateMessageParams) bool {
			return params.AuthorRole == "admin" && params.AuthorId == 9
		})).Return(database.Message{Id: 2, RoomId: 5, AuthorId: 9, AuthorRole: "admin", CreatedAt: base}, nil).Once()

		app := newTestApp(t, mockRepo)

		body := bytes.NewBufferString(`{"text":""}`)
		rr := httptest.NewRecorder()
		req := roomRequest(http.MethodPost, "/api/rooms/k/pub1/message", "pub1", body, Session{UserId: 9, Role: types.RoleAdmin})

		app.createMessage(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code, "expected an empty text to be accepted")
	})

	t.Run("missing text field", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)

		app := newTestApp(t, mockRepo)

		body := bytes.NewBufferString(`{}`)
		rr := httptest.NewRecorder()
		req := roomRequest(http.MethodPost, "/api/rooms/k/pub1/message", "pub1", body, Session{UserId: 7, Role: types.RoleMember})

		app.createMessage(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code, "expected a missing text field to be rejected")
	})

	t.Run("forbidden for another member", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByPublicId", "pub1").Return(room, nil).Once()

		app := newTestApp(t, mockRepo)

		body := bytes.NewBufferString(`{"text":"hi"}`)
		rr := httptest.NewRecorder()
		req := roomRequest(http.MethodPost, "/api/rooms/k/pub1/message", "pub1", body, Session{UserId: 8, Role: types.RoleMember})

		app.createMessage(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

// multipartUpload builds a multipart body with a file part carrying an
// explicit Content-Type and a message_id field.
func multipartUpload(t *testing.T, filename, mime, content string, messageId int) (*bytes.Buffer, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", mime)
	part, err := mw.CreatePart(h)
	assert.NoError(t, err)
	_, err = part.Write([]byte(content))
	assert.NoError(t, err)

	assert.NoError(t, mw.WriteField("message_id", strconv.Itoa(messageId)))
	assert.NoError(t, mw.Close())

	return buf, mw.FormDataContentType()
}

// writeBlockerPath returns a path whose parent is a regular file, so
// creating directories under it always fails.
func writeBlockerPath(t *testing.T) string {
	t.Helper()

	blocker := filepath.Join(t.TempDir(), "blocker")
	assert.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	return filepath.Join(blocker, "store")
}

func TestUploadAttachmentHandler(t *testing.T) {
	room := database.Room{Id: 5, PublicId: "pub1", UserId: 7, Status: "open"}
	msg := database.Message{Id: 3, RoomId: 5, AuthorId: 7, AuthorRole: "owner"}

	t.Run("stores the file and broadcasts an attachment event", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByPublicId", "pub1").Return(room, nil).Once()
		mockRepo.On("GetMessage", 3).Return(msg, nil).Once()
		mockRepo.On("CreateAttachment", mock.MatchedBy(func(params database.CreateAttachmentParams) bool {
			return params.MessageId == 3 && params.Kind == "image" && params.Filename == "pic.png" && params.Mime == "image/png"
		})).Return(database.Attachment{Id: 10, MessageId: 3, Kind: "image", Filename: "pic.png", Mime: "image/png"}, nil).Once()
		mockRepo.On("UpdateAttachmentUrl", 10, mock.MatchedBy(func(url string) bool {
			return strings.HasPrefix(url, "/api/rooms/k/pub1/files/10?sig=")
		})).Return(database.Attachment{Id: 10, MessageId: 3, Kind: "image", Filename: "pic.png", Mime: "image/png", Url: "/api/rooms/k/pub1/files/10?sig=x&exp=1"}, nil).Once()

		app := newTestApp(t, mockRepo)

		sub := app.bus.Subscribe(realtime.RoomChannel(5))
		defer app.bus.Unsubscribe(sub)

		body, contentType := multipartUpload(t, "pic.png", "image/png", "png bytes", 3)
		rr := httptest.NewRecorder()
		req := roomRequest(http.MethodPost, "/api/rooms/k/pub1/upload", "pub1", body, Session{UserId: 7, Role: types.RoleMember})
		req.Header.Set("Content-Type", contentType)

		app.uploadAttachment(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code, "expected status code to be 201")

		var att types.Attachment
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&att))
		assert.Equal(t, 10, att.Id)
		assert.Equal(t, types.AttachmentImage, att.Kind)
		assert.Contains(t, att.Url, "sig=", "expected a signed download URL")

		f, info, err := app.files.Open(5, 10, "pic.png")
		assert.NoError(t, err, "expected the file to be stored")
		f.Close()
		assert.Equal(t, int64(len("png bytes")), info.Size())

		ev := recvRoomEvent(t, sub)
		attEv, ok := ev.(realtime.AttachmentEvent)
		assert.True(t, ok, "expected an attachment event on the room channel")
		assert.Equal(t, 10, attEv.Attachment.Id)
	})

	t.Run("blocked mime type", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByPublicId", "pub1").Return(room, nil).Once()
		mockRepo.On("GetMessage", 3).Return(msg, nil).Once()

		app := newTestApp(t, mockRepo)

		sub := app.bus.Subscribe(realtime.RoomChannel(5))
		defer app.bus.Unsubscribe(sub)

		body, contentType := multipartUpload(t, "evil.exe", "application/x-msdownload", "MZ", 3)
		rr := httptest.NewRecorder()
		req := roomRequest(http.MethodPost, "/api/rooms/k/pub1/upload", "pub1", body, Session{UserId: 7, Role: types.RoleMember})
		req.Header.Set("Content-Type", contentType)

		app.uploadAttachment(rr, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code, "expected status code to be 415")
		mockRepo.AssertNotCalled(t, "CreateAttachment", mock.Anything)
		assert.Empty(t, sub.C, "expected no event for a rejected upload")
	})

	t.Run("oversized file", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByPublicId", "pub1").Return(room, nil).Once()
		mockRepo.On("GetMessage", 3).Return(msg, nil).Once()

		app := newTestApp(t, mockRepo)
		app.maxUploadBytes = 8

		sub := app.bus.Subscribe(realtime.RoomChannel(5))
		defer app.bus.Unsubscribe(sub)

		body, contentType := multipartUpload(t, "big.png", "image/png", "way past the tiny limit", 3)
		rr := httptest.NewRecorder()
		req := roomRequest(http.MethodPost, "/api/rooms/k/pub1/upload", "pub1", body, Session{UserId: 7, Role: types.RoleMember})
		req.Header.Set("Content-Type", contentType)

		app.uploadAttachment(rr, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code, "expected status code to be 413")
		mockRepo.AssertNotCalled(t, "CreateAttachment", mock.Anything)
		assert.Empty(t, sub.C, "expected no event for a rejected upload")
	})

	t.Run("body larger than the transport cap", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByPublicId", "pub1").Return(room, nil).Once()

		app := newTestApp(t, mockRepo)
		app.maxUploadBytes = 8

		sub := app.bus.Subscribe(realtime.RoomChannel(5))
		defer app.bus.Unsubscribe(sub)

		// past maxUploadBytes plus the multipart overhead, so the body is
		// rejected while parsing instead of being spooled to disk
		body, contentType := multipartUpload(t, "big.png", "image/png", strings.Repeat("a", 128<<10), 3)
		rr := httptest.NewRecorder()
		req := roomRequest(http.MethodPost, "/api/rooms/k/pub1/upload", "pub1", body, Session{UserId: 7, Role: types.RoleMember})
		req.Header.Set("Content-Type", contentType)

		app.uploadAttachment(rr, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code, "expected status code to be 413")
		mockRepo.AssertNotCalled(t, "GetMessage", mock.Anything)
		mockRepo.AssertNotCalled(t, "CreateAttachment", mock.Anything)
		assert.Empty(t, sub.C, "expected no event for a rejected upload")
	})

	t.Run("mismatched room and message", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByPublicId", "pub1").Return(room, nil).Once()
		mockRepo.On("GetMessage", 3).Return(database.Message{Id: 3, RoomId: 6, AuthorId: 7}, nil).Once()

		app := newTestApp(t, mockRepo)

		body, contentType := multipartUpload(t, "pic.png", "image/png", "x", 3)
		rr := httptest.NewRecorder()
		req := roomRequest(http.MethodPost, "/api/rooms/k/pub1/upload", "pub1", body, Session{UserId: 7, Role: types.RoleMember})
		req.Header.Set("Content-Type", contentType)

		app.uploadAttachment(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("member cannot attach to another author's message", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		otherRoom := database.Room{Id: 5, PublicId: "pub1", UserId: 8, Status: "open"}
		mockRepo.On("GetRoomByPublicId", "pub1").Return(otherRoom, nil).Once()
		mockRepo.On("GetMessage", 3).Return(database.Message{Id: 3, RoomId: 5, AuthorId: 9, AuthorRole: "admin"}, nil).Once()

		app := newTestApp(t, mockRepo)

		body, contentType := multipartUpload(t, "pic.png", "image/png", "x", 3)
		rr := httptest.NewRecorder()
		req := roomRequest(http.MethodPost, "/api/rooms/k/pub1/upload", "pub1", body, Session{UserId: 8, Role: types.RoleMember})
		req.Header.Set("Content-Type", contentType)

		app.uploadAttachment(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("failed write deletes the placeholder row", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByPublicId", "pub1").Return(room, nil).Once()
		mockRepo.On("GetMessage", 3).Return(msg, nil).Once()
		mockRepo.On("CreateAttachment", mock.Anything).Return(database.Attachment{Id: 10, MessageId: 3}, nil).Once()
		mockRepo.On("DeleteAttachment", 10).Return(nil).Once()

		app := newTestApp(t, mockRepo)

		// rooting the store under a regular file makes every write fail
		blocker := writeBlockerPath(t)
		app.files = filestore.NewStore(blocker)

		sub := app.bus.Subscribe(realtime.RoomChannel(5))
		defer app.bus.Unsubscribe(sub)

		body, contentType := multipartUpload(t, "pic.png", "image/png", "x", 3)
		rr := httptest.NewRecorder()
		req := roomRequest(http.MethodPost, "/api/rooms/k/pub1/upload", "pub1", body, Session{UserId: 7, Role: types.RoleMember})
		req.Header.Set("Content-Type", contentType)

		app.uploadAttachment(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Empty(t, sub.C, "expected no event for a failed upload")
	})
}

func TestDownloadAttachmentHandler(t *testing.T) {
	room := database.Room{Id: 5, PublicId: "pub1", UserId: 7, Status: "open"}
	att := database.Attachment{Id: 10, MessageId: 3, Kind: "image", Filename: "pic.png", Mime: "image/png"}
	msg := database.Message{Id: 3, RoomId: 5, AuthorId: 7}

	// serveReq builds an authenticated download request with capability
	// params.
	serveReq := func(app *ChatApp, sess Session, sig string, exp int64, dl bool) *http.Request {
		target := fmt.Sprintf("/api/rooms/k/pub1/files/10?sig=%s&exp=%d", sig, exp)
		if dl {
			target += "&dl=1"
		}
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.SetPathValue("pid", "pub1")
		req.SetPathValue("attId", "10")
		return req.WithContext(WithSession(req.Context(), sess))
	}

	t.Run("serves an image inline", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByPublicId", "pub1").Return(room, nil).Once()
		mockRepo.On("GetAttachment", 10).Return(att, nil).Once()
		mockRepo.On("GetMessage", 3).Return(msg, nil).Once()

		app := newTestApp(t, mockRepo)
		_, err := app.files.Save(5, 10, "pic.png", strings.NewReader("png bytes"))
		assert.NoError(t, err)

		tok := app.signer.Sign(10, time.Minute)
		rr := httptest.NewRecorder()
		app.downloadAttachment(rr, serveReq(app, Session{UserId: 7, Role: types.RoleMember}, tok.Signature, tok.ExpiresAt, false))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "png bytes", rr.Body.String())
		assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
		assert.Equal(t, "private, max-age=60", rr.Header().Get("Cache-Control"))
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
		assert.Contains(t, rr.Header().Get("Content-Disposition"), "inline", "expected images to render inline")
	})

	t.Run("dl=1 forces attachment disposition", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByPublicId", "pub1").Return(room, nil).Once()
		mockRepo.On("GetAttachment", 10).Return(att, nil).Once()
		mockRepo.On("GetMessage", 3).Return(msg, nil).Once()

		app := newTestApp(t, mockRepo)
		_, err := app.files.Save(5, 10, "pic.png", strings.NewReader("png bytes"))
		assert.NoError(t, err)

		tok := app.signer.Sign(10, time.Minute)
		rr := httptest.NewRecorder()
		app.downloadAttachment(rr, serveReq(app, Session{UserId: 7, Role: types.RoleMember}, tok.Signature, tok.ExpiresAt, true))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")
	})

	t.Run("tampered signature", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)

		app := newTestApp(t, mockRepo)

		tok := app.signer.Sign(10, time.Minute)
		rr := httptest.NewRecorder()
		app.downloadAttachment(rr, serveReq(app, Session{UserId: 7, Role: types.RoleMember}, "0"+tok.Signature[1:], tok.ExpiresAt, false))

		assert.Equal(t, http.StatusForbidden, rr.Code)

		var errResp ApiError
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
		assert.Equal(t, "invalid or expired link", errResp.Message, "expected the generic capability failure message")
	})

	t.Run("expired link", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)

		app := newTestApp(t, mockRepo)

		tok := app.signer.Sign(10, -time.Minute)
		rr := httptest.NewRecorder()
		app.downloadAttachment(rr, serveReq(app, Session{UserId: 7, Role: types.RoleMember}, tok.Signature, tok.ExpiresAt, false))

		assert.Equal(t, http.StatusForbidden, rr.Code)

		var errResp ApiError
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
		assert.Equal(t, "invalid or expired link", errResp.Message, "expected expiry and tampering to be indistinguishable")
	})

	t.Run("attachment from another room", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByPublicId", "pub1").Return(room, nil).Once()
		mockRepo.On("GetAttachment", 10).Return(att, nil).Once()
		mockRepo.On("GetMessage", 3).Return(database.Message{Id: 3, RoomId: 6}, nil).Once()

		app := newTestApp(t, mockRepo)

		tok := app.signer.Sign(10, time.Minute)
		rr := httptest.NewRecorder()
		app.downloadAttachment(rr, serveReq(app, Session{UserId: 7, Role: types.RoleMember}, tok.Signature, tok.ExpiresAt, false))

		assert.Equal(t, http.StatusNotFound, rr.Code, "expected a cross-room attachment to look like a missing one")
	})
}

func TestViewAttachmentHandler(t *testing.T) {
	room := database.Room{Id: 5, PublicId: "pub1", UserId: 7, Status: "open"}
	msg := database.Message{Id: 3, RoomId: 5, AuthorId: 7}

	viewReq := func(sess Session) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/api/rooms/k/pub1/files/10/view", nil)
		req.SetPathValue("pid", "pub1")
		req.SetPathValue("attId", "10")
		return req.WithContext(WithSession(req.Context(), sess))
	}

	t.Run("serves images inline with a short cache", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByPublicId", "pub1").Return(room, nil).Once()
		mockRepo.On("GetAttachment", 10).Return(database.Attachment{Id: 10, MessageId: 3, Kind: "image", Filename: "pic.png", Mime: "image/png"}, nil).Once()
		mockRepo.On("GetMessage", 3).Return(msg, nil).Once()

		app := newTestApp(t, mockRepo)
		_, err := app.files.Save(5, 10, "pic.png", strings.NewReader("png bytes"))
		assert.NoError(t, err)

		rr := httptest.NewRecorder()
		app.viewAttachment(rr, viewReq(Session{UserId: 7, Role: types.RoleMember}))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "private, max-age=30", rr.Header().Get("Cache-Control"))
		assert.Contains(t, rr.Header().Get("Content-Disposition"), "inline")
	})

	t.Run("rejects non-images", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByPublicId", "pub1").Return(room, nil).Once()
		mockRepo.On("GetAttachment", 10).Return(database.Attachment{Id: 10, MessageId: 3, Kind: "file", Filename: "doc.pdf", Mime: "application/pdf"}, nil).Once()
		mockRepo.On("GetMessage", 3).Return(msg, nil).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		app.viewAttachment(rr, viewReq(Session{UserId: 7, Role: types.RoleMember}))

		assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code, "expected status code to be 415")
	})
}

func TestMarkReadHandler(t *testing.T) {
	room := database.Room{Id: 5, PublicId: "pub1", UserId: 7, Status: "open"}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tcases := []struct {
		name      string
		sess      Session
		actorRole string
	}{
		{
			name:      "member marks as owner",
			sess:      Session{UserId: 7, Role: types.RoleMember},
			actorRole: "owner",
		},
		{
			name:      "admin marks under their own identity",
			sess:      Session{UserId: 9, Role: types.RoleAdmin},
			actorRole: "admin",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatRepository{}
			defer mockRepo.AssertExpectations(t)
			mockRepo.On("GetRoomByPublicId", "pub1").Return(room, nil).Once()
			mockRepo.On("UpsertReadMark", 5, tc.sess.UserId, tc.actorRole).Return(now, nil).Once()

			app := newTestApp(t, mockRepo)

			rr := httptest.NewRecorder()
			req := roomRequest(http.MethodPost, "/api/rooms/k/pub1/read", "pub1", nil, tc.sess)

			app.markRead(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)

			var resp MarkReadResponse
			assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, now, resp.LastReadAt, "expected the stored mark in the response")
		})
	}
}

func TestSetRoomStatusHandler(t *testing.T) {
	room := database.Room{Id: 5, PublicId: "pub1", UserId: 7, Status: "open"}

	t.Run("forbidden for non-admins", func(t *testing.T) {
		app := newTestApp(t, &database.MockChatRepository{})

		body := bytes.NewBufferString(`{"status":"closed"}`)
		rr := httptest.NewRecorder()
		req := roomRequest(http.MethodPost, "/api/admin/rooms/k/pub1/status", "pub1", body, Session{UserId: 7, Role: types.RoleMember})

		app.setRoomStatus(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("invalid status", func(t *testing.T) {
		app := newTestApp(t, &database.MockChatRepository{})

		body := bytes.NewBufferString(`{"status":"archived"}`)
		rr := httptest.NewRecorder()
		req := roomRequest(http.MethodPost, "/api/admin/rooms/k/pub1/status", "pub1", body, Session{UserId: 9, Role: types.RoleAdmin})

		app.setRoomStatus(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("updates the status and broadcasts it", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByPublicId", "pub1").Return(room, nil).Once()
		updated := room
		updated.Status = "closed"
		mockRepo.On("SetRoomStatus", 5, "closed").Return(updated, nil).Once()

		app := newTestApp(t, mockRepo)

		sub := app.bus.Subscribe(realtime.RoomChannel(5))
		defer app.bus.Unsubscribe(sub)

		body := bytes.NewBufferString(`{"status":"closed"}`)
		rr := httptest.NewRecorder()
		req := roomRequest(http.MethodPost, "/api/admin/rooms/k/pub1/status", "pub1", body, Session{UserId: 9, Role: types.RoleAdmin})

		app.setRoomStatus(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp types.Room
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, types.RoomClosed, resp.Status)

		ev := recvRoomEvent(t, sub)
		statusEv, ok := ev.(realtime.StatusEvent)
		assert.True(t, ok, "expected a status event on the room channel")
		assert.Equal(t, types.RoomClosed, statusEv.Status)
	})
}

func TestStreamRoomHandler(t *testing.T) {
	room := database.Room{Id: 5, PublicId: "pub1", UserId: 7, Status: "open"}

	mockRepo := &database.MockChatRepository{}
	defer mockRepo.AssertExpectations(t)
	mockRepo.On("GetRoomByPublicId", "pub1").Return(room, nil).Once()

	app := newTestApp(t, mockRepo)

	ctx, cancel := context.WithCancel(context.Background())
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/rooms/k/pub1/stream", nil)
	req.SetPathValue("pid", "pub1")
	req = req.WithContext(WithSession(ctx, Session{UserId: 7, Role: types.RoleMember}))

	done := make(chan struct{})
	go func() {
		app.streamRoom(rr, req)
		close(done)
	}()

	// wait for the session to subscribe before publishing
	deadline := time.Now().Add(time.Second)
	for app.bus.SubscriberCount(realtime.RoomChannel(5)) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 1, app.bus.SubscriberCount(realtime.RoomChannel(5)), "expected the stream to subscribe")

	app.bus.Publish(realtime.RoomChannel(5), realtime.MessageEvent{Message: types.Message{Id: 1, Body: "live"}})

	// give the session a beat to flush the frame, then tear down
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache, no-transform", rr.Header().Get("Cache-Control"))
	assert.Contains(t, rr.Body.String(), "data: ", "expected an SSE data frame")
	assert.Contains(t, rr.Body.String(), `"body":"live"`, "expected the published message in the stream")
	assert.Equal(t, 0, app.bus.SubscriberCount(realtime.RoomChannel(5)), "expected the subscription to be released")
}
