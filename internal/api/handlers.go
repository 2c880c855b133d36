package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/aurora92101/BetLicense/internal/capability"
	"github.com/aurora92101/BetLicense/internal/database"
	"github.com/aurora92101/BetLicense/internal/filestore"
	"github.com/aurora92101/BetLicense/internal/readtrack"
	"github.com/aurora92101/BetLicense/internal/realtime"
	"github.com/aurora92101/BetLicense/internal/stats"
	"github.com/aurora92101/BetLicense/internal/types"
	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"
)

// Signed download links stay valid for ten minutes.
const attachmentLinkTTL = 10 * time.Minute

// multipartOverhead is the slack on top of the upload limit for part
// headers, boundaries and the message_id field.
const multipartOverhead = 64 << 10

type CreateMessageRequest struct {
	// Text is a pointer so a missing field can be told apart from an
	// empty message, which is allowed.
	Text *string `json:"text"`
}

type EnsureRoomResponse struct {
	Pid string `json:"pid"`
}

type AdminEnsureRoomRequest struct {
	UserId int `json:"user_id"`
}

type SetRoomStatusRequest struct {
	Status string `json:"status"`
}

type MarkReadResponse struct {
	LastReadAt time.Time `json:"last_read_at"`
}

type OwnerUnreadResponse struct {
	Pid                string    `json:"pid"`
	Unread             int       `json:"unread"`
	HasUnread          bool      `json:"has_unread"`
	LastReadAt         time.Time `json:"last_read_at"`
	LastAdminMessageAt time.Time `json:"last_admin_message_at"`
	LastSnippet        string    `json:"last_snippet"`
}

type AdminRoomItem struct {
	Pid            string    `json:"pid"`
	Title          string    `json:"title"`
	Status         string    `json:"status"`
	LastMessageAt  time.Time `json:"last_message_at"`
	OwnerId        int       `json:"owner_id"`
	OwnerEmail     string    `json:"owner_email"`
	OwnerFirstName string    `json:"owner_first_name"`
	LastSnippet    string    `json:"last_snippet"`
	Unread         int       `json:"unread"`
}

type SnapshotResponse struct {
	Room     types.Room      `json:"room"`
	Messages []types.Message `json:"messages"`
}

func (s *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func attachmentToWire(a database.Attachment) types.Attachment {
	return types.Attachment{
		Id:        a.Id,
		MessageId: a.MessageId,
		Kind:      types.AttachmentKind(a.Kind),
		Filename:  a.Filename,
		Url:       a.Url,
		Mime:      a.Mime,
		Size:      a.Size,
		CreatedAt: a.CreatedAt,
	}
}

func messageToWire(m database.Message, attachments []types.Attachment) types.Message {
	if attachments == nil {
		attachments = []types.Attachment{}
	}

	return types.Message{
		Id:          m.Id,
		AuthorId:    m.AuthorId,
		AuthorRole:  types.AuthorRole(m.AuthorRole),
		Body:        m.Body,
		Attachments: attachments,
		CreatedAt:   m.CreatedAt,
	}
}

// roomForRequest loads the room named by the {pid} path segment and
// checks the caller may touch it: admins see every room, everyone else
// only their own.
func (s *ChatApp) roomForRequest(r *http.Request, sess Session) (database.Room, *ApiError) {
	pid := r.PathValue("pid")
	if pid == "" {
		return database.Room{}, NewNotFoundError()
	}

	room, err := s.db.GetRoomByPublicId(pid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.Room{}, NewNotFoundError()
		}
		return database.Room{}, NewInternalServerError(err)
	}

	if !sess.isAdmin() && room.UserId != sess.UserId {
		return database.Room{}, NewForbiddenError()
	}

	return room, nil
}

func (s *ChatApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Printf("health check failed: %v", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *ChatApp) ensureOwnRoom(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sid, err := s.generateShortId()
	if err != nil {
		s.log.Print("generateShortId:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.EnsureRoom(sess.UserId, sid)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, EnsureRoomResponse{Pid: room.PublicId})
}

func (s *ChatApp) adminEnsureRoom(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFrom(r.Context())
	if !ok || !sess.isAdmin() {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req AdminEnsureRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserId <= 0 {
		errResp := NewInvalidInputError("bad user_id")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.GetAccountById(req.UserId); err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sid, err := s.generateShortId()
	if err != nil {
		s.log.Print("generateShortId:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.EnsureRoom(req.UserId, sid)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, EnsureRoomResponse{Pid: room.PublicId})
}

func (s *ChatApp) adminListRooms(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFrom(r.Context())
	if !ok || !sess.isAdmin() {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	items, err := s.db.ListRooms(database.ListRoomsParams{
		AdminId: sess.UserId,
		Query:   r.URL.Query().Get("q"),
		Limit:   pageSize,
		Offset:  (page - 1) * pageSize,
	})
	if err != nil {
		s.log.Println("list rooms:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	rooms := make([]AdminRoomItem, 0, len(items))
	for _, item := range items {
		rooms = append(rooms, AdminRoomItem{
			Pid:            item.PublicId,
			Title:          item.Title,
			Status:         item.Status,
			LastMessageAt:  item.LastMessageAt,
			OwnerId:        item.OwnerId,
			OwnerEmail:     item.OwnerEmail,
			OwnerFirstName: item.OwnerFirstName,
			LastSnippet:    item.LastSnippet,
			Unread:         item.Unread,
		})
	}

	s.writeJson(w, http.StatusOK, rooms)
}

func (s *ChatApp) ownerUnread(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFrom(r.Context())
	if !ok || sess.isAdmin() {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	ou, err := s.db.GetOwnerUnread(sess.UserId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// no room yet, nothing unread
			s.writeJson(w, http.StatusOK, OwnerUnreadResponse{})
			return
		}
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, OwnerUnreadResponse{
		Pid:                ou.PublicId,
		Unread:             ou.Unread,
		HasUnread:          ou.Unread > 0,
		LastReadAt:         ou.LastReadAt,
		LastAdminMessageAt: ou.LastAdminMessageAt,
		LastSnippet:        ou.LastSnippet,
	})
}

func (s *ChatApp) roomSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, apiErr := s.roomForRequest(r, sess)
	if apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	owner, err := s.db.GetAccountById(room.UserId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msgs, err := s.db.GetMessages(room.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	atts, err := s.db.GetAttachmentsByRoom(room.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	attachmentsByMessage := make(map[int][]types.Attachment)
	for _, att := range atts {
		attachmentsByMessage[att.MessageId] = append(attachmentsByMessage[att.MessageId], attachmentToWire(att))
	}

	messages := make([]types.Message, 0, len(msgs))
	for _, msg := range msgs {
		messages = append(messages, messageToWire(msg, attachmentsByMessage[msg.Id]))
	}

	s.writeJson(w, http.StatusOK, SnapshotResponse{
		Room: types.Room{
			PublicId: room.PublicId,
			Title:    room.Title,
			Status:   types.RoomStatus(room.Status),
			Owner: &types.User{
				Id:        owner.Id,
				Email:     owner.Email,
				FirstName: owner.FirstName,
			},
			LastMessageAt: room.LastMessageAt,
		},
		Messages: messages,
	})
}

func (s *ChatApp) createMessage(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// an absent text field is rejected, an empty string is a valid message
	if req.Text == nil {
		errResp := NewInvalidInputError("missing text field")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, apiErr := s.roomForRequest(r, sess)
	if apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	msg, err := s.db.CreateMessage(database.CreateMessageParams{
		RoomId:     room.Id,
		AuthorId:   sess.UserId,
		AuthorRole: string(sess.authorRole()),
		Body:       *req.Text,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	wireMsg := messageToWire(msg, nil)
	s.bus.Publish(realtime.RoomChannel(room.Id), realtime.MessageEvent{Message: wireMsg})
	if s.stats != nil {
		s.stats.Incr(stats.MessagesCreated)
	}

	s.writeJson(w, http.StatusCreated, wireMsg)
}

func (s *ChatApp) uploadAttachment(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, apiErr := s.roomForRequest(r, sess)
	if apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	// cut oversized bodies off at the transport instead of spooling them
	// to temp files first
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			errResp := NewTooLargeError(s.maxUploadBytes)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		errResp := NewInvalidInputError("missing file or message_id")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		errResp := NewInvalidInputError("missing file or message_id")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	defer file.Close()

	messageId, err := strconv.Atoi(r.FormValue("message_id"))
	if err != nil || messageId <= 0 {
		errResp := NewInvalidInputError("missing file or message_id")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.db.GetMessage(messageId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if msg.RoomId != room.Id {
		errResp := NewInvalidInputError("mismatched room and message")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// non-admins may only attach files to their own messages
	if !sess.isAdmin() && msg.AuthorId != sess.UserId {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	mime := header.Header.Get("Content-Type")
	if !isMimeAllowed(mime) {
		errResp := NewUnsupportedMediaError(mime)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if header.Size > s.maxUploadBytes {
		errResp := NewTooLargeError(s.maxUploadBytes)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	kind := types.AttachmentFile
	if isImageMime(mime) {
		kind = types.AttachmentImage
	}
	safeName := filestore.SanitizeFilename(header.Filename)

	// the row is created first so the attachment id can key the storage
	// path and the signed URL
	created, err := s.db.CreateAttachment(database.CreateAttachmentParams{
		MessageId: msg.Id,
		Kind:      string(kind),
		Filename:  safeName,
		Mime:      mime,
		Size:      humanize.Bytes(uint64(header.Size)),
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.files.Save(room.Id, created.Id, safeName, file); err != nil {
		// compensate so no row points at a file that was never written
		if delErr := s.db.DeleteAttachment(created.Id); delErr != nil {
			s.log.Printf("delete attachment %d after failed write: %v", created.Id, delErr)
		}
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	tok := s.signer.Sign(created.Id, attachmentLinkTTL)
	att, err := s.db.UpdateAttachmentUrl(created.Id, capability.DownloadURL(room.PublicId, created.Id, tok))
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	wireAtt := attachmentToWire(att)
	s.bus.Publish(realtime.RoomChannel(room.Id), realtime.AttachmentEvent{Attachment: wireAtt})
	if s.stats != nil {
		s.stats.Incr(stats.AttachmentsCreated)
	}

	s.writeJson(w, http.StatusCreated, wireAtt)
}

// attachmentForRequest resolves {attId} and checks the parent message
// belongs to the room from the path.
func (s *ChatApp) attachmentForRequest(r *http.Request, room database.Room) (database.Attachment, *ApiError) {
	attId, err := strconv.Atoi(r.PathValue("attId"))
	if err != nil || attId <= 0 {
		return database.Attachment{}, NewNotFoundError()
	}

	att, err := s.db.GetAttachment(attId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.Attachment{}, NewNotFoundError()
		}
		return database.Attachment{}, NewInternalServerError(err)
	}

	msg, err := s.db.GetMessage(att.MessageId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.Attachment{}, NewNotFoundError()
		}
		return database.Attachment{}, NewInternalServerError(err)
	}

	if msg.RoomId != room.Id {
		return database.Attachment{}, NewNotFoundError()
	}

	return att, nil
}

func (s *ChatApp) serveAttachment(w http.ResponseWriter, room database.Room, att database.Attachment, disposition, cacheControl string) {
	f, info, err := s.files.Open(room.Id, att.Id, att.Filename)
	if err != nil {
		s.log.Printf("open attachment %d: %v", att.Id, err)
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	defer f.Close()

	mime := att.Mime
	if mime == "" {
		mime = "application/octet-stream"
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", cacheControl)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename*=UTF-8''%s", disposition, url.PathEscape(att.Filename)))

	if _, err := io.Copy(w, f); err != nil {
		s.log.Printf("serve attachment %d: %v", att.Id, err)
	}
}

func (s *ChatApp) downloadAttachment(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	attId, err := strconv.Atoi(r.PathValue("attId"))
	if err != nil || attId <= 0 {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sig := r.URL.Query().Get("sig")
	exp, _ := strconv.ParseInt(r.URL.Query().Get("exp"), 10, 64)
	if sig == "" || !s.signer.Verify(attId, sig, exp) {
		errResp := NewInvalidCapabilityError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, apiErr := s.roomForRequest(r, sess)
	if apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	att, apiErr := s.attachmentForRequest(r, room)
	if apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	// images render inline unless the client forces a download
	disposition := "attachment"
	if isImageMime(att.Mime) && r.URL.Query().Get("dl") != "1" {
		disposition = "inline"
	}

	s.serveAttachment(w, room, att, disposition, "private, max-age=60")
}

func (s *ChatApp) viewAttachment(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, apiErr := s.roomForRequest(r, sess)
	if apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	att, apiErr := s.attachmentForRequest(r, room)
	if apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	if !isImageMime(att.Mime) {
		errResp := NewUnsupportedMediaError(att.Mime)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.serveAttachment(w, room, att, "inline", "private, max-age=30")
}

func (s *ChatApp) markRead(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, apiErr := s.roomForRequest(r, sess)
	if apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	lastReadAt, err := s.reads.MarkRead(room.Id, readtrack.Actor{
		Id:   sess.UserId,
		Role: sess.authorRole(),
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, MarkReadResponse{LastReadAt: lastReadAt})
}

func (s *ChatApp) setRoomStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFrom(r.Context())
	if !ok || !sess.isAdmin() {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req SetRoomStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	status := types.RoomStatus(req.Status)
	if status != types.RoomOpen && status != types.RoomClosed {
		errResp := NewInvalidInputError("status must be open or closed")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, apiErr := s.roomForRequest(r, sess)
	if apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	updated, err := s.db.SetRoomStatus(room.Id, string(status))
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.bus.Publish(realtime.RoomChannel(room.Id), realtime.StatusEvent{Status: status})

	s.writeJson(w, http.StatusOK, types.Room{
		PublicId:      updated.PublicId,
		Title:         updated.Title,
		Status:        types.RoomStatus(updated.Status),
		LastMessageAt: updated.LastMessageAt,
		CreatedAt:     updated.CreatedAt,
		UpdatedAt:     updated.UpdatedAt,
	})
}

func (s *ChatApp) streamRoom(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, apiErr := s.roomForRequest(r, sess)
	if apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	if _, ok := w.(http.Flusher); !ok {
		errResp := NewInternalServerError(errors.New("streaming unsupported"))
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	session := realtime.NewStreamSession(s.bus, realtime.RoomChannel(room.Id), w, s.keepAlive, s.log, s.stats)
	session.Run(r.Context())
}

func (s *ChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, apiErr := s.roomForRequest(r, sess)
	if apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	session := realtime.NewWsSession(s.bus, realtime.RoomChannel(room.Id), conn, s.log, s.stats)
	go session.Write()
	go session.Read()
}
