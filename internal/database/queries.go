package database

import (
	"fmt"
	"time"
)

func (db *PgChatRepository) CreateAccount(params CreateAccountParams) (Account, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (email, first_name, password_hash, role, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5) RETURNING id, email, first_name, role, created_at, updated_at",
		params.Email,
		params.FirstName,
		params.PasswordHash,
		params.Role,
		time.Now().UTC(),
	)

	var a Account
	err := res.Scan(
		&a.Id,
		&a.Email,
		&a.FirstName,
		&a.Role,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (db *PgChatRepository) GetAccountById(accountId int) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, email, first_name, role, created_at, updated_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		accountId,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.Email,
		&a.FirstName,
		&a.Role,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (db *PgChatRepository) GetAccountByEmail(email string) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, email, first_name, password_hash, role, created_at, updated_at FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.Email,
		&a.FirstName,
		&a.PasswordHash,
		&a.Role,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

const selectRoomColumns = "id, public_id, user_id, title, status, last_message_at, created_at, updated_at"

// EnsureRoom returns the user's room, creating it if absent. The unique
// index on user_id makes the create race-safe: a concurrent insert loses
// the conflict and the follow-up select picks up the winner's row.
func (db *PgChatRepository) EnsureRoom(userId int, publicId string) (Room, error) {
	_, err := db.conn.Exec(
		"INSERT INTO rooms (user_id, public_id, created_at, updated_at) VALUES ($1, $2, $3, $3) "+
			"ON CONFLICT (user_id) DO NOTHING",
		userId,
		publicId,
		time.Now().UTC(),
	)
	if err != nil {
		return Room{}, fmt.Errorf("ensure room: %w", err)
	}

	return db.GetRoomByUserId(userId)
}

func (db *PgChatRepository) GetRoomByPublicId(publicId string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT "+selectRoomColumns+" FROM rooms WHERE public_id = $1 LIMIT 1",
		publicId,
	)

	return scanRoom(row)
}

func (db *PgChatRepository) GetRoomByUserId(userId int) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT "+selectRoomColumns+" FROM rooms WHERE user_id = $1 LIMIT 1",
		userId,
	)

	return scanRoom(row)
}

func (db *PgChatRepository) SetRoomStatus(roomId int, status string) (Room, error) {
	row := db.conn.QueryRow(
		"UPDATE rooms SET status = $2, updated_at = $3 WHERE id = $1 RETURNING "+selectRoomColumns,
		roomId,
		status,
		time.Now().UTC(),
	)

	return scanRoom(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (Room, error) {
	var r Room
	err := row.Scan(
		&r.Id,
		&r.PublicId,
		&r.UserId,
		&r.Title,
		&r.Status,
		&r.LastMessageAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	)

	return r, err
}

func (db *PgChatRepository) ListRooms(params ListRoomsParams) ([]RoomListItem, error) {
	if params.Limit <= 0 {
		params.Limit = 50
	}

	rows, err := db.conn.Query(
		`SELECT
			r.public_id,
			r.title,
			r.status,
			r.last_message_at,
			a.id,
			a.email,
			a.first_name,
			COALESCE((
				SELECT m.body FROM room_messages m
				WHERE m.room_id = r.id
				ORDER BY m.created_at DESC LIMIT 1
			), ''),
			(
				SELECT count(*)::int FROM room_messages m
				WHERE m.room_id = r.id
					AND m.author_role = 'owner'
					AND m.created_at > COALESCE((
						SELECT rr.last_read_at FROM room_reads rr
						WHERE rr.room_id = r.id AND rr.actor_id = $1
						LIMIT 1
					), to_timestamp(0))
			)
		FROM rooms r
		JOIN accounts a ON a.id = r.user_id
		WHERE $2 = '' OR a.email ILIKE '%' || $2 || '%' OR a.first_name ILIKE '%' || $2 || '%'
		ORDER BY r.last_message_at DESC
		LIMIT $3 OFFSET $4`,
		params.AdminId,
		params.Query,
		params.Limit,
		params.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items = make([]RoomListItem, 0, params.Limit)
	for rows.Next() {
		var item RoomListItem
		if err = rows.Scan(
			&item.PublicId,
			&item.Title,
			&item.Status,
			&item.LastMessageAt,
			&item.OwnerId,
			&item.OwnerEmail,
			&item.OwnerFirstName,
			&item.LastSnippet,
			&item.Unread,
		); err != nil {
			break
		}

		items = append(items, item)
	}
	if err != nil {
		return nil, err
	}

	return items, rows.Err()
}

// CreateMessage inserts the message and bumps the room's
// last_message_at in one transaction.
func (db *PgChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"INSERT INTO room_messages (room_id, author_id, author_role, body, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, room_id, author_id, author_role, body, created_at",
		params.RoomId,
		params.AuthorId,
		params.AuthorRole,
		params.Body,
		time.Now().UTC(),
	)

	var msg Message
	err = res.Scan(
		&msg.Id,
		&msg.RoomId,
		&msg.AuthorId,
		&msg.AuthorRole,
		&msg.Body,
		&msg.CreatedAt,
	)
	if err != nil {
		return Message{}, err
	}

	_, err = tx.Exec(
		"UPDATE rooms SET last_message_at = $2, updated_at = $2 WHERE id = $1",
		msg.RoomId,
		msg.CreatedAt,
	)
	if err != nil {
		return Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return Message{}, err
	}

	return msg, nil
}

func (db *PgChatRepository) GetMessage(messageId int) (Message, error) {
	row := db.conn.QueryRow(
		"SELECT id, room_id, author_id, author_role, body, created_at FROM room_messages "+
			"WHERE id = $1 LIMIT 1",
		messageId,
	)

	var msg Message
	err := row.Scan(
		&msg.Id,
		&msg.RoomId,
		&msg.AuthorId,
		&msg.AuthorRole,
		&msg.Body,
		&msg.CreatedAt,
	)

	return msg, err
}

func (db *PgChatRepository) GetMessages(roomId int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT id, room_id, author_id, author_role, body, created_at FROM room_messages "+
			"WHERE room_id = $1 ORDER BY created_at ASC",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(&msg.Id, &msg.RoomId, &msg.AuthorId, &msg.AuthorRole, &msg.Body, &msg.CreatedAt); err != nil {
			break
		}

		messages = append(messages, msg)
	}
	if err != nil {
		return nil, err
	}

	return messages, rows.Err()
}

const selectAttachmentColumns = "id, message_id, kind, filename, url, mime, size, created_at"

func (db *PgChatRepository) CreateAttachment(params CreateAttachmentParams) (Attachment, error) {
	row := db.conn.QueryRow(
		"INSERT INTO room_attachments (message_id, kind, filename, url, mime, size, created_at) "+
			"VALUES ($1, $2, $3, '', $4, $5, $6) RETURNING "+selectAttachmentColumns,
		params.MessageId,
		params.Kind,
		params.Filename,
		params.Mime,
		params.Size,
		time.Now().UTC(),
	)

	return scanAttachment(row)
}

func (db *PgChatRepository) UpdateAttachmentUrl(attachmentId int, url string) (Attachment, error) {
	row := db.conn.QueryRow(
		"UPDATE room_attachments SET url = $2 WHERE id = $1 RETURNING "+selectAttachmentColumns,
		attachmentId,
		url,
	)

	return scanAttachment(row)
}

func (db *PgChatRepository) DeleteAttachment(attachmentId int) error {
	_, err := db.conn.Exec("DELETE FROM room_attachments WHERE id = $1", attachmentId)
	return err
}

func (db *PgChatRepository) GetAttachment(attachmentId int) (Attachment, error) {
	row := db.conn.QueryRow(
		"SELECT "+selectAttachmentColumns+" FROM room_attachments WHERE id = $1 LIMIT 1",
		attachmentId,
	)

	return scanAttachment(row)
}

func (db *PgChatRepository) GetAttachmentsByRoom(roomId int) ([]Attachment, error) {
	rows, err := db.conn.Query(
		"SELECT a.id, a.message_id, a.kind, a.filename, a.url, a.mime, a.size, a.created_at "+
			"FROM room_attachments a JOIN room_messages m ON m.id = a.message_id "+
			"WHERE m.room_id = $1 ORDER BY a.id ASC",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments = make([]Attachment, 0)
	for rows.Next() {
		var att Attachment
		if err = rows.Scan(&att.Id, &att.MessageId, &att.Kind, &att.Filename, &att.Url, &att.Mime, &att.Size, &att.CreatedAt); err != nil {
			break
		}

		attachments = append(attachments, att)
	}
	if err != nil {
		return nil, err
	}

	return attachments, rows.Err()
}

func scanAttachment(row rowScanner) (Attachment, error) {
	var att Attachment
	err := row.Scan(
		&att.Id,
		&att.MessageId,
		&att.Kind,
		&att.Filename,
		&att.Url,
		&att.Mime,
		&att.Size,
		&att.CreatedAt,
	)

	return att, err
}

// UpsertReadMark advances the actor's last-read timestamp to now. The
// unique index on (room_id, actor_id) makes concurrent calls for the
// same pair settle on a single row.
func (db *PgChatRepository) UpsertReadMark(roomId, actorId int, actorRole string) (time.Time, error) {
	row := db.conn.QueryRow(
		"INSERT INTO room_reads (room_id, actor_id, actor_role, last_read_at) VALUES ($1, $2, $3, $4) "+
			"ON CONFLICT (room_id, actor_id) DO UPDATE SET last_read_at = EXCLUDED.last_read_at "+
			"RETURNING last_read_at",
		roomId,
		actorId,
		actorRole,
		time.Now().UTC(),
	)

	var lastReadAt time.Time
	err := row.Scan(&lastReadAt)

	return lastReadAt, err
}

// GetUnreadCount counts messages authored by authorRole created strictly
// after the actor's read mark; a missing mark counts from epoch zero.
func (db *PgChatRepository) GetUnreadCount(roomId, actorId int, authorRole string) (int, error) {
	row := db.conn.QueryRow(
		`SELECT count(*)::int FROM room_messages m
		WHERE m.room_id = $1
			AND m.author_role = $3
			AND m.created_at > COALESCE((
				SELECT last_read_at FROM room_reads
				WHERE room_id = $1 AND actor_id = $2
				LIMIT 1
			), to_timestamp(0))`,
		roomId,
		actorId,
		authorRole,
	)

	var count int
	err := row.Scan(&count)

	return count, err
}

func (db *PgChatRepository) GetOwnerUnread(userId int) (OwnerUnread, error) {
	row := db.conn.QueryRow(
		`SELECT
			r.public_id,
			COALESCE(rr.last_read_at, to_timestamp(0)),
			(
				SELECT count(*)::int FROM room_messages m
				WHERE m.room_id = r.id
					AND m.author_role = 'admin'
					AND m.created_at > COALESCE(rr.last_read_at, to_timestamp(0))
			),
			COALESCE((
				SELECT max(m2.created_at) FROM room_messages m2
				WHERE m2.room_id = r.id AND m2.author_role = 'admin'
			), to_timestamp(0)),
			COALESCE((
				SELECT m3.body FROM room_messages m3
				WHERE m3.room_id = r.id AND m3.author_role = 'admin'
				ORDER BY m3.created_at DESC LIMIT 1
			), '')
		FROM rooms r
		LEFT JOIN room_reads rr ON rr.room_id = r.id AND rr.actor_id = $1
		WHERE r.user_id = $1
		LIMIT 1`,
		userId,
	)

	var ou OwnerUnread
	err := row.Scan(
		&ou.PublicId,
		&ou.LastReadAt,
		&ou.Unread,
		&ou.LastAdminMessageAt,
		&ou.LastSnippet,
	)

	return ou, err
}
