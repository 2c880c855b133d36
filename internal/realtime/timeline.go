package realtime

import (
	"fmt"
	"sort"

	"github.com/aurora92101/BetLicense/internal/types"
)

// Timeline folds a room snapshot and a live event stream into one
// deduplicated, time-ordered message list. It does no I/O of its own: the
// same inputs always produce the same output, so callers can safely
// re-render from Messages on every update.
//
// An attachment event that arrives before its owning message is buffered
// and attached once the message shows up, so delivery order between the
// snapshot fetch and the live stream never loses data.
type Timeline struct {
	messages []types.Message
	index    map[int]int // message id -> position in messages
	pending  map[int][]types.Attachment
	seen     map[string]struct{}
}

func NewTimeline() *Timeline {
	t := &Timeline{}
	t.Reset()
	return t
}

// Reset clears all state, including the duplicate-suppression set. Call
// it when the subscribed room identity changes.
func (t *Timeline) Reset() {
	t.messages = nil
	t.index = make(map[int]int)
	t.pending = make(map[int][]types.Attachment)
	t.seen = make(map[string]struct{})
}

// ApplySnapshot replaces the timeline contents with an initial message
// batch, typically the snapshot fetched on (re)connect.
func (t *Timeline) ApplySnapshot(msgs []types.Message) {
	t.Reset()
	for _, m := range msgs {
		t.markSeen(messageKey(m.Id))
		t.applyMessage(m)
	}
}

// Apply merges one live event into the timeline. It reports false when
// the event was an exact duplicate of one already delivered this session.
func (t *Timeline) Apply(ev RoomEvent) bool {
	switch e := ev.(type) {
	case MessageEvent:
		if !t.markSeen(messageKey(e.Message.Id)) {
			return false
		}
		t.applyMessage(e.Message)
		return true
	case AttachmentEvent:
		if !t.markSeen(attachmentKey(e.Attachment.Id)) {
			return false
		}
		t.applyAttachment(e.Attachment)
		return true
	case StatusEvent:
		// Status changes don't alter the message list.
		return true
	default:
		return false
	}
}

// Messages returns the merged list sorted ascending by creation time.
// The sort is stable, so equal timestamps keep arrival order.
func (t *Timeline) Messages() []types.Message {
	out := make([]types.Message, len(t.messages))
	copy(out, t.messages)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (t *Timeline) applyMessage(m types.Message) {
	if i, ok := t.index[m.Id]; ok {
		existing := t.messages[i]
		merged := m
		merged.Attachments = unionAttachments(existing.Attachments, m.Attachments)
		t.messages[i] = merged
		return
	}

	m.Attachments = unionAttachments(nil, m.Attachments)
	if pend, ok := t.pending[m.Id]; ok {
		m.Attachments = unionAttachments(m.Attachments, pend)
		delete(t.pending, m.Id)
	}

	t.index[m.Id] = len(t.messages)
	t.messages = append(t.messages, m)
}

func (t *Timeline) applyAttachment(a types.Attachment) {
	i, ok := t.index[a.MessageId]
	if !ok {
		if !hasAttachment(t.pending[a.MessageId], a.Id) {
			t.pending[a.MessageId] = append(t.pending[a.MessageId], a)
		}
		return
	}

	msg := t.messages[i]
	if hasAttachment(msg.Attachments, a.Id) {
		return
	}
	msg.Attachments = append(msg.Attachments, a)
	t.messages[i] = msg
}

// markSeen records key and reports whether it was new.
func (t *Timeline) markSeen(key string) bool {
	if _, ok := t.seen[key]; ok {
		return false
	}
	t.seen[key] = struct{}{}
	return true
}

func messageKey(id int) string    { return fmt.Sprintf("m:%d", id) }
func attachmentKey(id int) string { return fmt.Sprintf("a:%d", id) }

// unionAttachments merges b into a copy of a, keeping the first
// occurrence of each attachment id.
func unionAttachments(a, b []types.Attachment) []types.Attachment {
	out := make([]types.Attachment, 0, len(a)+len(b))
	out = append(out, a...)
	for _, att := range b {
		if !hasAttachment(out, att.Id) {
			out = append(out, att)
		}
	}
	return out
}

func hasAttachment(atts []types.Attachment, id int) bool {
	for _, a := range atts {
		if a.Id == id {
			return true
		}
	}
	return false
}
