package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/restaurant-ordering/internal/core/domain"
	"github.com/rl1809/restaurant-ordering/internal/port"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrEntryNotFound   = errors.New("discussion entry not found")
	ErrForbidden       = errors.New("forbidden")
	ErrEmptyReply      = errors.New("reply text is empty")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidContact  = errors.New("name, email and message are required")
	ErrMessageClosed   = errors.New("conversation is closed")
)

// ReplyNotAllowedError reports why a reply was refused.
type ReplyNotAllowedError struct {
	Reason string
}

func (e *ReplyNotAllowedError) Error() string {
	return "reply not allowed: " + e.Reason
}

// ThreadView is a message together with everything derived for one viewer.
type ThreadView struct {
	Message       domain.ContactMessage
	DisplayStatus domain.DisplayStatus
	Eligibility   domain.ReplyEligibility
	Unread        []domain.DiscussionEntry
}

// NewThreadView derives the per-viewer state of a message.
func NewThreadView(msg domain.ContactMessage, role domain.Role) ThreadView {
	if msg.Discussion == nil {
		msg.Discussion = []domain.DiscussionEntry{}
	}
	return ThreadView{
		Message:       msg,
		DisplayStatus: DisplayStatus(msg),
		Eligibility:   CanReply(msg, role),
		Unread:        UnreadReplies(msg, role),
	}
}

type Inbox struct {
	Threads          []ThreadView
	Stats            domain.ContactStats
	NewMessagesCount int
}

type ContactSubmission struct {
	Name    string
	Email   string
	Subject string
	Message string
}

type ContactService struct {
	contacts port.ContactRepository
	cache    port.CacheRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewContactService(contacts port.ContactRepository, cache port.CacheRepository, logger *zap.Logger) *ContactService {
	return &ContactService{
		contacts: contacts,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit records a new contact message. Guests have an empty viewer user id.
func (s *ContactService) Submit(ctx context.Context, viewer domain.Viewer, sub ContactSubmission) (domain.ContactMessage, error) {
	if strings.TrimSpace(sub.Name) == "" || strings.TrimSpace(sub.Email) == "" || strings.TrimSpace(sub.Message) == "" {
		return domain.ContactMessage{}, ErrInvalidContact
	}

	now := s.now()
	msg := domain.ContactMessage{
		ID:         uuid.NewString(),
		UserID:     viewer.UserID,
		Name:       strings.TrimSpace(sub.Name),
		Email:      strings.TrimSpace(sub.Email),
		Subject:    strings.TrimSpace(sub.Subject),
		Message:    sub.Message,
		Status:     domain.MessageStatusNew,
		Discussion: []domain.DiscussionEntry{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.contacts.CreateMessage(ctx, msg); err != nil {
		return domain.ContactMessage{}, fmt.Errorf("create message: %w", err)
	}

	s.logger.Info("contact message received",
		zap.String("message_id", msg.ID),
		zap.Bool("registered", msg.Registered()))
	return msg, nil
}

// List returns the viewer's inbox: every message for admins, own messages for users.
func (s *ContactService) List(ctx context.Context, viewer domain.Viewer) (Inbox, error) {
	var (
		messages []domain.ContactMessage
		err      error
	)
	if viewer.IsAdmin() {
		messages, err = s.contacts.ListMessages(ctx)
	} else {
		if viewer.UserID == "" {
			return Inbox{}, ErrForbidden
		}
		messages, err = s.contacts.ListMessagesByUser(ctx, viewer.UserID)
	}
	if err != nil {
		return Inbox{}, fmt.Errorf("list messages: %w", err)
	}

	inbox := Inbox{
		Threads:          make([]ThreadView, len(messages)),
		Stats:            CalculateStats(messages),
		NewMessagesCount: NewMessagesCount(messages),
	}
	for i, msg := range messages {
		inbox.Threads[i] = NewThreadView(msg, viewer.Role)
	}
	return inbox, nil
}

func (s *ContactService) Thread(ctx context.Context, viewer domain.Viewer, messageID string) (ThreadView, error) {
	msg, err := s.load(ctx, viewer, messageID)
	if err != nil {
		return ThreadView{}, err
	}
	return NewThreadView(*msg, viewer.Role), nil
}

// Reply appends a discussion entry for the viewer. Admin replies move the
// message to replied; a user answering a replied message moves it to
// newlyReplied so it shows up in the admin badge count.
func (s *ContactService) Reply(ctx context.Context, viewer domain.Viewer, messageID, requestID, text string) (ThreadView, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ThreadView{}, ErrEmptyReply
	}

	msg, err := s.load(ctx, viewer, messageID)
	if err != nil {
		return ThreadView{}, err
	}

	if eligibility := CanReply(*msg, viewer.Role); !eligibility.CanReply {
		return ThreadView{}, &ReplyNotAllowedError{Reason: eligibility.Reason}
	}

	idempotencyKey := ""
	if requestID != "" {
		idempotencyKey = fmt.Sprintf("reply:%s:%s", messageID, requestID)
		ok, err := s.cache.SetIdempotency(ctx, idempotencyKey)
		if err != nil {
			return ThreadView{}, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return ThreadView{}, ErrDuplicateRequest
		}
	}

	entry := domain.DiscussionEntry{
		ID:     uuid.NewString(),
		UserID: viewer.UserID,
		Role:   viewer.Role,
		Text:   text,
		Date:   s.now(),
		Status: domain.EntryStatusNew,
	}
	status := nextStatusAfterReply(msg.Status, viewer.Role)

	if err := s.contacts.AppendEntry(ctx, messageID, entry, status); err != nil {
		if idempotencyKey != "" {
			releaseIdempotency(ctx, s.cache, s.logger, idempotencyKey)
		}
		if errors.Is(err, port.ErrMessageClosed) {
			return ThreadView{}, &ReplyNotAllowedError{Reason: ReasonConversationClosed}
		}
		return ThreadView{}, fmt.Errorf("append reply: %w", err)
	}

	msg.Discussion = append(msg.Discussion, entry)
	msg.Status = status
	msg.UpdatedAt = entry.Date

	s.logger.Info("contact reply added",
		zap.String("message_id", messageID),
		zap.String("entry_id", entry.ID),
		zap.String("role", string(viewer.Role)),
		zap.String("status", string(status)))

	return NewThreadView(*msg, viewer.Role), nil
}

// nextStatusAfterReply leaves new and read untouched on a user follow-up:
// only a reply to an admin answer (replied) raises the admin badge via
// newlyReplied. A follow-up on an unanswered message is already counted
// (new) or was seen (read) and does not bump NewMessagesCount.
func nextStatusAfterReply(current domain.MessageStatus, author domain.Role) domain.MessageStatus {
	if author == domain.RoleAdmin {
		return domain.MessageStatusReplied
	}
	if current == domain.MessageStatusReplied {
		return domain.MessageStatusNewlyReplied
	}
	return current
}

// MarkRead marks every unread reply addressed to the viewer as read. An admin
// opening a new message also moves it to read.
func (s *ContactService) MarkRead(ctx context.Context, viewer domain.Viewer, messageID string) (ThreadView, error) {
	msg, err := s.load(ctx, viewer, messageID)
	if err != nil {
		return ThreadView{}, err
	}

	unread := UnreadReplies(*msg, viewer.Role)
	if len(unread) > 0 {
		ids := make([]string, len(unread))
		for i, entry := range unread {
			ids[i] = entry.ID
		}
		if err := s.contacts.MarkEntriesRead(ctx, messageID, ids...); err != nil {
			return ThreadView{}, fmt.Errorf("mark entries read: %w", err)
		}
		markEntriesRead(msg, ids)
	}

	if viewer.IsAdmin() && msg.Status == domain.MessageStatusNew {
		if err := s.contacts.UpdateStatus(ctx, messageID, domain.MessageStatusRead); err != nil {
			return ThreadView{}, fmt.Errorf("update status: %w", err)
		}
		msg.Status = domain.MessageStatusRead
	}

	return NewThreadView(*msg, viewer.Role), nil
}

func (s *ContactService) MarkEntryRead(ctx context.Context, viewer domain.Viewer, messageID, entryID string) (ThreadView, error) {
	msg, err := s.load(ctx, viewer, messageID)
	if err != nil {
		return ThreadView{}, err
	}

	var entry *domain.DiscussionEntry
	for i := range msg.Discussion {
		if msg.Discussion[i].ID == entryID {
			entry = &msg.Discussion[i]
			break
		}
	}
	if entry == nil {
		return ThreadView{}, ErrEntryNotFound
	}
	// Own entries are read by the other party only.
	if entry.Role == viewer.Role {
		return ThreadView{}, ErrForbidden
	}

	if entry.Status == domain.EntryStatusNew {
		if err := s.contacts.MarkEntriesRead(ctx, messageID, entryID); err != nil {
			return ThreadView{}, fmt.Errorf("mark entry read: %w", err)
		}
		entry.Status = domain.EntryStatusRead
	}
	return NewThreadView(*msg, viewer.Role), nil
}

func (s *ContactService) Close(ctx context.Context, viewer domain.Viewer, messageID string) (ThreadView, error) {
	return s.UpdateStatus(ctx, viewer, messageID, domain.MessageStatusClosed)
}

// UpdateStatus sets the raw status of a message. Admin only; closed is terminal.
func (s *ContactService) UpdateStatus(ctx context.Context, viewer domain.Viewer, messageID string, status domain.MessageStatus) (ThreadView, error) {
	if !viewer.IsAdmin() {
		return ThreadView{}, ErrForbidden
	}
	if !status.Valid() {
		return ThreadView{}, ErrInvalidStatus
	}

	msg, err := s.load(ctx, viewer, messageID)
	if err != nil {
		return ThreadView{}, err
	}
	if msg.Status == domain.MessageStatusClosed && status != domain.MessageStatusClosed {
		return ThreadView{}, ErrMessageClosed
	}

	if msg.Status != status {
		if err := s.contacts.UpdateStatus(ctx, messageID, status); err != nil {
			return ThreadView{}, fmt.Errorf("update status: %w", err)
		}
		s.logger.Info("contact status changed",
			zap.String("message_id", messageID),
			zap.String("from", string(msg.Status)),
			zap.String("to", string(status)))
		msg.Status = status
	}
	return NewThreadView(*msg, viewer.Role), nil
}

// load fetches a message and enforces that users only see their own.
func (s *ContactService) load(ctx context.Context, viewer domain.Viewer, messageID string) (*domain.ContactMessage, error) {
	msg, err := s.contacts.GetMessage(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	if !viewer.IsAdmin() && (viewer.UserID == "" || msg.UserID != viewer.UserID) {
		return nil, ErrForbidden
	}
	return msg, nil
}

func markEntriesRead(msg *domain.ContactMessage, ids []string) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for i := range msg.Discussion {
		if _, ok := set[msg.Discussion[i].ID]; ok {
			msg.Discussion[i].Status = domain.EntryStatusRead
		}
	}
}
