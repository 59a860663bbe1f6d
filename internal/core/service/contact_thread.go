package service

import "github.com/rl1809/restaurant-ordering/internal/core/domain"

const (
	ReasonConversationClosed = "Conversation is closed"
	ReasonUnregisteredUser   = "Unregistered or deleted user - contact them by email"
)

// DisplayStatus derives the label shown for a message. Rules are evaluated in
// order and the first match wins; closed is terminal.
func DisplayStatus(msg domain.ContactMessage) domain.DisplayStatus {
	if msg.Status == domain.MessageStatusClosed {
		return domain.DisplayStatusClosed
	}

	if len(msg.Discussion) == 0 {
		if msg.Status == domain.MessageStatusNew {
			return domain.DisplayStatusNew
		}
		return domain.DisplayStatusRead
	}

	last := msg.Discussion[len(msg.Discussion)-1]
	switch {
	case last.Role != domain.RoleAdmin && last.Status == domain.EntryStatusNew:
		return domain.DisplayStatusReplied
	case last.Role == domain.RoleAdmin && last.Status == domain.EntryStatusNew &&
		msg.Status == domain.MessageStatusReplied:
		return domain.DisplayStatusNewlyReplied
	default:
		return domain.DisplayStatusRead
	}
}

// CanAdminReply requires an open conversation with a registered user on the
// other side; guests and deleted accounts must be answered out-of-band.
func CanAdminReply(msg domain.ContactMessage) domain.ReplyEligibility {
	if msg.Status == domain.MessageStatusClosed {
		return domain.ReplyEligibility{Reason: ReasonConversationClosed}
	}
	if !msg.Registered() {
		return domain.ReplyEligibility{Reason: ReasonUnregisteredUser}
	}
	return domain.ReplyEligibility{CanReply: true}
}

func CanUserReply(msg domain.ContactMessage) domain.ReplyEligibility {
	if msg.Status == domain.MessageStatusClosed {
		return domain.ReplyEligibility{Reason: ReasonConversationClosed}
	}
	return domain.ReplyEligibility{CanReply: true}
}

// CanReply dispatches to the eligibility rule for the viewer's role.
func CanReply(msg domain.ContactMessage, role domain.Role) domain.ReplyEligibility {
	if role == domain.RoleAdmin {
		return CanAdminReply(msg)
	}
	return CanUserReply(msg)
}

// UnreadReplies returns entries written by the other party that the viewer
// has not marked as read yet.
func UnreadReplies(msg domain.ContactMessage, viewer domain.Role) []domain.DiscussionEntry {
	author := viewer.Other()
	unread := []domain.DiscussionEntry{}
	for _, entry := range msg.Discussion {
		if entry.Role == author && entry.Status == domain.EntryStatusNew {
			unread = append(unread, entry)
		}
	}
	return unread
}

func HasUnreadReplies(msg domain.ContactMessage, viewer domain.Role) bool {
	return len(UnreadReplies(msg, viewer)) > 0
}

// CalculateStats counts messages per raw status.
func CalculateStats(messages []domain.ContactMessage) domain.ContactStats {
	stats := domain.ContactStats{Total: len(messages)}
	for _, msg := range messages {
		switch msg.Status {
		case domain.MessageStatusNew:
			stats.New++
		case domain.MessageStatusRead:
			stats.Read++
		case domain.MessageStatusReplied:
			stats.Replied++
		case domain.MessageStatusNewlyReplied:
			stats.NewlyReplied++
		case domain.MessageStatusClosed:
			stats.Closed++
		}
	}
	return stats
}

// NewMessagesCount is the badge count for the admin dashboard.
func NewMessagesCount(messages []domain.ContactMessage) int {
	n := 0
	for _, msg := range messages {
		if msg.Status == domain.MessageStatusNew || msg.Status == domain.MessageStatusNewlyReplied {
			n++
		}
	}
	return n
}
