package service

import (
	"strings"
	"testing"

	"github.com/rl1809/restaurant-ordering/internal/core/domain"
)

func entry(id string, role domain.Role, status domain.EntryStatus) domain.DiscussionEntry {
	return domain.DiscussionEntry{ID: id, UserID: "u-" + string(role), Role: role, Text: "...", Status: status}
}

func TestDisplayStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     domain.MessageStatus
		discussion []domain.DiscussionEntry
		want       domain.DisplayStatus
	}{
		{"new without discussion", domain.MessageStatusNew, nil, domain.DisplayStatusNew},
		{"read without discussion", domain.MessageStatusRead, nil, domain.DisplayStatusRead},
		{"replied without discussion", domain.MessageStatusReplied, []domain.DiscussionEntry{}, domain.DisplayStatusRead},
		{"newlyReplied without discussion", domain.MessageStatusNewlyReplied, nil, domain.DisplayStatusRead},
		{
			"unread user entry",
			domain.MessageStatusReplied,
			[]domain.DiscussionEntry{entry("e1", domain.RoleUser, domain.EntryStatusNew)},
			domain.DisplayStatusReplied,
		},
		{
			"unread admin entry on replied message",
			domain.MessageStatusReplied,
			[]domain.DiscussionEntry{entry("e1", domain.RoleAdmin, domain.EntryStatusNew)},
			domain.DisplayStatusNewlyReplied,
		},
		{
			"unread admin entry on read message",
			domain.MessageStatusRead,
			[]domain.DiscussionEntry{entry("e1", domain.RoleAdmin, domain.EntryStatusNew)},
			domain.DisplayStatusRead,
		},
		{
			"last entry read",
			domain.MessageStatusReplied,
			[]domain.DiscussionEntry{
				entry("e1", domain.RoleUser, domain.EntryStatusNew),
				entry("e2", domain.RoleAdmin, domain.EntryStatusRead),
			},
			domain.DisplayStatusRead,
		},
		{
			"only last entry counts",
			domain.MessageStatusReplied,
			[]domain.DiscussionEntry{
				entry("e1", domain.RoleAdmin, domain.EntryStatusNew),
				entry("e2", domain.RoleUser, domain.EntryStatusNew),
			},
			domain.DisplayStatusReplied,
		},
		{
			"new message with unread user follow-up",
			domain.MessageStatusNew,
			[]domain.DiscussionEntry{entry("e1", domain.RoleUser, domain.EntryStatusNew)},
			domain.DisplayStatusReplied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := domain.ContactMessage{Status: tt.status, Discussion: tt.discussion}
			if got := DisplayStatus(msg); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDisplayStatus_ClosedDominates(t *testing.T) {
	discussions := [][]domain.DiscussionEntry{
		nil,
		{entry("e1", domain.RoleUser, domain.EntryStatusNew)},
		{entry("e1", domain.RoleAdmin, domain.EntryStatusNew)},
		{entry("e1", domain.RoleAdmin, domain.EntryStatusRead)},
	}

	for _, d := range discussions {
		msg := domain.ContactMessage{Status: domain.MessageStatusClosed, Discussion: d}
		if got := DisplayStatus(msg); got != domain.DisplayStatusClosed {
			t.Errorf("expected closed for discussion %+v, got %s", d, got)
		}
	}
}

func TestCanAdminReply(t *testing.T) {
	tests := []struct {
		name       string
		msg        domain.ContactMessage
		canReply   bool
		wantReason string
	}{
		{"registered user", domain.ContactMessage{Status: domain.MessageStatusNew, UserID: "u1"}, true, ""},
		{"guest", domain.ContactMessage{Status: domain.MessageStatusNew}, false, "Unregistered"},
		{"deleted user", domain.ContactMessage{Status: domain.MessageStatusRead, UserID: domain.DeletedUserID}, false, "Unregistered"},
		{"closed", domain.ContactMessage{Status: domain.MessageStatusClosed, UserID: "u1"}, false, "closed"},
		{"closed guest", domain.ContactMessage{Status: domain.MessageStatusClosed}, false, "closed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanAdminReply(tt.msg)
			if got.CanReply != tt.canReply {
				t.Errorf("expected canReply=%v, got %v", tt.canReply, got.CanReply)
			}
			if tt.wantReason == "" && got.Reason != "" {
				t.Errorf("expected no reason, got %q", got.Reason)
			}
			if !strings.Contains(got.Reason, tt.wantReason) {
				t.Errorf("expected reason containing %q, got %q", tt.wantReason, got.Reason)
			}
		})
	}
}

func TestCanUserReply(t *testing.T) {
	for _, status := range []domain.MessageStatus{
		domain.MessageStatusNew, domain.MessageStatusRead,
		domain.MessageStatusReplied, domain.MessageStatusNewlyReplied,
	} {
		// The owner is always the current user, so guest ids do not matter here.
		if got := CanUserReply(domain.ContactMessage{Status: status}); !got.CanReply {
			t.Errorf("expected user to reply on %s, got %+v", status, got)
		}
	}

	got := CanUserReply(domain.ContactMessage{Status: domain.MessageStatusClosed, UserID: "u1"})
	if got.CanReply || got.Reason != ReasonConversationClosed {
		t.Errorf("expected closed refusal, got %+v", got)
	}
}

func TestUnreadReplies(t *testing.T) {
	msg := domain.ContactMessage{
		Status: domain.MessageStatusReplied,
		Discussion: []domain.DiscussionEntry{
			entry("a1", domain.RoleAdmin, domain.EntryStatusRead),
			entry("u1", domain.RoleUser, domain.EntryStatusNew),
			entry("a2", domain.RoleAdmin, domain.EntryStatusNew),
			entry("u2", domain.RoleUser, domain.EntryStatusRead),
			entry("a3", domain.RoleAdmin, domain.EntryStatusNew),
		},
	}

	forUser := UnreadReplies(msg, domain.RoleUser)
	if len(forUser) != 2 || forUser[0].ID != "a2" || forUser[1].ID != "a3" {
		t.Errorf("expected a2,a3 for the user, got %+v", forUser)
	}

	forAdmin := UnreadReplies(msg, domain.RoleAdmin)
	if len(forAdmin) != 1 || forAdmin[0].ID != "u1" {
		t.Errorf("expected u1 for the admin, got %+v", forAdmin)
	}

	if !HasUnreadReplies(msg, domain.RoleUser) || !HasUnreadReplies(msg, domain.RoleAdmin) {
		t.Error("expected both sides to have unread replies")
	}
}

func TestUnreadReplies_MissingDiscussion(t *testing.T) {
	msg := domain.ContactMessage{Status: domain.MessageStatusNew}

	if got := UnreadReplies(msg, domain.RoleAdmin); len(got) != 0 {
		t.Errorf("expected nothing unread, got %+v", got)
	}
	if HasUnreadReplies(msg, domain.RoleUser) {
		t.Error("expected no unread replies")
	}
}

func statusFixture() []domain.ContactMessage {
	return []domain.ContactMessage{
		{ID: "1", Status: domain.MessageStatusNew},
		{ID: "2", Status: domain.MessageStatusRead},
		{ID: "3", Status: domain.MessageStatusReplied},
		{ID: "4", Status: domain.MessageStatusNewlyReplied},
		{ID: "5", Status: domain.MessageStatusClosed},
	}
}

func TestCalculateStats(t *testing.T) {
	if got := CalculateStats(nil); got != (domain.ContactStats{}) {
		t.Errorf("expected zero stats, got %+v", got)
	}

	want := domain.ContactStats{Total: 5, New: 1, Read: 1, Replied: 1, NewlyReplied: 1, Closed: 1}
	if got := CalculateStats(statusFixture()); got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestCalculateStats_UsesRawStatus(t *testing.T) {
	// Display status would be "replied" here, the raw status is still read.
	msgs := []domain.ContactMessage{{
		Status:     domain.MessageStatusRead,
		Discussion: []domain.DiscussionEntry{entry("e1", domain.RoleUser, domain.EntryStatusNew)},
	}}

	got := CalculateStats(msgs)
	if got.Read != 1 || got.Replied != 0 {
		t.Errorf("expected raw status bucket, got %+v", got)
	}
}

func TestNewMessagesCount(t *testing.T) {
	if got := NewMessagesCount(nil); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}

	fixture := statusFixture()
	stats := CalculateStats(fixture)
	got := NewMessagesCount(fixture)
	if got != 2 || got != stats.New+stats.NewlyReplied {
		t.Errorf("expected 2 (new + newlyReplied), got %d", got)
	}
}
