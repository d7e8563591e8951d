package gateway

import (
	"context"
	"errors"
	"io"
)

// Errors returned by gateway operations. Callers branch on these with
// errors.Is; the concrete backend wraps its own failures around them.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("invalid credentials")
	ErrUserExists   = errors.New("username already taken")
)

// Unsubscribe tears down a realtime subscription. Safe to call more than once.
type Unsubscribe func()

// TypingHandle is a presence-style typing channel for one scope. Track marks
// the local user as typing; the mark decays on its own after the typing TTL.
type TypingHandle interface {
	Track(displayName string)
	Untrack()
	Close()
}

// Gateway exposes the remote data service the client is built on: CRUD plus
// realtime change subscriptions. Subscriptions deliver at-least-once and each
// delivery is a full replacement snapshot for its scope, never a delta. The
// callback may be invoked from any goroutine.
type Gateway interface {
	// Servers.
	FetchServers(ctx context.Context, userID string) ([]Server, error)
	SubscribeServers(userID string, onChange func([]Server)) Unsubscribe
	CreateServer(ctx context.Context, name, icon, ownerID, ownerName string) (string, error)
	ServerByInviteCode(ctx context.Context, code string) (*Server, error)
	JoinServer(ctx context.Context, serverID, userID, userName string) error

	// Channels.
	FetchChannels(ctx context.Context, serverID string) ([]Channel, error)
	SubscribeChannels(serverID string, onChange func([]Channel)) Unsubscribe
	CreateChannel(ctx context.Context, serverID, name, category, requesterID string) (string, error)

	// Messages. Fetches exclude soft-deleted rows.
	FetchMessages(ctx context.Context, channelID string) ([]Message, error)
	SubscribeMessages(channelID string, onChange func([]Message)) Unsubscribe
	SendMessage(ctx context.Context, channelID string, content string, author User, attachments []Attachment) error
	EditMessage(ctx context.Context, messageID, newContent, requesterID string) error
	DeleteMessage(ctx context.Context, messageID, requesterID, serverID string) error

	// Reactions. Adding a duplicate (message, user, emoji) succeeds without effect.
	AddReaction(ctx context.Context, messageID, userID, emoji string) error
	RemoveReaction(ctx context.Context, messageID, userID, emoji string) error
	FetchReactions(ctx context.Context, messageID string) ([]Reaction, error)

	// Roles and permissions.
	FetchRoles(ctx context.Context, serverID string) ([]Role, error)
	CreateRole(ctx context.Context, serverID, name, color string, perms PermissionSet, requesterID string) (string, error)
	AssignRole(ctx context.Context, serverID, userID, roleID, requesterID string) error
	FetchMembers(ctx context.Context, serverID string) ([]Member, error)
	UserPermissions(ctx context.Context, serverID, userID string) (PermissionSet, error)

	// Direct messages.
	GetOrCreateConversation(ctx context.Context, userID, otherUserID string) (*DMConversation, error)
	FetchConversations(ctx context.Context, userID string) ([]DMConversation, error)
	SubscribeConversations(userID string, onChange func([]DMConversation)) Unsubscribe
	FetchDirectMessages(ctx context.Context, conversationID string) ([]DirectMessage, error)
	SubscribeDirectMessages(conversationID string, onChange func([]DirectMessage)) Unsubscribe
	SendDirectMessage(ctx context.Context, conversationID, content string, sender User, attachments []Attachment) error

	// Read states. Updates are fire-and-forget for callers: a failure merely
	// risks a stale unread badge.
	UpdateReadState(ctx context.Context, userID, channelID, lastMessageID string) error
	UpdateDMReadState(ctx context.Context, userID, conversationID, lastMessageID string) error
	UnreadCounts(ctx context.Context, userID string, channelIDs []string) (map[string]int, error)
	DMUnreadCounts(ctx context.Context, userID string, conversationIDs []string) (map[string]int, error)

	// Typing presence.
	SubscribeTyping(scopeID, userID string, onUpdate func([]TypingPeer)) TypingHandle

	// Files and profiles.
	UploadFile(ctx context.Context, name string, r io.Reader, userID string) (*UploadResult, error)
	SearchUsers(ctx context.Context, query, excludeUserID string) ([]Profile, error)
	UserProfile(ctx context.Context, userID string) (*Profile, error)
	UpsertProfile(ctx context.Context, userID string, profile Profile) error
}

// AuthGateway authenticates users against the backing service.
type AuthGateway interface {
	Register(ctx context.Context, username, password string) (*Session, error)
	Login(ctx context.Context, username, password string) (*Session, error)
	Verify(ctx context.Context, token string) (*User, error)
}
