package gateway

import "time"

// PresenceStatus is a client-approximated activity indicator. Only online and
// offline are reliably known; idle and dnd are display decoration.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusIdle    PresenceStatus = "idle"
	StatusDND     PresenceStatus = "dnd"
	StatusOffline PresenceStatus = "offline"
)

// User is the authenticated account driving the session.
type User struct {
	ID          string
	DisplayName string
	AvatarRef   string
	Status      PresenceStatus
}

// MemberDetail describes a user's membership record within a server.
type MemberDetail struct {
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Server is a community containing channels and members.
type Server struct {
	ID            string
	Name          string
	IconRef       string
	OwnerUserID   string
	MemberIDs     []string
	MemberDetails map[string]MemberDetail
	InviteCode    string
	CreatedAt     time.Time
}

// HasMember reports whether the user belongs to the server.
func (s *Server) HasMember(userID string) bool {
	for _, id := range s.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Channel is a text channel within a server.
type Channel struct {
	ID        string
	ServerID  string
	Name      string
	Category  string
	Type      string
	CreatedAt time.Time
}

// Attachment describes a file linked to a message.
type Attachment struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// Message is a channel message. A message with DeletedAt set is soft-deleted:
// the row persists but it is excluded from fetches.
type Message struct {
	ID          string
	ChannelID   string
	AuthorID    string
	AuthorName  string
	AuthorIcon  string
	Content     string
	Attachments []Attachment
	CreatedAt   time.Time
	EditedAt    *time.Time
	DeletedAt   *time.Time
}

// Reaction marks that a user reacted to a message with an emoji. The
// (message, user, emoji) triple is unique; re-adding it is a no-op.
type Reaction struct {
	MessageID string
	UserID    string
	Emoji     string
}

// DMConversation pairs exactly two users. At most one conversation exists per
// unordered pair.
type DMConversation struct {
	ID             string
	ParticipantIDs []string
	UpdatedAt      time.Time
	CreatedAt      time.Time
}

// OtherParticipant returns the participant that is not the given user.
func (c *DMConversation) OtherParticipant(userID string) string {
	for _, id := range c.ParticipantIDs {
		if id != userID {
			return id
		}
	}
	return ""
}

// DirectMessage is a message within a DM conversation.
type DirectMessage struct {
	ID             string
	ConversationID string
	SenderID       string
	SenderName     string
	Content        string
	Attachments    []Attachment
	CreatedAt      time.Time
}

// PermissionSet names the capabilities a member holds within a server.
type PermissionSet struct {
	CreateChannels bool `json:"create_channels"`
	DeleteMessages bool `json:"delete_messages"`
	ManageRoles    bool `json:"manage_roles"`
}

// Maximal returns the full permission set, granted to server owners.
func Maximal() PermissionSet {
	return PermissionSet{CreateChannels: true, DeleteMessages: true, ManageRoles: true}
}

// Role groups permissions under a named, colored rank. Position orders roles
// for display only; it carries no permission precedence.
type Role struct {
	ID          string
	ServerID    string
	Name        string
	Color       string
	Permissions PermissionSet
	Position    int
}

// Membership assigns exactly one role to a server member.
type Membership struct {
	ServerID string
	UserID   string
	RoleID   string
	JoinedAt time.Time
}

// Member is a membership joined with its role, as listed in the member panel.
type Member struct {
	UserID      string
	DisplayName string
	Role        *Role
	JoinedAt    time.Time
}

// ReadState is the per-user watermark for a channel or conversation. Unread
// counts are messages created strictly after LastReadAt.
type ReadState struct {
	UserID            string
	ScopeID           string
	LastReadMessageID string
	LastReadAt        time.Time
}

// TypingPeer is another user currently typing in a scope.
type TypingPeer struct {
	ID          string
	DisplayName string
}

// Profile is a user's public directory entry.
type Profile struct {
	UserID    string
	Username  string
	AvatarRef string
	UpdatedAt time.Time
}

// UploadResult describes a stored attachment.
type UploadResult struct {
	URL      string
	Name     string
	MimeType string
	Size     int64
}

// Session is an authenticated gateway session.
type Session struct {
	User      User
	Token     string
	ExpiresAt time.Time
}
