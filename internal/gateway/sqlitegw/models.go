package sqlitegw

import (
	"time"

	"github.com/tobyns/CoveChat/internal/gateway"
)

type serverModel struct {
	ID            string `gorm:"primaryKey"`
	Name          string
	Icon          string
	OwnerID       string                          `gorm:"index"`
	Members       []string                        `gorm:"serializer:json"`
	MemberDetails map[string]gateway.MemberDetail `gorm:"serializer:json"`
	InviteCode    string                          `gorm:"uniqueIndex"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type channelModel struct {
	ID        string `gorm:"primaryKey"`
	ServerID  string `gorm:"index"`
	Name      string
	Category  string
	Type      string
	CreatedAt time.Time
}

type messageModel struct {
	ID          string `gorm:"primaryKey"`
	ChannelID   string `gorm:"index"`
	AuthorID    string
	AuthorName  string
	AuthorIcon  string
	Content     string
	Attachments []gateway.Attachment `gorm:"serializer:json"`
	CreatedAt   time.Time
	EditedAt    *time.Time
	// Soft delete marker. The row persists so reaction and edit history keep
	// a stable message id; fetches exclude rows where it is set.
	DeletedAt *time.Time
}

type reactionModel struct {
	MessageID string `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey"`
	Emoji     string `gorm:"primaryKey"`
	CreatedAt time.Time
}

type roleModel struct {
	ID          string `gorm:"primaryKey"`
	ServerID    string `gorm:"index"`
	Name        string
	Color       string
	Permissions gateway.PermissionSet `gorm:"serializer:json"`
	Position    int
	CreatedAt   time.Time
}

type membershipModel struct {
	ServerID string `gorm:"primaryKey"`
	UserID   string `gorm:"primaryKey"`
	RoleID   string
	JoinedAt time.Time
}

type conversationModel struct {
	ID string `gorm:"primaryKey"`
	// PairKey is the sorted participant pair, giving at most one conversation
	// per unordered pair.
	PairKey      string   `gorm:"uniqueIndex"`
	Participants []string `gorm:"serializer:json"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type directMessageModel struct {
	ID             string `gorm:"primaryKey"`
	ConversationID string `gorm:"index"`
	SenderID       string
	SenderName     string
	Content        string
	Attachments    []gateway.Attachment `gorm:"serializer:json"`
	CreatedAt      time.Time
}

type readStateModel struct {
	UserID            string `gorm:"primaryKey"`
	ScopeID           string `gorm:"primaryKey"`
	LastReadMessageID string
	LastReadAt        time.Time
}

type profileModel struct {
	UserID    string `gorm:"primaryKey"`
	Username  string `gorm:"index"`
	Avatar    string
	UpdatedAt time.Time
}

type credentialModel struct {
	UserID       string `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex"`
	PasswordHash string
	CreatedAt    time.Time
}

func (m *serverModel) toEntity() gateway.Server {
	return gateway.Server{
		ID:            m.ID,
		Name:          m.Name,
		IconRef:       m.Icon,
		OwnerUserID:   m.OwnerID,
		MemberIDs:     m.Members,
		MemberDetails: m.MemberDetails,
		InviteCode:    m.InviteCode,
		CreatedAt:     m.CreatedAt,
	}
}

func (m *channelModel) toEntity() gateway.Channel {
	return gateway.Channel{
		ID:        m.ID,
		ServerID:  m.ServerID,
		Name:      m.Name,
		Category:  m.Category,
		Type:      m.Type,
		CreatedAt: m.CreatedAt,
	}
}

func (m *messageModel) toEntity() gateway.Message {
	return gateway.Message{
		ID:          m.ID,
		ChannelID:   m.ChannelID,
		AuthorID:    m.AuthorID,
		AuthorName:  m.AuthorName,
		AuthorIcon:  m.AuthorIcon,
		Content:     m.Content,
		Attachments: m.Attachments,
		CreatedAt:   m.CreatedAt,
		EditedAt:    m.EditedAt,
		DeletedAt:   m.DeletedAt,
	}
}

func (m *roleModel) toEntity() gateway.Role {
	return gateway.Role{
		ID:          m.ID,
		ServerID:    m.ServerID,
		Name:        m.Name,
		Color:       m.Color,
		Permissions: m.Permissions,
		Position:    m.Position,
	}
}

func (m *conversationModel) toEntity() gateway.DMConversation {
	return gateway.DMConversation{
		ID:             m.ID,
		ParticipantIDs: m.Participants,
		UpdatedAt:      m.UpdatedAt,
		CreatedAt:      m.CreatedAt,
	}
}

func (m *directMessageModel) toEntity() gateway.DirectMessage {
	return gateway.DirectMessage{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		Content:        m.Content,
		Attachments:    m.Attachments,
		CreatedAt:      m.CreatedAt,
	}
}

func (m *profileModel) toEntity() gateway.Profile {
	return gateway.Profile{
		UserID:    m.UserID,
		Username:  m.Username,
		AvatarRef: m.Avatar,
		UpdatedAt: m.UpdatedAt,
	}
}
