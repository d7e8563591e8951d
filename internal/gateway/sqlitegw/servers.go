package sqlitegw

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tobyns/CoveChat/internal/gateway"
)

// FetchServers returns the servers the user is a member of, oldest first.
func (s *Store) FetchServers(ctx context.Context, userID string) ([]gateway.Server, error) {
	var models []serverModel
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&models).Error; err != nil {
		return nil, err
	}
	servers := make([]gateway.Server, 0, len(models))
	for i := range models {
		server := models[i].toEntity()
		if server.HasMember(userID) {
			servers = append(servers, server)
		}
	}
	return servers, nil
}

// SubscribeServers pushes a fresh server-list snapshot on every change to the
// servers table. Reads that fail fall back to the last delivered snapshot.
func (s *Store) SubscribeServers(userID string, onChange func([]gateway.Server)) gateway.Unsubscribe {
	return s.subscribeTopic(topicServers, func() {
		if servers, err := s.FetchServers(context.Background(), userID); err == nil {
			onChange(servers)
		}
	})
}

// CreateServer inserts a server owned by ownerID, seeds its general channel
// and default roles, and returns the new server id.
func (s *Store) CreateServer(ctx context.Context, name, icon, ownerID, ownerName string) (string, error) {
	if icon == "" && name != "" {
		icon = strings.ToUpper(name[:1])
	}
	now := time.Now()
	model := serverModel{
		ID:      uuid.NewString(),
		Name:    name,
		Icon:    icon,
		OwnerID: ownerID,
		Members: []string{ownerID},
		MemberDetails: map[string]gateway.MemberDetail{
			ownerID: {DisplayName: ownerName, JoinedAt: now},
		},
		InviteCode: newInviteCode(),
		CreatedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return "", fmt.Errorf("create server: %w", err)
	}

	if err := s.createChannelRecord(ctx, model.ID, "general", "Text Channels"); err != nil {
		return "", fmt.Errorf("seed general channel: %w", err)
	}
	if err := s.seedDefaultRoles(ctx, model.ID, ownerID); err != nil {
		return "", fmt.Errorf("seed roles: %w", err)
	}

	s.notifier.emit(topicServers, topicChannels(model.ID))
	return model.ID, nil
}

// ServerByInviteCode resolves an invite code to its server.
func (s *Store) ServerByInviteCode(ctx context.Context, code string) (*gateway.Server, error) {
	var model serverModel
	if err := s.db.WithContext(ctx).Where("invite_code = ?", code).First(&model).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	server := model.toEntity()
	return &server, nil
}

// JoinServer adds the user to the server's member set and assigns the default
// Member role. Joining a server the user already belongs to is a no-op.
func (s *Store) JoinServer(ctx context.Context, serverID, userID, userName string) error {
	var model serverModel
	if err := s.db.WithContext(ctx).Where("id = ?", serverID).First(&model).Error; err != nil {
		return wrapNotFound(err)
	}
	entity := model.toEntity()
	if entity.HasMember(userID) {
		return nil
	}

	model.Members = append(model.Members, userID)
	if model.MemberDetails == nil {
		model.MemberDetails = make(map[string]gateway.MemberDetail)
	}
	model.MemberDetails[userID] = gateway.MemberDetail{DisplayName: userName, JoinedAt: time.Now()}
	if err := s.db.WithContext(ctx).Save(&model).Error; err != nil {
		return fmt.Errorf("join server: %w", err)
	}

	if err := s.assignDefaultRole(ctx, serverID, userID); err != nil {
		return fmt.Errorf("assign member role: %w", err)
	}

	s.notifier.emit(topicServers)
	return nil
}
