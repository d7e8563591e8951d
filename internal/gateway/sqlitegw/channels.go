package sqlitegw

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tobyns/CoveChat/internal/authz"
	"github.com/tobyns/CoveChat/internal/gateway"
)

// FetchChannels returns a server's channels, oldest first.
func (s *Store) FetchChannels(ctx context.Context, serverID string) ([]gateway.Channel, error) {
	var models []channelModel
	if err := s.db.WithContext(ctx).
		Where("server_id = ?", serverID).
		Order("created_at asc").
		Find(&models).Error; err != nil {
		return nil, err
	}
	channels := make([]gateway.Channel, 0, len(models))
	for i := range models {
		channels = append(channels, models[i].toEntity())
	}
	return channels, nil
}

// SubscribeChannels pushes a fresh channel-list snapshot for one server on
// every change.
func (s *Store) SubscribeChannels(serverID string, onChange func([]gateway.Channel)) gateway.Unsubscribe {
	return s.subscribeTopic(topicChannels(serverID), func() {
		if channels, err := s.FetchChannels(context.Background(), serverID); err == nil {
			onChange(channels)
		}
	})
}

// CreateChannel creates a text channel after authorizing the requester.
func (s *Store) CreateChannel(ctx context.Context, serverID, name, category, requesterID string) (string, error) {
	perms, err := s.UserPermissions(ctx, serverID, requesterID)
	if err != nil {
		return "", err
	}
	if decision := authz.Authorize(perms, authz.CreateChannels); !decision.Allowed() {
		return "", fmt.Errorf("%s: %w", decision.Reason(), gateway.ErrForbidden)
	}
	if category == "" {
		category = "Text Channels"
	}
	id := uuid.NewString()
	if err := s.createChannelRecordWithID(ctx, id, serverID, name, category); err != nil {
		return "", err
	}
	s.notifier.emit(topicChannels(serverID))
	return id, nil
}

func (s *Store) createChannelRecord(ctx context.Context, serverID, name, category string) error {
	return s.createChannelRecordWithID(ctx, uuid.NewString(), serverID, name, category)
}

func (s *Store) createChannelRecordWithID(ctx context.Context, id, serverID, name, category string) error {
	model := channelModel{
		ID:        id,
		ServerID:  serverID,
		Name:      normalizeChannelName(name),
		Category:  category,
		Type:      "text",
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("create channel: %w", err)
	}
	return nil
}

// normalizeChannelName lowercases and replaces space runs with hyphens.
func normalizeChannelName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), "-")
}
