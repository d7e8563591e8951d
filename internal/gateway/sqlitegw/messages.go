package sqlitegw

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/tobyns/CoveChat/internal/authz"
	"github.com/tobyns/CoveChat/internal/gateway"
)

// FetchMessages returns a channel's messages in creation order, excluding
// soft-deleted rows.
func (s *Store) FetchMessages(ctx context.Context, channelID string) ([]gateway.Message, error) {
	var models []messageModel
	if err := s.db.WithContext(ctx).
		Where("channel_id = ? AND deleted_at IS NULL", channelID).
		Order("created_at asc").
		Find(&models).Error; err != nil {
		return nil, err
	}
	messages := make([]gateway.Message, 0, len(models))
	for i := range models {
		messages = append(messages, models[i].toEntity())
	}
	return messages, nil
}

// SubscribeMessages pushes a fresh message-list snapshot for one channel on
// every change, including reaction changes.
func (s *Store) SubscribeMessages(channelID string, onChange func([]gateway.Message)) gateway.Unsubscribe {
	return s.subscribeTopic(topicMessages(channelID), func() {
		if messages, err := s.FetchMessages(context.Background(), channelID); err == nil {
			onChange(messages)
		}
	})
}

// SendMessage inserts a channel message. The length cap is mirrored here so
// the policy holds even for clients that skip the admission gate.
func (s *Store) SendMessage(ctx context.Context, channelID string, content string, author gateway.User, attachments []gateway.Attachment) error {
	if n := len([]rune(content)); n > s.cfg.Limits.MaxMessageLength {
		return fmt.Errorf("content is %d characters, cap is %d: %w", n, s.cfg.Limits.MaxMessageLength, gateway.ErrForbidden)
	}
	model := messageModel{
		ID:          uuid.NewString(),
		ChannelID:   channelID,
		AuthorID:    author.ID,
		AuthorName:  author.DisplayName,
		AuthorIcon:  author.AvatarRef,
		Content:     content,
		Attachments: attachments,
		CreatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	s.notifier.emit(topicMessages(channelID))
	return nil
}

// EditMessage updates a message's content. Only the author may edit.
func (s *Store) EditMessage(ctx context.Context, messageID, newContent, requesterID string) error {
	var model messageModel
	if err := s.db.WithContext(ctx).Where("id = ?", messageID).First(&model).Error; err != nil {
		return wrapNotFound(err)
	}
	if model.AuthorID != requesterID {
		return fmt.Errorf("only the author may edit a message: %w", gateway.ErrForbidden)
	}
	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&messageModel{}).
		Where("id = ?", messageID).
		Updates(map[string]interface{}{"content": newContent, "edited_at": now}).Error; err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	s.notifier.emit(topicMessages(model.ChannelID))
	return nil
}

// DeleteMessage soft-deletes a message. Allowed for the author, or for a
// requester holding delete_messages in the server.
func (s *Store) DeleteMessage(ctx context.Context, messageID, requesterID, serverID string) error {
	var model messageModel
	if err := s.db.WithContext(ctx).Where("id = ?", messageID).First(&model).Error; err != nil {
		return wrapNotFound(err)
	}
	if model.AuthorID != requesterID {
		perms, err := s.UserPermissions(ctx, serverID, requesterID)
		if err != nil {
			return err
		}
		if decision := authz.Authorize(perms, authz.DeleteMessages); !decision.Allowed() {
			return fmt.Errorf("%s: %w", decision.Reason(), gateway.ErrForbidden)
		}
	}
	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&messageModel{}).
		Where("id = ?", messageID).
		Update("deleted_at", now).Error; err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	s.notifier.emit(topicMessages(model.ChannelID))
	return nil
}

// AddReaction records a (message, user, emoji) reaction. A duplicate add is
// success without effect.
func (s *Store) AddReaction(ctx context.Context, messageID, userID, emoji string) error {
	var msg messageModel
	if err := s.db.WithContext(ctx).Where("id = ?", messageID).First(&msg).Error; err != nil {
		return wrapNotFound(err)
	}
	model := reactionModel{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error; err != nil {
		return fmt.Errorf("add reaction: %w", err)
	}
	s.notifier.emit(topicMessages(msg.ChannelID))
	return nil
}

// RemoveReaction deletes one user's emoji reaction from a message.
func (s *Store) RemoveReaction(ctx context.Context, messageID, userID, emoji string) error {
	var msg messageModel
	if err := s.db.WithContext(ctx).Where("id = ?", messageID).First(&msg).Error; err != nil {
		return wrapNotFound(err)
	}
	if err := s.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		Delete(&reactionModel{}).Error; err != nil {
		return fmt.Errorf("remove reaction: %w", err)
	}
	s.notifier.emit(topicMessages(msg.ChannelID))
	return nil
}

// FetchReactions lists the reactions on a message.
func (s *Store) FetchReactions(ctx context.Context, messageID string) ([]gateway.Reaction, error) {
	var models []reactionModel
	if err := s.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at asc").
		Find(&models).Error; err != nil {
		return nil, err
	}
	reactions := make([]gateway.Reaction, 0, len(models))
	for _, m := range models {
		reactions = append(reactions, gateway.Reaction{MessageID: m.MessageID, UserID: m.UserID, Emoji: m.Emoji})
	}
	return reactions, nil
}
