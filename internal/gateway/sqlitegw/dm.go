package sqlitegw

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tobyns/CoveChat/internal/gateway"
)

func pairKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

// GetOrCreateConversation finds the conversation for an unordered user pair,
// creating it when absent. The unique pair key guarantees at most one
// conversation per pair even under a concurrent create race.
func (s *Store) GetOrCreateConversation(ctx context.Context, userID, otherUserID string) (*gateway.DMConversation, error) {
	key := pairKey(userID, otherUserID)

	now := time.Now()
	model := conversationModel{
		ID:           uuid.NewString(),
		PairKey:      key,
		Participants: []string{userID, otherUserID},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error; err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	var existing conversationModel
	if err := s.db.WithContext(ctx).Where("pair_key = ?", key).First(&existing).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	conversation := existing.toEntity()
	if existing.ID == model.ID {
		s.notifier.emit(topicConversations)
	}
	return &conversation, nil
}

// FetchConversations lists the user's DM conversations, most recent first.
func (s *Store) FetchConversations(ctx context.Context, userID string) ([]gateway.DMConversation, error) {
	var models []conversationModel
	if err := s.db.WithContext(ctx).Order("updated_at desc").Find(&models).Error; err != nil {
		return nil, err
	}
	conversations := make([]gateway.DMConversation, 0, len(models))
	for i := range models {
		conversation := models[i].toEntity()
		for _, id := range conversation.ParticipantIDs {
			if id == userID {
				conversations = append(conversations, conversation)
				break
			}
		}
	}
	return conversations, nil
}

// SubscribeConversations pushes a fresh conversation-list snapshot on every
// change.
func (s *Store) SubscribeConversations(userID string, onChange func([]gateway.DMConversation)) gateway.Unsubscribe {
	return s.subscribeTopic(topicConversations, func() {
		if conversations, err := s.FetchConversations(context.Background(), userID); err == nil {
			onChange(conversations)
		}
	})
}

// FetchDirectMessages returns a conversation's messages in creation order.
func (s *Store) FetchDirectMessages(ctx context.Context, conversationID string) ([]gateway.DirectMessage, error) {
	var models []directMessageModel
	if err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at asc").
		Find(&models).Error; err != nil {
		return nil, err
	}
	messages := make([]gateway.DirectMessage, 0, len(models))
	for i := range models {
		messages = append(messages, models[i].toEntity())
	}
	return messages, nil
}

// SubscribeDirectMessages pushes a fresh message-list snapshot for one
// conversation on every change.
func (s *Store) SubscribeDirectMessages(conversationID string, onChange func([]gateway.DirectMessage)) gateway.Unsubscribe {
	return s.subscribeTopic(topicDirectMessages(conversationID), func() {
		if messages, err := s.FetchDirectMessages(context.Background(), conversationID); err == nil {
			onChange(messages)
		}
	})
}

// SendDirectMessage inserts a DM and bumps the conversation's updated_at so
// conversation lists re-sort by recency.
func (s *Store) SendDirectMessage(ctx context.Context, conversationID, content string, sender gateway.User, attachments []gateway.Attachment) error {
	if n := len([]rune(content)); n > s.cfg.Limits.MaxMessageLength {
		return fmt.Errorf("content is %d characters, cap is %d: %w", n, s.cfg.Limits.MaxMessageLength, gateway.ErrForbidden)
	}
	var conversation conversationModel
	if err := s.db.WithContext(ctx).Where("id = ?", conversationID).First(&conversation).Error; err != nil {
		return wrapNotFound(err)
	}

	now := time.Now()
	model := directMessageModel{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       sender.ID,
		SenderName:     sender.DisplayName,
		Content:        content,
		Attachments:    attachments,
		CreatedAt:      now,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		return tx.Model(&conversationModel{}).
			Where("id = ?", conversationID).
			Update("updated_at", now).Error
	})
	if err != nil {
		return fmt.Errorf("send direct message: %w", err)
	}
	s.notifier.emit(topicDirectMessages(conversationID), topicConversations)
	return nil
}
