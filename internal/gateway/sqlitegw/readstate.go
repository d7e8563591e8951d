package sqlitegw

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"
)

// upsertReadState moves the user's watermark for one scope to now.
func (s *Store) upsertReadState(ctx context.Context, userID, scopeID, lastMessageID string) error {
	model := readStateModel{
		UserID:            userID,
		ScopeID:           scopeID,
		LastReadMessageID: lastMessageID,
		LastReadAt:        time.Now(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "scope_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_read_message_id", "last_read_at"}),
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("upsert read state: %w", err)
	}
	return nil
}

// UpdateReadState records that the user has read a channel up to lastMessageID.
func (s *Store) UpdateReadState(ctx context.Context, userID, channelID, lastMessageID string) error {
	return s.upsertReadState(ctx, userID, channelID, lastMessageID)
}

// UpdateDMReadState records that the user has read a conversation up to
// lastMessageID.
func (s *Store) UpdateDMReadState(ctx context.Context, userID, conversationID, lastMessageID string) error {
	return s.upsertReadState(ctx, userID, conversationID, lastMessageID)
}

// readWatermarks fetches the user's watermarks for a scope set in one query.
// Scopes with no read state map to the zero time, meaning fully unread.
func (s *Store) readWatermarks(ctx context.Context, userID string, scopeIDs []string) (map[string]time.Time, error) {
	var models []readStateModel
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND scope_id IN ?", userID, scopeIDs).
		Find(&models).Error; err != nil {
		return nil, err
	}
	marks := make(map[string]time.Time, len(scopeIDs))
	for _, id := range scopeIDs {
		marks[id] = time.Time{}
	}
	for _, m := range models {
		marks[m.ScopeID] = m.LastReadAt
	}
	return marks, nil
}

// UnreadCounts computes per-channel unread counts: live messages created
// strictly after the user's watermark. One watermark query plus one message
// scan cover the whole channel set.
func (s *Store) UnreadCounts(ctx context.Context, userID string, channelIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(channelIDs))
	if len(channelIDs) == 0 {
		return counts, nil
	}
	marks, err := s.readWatermarks(ctx, userID, channelIDs)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ChannelID string
		CreatedAt time.Time
	}
	if err := s.db.WithContext(ctx).Model(&messageModel{}).
		Select("channel_id", "created_at").
		Where("channel_id IN ? AND deleted_at IS NULL", channelIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, id := range channelIDs {
		counts[id] = 0
	}
	for _, row := range rows {
		if row.CreatedAt.After(marks[row.ChannelID]) {
			counts[row.ChannelID]++
		}
	}
	return counts, nil
}

// DMUnreadCounts computes per-conversation unread counts, excluding the
// user's own messages.
func (s *Store) DMUnreadCounts(ctx context.Context, userID string, conversationIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return counts, nil
	}
	marks, err := s.readWatermarks(ctx, userID, conversationIDs)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ConversationID string
		CreatedAt      time.Time
	}
	if err := s.db.WithContext(ctx).Model(&directMessageModel{}).
		Select("conversation_id", "created_at").
		Where("conversation_id IN ? AND sender_id <> ?", conversationIDs, userID).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, id := range conversationIDs {
		counts[id] = 0
	}
	for _, row := range rows {
		if row.CreatedAt.After(marks[row.ConversationID]) {
			counts[row.ConversationID]++
		}
	}
	return counts, nil
}
