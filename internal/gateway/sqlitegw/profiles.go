package sqlitegw

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/tobyns/CoveChat/internal/gateway"
)

// SearchUsers matches usernames case-insensitively, excluding the requester.
func (s *Store) SearchUsers(ctx context.Context, query, excludeUserID string) ([]gateway.Profile, error) {
	var models []profileModel
	if err := s.db.WithContext(ctx).
		Where("username LIKE ? AND user_id <> ?", "%"+query+"%", excludeUserID).
		Order("username asc").
		Limit(10).
		Find(&models).Error; err != nil {
		return nil, err
	}
	profiles := make([]gateway.Profile, 0, len(models))
	for i := range models {
		profiles = append(profiles, models[i].toEntity())
	}
	return profiles, nil
}

// UserProfile returns a user's directory entry.
func (s *Store) UserProfile(ctx context.Context, userID string) (*gateway.Profile, error) {
	var model profileModel
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	profile := model.toEntity()
	return &profile, nil
}

// UpsertProfile creates or updates a user's directory entry.
func (s *Store) UpsertProfile(ctx context.Context, userID string, profile gateway.Profile) error {
	model := profileModel{
		UserID:    userID,
		Username:  profile.Username,
		Avatar:    profile.AvatarRef,
		UpdatedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "avatar", "updated_at"}),
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
