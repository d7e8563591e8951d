package sqlitegw

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobyns/CoveChat/internal/auth"
	"github.com/tobyns/CoveChat/internal/gateway"
)

// Register creates an account and profile and returns an authenticated session.
func (s *Store) Register(ctx context.Context, username, password string) (*gateway.Session, error) {
	var existing credentialModel
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil, gateway.ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	credential := credentialModel{
		UserID:       uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&credential).Error; err != nil {
		return nil, fmt.Errorf("create credential: %w", err)
	}
	if err := s.UpsertProfile(ctx, credential.UserID, gateway.Profile{Username: username}); err != nil {
		return nil, err
	}
	return s.sessionFor(credential.UserID, username)
}

// Login verifies credentials and returns an authenticated session.
func (s *Store) Login(ctx context.Context, username, password string) (*gateway.Session, error) {
	var credential credentialModel
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&credential).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gateway.ErrUnauthorized
		}
		return nil, err
	}
	if err := auth.ComparePassword(credential.PasswordHash, password); err != nil {
		return nil, gateway.ErrUnauthorized
	}
	return s.sessionFor(credential.UserID, credential.Username)
}

// Verify validates a session token and returns its user.
func (s *Store) Verify(ctx context.Context, token string) (*gateway.User, error) {
	claims, err := auth.ParseToken(s.cfg.JWT, token)
	if err != nil {
		return nil, gateway.ErrUnauthorized
	}
	user := gateway.User{
		ID:          claims.UserID,
		DisplayName: claims.DisplayName,
		Status:      gateway.StatusOnline,
	}
	if profile, err := s.UserProfile(ctx, claims.UserID); err == nil {
		user.DisplayName = profile.Username
		user.AvatarRef = profile.AvatarRef
	}
	return &user, nil
}

func (s *Store) sessionFor(userID, username string) (*gateway.Session, error) {
	token, expiresAt, err := auth.NewToken(s.cfg.JWT, userID, username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &gateway.Session{
		User: gateway.User{
			ID:          userID,
			DisplayName: username,
			Status:      gateway.StatusOnline,
		},
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}
