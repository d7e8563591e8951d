package sqlitegw

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tobyns/CoveChat/internal/authz"
	"github.com/tobyns/CoveChat/internal/gateway"
)

// defaultRoles mirrors the seed ranks created with every server. Position is
// display seniority only; the owner override does not depend on it.
func defaultRoles(serverID string) []roleModel {
	now := time.Now()
	return []roleModel{
		{ID: uuid.NewString(), ServerID: serverID, Name: "Owner", Color: "#f0b232",
			Permissions: gateway.Maximal(), Position: 100, CreatedAt: now},
		{ID: uuid.NewString(), ServerID: serverID, Name: "Admin", Color: "#f23f43",
			Permissions: gateway.Maximal(), Position: 50, CreatedAt: now},
		{ID: uuid.NewString(), ServerID: serverID, Name: "Moderator", Color: "#23a55a",
			Permissions: gateway.PermissionSet{DeleteMessages: true}, Position: 25, CreatedAt: now},
		{ID: uuid.NewString(), ServerID: serverID, Name: "Member", Color: "#99aab5",
			Permissions: gateway.PermissionSet{}, Position: 0, CreatedAt: now},
	}
}

func (s *Store) seedDefaultRoles(ctx context.Context, serverID, ownerID string) error {
	roles := defaultRoles(serverID)
	if err := s.db.WithContext(ctx).Create(&roles).Error; err != nil {
		return err
	}
	for _, role := range roles {
		if role.Name == "Owner" {
			return s.upsertMembership(ctx, serverID, ownerID, role.ID)
		}
	}
	return nil
}

func (s *Store) assignDefaultRole(ctx context.Context, serverID, userID string) error {
	var member roleModel
	err := s.db.WithContext(ctx).
		Where("server_id = ? AND name = ?", serverID, "Member").
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return s.upsertMembership(ctx, serverID, userID, member.ID)
}

func (s *Store) upsertMembership(ctx context.Context, serverID, userID, roleID string) error {
	model := membershipModel{
		ServerID: serverID,
		UserID:   userID,
		RoleID:   roleID,
		JoinedAt: time.Now(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "server_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role_id"}),
		}).
		Create(&model).Error
}

// FetchRoles lists a server's roles, most senior first.
func (s *Store) FetchRoles(ctx context.Context, serverID string) ([]gateway.Role, error) {
	var models []roleModel
	if err := s.db.WithContext(ctx).
		Where("server_id = ?", serverID).
		Order("position desc").
		Find(&models).Error; err != nil {
		return nil, err
	}
	roles := make([]gateway.Role, 0, len(models))
	for i := range models {
		roles = append(roles, models[i].toEntity())
	}
	return roles, nil
}

// CreateRole adds a custom role after authorizing the requester.
func (s *Store) CreateRole(ctx context.Context, serverID, name, color string, perms gateway.PermissionSet, requesterID string) (string, error) {
	requesterPerms, err := s.UserPermissions(ctx, serverID, requesterID)
	if err != nil {
		return "", err
	}
	if decision := authz.Authorize(requesterPerms, authz.ManageRoles); !decision.Allowed() {
		return "", fmt.Errorf("%s: %w", decision.Reason(), gateway.ErrForbidden)
	}
	if color == "" {
		color = "#99aab5"
	}
	model := roleModel{
		ID:          uuid.NewString(),
		ServerID:    serverID,
		Name:        name,
		Color:       color,
		Permissions: perms,
		Position:    10,
		CreatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return "", fmt.Errorf("create role: %w", err)
	}
	return model.ID, nil
}

// AssignRole moves a member to a role after authorizing the requester.
func (s *Store) AssignRole(ctx context.Context, serverID, userID, roleID, requesterID string) error {
	requesterPerms, err := s.UserPermissions(ctx, serverID, requesterID)
	if err != nil {
		return err
	}
	if decision := authz.Authorize(requesterPerms, authz.ManageRoles); !decision.Allowed() {
		return fmt.Errorf("%s: %w", decision.Reason(), gateway.ErrForbidden)
	}
	var role roleModel
	if err := s.db.WithContext(ctx).Where("id = ? AND server_id = ?", roleID, serverID).First(&role).Error; err != nil {
		return wrapNotFound(err)
	}
	if err := s.upsertMembership(ctx, serverID, userID, roleID); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	s.notifier.emit(topicServers)
	return nil
}

// FetchMembers lists memberships joined with their roles and display names.
func (s *Store) FetchMembers(ctx context.Context, serverID string) ([]gateway.Member, error) {
	var server serverModel
	if err := s.db.WithContext(ctx).Where("id = ?", serverID).First(&server).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	var memberships []membershipModel
	if err := s.db.WithContext(ctx).Where("server_id = ?", serverID).Find(&memberships).Error; err != nil {
		return nil, err
	}
	rolesByID := make(map[string]gateway.Role)
	roles, err := s.FetchRoles(ctx, serverID)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		rolesByID[role.ID] = role
	}

	members := make([]gateway.Member, 0, len(server.Members))
	assigned := make(map[string]membershipModel, len(memberships))
	for _, m := range memberships {
		assigned[m.UserID] = m
	}
	for _, userID := range server.Members {
		member := gateway.Member{UserID: userID}
		if detail, ok := server.MemberDetails[userID]; ok {
			member.DisplayName = detail.DisplayName
			member.JoinedAt = detail.JoinedAt
		}
		if m, ok := assigned[userID]; ok {
			if role, ok := rolesByID[m.RoleID]; ok {
				r := role
				member.Role = &r
			}
		}
		members = append(members, member)
	}
	return members, nil
}

// UserPermissions resolves the effective permission set for a user within a
// server. The owner always resolves to the maximal set.
func (s *Store) UserPermissions(ctx context.Context, serverID, userID string) (gateway.PermissionSet, error) {
	var server serverModel
	if err := s.db.WithContext(ctx).Where("id = ?", serverID).First(&server).Error; err != nil {
		return gateway.PermissionSet{}, wrapNotFound(err)
	}
	if server.OwnerID == userID {
		return authz.Effective(server.OwnerID, userID, nil), nil
	}

	var membership membershipModel
	err := s.db.WithContext(ctx).
		Where("server_id = ? AND user_id = ?", serverID, userID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authz.Effective(server.OwnerID, userID, nil), nil
		}
		return gateway.PermissionSet{}, err
	}

	var role roleModel
	if err := s.db.WithContext(ctx).Where("id = ?", membership.RoleID).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authz.Effective(server.OwnerID, userID, nil), nil
		}
		return gateway.PermissionSet{}, err
	}
	entity := role.toEntity()
	return authz.Effective(server.OwnerID, userID, &entity), nil
}
