package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"reunion_archive/internal/model"
	"reunion_archive/internal/repository"
)

type GroupService struct {
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
	db        repository.TxBeginner
	store     ObjectStore // nil when object storage is not configured
	log       *zap.Logger
}

func NewGroupService(
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	db repository.TxBeginner,
	store ObjectStore,
) *GroupService {
	return &GroupService{
		groupRepo: groupRepo,
		userRepo:  userRepo,
		db:        db,
		store:     store,
		log:       zap.L().Named("group"),
	}
}

// Create stores a new group and makes its creator the first owner.
func (s *GroupService) Create(ctx context.Context, creatorID string, req model.CreateGroupRequest) (*model.Group, error) {
	themeColor := strings.ToLower(req.ThemeColor)
	if themeColor == "" {
		themeColor = model.DefaultThemeColor
	}

	group := &model.Group{
		Name:        sanitizeText(req.Name),
		Slug:        req.Slug,
		Description: req.Description,
		ThemeColor:  themeColor,
		CreatedBy:   creatorID,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.groupRepo.Create(ctx, tx, group); err != nil {
		return nil, err
	}
	if err := s.groupRepo.AddMember(ctx, tx, group.ID, creatorID, model.GroupRoleOwner); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	group.MyRole = model.GroupRoleOwner
	s.log.Info("group created", zap.String("group_id", group.ID), zap.String("slug", group.Slug))
	return group, nil
}

// ListMine returns the groups the user belongs to.
func (s *GroupService) ListMine(ctx context.Context, userID string) ([]model.Group, error) {
	return s.groupRepo.ListForUser(ctx, userID)
}

// Get returns a group with the caller's role filled in when they belong to it.
func (s *GroupService) Get(ctx context.Context, groupID, userID string) (*model.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if m, err := s.groupRepo.GetMembership(ctx, groupID, userID); err == nil {
		group.MyRole = m.Role
	}
	return group, nil
}

// IsMember reports whether the user belongs to the group.
func (s *GroupService) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	_, err := s.groupRepo.GetMembership(ctx, groupID, userID)
	if errors.Is(err, model.ErrNotGroupMember) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Update changes name, description or theme color. Owner or site admin only.
func (s *GroupService) Update(ctx context.Context, groupID string, actor *model.User, req model.UpdateGroupRequest) (*model.Group, error) {
	if err := s.requireOwner(ctx, groupID, actor); err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := sanitizeText(*req.Name)
		req.Name = &name
	}
	if req.ThemeColor != nil {
		color := strings.ToLower(*req.ThemeColor)
		req.ThemeColor = &color
	}
	return s.groupRepo.Update(ctx, groupID, req)
}

// AddMember grants an existing user access to the group.
func (s *GroupService) AddMember(ctx context.Context, groupID string, actor *model.User, req model.AddGroupMemberRequest) error {
	if err := s.requireOwner(ctx, groupID, actor); err != nil {
		return err
	}
	if _, err := s.userRepo.GetByID(ctx, req.UserID); err != nil {
		return err
	}

	role := req.Role
	if role == "" {
		role = model.GroupRoleMember
	}
	if role != model.GroupRoleMember {
		return s.groupRepo.AddMember(ctx, nil, groupID, req.UserID, role)
	}
	return s.withOwnerGuard(ctx, groupID, req.UserID, func(tx *sqlx.Tx) error {
		return s.groupRepo.AddMember(ctx, tx, groupID, req.UserID, role)
	})
}

// RemoveMember revokes a user's access. Owners and site admins may remove
// anyone; members may remove themselves. The last owner cannot leave.
func (s *GroupService) RemoveMember(ctx context.Context, groupID string, actor *model.User, userID string) error {
	if actor.ID != userID {
		if err := s.requireOwner(ctx, groupID, actor); err != nil {
			return err
		}
	}
	err := s.withOwnerGuard(ctx, groupID, userID, func(tx *sqlx.Tx) error {
		return s.groupRepo.RemoveMember(ctx, tx, groupID, userID)
	})
	if err != nil {
		return err
	}
	s.log.Info("group member removed",
		zap.String("group_id", groupID),
		zap.String("user_id", userID),
		zap.String("actor_id", actor.ID))
	return nil
}

// UploadLogo stores a new group logo. SVG logos are sanitized and recolored
// to the group's theme color; raster logos are resized to a PNG.
func (s *GroupService) UploadLogo(ctx context.Context, groupID string, actor *model.User, file multipart.File, header *multipart.FileHeader) (*model.Group, error) {
	if s.store == nil {
		return nil, model.ErrStorageNotConfigured
	}
	if err := s.requireOwner(ctx, groupID, actor); err != nil {
		return nil, err
	}
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	var uploaded *model.UploadResult
	if isSVGUpload(header) {
		data, err := readLimited(file, header, model.MaxLogoSizeBytes)
		if err != nil {
			return nil, err
		}
		svg, err := normalizeSVG(data, group.ThemeColor)
		if err != nil {
			return nil, err
		}
		uploaded, err = s.store.Put(ctx, model.LogoFolder, ".svg", svg, model.ContentTypeSVG)
		if err != nil {
			return nil, err
		}
	} else {
		data, _, err := readAndValidateImage(file, header, model.MaxLogoSizeBytes)
		if err != nil {
			return nil, err
		}
		png, err := resizeToPNG(data, model.LogoRasterSize)
		if err != nil {
			return nil, err
		}
		uploaded, err = s.store.Put(ctx, model.LogoFolder, ".png", png, model.ContentTypePNG)
		if err != nil {
			return nil, err
		}
	}

	updated, err := s.groupRepo.SetLogo(ctx, groupID, uploaded.URL, uploaded.Key)
	if err != nil {
		s.deleteObject(ctx, uploaded.Key)
		return nil, err
	}
	if group.LogoKey != nil {
		s.deleteObject(ctx, *group.LogoKey)
	}
	updated.MyRole = group.MyRole
	return updated, nil
}

// requireOwner allows group owners and site admins.
func (s *GroupService) requireOwner(ctx context.Context, groupID string, actor *model.User) error {
	if actor.IsAdmin() {
		if _, err := s.groupRepo.GetByID(ctx, groupID); err != nil {
			return err
		}
		return nil
	}
	m, err := s.groupRepo.GetMembership(ctx, groupID, actor.ID)
	if errors.Is(err, model.ErrNotGroupMember) {
		return model.ErrNotGroupOwner
	}
	if err != nil {
		return err
	}
	if m.Role != model.GroupRoleOwner {
		return model.ErrNotGroupOwner
	}
	return nil
}

// withOwnerGuard runs apply in a transaction that holds the group's owner
// rows locked. It fails with ErrLastGroupOwner when userID is the only owner,
// so concurrent demotions and removals cannot leave the group without one.
func (s *GroupService) withOwnerGuard(ctx context.Context, groupID, userID string, apply func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	owners, err := s.groupRepo.LockOwners(ctx, tx, groupID)
	if err != nil {
		return err
	}
	if len(owners) <= 1 && slices.Contains(owners, userID) {
		return model.ErrLastGroupOwner
	}
	if err := apply(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *GroupService) deleteObject(ctx context.Context, key string) {
	if err := s.store.DeleteObject(ctx, key); err != nil {
		s.log.Warn("object delete failed", zap.String("key", key), zap.Error(err))
	}
}

func isSVGUpload(header *multipart.FileHeader) bool {
	if normalizeContentType(header.Header.Get("Content-Type")) == model.ContentTypeSVG {
		return true
	}
	return strings.EqualFold(filepath.Ext(header.Filename), ".svg")
}

func readLimited(file io.Reader, header *multipart.FileHeader, maxSize int64) ([]byte, error) {
	if header.Size > maxSize {
		return nil, model.ErrFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, model.ErrFileTooLarge
	}
	return data, nil
}
