package service

import (
	"context"

	"go.uber.org/zap"

	"reunion_archive/internal/model"
	"reunion_archive/internal/repository"
)

// AdminService backs the admin console.
type AdminService struct {
	users    *UserService
	comments *CommentService
	stats    repository.StatsRepository
	log      *zap.Logger
}

func NewAdminService(users *UserService, comments *CommentService, stats repository.StatsRepository) *AdminService {
	return &AdminService{users: users, comments: comments, stats: stats, log: zap.L().Named("admin")}
}

func (s *AdminService) ListUsers(ctx context.Context, cursor *string, limit int) (*model.UserListResponse, error) {
	return s.users.List(ctx, cursor, limit)
}

func (s *AdminService) SetRole(ctx context.Context, adminID, userID, role string) (*model.User, error) {
	user, err := s.users.SetRole(ctx, adminID, userID, role)
	if err != nil {
		return nil, err
	}
	s.log.Info("role changed",
		zap.String("admin_id", adminID),
		zap.String("user_id", userID),
		zap.String("role", role))
	return user, nil
}

// DeleteComment removes any comment regardless of author.
func (s *AdminService) DeleteComment(ctx context.Context, adminID, commentID string) error {
	return s.comments.Moderate(ctx, commentID, adminID)
}

func (s *AdminService) Stats(ctx context.Context) (*model.ArchiveStats, error) {
	return s.stats.Get(ctx)
}
