package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"reunion_archive/internal/model"
	"reunion_archive/internal/repository"
)

// NotificationService manages the device tokens that reply and like pushes
// are delivered to. Delivery itself happens in the background worker.
type NotificationService struct {
	tokenRepo repository.DeviceTokenRepository
	log       *zap.Logger
}

func NewNotificationService(tokenRepo repository.DeviceTokenRepository) *NotificationService {
	return &NotificationService{tokenRepo: tokenRepo, log: zap.L().Named("notification")}
}

// RegisterDeviceToken stores or refreshes a device token for the user.
//
// The token is unique, so a token already registered to another user is
// reassigned (the device changed hands).
func (s *NotificationService) RegisterDeviceToken(ctx context.Context, userID string, req model.RegisterTokenRequest) error {
	platform := req.Platform
	if platform == "" {
		platform = model.PlatformAndroid
	}
	if err := s.tokenRepo.Upsert(ctx, userID, strings.TrimSpace(req.Token), platform); err != nil {
		return err
	}
	s.log.Debug("device token registered", zap.String("user_id", userID), zap.String("platform", platform))
	return nil
}

// RemoveDeviceToken removes one of the user's tokens, e.g. on logout.
func (s *NotificationService) RemoveDeviceToken(ctx context.Context, userID, token string) error {
	return s.tokenRepo.Delete(ctx, userID, strings.TrimSpace(token))
}

// Devices lists the user's registered devices.
func (s *NotificationService) Devices(ctx context.Context, userID string) ([]model.DeviceToken, error) {
	tokens, err := s.tokenRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if tokens == nil {
		tokens = []model.DeviceToken{}
	}
	return tokens, nil
}
