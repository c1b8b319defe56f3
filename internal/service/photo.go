package service

import (
	"context"
	"errors"
	"mime/multipart"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"reunion_archive/internal/model"
	"reunion_archive/internal/repository"
)

const (
	defaultPhotoPageSize = 24
	maxPhotoPageSize     = 100
)

type PhotoService struct {
	photoRepo repository.PhotoRepository
	eventRepo repository.EventRepository
	groupRepo repository.GroupRepository
	store     ObjectStore
	log       *zap.Logger
}

func NewPhotoService(
	photoRepo repository.PhotoRepository,
	eventRepo repository.EventRepository,
	groupRepo repository.GroupRepository,
	store ObjectStore,
) *PhotoService {
	return &PhotoService{
		photoRepo: photoRepo,
		eventRepo: eventRepo,
		groupRepo: groupRepo,
		store:     store,
		log:       zap.L().Named("photo"),
	}
}

// PhotoUpload carries the optional form fields sent with a gallery upload.
type PhotoUpload struct {
	EventID *string
	Caption *string
}

// Upload stores the original image and a square thumbnail, then records the photo.
func (s *PhotoService) Upload(ctx context.Context, groupID, uploaderID string, in PhotoUpload, file multipart.File, header *multipart.FileHeader) (*model.Photo, error) {
	if s.store == nil {
		return nil, model.ErrStorageNotConfigured
	}

	if in.Caption != nil {
		caption := sanitizeText(*in.Caption)
		if utf8.RuneCountInString(caption) > model.MaxCaptionLength {
			return nil, model.ErrCaptionTooLong
		}
		in.Caption = &caption
		if caption == "" {
			in.Caption = nil
		}
	}
	if in.EventID != nil {
		if _, err := s.eventRepo.GetByID(ctx, groupID, *in.EventID); err != nil {
			return nil, err
		}
	}

	data, contentType, err := readAndValidateImage(file, header, model.MaxPhotoSizeBytes)
	if err != nil {
		return nil, err
	}
	thumb, err := resizeToJPEG(data, model.ThumbnailSize, model.ThumbnailSize, 80)
	if err != nil {
		return nil, err
	}

	var original, thumbnail *model.UploadResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		original, err = s.store.Put(gctx, model.PhotoFolder, model.ExtensionFor(contentType), data, contentType)
		return err
	})
	g.Go(func() error {
		var err error
		thumbnail, err = s.store.Put(gctx, model.ThumbnailFolder, ".jpg", thumb, model.ContentTypeJPEG)
		return err
	})
	if err := g.Wait(); err != nil {
		if original != nil {
			s.deleteObject(ctx, original.Key)
		}
		if thumbnail != nil {
			s.deleteObject(ctx, thumbnail.Key)
		}
		return nil, err
	}

	photo := &model.Photo{
		GroupID:      groupID,
		EventID:      in.EventID,
		URL:          original.URL,
		Key:          original.Key,
		ThumbnailURL: thumbnail.URL,
		ThumbnailKey: thumbnail.Key,
		Caption:      in.Caption,
		UploadedBy:   uploaderID,
	}
	if err := s.photoRepo.Create(ctx, photo); err != nil {
		s.deleteObject(ctx, original.Key)
		s.deleteObject(ctx, thumbnail.Key)
		return nil, err
	}

	s.log.Info("photo uploaded",
		zap.String("group_id", groupID),
		zap.String("photo_id", photo.ID),
		zap.Int("bytes", len(data)))
	return photo, nil
}

// List returns a page of the gallery, newest first, optionally limited to one event.
func (s *PhotoService) List(ctx context.Context, groupID string, eventID, cursor *string, limit int) (*model.PhotoListResponse, error) {
	if limit <= 0 {
		limit = defaultPhotoPageSize
	}
	if limit > maxPhotoPageSize {
		limit = maxPhotoPageSize
	}

	photos, next, err := s.photoRepo.List(ctx, groupID, eventID, cursor, limit)
	if err != nil {
		return nil, err
	}
	if photos == nil {
		photos = []model.Photo{}
	}
	return &model.PhotoListResponse{Photos: photos, NextCursor: next, HasMore: next != nil}, nil
}

// Delete removes a photo. The uploader, a group owner or a site admin may
// delete; object removal is best-effort.
func (s *PhotoService) Delete(ctx context.Context, groupID, photoID string, actor *model.User) error {
	photo, err := s.photoRepo.GetByID(ctx, groupID, photoID)
	if err != nil {
		return err
	}
	if photo.UploadedBy != actor.ID && !actor.IsAdmin() {
		m, err := s.groupRepo.GetMembership(ctx, groupID, actor.ID)
		if err != nil && !errors.Is(err, model.ErrNotGroupMember) {
			return err
		}
		if m == nil || m.Role != model.GroupRoleOwner {
			return model.ErrForbidden
		}
	}

	if err := s.photoRepo.Delete(ctx, groupID, photoID); err != nil {
		return err
	}
	if s.store != nil {
		s.deleteObject(ctx, photo.Key)
		s.deleteObject(ctx, photo.ThumbnailKey)
	}
	return nil
}

func (s *PhotoService) deleteObject(ctx context.Context, key string) {
	if err := s.store.DeleteObject(ctx, key); err != nil {
		s.log.Warn("object delete failed", zap.String("key", key), zap.Error(err))
	}
}
