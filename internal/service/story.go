package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"reunion_archive/internal/cache"
	"reunion_archive/internal/model"
	"reunion_archive/internal/repository"
)

const (
	defaultStoryPageSize = 10
	maxStoryPageSize     = 50
)

type StoryService struct {
	storyRepo   repository.StoryRepository
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
	db          repository.TxBeginner
	cache       cache.ThreadCache
	log         *zap.Logger
}

func NewStoryService(
	storyRepo repository.StoryRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
	db repository.TxBeginner,
	threadCache cache.ThreadCache,
) *StoryService {
	return &StoryService{
		storyRepo:   storyRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
		db:          db,
		cache:       threadCache,
		log:         zap.L().Named("story"),
	}
}

// Create stores a new story with a sanitized body.
func (s *StoryService) Create(ctx context.Context, groupID, authorID string, in model.StoryInput) (*model.Story, error) {
	body := sanitizeRichText(in.Body)
	if body == "" {
		return nil, model.ErrBodyRequired
	}

	story := &model.Story{
		GroupID:  groupID,
		AuthorID: authorID,
		Title:    sanitizeText(in.Title),
		Body:     body,
		CoverURL: in.CoverURL,
	}
	if err := s.storyRepo.Create(ctx, story); err != nil {
		return nil, fmt.Errorf("create story: %w", err)
	}

	if author, err := s.userRepo.GetByID(ctx, authorID); err == nil {
		story.Author = author.Summary()
	}

	s.log.Info("story created", zap.String("group_id", groupID), zap.String("story_id", story.ID))
	return story, nil
}

// Get returns a story of the group.
func (s *StoryService) Get(ctx context.Context, groupID, storyID string) (*model.Story, error) {
	story, err := s.storyRepo.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story.GroupID != groupID {
		return nil, model.ErrStoryNotFound
	}
	return story, nil
}

// List returns a page of the group's stories, newest first, without bodies.
func (s *StoryService) List(ctx context.Context, groupID string, cursor *string, limit int) (*model.StoryListResponse, error) {
	if limit <= 0 {
		limit = defaultStoryPageSize
	}
	if limit > maxStoryPageSize {
		limit = maxStoryPageSize
	}

	stories, next, err := s.storyRepo.List(ctx, groupID, cursor, limit)
	if err != nil {
		return nil, err
	}
	if stories == nil {
		stories = []model.Story{}
	}
	return &model.StoryListResponse{Stories: stories, NextCursor: next, HasMore: next != nil}, nil
}

// Update replaces title, body and cover. Author or site admin only.
func (s *StoryService) Update(ctx context.Context, groupID, storyID string, actor *model.User, in model.StoryInput) (*model.Story, error) {
	existing, err := s.Get(ctx, groupID, storyID)
	if err != nil {
		return nil, err
	}
	if existing.AuthorID != actor.ID && !actor.IsAdmin() {
		return nil, model.ErrNotStoryOwner
	}

	in.Body = sanitizeRichText(in.Body)
	if in.Body == "" {
		return nil, model.ErrBodyRequired
	}
	in.Title = sanitizeText(in.Title)

	story, err := s.storyRepo.Update(ctx, storyID, in)
	if err != nil {
		return nil, err
	}
	story.Author = existing.Author
	return story, nil
}

// Delete soft-deletes a story and removes all of its comments in the same
// transaction. Author or site admin only.
func (s *StoryService) Delete(ctx context.Context, groupID, storyID string, actor *model.User) error {
	existing, err := s.Get(ctx, groupID, storyID)
	if err != nil {
		return err
	}
	if existing.AuthorID != actor.ID && !actor.IsAdmin() {
		return model.ErrNotStoryOwner
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.storyRepo.SoftDelete(ctx, tx, storyID); err != nil {
		return err
	}
	removed, err := s.commentRepo.DeleteByStory(ctx, tx, storyID)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	invalidateThread(ctx, s.cache, s.log, storyID)
	s.log.Info("story deleted",
		zap.String("story_id", storyID),
		zap.String("actor_id", actor.ID),
		zap.Int64("comments_removed", removed))
	return nil
}
