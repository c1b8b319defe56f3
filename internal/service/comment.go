package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"reunion_archive/internal/cache"
	"reunion_archive/internal/commenttree"
	"reunion_archive/internal/model"
	"reunion_archive/internal/queue"
	"reunion_archive/internal/repository"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	storyRepo   repository.StoryRepository
	userRepo    repository.UserRepository
	db          repository.TxBeginner
	cache       cache.ThreadCache // nil when Redis is not configured
	publisher   queue.Publisher   // nil when Redis is not configured
	log         *zap.Logger
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	storyRepo repository.StoryRepository,
	userRepo repository.UserRepository,
	db repository.TxBeginner,
	threadCache cache.ThreadCache,
	publisher queue.Publisher,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		storyRepo:   storyRepo,
		userRepo:    userRepo,
		db:          db,
		cache:       threadCache,
		publisher:   publisher,
		log:         zap.L().Named("comment"),
	}
}

// ListThread returns the comment forest of a story. The flat list comes from
// the thread cache when present, otherwise from the database (and is then
// cached); the tree is built on every call.
func (s *CommentService) ListThread(ctx context.Context, groupID, storyID string) (*model.ThreadResponse, error) {
	if _, err := s.storyInGroup(ctx, groupID, storyID); err != nil {
		return nil, err
	}

	flat, err := s.flatThread(ctx, storyID)
	if err != nil {
		return nil, err
	}

	roots := commenttree.Build(flat)

	maxDepth := 0
	commenttree.Walk(roots, func(_ *model.Comment, depth int) {
		maxDepth = max(maxDepth, depth)
	})
	s.log.Debug("thread built",
		zap.String("story_id", storyID),
		zap.Int("comments", commenttree.Count(roots)),
		zap.Int("roots", len(roots)),
		zap.Int("max_depth", maxDepth))

	return &model.ThreadResponse{
		StoryID:  storyID,
		Comments: roots,
		Total:    len(flat),
	}, nil
}

func (s *CommentService) flatThread(ctx context.Context, storyID string) ([]model.Comment, error) {
	var (
		version int64
		canFill bool
	)
	if s.cache != nil {
		comments, found, err := s.cache.Get(ctx, storyID)
		if err == nil && found {
			return comments, nil
		}
		// The version is taken before the database read so that a write
		// committing in between makes the fill below a no-op.
		if version, err = s.cache.Version(ctx, storyID); err == nil {
			canFill = true
		}
	}

	comments, err := s.commentRepo.ListByStory(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	if canFill {
		err := s.cache.Set(ctx, storyID, version, comments)
		if err != nil && !errors.Is(err, cache.ErrThreadChanged) {
			s.log.Warn("thread cache fill failed", zap.String("story_id", storyID), zap.Error(err))
		}
	}
	return comments, nil
}

// Create adds a comment or reply. Insert and story counter move in one transaction.
func (s *CommentService) Create(ctx context.Context, groupID, storyID, authorID string, req model.CreateCommentRequest) (*model.Comment, error) {
	content := sanitizeText(req.Content)
	if content == "" && req.AudioURL == nil {
		return nil, model.ErrContentRequired
	}
	if utf8.RuneCountInString(content) > model.MaxCommentLength {
		return nil, model.ErrContentTooLong
	}

	if _, err := s.storyInGroup(ctx, groupID, storyID); err != nil {
		return nil, err
	}

	parentID := req.ParentID
	if parentID == "" {
		parentID = model.RootParentID
	}
	if parentID != model.RootParentID {
		parent, err := s.commentRepo.GetByID(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if parent.StoryID != storyID {
			return nil, model.ErrParentWrongStory
		}
	}

	comment := &model.Comment{
		StoryID:  storyID,
		ParentID: parentID,
		AuthorID: authorID,
		Content:  content,
		AudioURL: req.AudioURL,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.commentRepo.Create(ctx, tx, comment); err != nil {
		return nil, err
	}
	if err := s.storyRepo.IncrementCommentCount(ctx, tx, storyID, 1); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	if author, err := s.userRepo.GetByID(ctx, authorID); err == nil {
		comment.Author = author.Summary()
	}
	comment.Replies = []*model.Comment{}

	s.invalidate(ctx, storyID)
	s.publish(ctx, queue.NewCommentCreatedEvent(groupID, storyID, comment.ID, parentID, authorID))

	s.log.Info("comment created",
		zap.String("story_id", storyID),
		zap.String("comment_id", comment.ID),
		zap.Bool("reply", parentID != model.RootParentID),
		zap.Bool("audio", comment.AudioURL != nil))
	return comment, nil
}

// Update replaces the text of a comment. Only its author may edit it.
func (s *CommentService) Update(ctx context.Context, groupID, storyID, commentID, userID string, req model.UpdateCommentRequest) (*model.Comment, error) {
	content := sanitizeText(req.Content)
	if utf8.RuneCountInString(content) > model.MaxCommentLength {
		return nil, model.ErrContentTooLong
	}

	existing, err := s.commentInStory(ctx, groupID, storyID, commentID)
	if err != nil {
		return nil, err
	}
	if existing.AuthorID != userID {
		return nil, model.ErrNotCommentOwner
	}
	if content == "" && existing.AudioURL == nil {
		return nil, model.ErrContentRequired
	}

	comment, err := s.commentRepo.UpdateContent(ctx, commentID, content)
	if err != nil {
		return nil, err
	}
	if author, err := s.userRepo.GetByID(ctx, userID); err == nil {
		comment.Author = author.Summary()
	}
	comment.Replies = []*model.Comment{}

	s.invalidate(ctx, storyID)
	return comment, nil
}

// ToggleLike adds the user's like, or removes it if already present.
func (s *CommentService) ToggleLike(ctx context.Context, groupID, storyID, commentID, userID string) (*model.LikeResponse, error) {
	if _, err := s.commentInStory(ctx, groupID, storyID, commentID); err != nil {
		return nil, err
	}

	liked, count, err := s.commentRepo.ToggleLike(ctx, commentID, userID)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, storyID)
	if liked {
		s.publish(ctx, queue.NewCommentLikedEvent(groupID, storyID, commentID, userID))
	}

	return &model.LikeResponse{CommentID: commentID, Liked: liked, LikeCount: count}, nil
}

// Delete removes a comment on behalf of its author or a site admin. Replies
// are left in place and render as top-level comments.
func (s *CommentService) Delete(ctx context.Context, groupID, storyID, commentID string, actor *model.User) error {
	comment, err := s.commentInStory(ctx, groupID, storyID, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != actor.ID && !actor.IsAdmin() {
		return model.ErrNotCommentOwner
	}
	return s.delete(ctx, comment, actor.ID)
}

// Moderate deletes any comment by id. Used by the admin console.
func (s *CommentService) Moderate(ctx context.Context, commentID, adminID string) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	return s.delete(ctx, comment, adminID)
}

func (s *CommentService) delete(ctx context.Context, comment *model.Comment, actorID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.commentRepo.Delete(ctx, tx, comment.ID); err != nil {
		return err
	}
	if err := s.storyRepo.IncrementCommentCount(ctx, tx, comment.StoryID, -1); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.invalidate(ctx, comment.StoryID)
	s.log.Info("comment deleted",
		zap.String("story_id", comment.StoryID),
		zap.String("comment_id", comment.ID),
		zap.String("actor_id", actorID))
	return nil
}

// storyInGroup loads a live story and hides stories of other groups.
func (s *CommentService) storyInGroup(ctx context.Context, groupID, storyID string) (*model.Story, error) {
	story, err := s.storyRepo.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story.GroupID != groupID {
		return nil, model.ErrStoryNotFound
	}
	return story, nil
}

func (s *CommentService) commentInStory(ctx context.Context, groupID, storyID, commentID string) (*model.Comment, error) {
	if _, err := s.storyInGroup(ctx, groupID, storyID); err != nil {
		return nil, err
	}
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.StoryID != storyID {
		return nil, model.ErrCommentNotFound
	}
	return comment, nil
}

func (s *CommentService) invalidate(ctx context.Context, storyID string) {
	invalidateThread(ctx, s.cache, s.log, storyID)
}

func (s *CommentService) publish(ctx context.Context, event queue.Event) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, queue.StreamReunion, event); err != nil {
		s.log.Warn("publish failed", zap.String("type", event.Type), zap.Error(err))
	}
}

// invalidateThread drops a story's cached comment list. Failures are logged;
// the entry still expires on its TTL.
func invalidateThread(ctx context.Context, c cache.ThreadCache, log *zap.Logger, storyID string) {
	if c == nil {
		return
	}
	if err := c.Invalidate(ctx, storyID); err != nil {
		log.Warn("thread cache invalidate failed", zap.String("story_id", storyID), zap.Error(err))
	}
}

