package service

import (
	"context"

	"go.uber.org/zap"

	"reunion_archive/internal/model"
	"reunion_archive/internal/repository"
)

// TimelineService manages a group's events.
type TimelineService struct {
	eventRepo repository.EventRepository
	log       *zap.Logger
}

func NewTimelineService(eventRepo repository.EventRepository) *TimelineService {
	return &TimelineService{eventRepo: eventRepo, log: zap.L().Named("timeline")}
}

// List returns events oldest first. A non-nil year keeps only events of that year.
func (s *TimelineService) List(ctx context.Context, groupID string, year *int) (*model.TimelineResponse, error) {
	events, err := s.eventRepo.List(ctx, groupID, year)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.Event{}
	}
	return &model.TimelineResponse{Events: events}, nil
}

func (s *TimelineService) Get(ctx context.Context, groupID, eventID string) (*model.Event, error) {
	return s.eventRepo.GetByID(ctx, groupID, eventID)
}

func (s *TimelineService) Create(ctx context.Context, groupID, userID string, in model.EventInput) (*model.Event, error) {
	in = prepareEvent(in)
	if in.Title == "" {
		return nil, model.ErrTitleRequired
	}
	event, err := s.eventRepo.Create(ctx, groupID, userID, in)
	if err != nil {
		return nil, err
	}
	s.log.Info("event created", zap.String("group_id", groupID), zap.String("event_id", event.ID))
	return event, nil
}

func (s *TimelineService) Update(ctx context.Context, groupID, eventID string, in model.EventInput) (*model.Event, error) {
	in = prepareEvent(in)
	if in.Title == "" {
		return nil, model.ErrTitleRequired
	}
	return s.eventRepo.Update(ctx, groupID, eventID, in)
}

// Delete removes an event. Photos tagged with it stay in the gallery untagged.
func (s *TimelineService) Delete(ctx context.Context, groupID, eventID string) error {
	return s.eventRepo.Delete(ctx, groupID, eventID)
}

func prepareEvent(in model.EventInput) model.EventInput {
	in.Title = sanitizeText(in.Title)
	in.Description = sanitizeOptional(in.Description)
	in.Location = sanitizeOptional(in.Location)
	in.OccurredAt = in.OccurredAt.UTC()
	return in
}
