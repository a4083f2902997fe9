package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/windfall/drill_service/internal/errors"
	"github.com/windfall/drill_service/internal/exercise"
	"github.com/windfall/drill_service/internal/repository"
)

// EventPublisher is the subset of client.PubSubClient used for events.
type EventPublisher interface {
	PublishWithAttributes(ctx context.Context, data interface{}, attrs map[string]string) error
}

// GenerationEventType tags generation events.
const GenerationEventType = "generation.created"

// HistoryService logs generations and serves the recent history.
// It is an exercise.Observer.
type HistoryService struct {
	repo      repository.GenerationRepository
	publisher EventPublisher
	log       zerolog.Logger
}

// NewHistoryService creates a HistoryService. publisher may be nil.
func NewHistoryService(repo repository.GenerationRepository, publisher EventPublisher, log zerolog.Logger) *HistoryService {
	return &HistoryService{
		repo:      repo,
		publisher: publisher,
		log:       log.With().Str("service", "history").Logger(),
	}
}

// Observe stores g and publishes a generation event. A failed store does
// not stop the event.
func (s *HistoryService) Observe(ctx context.Context, g exercise.Generation) error {
	rec := &repository.GenerationRecord{
		Service:   g.Service,
		UserID:    g.UserID,
		Items:     g.Items,
		CreatedAt: g.GeneratedAt,
	}
	storeErr := s.repo.Create(ctx, rec)
	if storeErr != nil {
		s.log.Error().Err(storeErr).Str("exercise", g.Service).Msg("Failed to store generation")
	}

	if s.publisher != nil {
		err := s.publisher.PublishWithAttributes(ctx, g, map[string]string{
			"event":   GenerationEventType,
			"service": g.Service,
		})
		if err != nil {
			s.log.Error().Err(err).Str("exercise", g.Service).Msg("Failed to publish generation event")
			return errors.Wrap(errors.ErrPubSubService, "failed to publish generation event", err)
		}
	}

	if storeErr != nil {
		return errors.InternalWrap("failed to store generation", storeErr)
	}
	return nil
}

// Recent lists the latest generations of one exercise.
func (s *HistoryService) Recent(ctx context.Context, service string, limit int) ([]*repository.GenerationRecord, error) {
	service = strings.TrimSpace(service)
	if service == "" {
		return nil, errors.Validation("service is required")
	}
	records, err := s.repo.ListRecent(ctx, service, limit)
	if err != nil {
		return nil, errors.InternalWrap("failed to list generations", err)
	}
	return records, nil
}
