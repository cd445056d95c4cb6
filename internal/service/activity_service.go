package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/bloodbank-api/internal/models"
	"github.com/noah-isme/bloodbank-api/pkg/config"
	"github.com/noah-isme/bloodbank-api/pkg/jobs"
)

type activityStore interface {
	Create(ctx context.Context, log *models.ActivityLog) error
	List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, error)
}

// ActivityService records and reads the audit trail. Writes are best-effort:
// they flow through an in-memory worker queue and failures are logged, never
// surfaced to the operation that produced them.
type ActivityService struct {
	repo   activityStore
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewActivityService constructs the service and its write queue.
func NewActivityService(repo activityStore, logger *zap.Logger, cfg config.ActivityConfig) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ActivityService{repo: repo, logger: logger}
	s.queue = jobs.NewQueue("activity-log", s.persist, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers.
func (s *ActivityService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *ActivityService) Stop() {
	s.queue.Stop()
}

// Record enqueues an audit entry for asynchronous persistence.
func (s *ActivityService) Record(actor *models.JWTClaims, activityType, description string, details map[string]interface{}) {
	entry := &models.ActivityLog{
		Type:        activityType,
		Description: description,
	}
	if actor != nil {
		id := actor.UserID
		entry.ActorID = &id
		entry.ActorName = actor.FullName
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = raw
		}
	}

	if err := s.queue.Enqueue(jobs.Job{Type: activityType, Payload: entry}); err != nil {
		s.logger.Warn("failed to enqueue activity log", zap.String("type", activityType), zap.Error(err))
	}
}

// List returns recent activity entries.
func (s *ActivityService) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, error) {
	return s.repo.List(ctx, filter)
}

func (s *ActivityService) persist(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(*models.ActivityLog)
	if !ok {
		return nil
	}
	return s.repo.Create(ctx, entry)
}
