package usecase

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/adapter/observability"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
)

// GuideService creates and tracks asynchronous guide/roadmap generation jobs.
type GuideService struct {
	Jobs  domain.GuideJobRepository
	Queue domain.Queue
}

// NewGuideService constructs a GuideService with its dependencies.
func NewGuideService(j domain.GuideJobRepository, q domain.Queue) GuideService {
	return GuideService{Jobs: j, Queue: q}
}

// Enqueue validates the project parameters, creates a job record, and
// enqueues the generation task for the worker.
func (s GuideService) Enqueue(ctx domain.Context, userID string, kind domain.GuideJobKind, params domain.ProjectParams) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(params.Title) == "" {
		return "", fmt.Errorf("%w: project title required", domain.ErrInvalidArgument)
	}
	if kind != domain.JobKindGuide && kind != domain.JobKindRoadmap {
		return "", fmt.Errorf("%w: unknown job kind %q", domain.ErrInvalidArgument, kind)
	}

	now := time.Now().UTC()
	jobID, err := s.Jobs.Create(ctx, domain.GuideJob{
		UserID:    userID,
		Kind:      kind,
		Status:    domain.JobQueued,
		Params:    params,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("create guide job: %w", err)
	}

	payload := domain.GuideJobPayload{JobID: jobID, UserID: userID, Kind: kind, Params: params}
	if _, err := s.Queue.EnqueueGuideJob(ctx, payload); err != nil {
		_ = s.Jobs.UpdateStatus(ctx, jobID, domain.JobFailed, "enqueue failed")
		return "", fmt.Errorf("enqueue guide job: %w", err)
	}
	observability.GuideJobsEnqueuedTotal.WithLabelValues(string(kind)).Inc()
	lg := observability.LoggerFromContext(ctx).With(
		slog.String("job_id", jobID), slog.String("kind", string(kind)))
	if rid := observability.RequestIDFromContext(ctx); rid != "" {
		lg = lg.With(slog.String("request_id", rid))
	}
	lg.Info("guide job enqueued")
	return jobID, nil
}

// Get returns a job's current status and, when completed, its result.
func (s GuideService) Get(ctx domain.Context, id string) (domain.GuideJob, error) {
	if id == "" {
		return domain.GuideJob{}, fmt.Errorf("%w: job id required", domain.ErrInvalidArgument)
	}
	return s.Jobs.Get(ctx, id)
}
