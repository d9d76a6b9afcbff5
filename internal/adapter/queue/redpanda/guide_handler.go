package redpanda

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/adapter/observability"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/guide"
)

// GuideJobHandler runs one guide-generation job end to end: mark the job
// processing, generate and repair the document, store the result.
type GuideJobHandler struct {
	Jobs      domain.GuideJobRepository
	Generator *guide.Generator
}

// NewGuideJobHandler constructs a GuideJobHandler.
func NewGuideJobHandler(jobs domain.GuideJobRepository, gen *guide.Generator) *GuideJobHandler {
	return &GuideJobHandler{Jobs: jobs, Generator: gen}
}

// Handle processes one job payload. The returned error is for logging only;
// the job row carries the user-visible outcome.
func (h *GuideJobHandler) Handle(ctx domain.Context, payload domain.GuideJobPayload) error {
	start := time.Now()
	slog.Info("processing guide job",
		slog.String("job_id", payload.JobID),
		slog.String("kind", string(payload.Kind)),
		slog.String("project", payload.Params.Title))

	if err := h.Jobs.UpdateStatus(ctx, payload.JobID, domain.JobProcessing, ""); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	var (
		result any
		err    error
	)
	switch payload.Kind {
	case domain.JobKindGuide:
		result, err = h.Generator.GenerateGuide(ctx, payload.Params)
	case domain.JobKindRoadmap:
		result, err = h.Generator.GenerateRoadmap(ctx, payload.Params)
	default:
		err = fmt.Errorf("%w: unknown job kind %q", domain.ErrInvalidArgument, payload.Kind)
	}
	if err != nil {
		observability.GuideJobsCompletedTotal.WithLabelValues(string(payload.Kind), "failed").Inc()
		if uerr := h.Jobs.UpdateStatus(ctx, payload.JobID, domain.JobFailed, err.Error()); uerr != nil {
			slog.Error("failed to mark job failed", slog.String("job_id", payload.JobID), slog.Any("error", uerr))
		}
		return err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		observability.GuideJobsCompletedTotal.WithLabelValues(string(payload.Kind), "failed").Inc()
		_ = h.Jobs.UpdateStatus(ctx, payload.JobID, domain.JobFailed, "encode result: "+err.Error())
		return fmt.Errorf("encode result: %w", err)
	}
	if err := h.Jobs.SaveResult(ctx, payload.JobID, raw); err != nil {
		observability.GuideJobsCompletedTotal.WithLabelValues(string(payload.Kind), "failed").Inc()
		return fmt.Errorf("save result: %w", err)
	}

	observability.GuideJobsCompletedTotal.WithLabelValues(string(payload.Kind), "completed").Inc()
	slog.Info("guide job completed",
		slog.String("job_id", payload.JobID),
		slog.String("kind", string(payload.Kind)),
		slog.Duration("took", time.Since(start)))
	return nil
}
