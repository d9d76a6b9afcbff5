package redpanda_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/adapter/queue/redpanda"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/guide"
)

type memJobs struct {
	statuses []domain.GuideJobStatus
	errs     []string
	result   json.RawMessage
}

func (r *memJobs) Create(_ domain.Context, j domain.GuideJob) (string, error) { return "j1", nil }

func (r *memJobs) UpdateStatus(_ domain.Context, _ string, st domain.GuideJobStatus, msg string) error {
	r.statuses = append(r.statuses, st)
	r.errs = append(r.errs, msg)
	return nil
}

func (r *memJobs) SaveResult(_ domain.Context, _ string, res json.RawMessage) error {
	r.statuses = append(r.statuses, domain.JobCompleted)
	r.result = res
	return nil
}

func (r *memJobs) Get(_ domain.Context, _ string) (domain.GuideJob, error) {
	return domain.GuideJob{}, domain.ErrNotFound
}

type fixedOrchestrator struct {
	content string
	err     error
}

func (o *fixedOrchestrator) Chat(domain.Context, domain.ChatCallRequest) (domain.ModelCallResult, error) {
	if o.err != nil {
		return domain.ModelCallResult{}, o.err
	}
	return domain.ModelCallResult{Content: o.content, Model: "test/model"}, nil
}

func payload(kind domain.GuideJobKind) domain.GuideJobPayload {
	return domain.GuideJobPayload{
		JobID:  "j1",
		UserID: "u1",
		Kind:   kind,
		Params: domain.ProjectParams{Title: "Chat App", Difficulty: "beginner", DurationDays: 14},
	}
}

func TestGuideJobHandler_GuideCompletion(t *testing.T) {
	t.Parallel()
	jobs := &memJobs{}
	orch := &fixedOrchestrator{content: `{"readme": "# Chat App", "folderStructure": {"index.js": "file"}}`}
	h := redpanda.NewGuideJobHandler(jobs, guide.NewGenerator(orch, 0.7, 4096))

	require.NoError(t, h.Handle(context.Background(), payload(domain.JobKindGuide)))

	require.Equal(t, []domain.GuideJobStatus{domain.JobProcessing, domain.JobCompleted}, jobs.statuses)
	var doc domain.GuideDocument
	require.NoError(t, json.Unmarshal(jobs.result, &doc))
	assert.Equal(t, "# Chat App", doc.Readme)
	assert.Len(t, doc.FileDocumentation, 1, "repair documents every leaf")
}

func TestGuideJobHandler_RoadmapCompletion(t *testing.T) {
	t.Parallel()
	jobs := &memJobs{}
	// Even a useless model response completes: repair substitutes the
	// default roadmap.
	orch := &fixedOrchestrator{content: "not json"}
	h := redpanda.NewGuideJobHandler(jobs, guide.NewGenerator(orch, 0.7, 4096))

	require.NoError(t, h.Handle(context.Background(), payload(domain.JobKindRoadmap)))

	var rm domain.TaskRoadmap
	require.NoError(t, json.Unmarshal(jobs.result, &rm))
	require.NotEmpty(t, rm.Milestones)
	first := rm.Milestones[0].Tasks[0]
	assert.Equal(t, domain.TaskActive, first.Status)
	assert.Equal(t, domain.LinkGitHubRepo, first.Artifact.LinkType)
}

func TestGuideJobHandler_ModelFailureMarksJobFailed(t *testing.T) {
	t.Parallel()
	jobs := &memJobs{}
	orch := &fixedOrchestrator{err: domain.ErrServiceBusy}
	h := redpanda.NewGuideJobHandler(jobs, guide.NewGenerator(orch, 0.7, 4096))

	err := h.Handle(context.Background(), payload(domain.JobKindGuide))
	require.Error(t, err)
	require.Equal(t, []domain.GuideJobStatus{domain.JobProcessing, domain.JobFailed}, jobs.statuses)
	assert.NotEmpty(t, jobs.errs[1])
}

func TestGuideJobHandler_UnknownKind(t *testing.T) {
	t.Parallel()
	jobs := &memJobs{}
	h := redpanda.NewGuideJobHandler(jobs, guide.NewGenerator(&fixedOrchestrator{}, 0.7, 4096))

	err := h.Handle(context.Background(), payload("summary"))
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Equal(t, []domain.GuideJobStatus{domain.JobProcessing, domain.JobFailed}, jobs.statuses)
}
