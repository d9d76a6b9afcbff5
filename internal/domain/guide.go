package domain

import (
	"encoding/json"
	"time"
)

// ProjectParams parameterises guide and roadmap generation.
type ProjectParams struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	TechStack    []string `json:"techStack"`
	Difficulty   string   `json:"difficulty"`
	DurationDays int      `json:"durationDays"`
}

// FileDoc documents one file reachable from the guide's folder structure.
type FileDoc struct {
	FilePath      string   `json:"filePath"`
	Purpose       string   `json:"purpose"`
	WhatYouLearn  []string `json:"whatYouLearn"`
	KeyConcepts   []string `json:"keyConcepts"`
	EstimatedTime string   `json:"estimatedTime"`
}

// GuideDocument is a repaired project guide.
// Invariant: every leaf file path in FolderStructure has exactly one
// FileDocumentation entry.
type GuideDocument struct {
	Readme             string            `json:"readme"`
	FolderStructure    map[string]any    `json:"folderStructure"`
	FileDocumentation  []FileDoc         `json:"fileDocumentation"`
	SetupInstructions  string            `json:"setupInstructions"`
	ConfigurationGuide map[string]string `json:"configurationGuide"`
}

// TaskType classifies a roadmap task.
type TaskType string

const (
	TaskSetup         TaskType = "setup"
	TaskCode          TaskType = "code"
	TaskTesting       TaskType = "testing"
	TaskDeployment    TaskType = "deployment"
	TaskDocumentation TaskType = "documentation"
)

// TaskStatus is the unlock state of a roadmap task.
type TaskStatus string

const (
	TaskLocked TaskStatus = "locked"
	TaskActive TaskStatus = "active"
)

// LinkType is the typed URL submission attached to a task.
type LinkType string

const (
	LinkGitHubRepo  LinkType = "github-repo"
	LinkDeployedURL LinkType = "deployed-url"
	LinkScreenshot  LinkType = "screenshot"
	LinkDocument    LinkType = "document"
)

// ArtifactConfig describes the submission a task requires for completion.
type ArtifactConfig struct {
	LinkType    LinkType `json:"linkType"`
	Required    bool     `json:"required"`
	Label       string   `json:"label"`
	Placeholder string   `json:"placeholder"`
}

// Task is one roadmap step. TaskID is globally sequential across the whole
// roadmap, not per milestone.
type Task struct {
	TaskID         int            `json:"taskId"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Type           TaskType       `json:"type"`
	Order          int            `json:"order"`
	Status         TaskStatus     `json:"status"`
	Artifact       ArtifactConfig `json:"artifactConfig"`
	LearningPoints []string       `json:"learningPoints"`
	Resources      []string       `json:"resources"`
	EstimatedTime  string         `json:"estimatedTime"`
}

// Milestone groups ordered tasks.
type Milestone struct {
	MilestoneID   int    `json:"milestoneId"`
	Name          string `json:"name"`
	EstimatedDays int    `json:"estimatedDays"`
	Status        string `json:"status"`
	Tasks         []Task `json:"tasks"`
}

// TaskRoadmap is a repaired roadmap.
// Invariants: exactly one task is active and it has TaskID 1; every task
// carries a non-empty artifact link type.
type TaskRoadmap struct {
	Milestones []Milestone `json:"milestones"`
}

// GuideJobKind selects which generator a job runs.
type GuideJobKind string

const (
	JobKindGuide   GuideJobKind = "guide"
	JobKindRoadmap GuideJobKind = "roadmap"
)

// GuideJobStatus is a job's lifecycle state.
type GuideJobStatus string

const (
	JobQueued     GuideJobStatus = "queued"
	JobProcessing GuideJobStatus = "processing"
	JobCompleted  GuideJobStatus = "completed"
	JobFailed     GuideJobStatus = "failed"
)

// GuideJob tracks one asynchronous generation request.
type GuideJob struct {
	ID        string
	UserID    string
	Kind      GuideJobKind
	Status    GuideJobStatus
	Params    ProjectParams
	Result    json.RawMessage
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GuideJobPayload is the queue message for one generation job.
type GuideJobPayload struct {
	JobID  string        `json:"jobId"`
	UserID string        `json:"userId"`
	Kind   GuideJobKind  `json:"kind"`
	Params ProjectParams `json:"params"`
}

// GuideJobRepository persists guide jobs.
type GuideJobRepository interface {
	Create(ctx Context, j GuideJob) (string, error)
	UpdateStatus(ctx Context, id string, status GuideJobStatus, errMsg string) error
	SaveResult(ctx Context, id string, result json.RawMessage) error
	Get(ctx Context, id string) (GuideJob, error)
}
