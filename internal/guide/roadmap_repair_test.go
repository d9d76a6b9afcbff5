package guide

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
)

func allTasks(rm domain.TaskRoadmap) []domain.Task {
	var out []domain.Task
	for _, m := range rm.Milestones {
		out = append(out, m.Tasks...)
	}
	return out
}

func TestRepairRoadmap_MalformedResponseInvariants(t *testing.T) {
	t.Parallel()
	// No IDs, no statuses, no artifacts, one bogus task type.
	response := `{
		"milestones": [
			{"name": "Start", "tasks": [
				{"title": "Make repo", "type": "setup"},
				{"title": "Install stuff", "type": "banana"}
			]},
			{"tasks": [
				{"title": "Build it", "type": "code"},
				{"title": "Ship it", "type": "deployment"}
			]}
		]
	}`
	rm := repairRoadmap(parseRoadmap(response), testParams)

	require.Len(t, rm.Milestones, 2)
	assert.Equal(t, 1, rm.Milestones[0].MilestoneID)
	assert.Equal(t, "active", rm.Milestones[0].Status)
	assert.Equal(t, 2, rm.Milestones[1].MilestoneID)
	assert.Equal(t, "locked", rm.Milestones[1].Status)
	assert.Equal(t, "Milestone 2", rm.Milestones[1].Name)

	tasks := allTasks(rm)
	require.Len(t, tasks, 4)
	for i, task := range tasks {
		assert.Equal(t, i+1, task.TaskID, "task IDs are globally sequential")
		assert.True(t, validLinkType(task.Artifact.LinkType), "task %d has artifact %q", task.TaskID, task.Artifact.LinkType)
		if i == 0 {
			assert.Equal(t, domain.TaskActive, task.Status)
			assert.Equal(t, domain.LinkGitHubRepo, task.Artifact.LinkType)
			assert.True(t, task.Artifact.Required)
		} else {
			assert.Equal(t, domain.TaskLocked, task.Status)
		}
	}

	// Bogus type falls back to code; the deployment task gets its typed
	// artifact default.
	assert.Equal(t, domain.TaskCode, tasks[1].Type)
	assert.Equal(t, domain.LinkDeployedURL, tasks[3].Artifact.LinkType)
	assert.NotEmpty(t, tasks[3].Artifact.Label)
}

func TestRepairRoadmap_EmptyResponseUsesDefaultRoadmap(t *testing.T) {
	t.Parallel()
	rm := repairRoadmap(parseRoadmap("no json here"), testParams)

	require.Len(t, rm.Milestones, 3)
	tasks := allTasks(rm)
	require.Len(t, tasks, 7)

	active := 0
	for i, task := range tasks {
		assert.Equal(t, i+1, task.TaskID)
		if task.Status == domain.TaskActive {
			active++
			assert.Equal(t, 1, task.TaskID)
		}
	}
	assert.Equal(t, 1, active, "exactly one task is active")
}

func TestRepairRoadmap_MilestonesWithoutTasksUseDefault(t *testing.T) {
	t.Parallel()
	rm := repairRoadmap(parseRoadmap(`{"milestones": [{"name": "Empty"}, {"name": "Also empty"}]}`), testParams)
	require.NotEmpty(t, allTasks(rm), "taskless roadmaps are replaced wholesale")
}

func TestRepairRoadmap_WellFormedInputPreserved(t *testing.T) {
	t.Parallel()
	response := `{
		"milestones": [{
			"name": "Setup",
			"estimatedDays": 2,
			"tasks": [{
				"title": "Create repository",
				"description": "Create and push.",
				"type": "setup",
				"artifactConfig": {"linkType": "github-repo", "required": true, "label": "Repo URL", "placeholder": "https://github.com/..."},
				"learningPoints": ["git basics"],
				"resources": ["https://docs.github.com"],
				"estimatedTime": "30 mins"
			}]
		}]
	}`
	rm := repairRoadmap(parseRoadmap(response), testParams)
	task := allTasks(rm)[0]
	assert.Equal(t, "Create repository", task.Title)
	assert.Equal(t, "30 mins", task.EstimatedTime)
	assert.Equal(t, "Repo URL", task.Artifact.Label)
	assert.Equal(t, []string{"git basics"}, task.LearningPoints)
	assert.Equal(t, []string{"https://docs.github.com"}, task.Resources)
}

func TestRepairTask_Backfills(t *testing.T) {
	t.Parallel()
	task := domain.Task{Type: domain.TaskTesting}
	repairTask(&task, 5, 2)

	assert.Equal(t, 5, task.TaskID)
	assert.Equal(t, 2, task.Order)
	assert.Equal(t, domain.TaskLocked, task.Status)
	assert.Equal(t, "Task 5", task.Title)
	assert.NotEmpty(t, task.Description)
	assert.Equal(t, defaultEstimate, task.EstimatedTime)
	assert.Equal(t, domain.LinkScreenshot, task.Artifact.LinkType)
	assert.NotEmpty(t, task.Artifact.Label)
	assert.NotNil(t, task.Resources)
}

func TestArtifactDefaults_CoverAllTaskTypes(t *testing.T) {
	t.Parallel()
	for _, tt := range []domain.TaskType{
		domain.TaskSetup, domain.TaskCode, domain.TaskTesting,
		domain.TaskDeployment, domain.TaskDocumentation,
	} {
		cfg, ok := artifactDefaults[tt]
		require.True(t, ok, "no artifact default for %q", tt)
		assert.True(t, validLinkType(cfg.LinkType))
		assert.True(t, cfg.Required)
		assert.NotEmpty(t, cfg.Label)
	}
}

func TestSlugify(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "chat-app", slugify("Chat App"))
	assert.Equal(t, "my-project-2", slugify("  My  Project 2! "))
}
