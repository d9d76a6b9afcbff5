package guide

import (
	"encoding/json"
	"fmt"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
)

type rawRoadmap struct {
	Milestones []domain.Milestone `json:"milestones"`
}

func parseRoadmap(response string) rawRoadmap {
	var raw rawRoadmap
	_ = json.Unmarshal([]byte(cleanJSON(response)), &raw)
	return raw
}

// repairRoadmap enforces the roadmap invariants on every generation: global
// task IDs are sequential starting at 1 in milestone/task order, exactly the
// first task is active with a repository-submission artifact, every other
// task is locked, and every missing field is backfilled deterministically.
func repairRoadmap(raw rawRoadmap, params domain.ProjectParams) domain.TaskRoadmap {
	milestones := raw.Milestones
	if len(milestones) == 0 || totalTasks(milestones) == 0 {
		milestones = defaultRoadmap(params)
	}

	taskID := 0
	for mi := range milestones {
		m := &milestones[mi]
		m.MilestoneID = mi + 1
		if m.Name == "" {
			m.Name = fmt.Sprintf("Milestone %d", m.MilestoneID)
		}
		if m.EstimatedDays <= 0 {
			m.EstimatedDays = 3
		}
		if mi == 0 {
			m.Status = "active"
		} else {
			m.Status = "locked"
		}
		for ti := range m.Tasks {
			taskID++
			repairTask(&m.Tasks[ti], taskID, ti+1)
		}
	}
	return domain.TaskRoadmap{Milestones: milestones}
}

func repairTask(t *domain.Task, globalID, order int) {
	t.TaskID = globalID
	t.Order = order

	if !validTaskType(t.Type) {
		t.Type = domain.TaskCode
	}
	if t.Title == "" {
		t.Title = fmt.Sprintf("Task %d", globalID)
	}
	if t.Description == "" {
		t.Description = "Complete this step and submit the artifact below."
	}
	if t.EstimatedTime == "" {
		t.EstimatedTime = defaultEstimate
	}
	if len(t.LearningPoints) == 0 {
		t.LearningPoints = []string{"Applying " + string(t.Type) + " skills on a real project"}
	}
	if t.Resources == nil {
		t.Resources = []string{}
	}

	if t.Artifact.LinkType == "" || !validLinkType(t.Artifact.LinkType) {
		t.Artifact = artifactDefaults[t.Type]
	}
	if t.Artifact.Label == "" {
		t.Artifact.Label = artifactDefaults[t.Type].Label
	}

	// Creating the repository is always the mandatory first step.
	if globalID == 1 {
		t.Status = domain.TaskActive
		t.Artifact.LinkType = domain.LinkGitHubRepo
		t.Artifact.Required = true
	} else {
		t.Status = domain.TaskLocked
	}
}

func totalTasks(milestones []domain.Milestone) int {
	n := 0
	for _, m := range milestones {
		n += len(m.Tasks)
	}
	return n
}

func validTaskType(t domain.TaskType) bool {
	switch t {
	case domain.TaskSetup, domain.TaskCode, domain.TaskTesting, domain.TaskDeployment, domain.TaskDocumentation:
		return true
	}
	return false
}

func validLinkType(l domain.LinkType) bool {
	switch l {
	case domain.LinkGitHubRepo, domain.LinkDeployedURL, domain.LinkScreenshot, domain.LinkDocument:
		return true
	}
	return false
}

func roadmapPrompt(params domain.ProjectParams) string {
	return fmt.Sprintf(`You are generating a milestone/task roadmap for a student project on ProjectHub.

Project: %s
Description: %s
Tech stack: %s
Difficulty: %s
Duration: %d days

Return ONLY a JSON object shaped exactly like:
{
  "milestones": [
    {
      "name": "Milestone name",
      "estimatedDays": 3,
      "tasks": [
        {
          "title": "Task title",
          "description": "What the student does and why",
          "type": "setup|code|testing|deployment|documentation",
          "artifactConfig": {"linkType": "github-repo|deployed-url|screenshot|document", "required": true, "label": "...", "placeholder": "..."},
          "learningPoints": ["..."],
          "resources": ["https://..."],
          "estimatedTime": "1-2 hours"
        }
      ]
    }
  ]
}

The very first task must be creating the GitHub repository. Order milestones from setup through deployment. 3 to 5 milestones, 2 to 4 tasks each.`,
		params.Title, params.Description, joinOr(params.TechStack, "student's choice"), orDefault(params.Difficulty, "beginner"), durationOr(params.DurationDays, 14))
}
