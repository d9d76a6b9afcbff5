package guide

import (
	"fmt"
	"path"
	"strings"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
)

const defaultEstimate = "15-30 mins"

// fileDocHint is the deterministic documentation synthesized for a file the
// model forgot to document.
type fileDocHint struct {
	purpose  string
	learn    []string
	concepts []string
}

// nameHints match on exact base filename before extension hints apply.
var nameHints = map[string]fileDocHint{
	"readme.md": {
		purpose:  "Explains what the project does and how to run it",
		learn:    []string{"Writing clear project documentation"},
		concepts: []string{"Documentation", "Markdown"},
	},
	"dockerfile": {
		purpose:  "Defines the container image for the application",
		learn:    []string{"Containerizing an application"},
		concepts: []string{"Docker", "Images", "Layers"},
	},
	"package.json": {
		purpose:  "Declares project dependencies and scripts",
		learn:    []string{"Managing dependencies", "npm scripts"},
		concepts: []string{"Package management", "Semantic versioning"},
	},
	"go.mod": {
		purpose:  "Declares the Go module and its dependencies",
		learn:    []string{"Go module management"},
		concepts: []string{"Modules", "Dependency versioning"},
	},
	".env.example": {
		purpose:  "Documents the environment variables the app needs",
		learn:    []string{"Separating configuration from code"},
		concepts: []string{"Environment variables", "12-factor config"},
	},
	".gitignore": {
		purpose:  "Keeps generated and secret files out of version control",
		learn:    []string{"What belongs in a repository"},
		concepts: []string{"Version control hygiene"},
	},
}

var extensionHints = map[string]fileDocHint{
	".go": {
		purpose:  "Go source implementing part of the application logic",
		learn:    []string{"Structuring Go code", "Error handling"},
		concepts: []string{"Packages", "Interfaces", "Goroutines"},
	},
	".js": {
		purpose:  "JavaScript source implementing application behaviour",
		learn:    []string{"Writing modular JavaScript"},
		concepts: []string{"Functions", "Modules", "Async/await"},
	},
	".ts": {
		purpose:  "TypeScript source with typed application logic",
		learn:    []string{"Using static types in JavaScript projects"},
		concepts: []string{"Type annotations", "Interfaces"},
	},
	".jsx": {
		purpose:  "React component rendering part of the UI",
		learn:    []string{"Building reusable UI components"},
		concepts: []string{"Components", "Props", "State"},
	},
	".tsx": {
		purpose:  "Typed React component rendering part of the UI",
		learn:    []string{"Building typed UI components"},
		concepts: []string{"Components", "Props", "Generics"},
	},
	".py": {
		purpose:  "Python source implementing application logic",
		learn:    []string{"Organizing Python modules"},
		concepts: []string{"Functions", "Classes", "Imports"},
	},
	".css": {
		purpose:  "Stylesheet controlling the look of the UI",
		learn:    []string{"Styling layouts responsively"},
		concepts: []string{"Selectors", "Flexbox", "Media queries"},
	},
	".html": {
		purpose:  "Markup defining the page structure",
		learn:    []string{"Semantic HTML structure"},
		concepts: []string{"Elements", "Accessibility"},
	},
	".sql": {
		purpose:  "SQL defining or querying the database schema",
		learn:    []string{"Modeling data relationally"},
		concepts: []string{"Tables", "Indexes", "Migrations"},
	},
	".json": {
		purpose:  "Configuration data for the project tooling",
		learn:    []string{"Reading tool configuration"},
		concepts: []string{"JSON", "Configuration"},
	},
	".yaml": {
		purpose:  "Configuration data for the project tooling",
		learn:    []string{"Declarative configuration"},
		concepts: []string{"YAML", "Configuration"},
	},
	".yml": {
		purpose:  "Configuration data for the project tooling",
		learn:    []string{"Declarative configuration"},
		concepts: []string{"YAML", "Configuration"},
	},
	".md": {
		purpose:  "Documentation for this part of the project",
		learn:    []string{"Documenting as you build"},
		concepts: []string{"Markdown"},
	},
}

var genericHint = fileDocHint{
	purpose:  "Supporting file for the project",
	learn:    []string{"How this file fits into the project structure"},
	concepts: []string{"Project organization"},
}

// synthesizeFileDoc builds a documentation entry for a leaf path the model
// did not cover, from fixed name/extension lookups.
func synthesizeFileDoc(filePath string) domain.FileDoc {
	base := strings.ToLower(path.Base(filePath))
	hint, ok := nameHints[base]
	if !ok {
		hint, ok = extensionHints[strings.ToLower(path.Ext(base))]
	}
	if !ok {
		hint = genericHint
	}
	return domain.FileDoc{
		FilePath:      filePath,
		Purpose:       hint.purpose,
		WhatYouLearn:  hint.learn,
		KeyConcepts:   hint.concepts,
		EstimatedTime: defaultEstimate,
	}
}

// defaultFolderStructure is substituted when the model omits one entirely.
func defaultFolderStructure(params domain.ProjectParams) map[string]any {
	return map[string]any{
		"src": map[string]any{
			"index.js": "file",
		},
		"README.md":    "file",
		".gitignore":   "file",
		".env.example": "file",
	}
}

func defaultReadme(params domain.ProjectParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n", params.Title, params.Description)
	if len(params.TechStack) > 0 {
		b.WriteString("\n## Tech Stack\n\n")
		for _, t := range params.TechStack {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}
	b.WriteString("\n## Getting Started\n\nFollow the setup instructions in this guide, then work through the roadmap task by task.\n")
	return b.String()
}

func defaultSetupInstructions(params domain.ProjectParams) string {
	return fmt.Sprintf("# Setup\n\n1. Create a new repository named `%s`.\n2. Clone it locally.\n3. Install the tools listed in the tech stack.\n4. Copy `.env.example` to `.env` and fill in the values.\n", slugify(params.Title))
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// defaultRoadmap is the complete fixed roadmap substituted when the model
// returns no usable milestones. Repair renumbers and re-statuses it like any
// other roadmap.
func defaultRoadmap(params domain.ProjectParams) []domain.Milestone {
	days := params.DurationDays
	if days <= 0 {
		days = 14
	}
	return []domain.Milestone{
		{
			Name:          "Project Setup",
			EstimatedDays: maxInt(1, days/7),
			Tasks: []domain.Task{
				{Title: "Create the project repository", Description: "Create a GitHub repository for " + params.Title + " and push an initial commit with a README.", Type: domain.TaskSetup},
				{Title: "Set up the development environment", Description: "Install the tech stack locally and verify a hello-world build runs.", Type: domain.TaskSetup},
			},
		},
		{
			Name:          "Core Implementation",
			EstimatedDays: maxInt(2, days/2),
			Tasks: []domain.Task{
				{Title: "Build the core feature", Description: "Implement the main functionality described in the project brief.", Type: domain.TaskCode},
				{Title: "Add input validation and error handling", Description: "Handle bad input and failure paths so the app does not crash.", Type: domain.TaskCode},
			},
		},
		{
			Name:          "Testing & Polish",
			EstimatedDays: maxInt(1, days/4),
			Tasks: []domain.Task{
				{Title: "Write tests for the core paths", Description: "Cover the happy path and at least two failure cases.", Type: domain.TaskTesting},
				{Title: "Deploy the project", Description: "Deploy a working build and capture the public URL.", Type: domain.TaskDeployment},
				{Title: "Document the project", Description: "Finish the README with setup steps, screenshots, and what you learned.", Type: domain.TaskDocumentation},
			},
		},
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// artifactDefaults keys the submission type a task minimally needs by its
// task type.
var artifactDefaults = map[domain.TaskType]domain.ArtifactConfig{
	domain.TaskSetup: {
		LinkType: domain.LinkGitHubRepo, Required: true,
		Label: "Repository URL", Placeholder: "https://github.com/you/project",
	},
	domain.TaskCode: {
		LinkType: domain.LinkGitHubRepo, Required: true,
		Label: "Repository URL", Placeholder: "https://github.com/you/project",
	},
	domain.TaskTesting: {
		LinkType: domain.LinkScreenshot, Required: true,
		Label: "Test run screenshot", Placeholder: "Link to a screenshot of passing tests",
	},
	domain.TaskDeployment: {
		LinkType: domain.LinkDeployedURL, Required: true,
		Label: "Deployed URL", Placeholder: "https://your-project.example.com",
	},
	domain.TaskDocumentation: {
		LinkType: domain.LinkDocument, Required: true,
		Label: "Documentation link", Placeholder: "Link to your README or docs",
	},
}
