package guide

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
)

// rawGuide is the trusting shape we first decode model output into. Prose
// fields use the string-or-sections union; everything else is optional.
type rawGuide struct {
	Readme             markdownOrSections `json:"readme"`
	FolderStructure    map[string]any     `json:"folderStructure"`
	FileDocumentation  []domain.FileDoc   `json:"fileDocumentation"`
	SetupInstructions  markdownOrSections `json:"setupInstructions"`
	ConfigurationGuide map[string]string  `json:"configurationGuide"`
}

var readmeSections = []string{"overview", "description", "features", "techStack", "architecture", "gettingStarted", "usage"}

var setupSections = []string{"prerequisites", "installation", "configuration", "database", "running", "troubleshooting"}

// parseGuide decodes a model response into rawGuide, tolerating fences and
// surrounding prose. Unknown fields are ignored; a response with no JSON
// object at all yields the zero value, which repair fills from templates.
func parseGuide(response string) rawGuide {
	var raw rawGuide
	_ = json.Unmarshal([]byte(cleanJSON(response)), &raw)
	return raw
}

// repairGuide enforces the guide's structural invariants: prose fields are
// always markdown strings, folderStructure always exists, and every leaf
// file path has exactly one documentation entry. It runs on every
// generation, well-formed or not.
func repairGuide(raw rawGuide, params domain.ProjectParams) domain.GuideDocument {
	doc := domain.GuideDocument{
		Readme:             raw.Readme.Flatten(params.Title, readmeSections),
		FolderStructure:    raw.FolderStructure,
		SetupInstructions:  raw.SetupInstructions.Flatten("Setup", setupSections),
		ConfigurationGuide: raw.ConfigurationGuide,
	}
	if doc.Readme == "" {
		doc.Readme = defaultReadme(params)
	}
	if doc.SetupInstructions == "" {
		doc.SetupInstructions = defaultSetupInstructions(params)
	}
	if len(doc.FolderStructure) == 0 {
		doc.FolderStructure = defaultFolderStructure(params)
	}
	if doc.ConfigurationGuide == nil {
		doc.ConfigurationGuide = map[string]string{}
	}

	doc.FileDocumentation = unionFileDocs(doc.FolderStructure, raw.FileDocumentation)
	return doc
}

// unionFileDocs guarantees one documentation entry per leaf file: model
// entries are kept when their path exists in the tree, every uncovered leaf
// gets a synthesized entry, and entries for paths not in the tree are
// dropped.
func unionFileDocs(tree map[string]any, provided []domain.FileDoc) []domain.FileDoc {
	leaves := leafPaths(tree)

	byPath := make(map[string]domain.FileDoc, len(provided))
	for _, d := range provided {
		if d.FilePath == "" {
			continue
		}
		if _, dup := byPath[d.FilePath]; dup {
			continue
		}
		byPath[d.FilePath] = d
	}

	docs := make([]domain.FileDoc, 0, len(leaves))
	for _, leaf := range leaves {
		d, ok := byPath[leaf]
		if !ok {
			docs = append(docs, synthesizeFileDoc(leaf))
			continue
		}
		if d.EstimatedTime == "" {
			d.EstimatedTime = defaultEstimate
		}
		if d.Purpose == "" {
			d.Purpose = synthesizeFileDoc(leaf).Purpose
		}
		docs = append(docs, d)
	}
	return docs
}

// leafPaths walks the folder tree and returns every leaf file path, sorted.
// Any non-map value marks a file; map values are subdirectories.
func leafPaths(tree map[string]any) []string {
	var out []string
	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for name, v := range node {
			full := name
			if prefix != "" {
				full = prefix + "/" + name
			}
			if sub, ok := v.(map[string]any); ok {
				walk(full, sub)
				continue
			}
			out = append(out, full)
		}
	}
	walk("", tree)
	sort.Strings(out)
	return out
}

func guidePrompt(params domain.ProjectParams) string {
	return fmt.Sprintf(`You are generating a complete project guide for a student project on ProjectHub.

Project: %s
Description: %s
Tech stack: %s
Difficulty: %s
Duration: %d days

Return ONLY a JSON object with exactly these fields:
{
  "readme": "<full README.md content as a markdown string>",
  "folderStructure": {"dirName": {"fileName.ext": "file"}, "topFile.ext": "file"},
  "fileDocumentation": [{"filePath": "dirName/fileName.ext", "purpose": "...", "whatYouLearn": ["..."], "keyConcepts": ["..."], "estimatedTime": "15-30 mins"}],
  "setupInstructions": "<step-by-step setup as a markdown string>",
  "configurationGuide": {"ENV_VAR": "what it configures"}
}

Document every file that appears in folderStructure. Write for a student seeing this stack for the first time.`,
		params.Title, params.Description, joinOr(params.TechStack, "student's choice"), orDefault(params.Difficulty, "beginner"), durationOr(params.DurationDays, 14))
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	out := items[0]
	for _, it := range items[1:] {
		out += ", " + it
	}
	return out
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func durationOr(d, fallback int) int {
	if d <= 0 {
		return fallback
	}
	return d
}
